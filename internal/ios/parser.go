package ios

import (
	"encoding/json"
	"strings"

	"github.com/emudevtools/emuctl/internal/models"
)

const (
	runtimePrefix    = "com.apple.CoreSimulator.SimRuntime."
	deviceTypePrefix = "com.apple.CoreSimulator.SimDeviceType."
)

// devicesResponse mirrors `simctl list devices --json`.
type devicesResponse struct {
	Devices map[string][]deviceRecord `json:"devices"`
}

type deviceRecord struct {
	UDID                 string `json:"udid"`
	Name                 string `json:"name"`
	State                string `json:"state"`
	DeviceTypeIdentifier string `json:"deviceTypeIdentifier"`
	IsAvailable          bool   `json:"isAvailable"`
}

// deviceTypesResponse mirrors `simctl list devicetypes --json`.
type deviceTypesResponse struct {
	DeviceTypes []deviceTypeRecord `json:"devicetypes"`
}

type deviceTypeRecord struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// runtimesResponse mirrors `simctl list runtimes --json`.
type runtimesResponse struct {
	Runtimes []runtimeRecord `json:"runtimes"`
}

type runtimeRecord struct {
	Identifier   string `json:"identifier"`
	Name         string `json:"name"`
	Version      string `json:"version"`
	BuildVersion string `json:"buildversion"`
	IsAvailable  bool   `json:"isAvailable"`
}

// parseDevices decodes the device listing. A top-level decode failure is
// fatal; individual records missing their identity are skipped. The type
// names map translates device type identifiers to display names.
func parseDevices(payload string, typeNames map[string]string) ([]models.IOSDevice, error) {
	var resp devicesResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, models.NewDeviceError(models.ErrParse, "simctl",
			"device listing is not valid JSON", err)
	}

	var devices []models.IOSDevice
	for runtimeKey, records := range resp.Devices {
		version := runtimeKeyToVersion(runtimeKey)
		for _, rec := range records {
			if rec.UDID == "" || rec.Name == "" {
				continue
			}
			devices = append(devices, models.IOSDevice{
				Name:           rec.Name,
				UDID:           rec.UDID,
				DeviceType:     deviceTypeName(rec.DeviceTypeIdentifier, typeNames),
				IOSVersion:     version,
				RuntimeVersion: runtimeKeyToDisplay(runtimeKey),
				State:          simctlStateToStatus(rec.State),
				Available:      rec.IsAvailable,
			})
		}
	}
	return devices, nil
}

// parseDeviceTypes decodes the device type listing into an identifier to
// display name map.
func parseDeviceTypes(payload string) (map[string]string, error) {
	var resp deviceTypesResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, models.NewDeviceError(models.ErrParse, "simctl",
			"device type listing is not valid JSON", err)
	}

	names := make(map[string]string, len(resp.DeviceTypes))
	for _, dt := range resp.DeviceTypes {
		if dt.Identifier != "" && dt.Name != "" {
			names[dt.Identifier] = dt.Name
		}
	}
	return names, nil
}

// parseRuntimes decodes the runtime listing, keeping only usable runtimes.
func parseRuntimes(payload string) ([]runtimeRecord, error) {
	var resp runtimesResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, models.NewDeviceError(models.ErrParse, "simctl",
			"runtime listing is not valid JSON", err)
	}

	var runtimes []runtimeRecord
	for _, rt := range resp.Runtimes {
		if rt.Identifier == "" {
			continue
		}
		runtimes = append(runtimes, rt)
	}
	return runtimes, nil
}

// runtimeKeyToVersion converts a runtime identifier such as
// "com.apple.CoreSimulator.SimRuntime.iOS-17-0" into "17.0".
func runtimeKeyToVersion(key string) string {
	suffix := strings.TrimPrefix(key, runtimePrefix)
	idx := strings.IndexByte(suffix, '-')
	if idx < 0 {
		return suffix
	}
	return strings.ReplaceAll(suffix[idx+1:], "-", ".")
}

// runtimeKeyToDisplay converts a runtime identifier into its human form,
// e.g. "iOS 17.0".
func runtimeKeyToDisplay(key string) string {
	suffix := strings.TrimPrefix(key, runtimePrefix)
	idx := strings.IndexByte(suffix, '-')
	if idx < 0 {
		return suffix
	}
	return suffix[:idx] + " " + strings.ReplaceAll(suffix[idx+1:], "-", ".")
}

// deviceTypeName resolves a device type identifier to its display name,
// deriving one from the identifier when the lookup has no entry.
func deviceTypeName(identifier string, typeNames map[string]string) string {
	if name, ok := typeNames[identifier]; ok {
		return name
	}
	suffix := strings.TrimPrefix(identifier, deviceTypePrefix)
	return strings.ReplaceAll(suffix, "-", " ")
}

// simctlStateToStatus maps a simctl state string onto the shared enum.
func simctlStateToStatus(state string) models.DeviceStatus {
	switch state {
	case "Booted":
		return models.StatusRunning
	case "Shutdown":
		return models.StatusStopped
	case "Booting":
		return models.StatusStarting
	case "Shutting Down":
		return models.StatusStopping
	case "Creating":
		return models.StatusCreating
	default:
		return models.StatusUnknown
	}
}
