package android

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/emudevtools/emuctl/internal/models"
)

var (
	apiLevelPattern     = regexp.MustCompile(`API level (\d+)`)
	androidImagePattern = regexp.MustCompile(`^android-(\d+)$`)
)

// parseAVDList converts `avdmanager list avd` output into device records.
// Stanzas are separated by dashed lines; a stanza that carries no parseable
// API level still yields a device with APILevel 0. All devices come back
// Stopped; running state is overlaid from adb afterwards.
func parseAVDList(output string) []models.AndroidDevice {
	var (
		devices []models.AndroidDevice
		current *models.AndroidDevice
	)

	flush := func() {
		if current != nil && current.Name != "" {
			devices = append(devices, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "---------"):
			flush()
		case strings.HasPrefix(trimmed, "Name:"):
			// avdmanager prints stanzas without a leading separator, so a
			// second Name: inside one block starts a new device.
			flush()
			current = &models.AndroidDevice{
				Name:  strings.TrimSpace(strings.TrimPrefix(trimmed, "Name:")),
				State: models.StatusStopped,
			}
		case current == nil:
			// ignore preamble such as "Available Android Virtual Devices:"
		case strings.HasPrefix(trimmed, "Device:"):
			// "Device: pixel_7 (Pixel 7)" keeps only the profile id.
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, "Device:"))
			if idx := strings.IndexByte(value, ' '); idx > 0 {
				value = value[:idx]
			}
			current.DeviceType = value
		case strings.HasPrefix(trimmed, "Target:"), strings.HasPrefix(trimmed, "Based on:"):
			if m := apiLevelPattern.FindStringSubmatch(trimmed); m != nil {
				if api, err := strconv.Atoi(m[1]); err == nil {
					current.APILevel = api
				}
			}
		}
	}
	flush()

	return devices
}

// parseADBDevices extracts emulator serials and their coarse state from
// `adb devices` output. Hardware serials are skipped.
func parseADBDevices(output string) map[string]string {
	serials := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "List of devices") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "emulator-") {
			continue
		}
		serials[fields[0]] = fields[1]
	}
	return serials
}

// adbStateToStatus maps an adb transport state onto the shared status enum.
// A serial shows "offline" while the emulator is still booting.
func adbStateToStatus(state string) models.DeviceStatus {
	switch state {
	case "device":
		return models.StatusRunning
	case "offline":
		return models.StatusStarting
	default:
		return models.StatusUnknown
	}
}

// normalizeAVDName makes AVD names comparable across tools. The emulator
// console reports names with spaces where avdmanager uses underscores.
func normalizeAVDName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// parseEmuAVDName extracts the AVD name from `adb emu avd name` output. The
// console echoes the name on the first line followed by "OK"; error replies
// are rejected.
func parseEmuAVDName(output string) string {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "OK" || trimmed == "KO" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "error") || strings.Contains(lower, "unknown command") {
			return ""
		}
		return trimmed
	}
	return ""
}

// avdStanza is the raw detail block for one AVD.
type avdStanza struct {
	Name   string
	Device string
	Path   string
	Target string
}

// findAVDStanza locates the stanza for one AVD inside `avdmanager list avd`
// output, keeping the fields the summary parse discards.
func findAVDStanza(output, name string) (avdStanza, bool) {
	var (
		current avdStanza
		active  bool
	)

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "Name:") || strings.HasPrefix(trimmed, "---------") {
			if active && current.Name == name {
				return current, true
			}
			current, active = avdStanza{}, false
		}

		switch {
		case strings.HasPrefix(trimmed, "Name:"):
			current.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, "Name:"))
			active = true
		case !active:
		case strings.HasPrefix(trimmed, "Device:"):
			current.Device = strings.TrimSpace(strings.TrimPrefix(trimmed, "Device:"))
		case strings.HasPrefix(trimmed, "Path:"):
			current.Path = strings.TrimSpace(strings.TrimPrefix(trimmed, "Path:"))
		case strings.HasPrefix(trimmed, "Target:"), strings.HasPrefix(trimmed, "Based on:"):
			if current.Target != "" {
				current.Target += " "
			}
			current.Target += trimmed
		}
	}
	if active && current.Name == name {
		return current, true
	}
	return avdStanza{}, false
}

// parseConfigINI reads "key=value" pairs from an AVD config.ini payload.
func parseConfigINI(content string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values
}

// systemImage is one decomposed "system-images;android-NN;tag;abi" package.
type systemImage struct {
	API       int
	Tag       string
	ABI       string
	PackageID string
	Installed bool
}

// parseSystemImages walks `sdkmanager --list` output collecting system image
// packages from both the installed and available sections.
func parseSystemImages(output string) []systemImage {
	var (
		images    []systemImage
		installed bool
		inSection bool
	)

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)

		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "installed packages"):
			installed, inSection = true, true
			continue
		case strings.HasPrefix(lower, "available packages"), strings.HasPrefix(lower, "available updates"):
			installed, inSection = false, true
			continue
		}
		if !inSection || !strings.HasPrefix(trimmed, "system-images;") {
			continue
		}

		// Table rows look like "system-images;android-34;google_apis;x86_64 | 14 | ...".
		pkg := trimmed
		if idx := strings.IndexByte(pkg, '|'); idx > 0 {
			pkg = strings.TrimSpace(pkg[:idx])
		} else if idx := strings.IndexByte(pkg, ' '); idx > 0 {
			pkg = pkg[:idx]
		}

		parts := strings.Split(pkg, ";")
		if len(parts) != 4 {
			continue
		}
		m := androidImagePattern.FindStringSubmatch(parts[1])
		if m == nil {
			continue
		}
		api, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		images = append(images, systemImage{
			API:       api,
			Tag:       parts[2],
			ABI:       parts[3],
			PackageID: pkg,
			Installed: installed,
		})
	}

	return images
}

// DeviceProfile is one hardware profile from `avdmanager list device`.
type DeviceProfile struct {
	ID   string
	Name string
	OEM  string
}

// parseDeviceProfiles converts `avdmanager list device` output. Each stanza
// has an `id: 17 or "pixel_7"` line followed by Name: and Manufacturer:.
func parseDeviceProfiles(output string) []DeviceProfile {
	var (
		profiles []DeviceProfile
		current  *DeviceProfile
	)

	flush := func() {
		if current != nil && current.ID != "" {
			profiles = append(profiles, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "---------"):
			flush()
		case strings.HasPrefix(trimmed, "id:"):
			flush()
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, "id:"))
			// `id: 17 or "pixel_7"` keeps the quoted symbolic id.
			if idx := strings.Index(value, `or "`); idx >= 0 {
				value = strings.Trim(value[idx+3:], `" `)
			}
			current = &DeviceProfile{ID: value}
		case current == nil:
		case strings.HasPrefix(trimmed, "Name:"):
			current.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, "Name:"))
		case strings.HasPrefix(trimmed, "OEM :"), strings.HasPrefix(trimmed, "OEM:"):
			value := strings.TrimPrefix(trimmed, "OEM")
			current.OEM = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), ":"))
		}
	}
	flush()

	return profiles
}

// matchDeviceProfile resolves a requested device type to a known profile id.
// Exact id match wins, then case-insensitive id or name match, then a
// substring match in either direction.
func matchDeviceProfile(profiles []DeviceProfile, requested string) (DeviceProfile, bool) {
	if requested == "" {
		return DeviceProfile{}, false
	}
	wanted := strings.ToLower(requested)

	for _, p := range profiles {
		if p.ID == requested {
			return p, true
		}
	}
	for _, p := range profiles {
		if strings.ToLower(p.ID) == wanted || strings.ToLower(p.Name) == wanted {
			return p, true
		}
	}
	for _, p := range profiles {
		id := strings.ToLower(p.ID)
		name := strings.ToLower(p.Name)
		if strings.Contains(id, wanted) || strings.Contains(wanted, id) ||
			strings.Contains(name, wanted) || strings.Contains(wanted, name) {
			return p, true
		}
	}
	return DeviceProfile{}, false
}

// versionNameForAPI maps an API level to its marketing version.
func versionNameForAPI(api int) string {
	switch api {
	case 36:
		return "Android 16"
	case 35:
		return "Android 15"
	case 34:
		return "Android 14"
	case 33:
		return "Android 13"
	case 32:
		return "Android 12L"
	case 31:
		return "Android 12"
	case 30:
		return "Android 11"
	case 29:
		return "Android 10"
	case 28:
		return "Android 9"
	case 27:
		return "Android 8.1"
	case 26:
		return "Android 8.0"
	case 25:
		return "Android 7.1"
	case 24:
		return "Android 7.0"
	case 23:
		return "Android 6.0"
	default:
		return "API " + strconv.Itoa(api)
	}
}

// parseInstallProgress derives a progress percentage from one line of
// sdkmanager output. The second return is false for lines carrying no
// progress information.
func parseInstallProgress(line string) (string, int, bool) {
	lower := strings.ToLower(line)

	switch {
	case strings.Contains(lower, "unzipping"):
		return "Extracting", 75, true
	case strings.Contains(lower, "installing"):
		return "Installing", 85, true
	}

	// Download rows embed a percentage such as "Downloading x86_64 (45%)".
	if start := strings.LastIndexByte(line, '('); start >= 0 {
		if end := strings.IndexByte(line[start:], '%'); end > 0 {
			if pct, err := strconv.Atoi(strings.TrimSpace(line[start+1 : start+end])); err == nil && pct >= 0 && pct <= 100 {
				// Downloads cover the first 70% of the install.
				return "Downloading", pct * 70 / 100, true
			}
		}
	}
	return "", 0, false
}
