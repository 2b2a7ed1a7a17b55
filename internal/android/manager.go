// Package android drives Android Virtual Devices through the SDK command
// line tools: avdmanager for inventory, adb for running state, the emulator
// binary for launches and sdkmanager for system images.
package android

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/emudevtools/emuctl/internal/command"
	"github.com/emudevtools/emuctl/internal/manager"
	"github.com/emudevtools/emuctl/internal/models"
	"github.com/emudevtools/emuctl/internal/priority"
)

// emulatorStartFlags keeps headless launches quick and side effect free.
var emulatorStartFlags = []string{"-no-audio", "-no-snapshot-save", "-no-boot-anim", "-netfast"}

// stopIgnorePatterns are console replies that mean the target emulator is
// already gone.
var stopIgnorePatterns = []string{
	"error: no devices",
	"device offline",
	"device not found",
	"could not connect",
}

// Manager implements manager.DeviceManager for Android.
type Manager struct {
	exec   command.Executor
	tools  sdkTools
	logger hclog.Logger
	sdkErr error
}

var _ manager.DeviceManager = (*Manager)(nil)

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger attaches a structured logger.
func WithLogger(logger hclog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager builds an Android manager. Construction never fails: when the
// SDK cannot be discovered the manager still works with bare tool names on
// PATH and IsAvailable reports the problem.
func NewManager(exec command.Executor, opts ...Option) *Manager {
	tools, err := discoverSDK()
	m := &Manager{
		exec:   exec,
		tools:  tools,
		logger: hclog.NewNullLogger(),
		sdkErr: err,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Platform() models.Platform { return models.PlatformAndroid }

// IsAvailable reports whether the Android SDK was discovered.
func (m *Manager) IsAvailable(ctx context.Context) bool { return m.sdkErr == nil }

// SDKError returns the discovery failure, if any, for diagnostics.
func (m *Manager) SDKError() error { return m.sdkErr }

// ListDevices inventories all AVDs and overlays running state from adb.
func (m *Manager) ListDevices(ctx context.Context) ([]models.Device, error) {
	out, err := m.exec.Run(ctx, m.tools.AVDManager, "list", "avd")
	if err != nil {
		return nil, models.NewDeviceError(models.ErrCommandFailed, "avdmanager", "listing AVDs failed", err)
	}
	avds := parseAVDList(out)

	running := m.runningAVDs(ctx)
	for i := range avds {
		if status, ok := running[normalizeAVDName(avds[i].Name)]; ok {
			avds[i].State = status
		}
	}

	priority.SortAndroid(avds)

	devices := make([]models.Device, len(avds))
	for i, d := range avds {
		devices[i] = d
	}
	return devices, nil
}

// runningAVDs maps normalized AVD names to their live status. adb being
// unavailable just means nothing is running.
func (m *Manager) runningAVDs(ctx context.Context) map[string]models.DeviceStatus {
	statuses := make(map[string]models.DeviceStatus)

	out, err := m.exec.Run(ctx, m.tools.ADB, "devices")
	if err != nil {
		m.logger.Debug("adb devices failed, treating all AVDs as stopped", "error", err)
		return statuses
	}

	for serial, state := range parseADBDevices(out) {
		name := m.resolveSerialAVD(ctx, serial)
		if name == "" {
			continue
		}
		statuses[normalizeAVDName(name)] = adbStateToStatus(state)
	}
	return statuses
}

// resolveSerialAVD finds which AVD owns a running serial. The boot property
// is authoritative; the emulator console is the fallback for older images
// that do not set it. With two ambiguously named AVDs running concurrently
// there is no authoritative tie-break, the first resolution wins.
func (m *Manager) resolveSerialAVD(ctx context.Context, serial string) string {
	out, err := m.exec.Run(ctx, m.tools.ADB, "-s", serial, "shell", "getprop", "ro.boot.qemu.avd_name")
	if err == nil {
		if name := strings.TrimSpace(out); name != "" {
			return name
		}
	}

	out, err = m.exec.Run(ctx, m.tools.ADB, "-s", serial, "emu", "avd", "name")
	if err != nil {
		m.logger.Debug("could not resolve AVD for serial", "serial", serial, "error", err)
		return ""
	}
	return parseEmuAVDName(out)
}

// serialForAVD finds the adb serial currently owned by the named AVD, or ""
// when it is not running.
func (m *Manager) serialForAVD(ctx context.Context, name string) string {
	out, err := m.exec.Run(ctx, m.tools.ADB, "devices")
	if err != nil {
		return ""
	}
	wanted := normalizeAVDName(name)
	for serial := range parseADBDevices(out) {
		if normalizeAVDName(m.resolveSerialAVD(ctx, serial)) == wanted {
			return serial
		}
	}
	return ""
}

// StartDevice launches the emulator for the named AVD. Starting a running
// device is a no-op.
func (m *Manager) StartDevice(ctx context.Context, id string) error {
	if m.serialForAVD(ctx, id) != "" {
		m.logger.Debug("device already running", "name", id)
		return nil
	}

	args := append([]string{"-avd", id}, emulatorStartFlags...)
	if _, err := m.exec.Spawn(ctx, m.tools.Emulator, args...); err != nil {
		return models.NewDeviceError(models.ErrStartFailed, id, "emulator launch failed", err)
	}
	return nil
}

// StopDevice shuts the named AVD down via the emulator console. Stopping a
// stopped device is a no-op.
func (m *Manager) StopDevice(ctx context.Context, id string) error {
	serial := m.serialForAVD(ctx, id)
	if serial == "" {
		m.logger.Debug("device already stopped", "name", id)
		return nil
	}

	args := []string{"-s", serial, "emu", "kill"}
	if _, err := m.exec.RunIgnoringErrors(ctx, m.tools.ADB, args, stopIgnorePatterns); err != nil {
		return models.NewDeviceError(models.ErrStopFailed, id, "emulator console kill failed", err)
	}
	return nil
}

const (
	bootPollAttempts = 60
	bootPollDelay    = 2 * time.Second
)

// WaitForBoot blocks until the named AVD finishes booting: the adb
// transport comes up and the guest sets sys.boot_completed.
func (m *Manager) WaitForBoot(ctx context.Context, id string) error {
	if _, err := m.exec.Run(ctx, m.tools.ADB, "wait-for-device"); err != nil {
		return models.NewDeviceError(models.ErrStartFailed, id, "waiting for adb transport failed", err)
	}

	for attempt := 0; attempt < bootPollAttempts; attempt++ {
		out, err := m.exec.Run(ctx, m.tools.ADB, "shell", "getprop", "sys.boot_completed")
		if err == nil && strings.TrimSpace(out) == "1" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bootPollDelay):
		}
	}
	return models.NewDeviceError(models.ErrStartFailed, id, "device did not finish booting", nil)
}

// CreateDevice creates a new AVD from an installed system image and a known
// hardware profile.
func (m *Manager) CreateDevice(ctx context.Context, cfg models.DeviceConfig) error {
	name := manager.SanitizeName(cfg.Name)
	if name == "" {
		return models.NewDeviceError(models.ErrInvalidConfig, cfg.Name, "device name is empty", nil)
	}

	imageID, err := m.resolveSystemImage(ctx, cfg)
	if err != nil {
		return err
	}

	profile, err := m.resolveDeviceProfile(ctx, cfg.DeviceType)
	if err != nil {
		return err
	}

	args := []string{"create", "avd", "-n", name, "-k", imageID, "--device", profile.ID, "--skin", profile.ID}
	_, err = m.exec.Run(ctx, m.tools.AVDManager, args...)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "skin") {
		// Older avdmanager builds reject --skin.
		m.logger.Debug("retrying creation without skin", "name", name)
		_, err = m.exec.Run(ctx, m.tools.AVDManager, args[:len(args)-2]...)
	}
	if err != nil {
		return models.NewDeviceError(models.ErrCreateFailed, name, err.Error(), err)
	}
	return nil
}

// resolveSystemImage picks the installed system image package matching the
// requested API level and variant.
func (m *Manager) resolveSystemImage(ctx context.Context, cfg models.DeviceConfig) (string, error) {
	api, err := parseAPIVersion(cfg.Version)
	if err != nil {
		return "", models.NewDeviceError(models.ErrInvalidConfig, cfg.Name,
			fmt.Sprintf("invalid API version %q", cfg.Version), err)
	}

	images, err := m.listSystemImages(ctx)
	if err != nil {
		return "", err
	}

	variant := cfg.AdditionalOptions["variant"]
	level := buildAPILevel(api, images)

	var candidates []models.SystemImageVariant
	for _, v := range level.Variants {
		if v.Installed && (variant == "" || v.Variant == variant) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return "", models.NewDeviceError(models.ErrCreateFailed, cfg.Name,
			fmt.Sprintf("system image for API %d not installed", api), nil)
	}

	scoped := level
	scoped.Variants = candidates
	return scoped.RecommendedVariant().PackageID, nil
}

// ListDeviceProfiles enumerates the hardware profiles known to avdmanager.
func (m *Manager) ListDeviceProfiles(ctx context.Context) ([]DeviceProfile, error) {
	out, err := m.exec.Run(ctx, m.tools.AVDManager, "list", "device")
	if err != nil {
		return nil, models.NewDeviceError(models.ErrCommandFailed, "avdmanager",
			"listing device profiles failed", err)
	}
	return parseDeviceProfiles(out), nil
}

// resolveDeviceProfile fuzzy-matches the requested type against the known
// hardware profiles.
func (m *Manager) resolveDeviceProfile(ctx context.Context, requested string) (DeviceProfile, error) {
	profiles, err := m.ListDeviceProfiles(ctx)
	if err != nil {
		return DeviceProfile{}, err
	}
	profile, ok := matchDeviceProfile(profiles, requested)
	if !ok {
		return DeviceProfile{}, models.NewDeviceError(models.ErrCreateFailed, requested,
			fmt.Sprintf("device type not found: %s", requested), nil)
	}
	return profile, nil
}

// DeleteDevice removes the named AVD permanently.
func (m *Manager) DeleteDevice(ctx context.Context, id string) error {
	_, err := m.exec.Run(ctx, m.tools.AVDManager, "delete", "avd", "-n", id)
	if err != nil {
		if strings.Contains(err.Error(), "no Android Virtual Device") {
			return models.NewDeviceError(models.ErrNotFound, id, "", err)
		}
		return models.NewDeviceError(models.ErrDeleteFailed, id, err.Error(), err)
	}
	return nil
}

// WipeDevice resets the AVD to factory state by stopping it and relaunching
// the emulator with -wipe-data. The relaunch leaves the device running.
func (m *Manager) WipeDevice(ctx context.Context, id string) error {
	if err := m.StopDevice(ctx, id); err != nil {
		return err
	}

	args := append([]string{"-avd", id}, emulatorStartFlags...)
	args = append(args, "-wipe-data")
	if _, err := m.exec.Spawn(ctx, m.tools.Emulator, args...); err != nil {
		return models.NewDeviceError(models.ErrStartFailed, id, "wipe relaunch failed", err)
	}
	return nil
}

// GetDeviceDetails expands one AVD with its path, hardware profile and
// config.ini settings.
func (m *Manager) GetDeviceDetails(ctx context.Context, id string) (*models.DeviceDetails, error) {
	out, err := m.exec.Run(ctx, m.tools.AVDManager, "list", "avd")
	if err != nil {
		return nil, models.NewDeviceError(models.ErrCommandFailed, "avdmanager", "listing AVDs failed", err)
	}

	stanza, ok := findAVDStanza(out, id)
	if !ok {
		return nil, models.NewDeviceError(models.ErrNotFound, id, "", nil)
	}

	status := models.StatusStopped
	if s, ok := m.runningAVDs(ctx)[normalizeAVDName(id)]; ok {
		status = s
	}

	details := &models.DeviceDetails{
		Name:       stanza.Name,
		Status:     status,
		Platform:   models.PlatformAndroid,
		DeviceType: stanza.Device,
		DevicePath: stanza.Path,
		Identifier: stanza.Name,
	}
	if match := apiLevelPattern.FindStringSubmatch(stanza.Target); match != nil {
		if api, err := strconv.Atoi(match[1]); err == nil {
			details.Version = versionNameForAPI(api)
		}
	}

	if stanza.Path != "" {
		if content, err := os.ReadFile(filepath.Join(stanza.Path, "config.ini")); err == nil {
			ini := parseConfigINI(string(content))
			details.RAMSize = ini["hw.ramSize"]
			details.StorageSize = ini["disk.dataPartition.size"]
			details.DPI = ini["hw.lcd.density"]
			if w, h := ini["hw.lcd.width"], ini["hw.lcd.height"]; w != "" && h != "" {
				details.Resolution = w + "x" + h
			}
			details.SystemImage = ini["image.sysdir.1"]
		}
	}
	return details, nil
}

// GetDeviceCategory classifies a hardware profile by form factor.
func (m *Manager) GetDeviceCategory(id, displayName string) priority.Category {
	return priority.Classify(id, displayName)
}

// ListAPILevels reports every API level known to sdkmanager together with
// its system image variants, newest first.
func (m *Manager) ListAPILevels(ctx context.Context) ([]models.APILevel, error) {
	images, err := m.listSystemImages(ctx)
	if err != nil {
		return nil, err
	}

	byAPI := make(map[int][]systemImage)
	for _, img := range images {
		byAPI[img.API] = append(byAPI[img.API], img)
	}

	levels := make([]models.APILevel, 0, len(byAPI))
	for api, group := range byAPI {
		levels = append(levels, buildAPILevel(api, group))
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].API > levels[j].API })
	return levels, nil
}

// listSystemImages queries sdkmanager, preferring the verbose listing and
// falling back to the plain one on older tools.
func (m *Manager) listSystemImages(ctx context.Context) ([]systemImage, error) {
	out, err := m.exec.Run(ctx, m.tools.SDKManager, "--list", "--verbose", "--include_obsolete")
	if err != nil {
		m.logger.Debug("verbose sdkmanager listing failed, retrying plain", "error", err)
		out, err = m.exec.Run(ctx, m.tools.SDKManager, "--list")
	}
	if err != nil {
		return nil, models.NewDeviceError(models.ErrCommandFailed, "sdkmanager", "listing packages failed", err)
	}
	return parseSystemImages(out), nil
}

// buildAPILevel assembles one APILevel from the system images sharing an
// API number. Duplicate packages across sections collapse, installed wins.
func buildAPILevel(api int, images []systemImage) models.APILevel {
	level := models.NewAPILevel(api, versionNameForAPI(api), "")

	seen := make(map[string]int)
	for _, img := range images {
		if img.API != api {
			continue
		}
		if idx, ok := seen[img.PackageID]; ok {
			if img.Installed {
				level.Variants[idx].Installed = true
			}
			continue
		}
		v := models.NewSystemImageVariant(img.Tag, img.ABI, img.PackageID)
		v.Installed = img.Installed
		level.Variants = append(level.Variants, v)
		seen[img.PackageID] = len(level.Variants) - 1
	}

	for _, v := range level.Variants {
		if v.Installed {
			level.Installed = true
			break
		}
	}
	if rec := level.RecommendedVariant(); rec != nil {
		level.SystemImageID = rec.PackageID
	}
	return level
}

// InstallSystemImage installs a system image package, reporting progress
// derived from sdkmanager output. The callback percentage never decreases.
func (m *Manager) InstallSystemImage(ctx context.Context, packageID string, progress func(models.InstallProgress)) error {
	report := func(op string, pct int) {}
	if progress != nil {
		last := -1
		report = func(op string, pct int) {
			if pct <= last {
				return
			}
			last = pct
			progress(models.InstallProgress{Operation: op, Percentage: pct})
		}
	}

	report("Preparing", 0)

	out, err := m.exec.Run(ctx, m.tools.SDKManager, packageID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "licens") {
			return models.NewDeviceError(models.ErrCommandFailed, packageID,
				"licenses not accepted, run sdkmanager --licenses", err)
		}
		return models.NewDeviceError(models.ErrCommandFailed, packageID, "system image install failed", err)
	}

	for _, line := range strings.Split(out, "\n") {
		if op, pct, ok := parseInstallProgress(line); ok {
			report(op, pct)
		}
	}
	report("Complete", 100)
	return nil
}

// UninstallSystemImage removes an installed system image package.
func (m *Manager) UninstallSystemImage(ctx context.Context, packageID string) error {
	if _, err := m.exec.Run(ctx, m.tools.SDKManager, "--uninstall", packageID); err != nil {
		return models.NewDeviceError(models.ErrCommandFailed, packageID, "system image uninstall failed", err)
	}
	return nil
}

// parseAPIVersion accepts "34", "android-34" or "API 34".
func parseAPIVersion(version string) (int, error) {
	s := strings.TrimSpace(strings.ToLower(version))
	s = strings.TrimPrefix(s, "android-")
	s = strings.TrimPrefix(s, "api ")
	s = strings.TrimPrefix(s, "api")
	return strconv.Atoi(strings.TrimSpace(s))
}
