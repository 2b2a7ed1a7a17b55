// Package ios drives iOS Simulator instances through xcrun simctl. The
// manager constructs on any host; on hosts without the Apple toolchain it
// degrades to an unavailable stub that lists nothing.
package ios

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	goversion "github.com/hashicorp/go-version"

	"github.com/emudevtools/emuctl/internal/command"
	"github.com/emudevtools/emuctl/internal/manager"
	"github.com/emudevtools/emuctl/internal/models"
	"github.com/emudevtools/emuctl/internal/priority"
)

// bootIgnorePatterns absorb idempotent lifecycle failures.
var (
	bootIgnorePatterns     = []string{"Unable to boot device in current state"}
	shutdownIgnorePatterns = []string{"Unable to shutdown device in current state"}
)

// Manager implements manager.DeviceManager for the iOS Simulator.
type Manager struct {
	exec      command.Executor
	logger    hclog.Logger
	available bool

	mu        sync.Mutex
	typeNames map[string]string
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

// NewManager builds an iOS manager. On non-darwin hosts it constructs an
// unavailable stub rather than failing.
func NewManager(exec command.Executor, opts ...Option) *Manager {
	m := &Manager{
		exec:      exec,
		logger:    hclog.NewNullLogger(),
		available: runtime.GOOS == "darwin",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Platform() models.Platform { return models.PlatformIOS }

// IsAvailable reports whether simctl is usable on this host.
func (m *Manager) IsAvailable(ctx context.Context) bool { return m.available }

// ListDevices enumerates all simulators across every installed runtime.
// On an unavailable host the list is empty, not an error.
func (m *Manager) ListDevices(ctx context.Context) ([]models.Device, error) {
	if !m.available {
		return nil, nil
	}

	out, err := m.exec.Run(ctx, "xcrun", "simctl", "list", "devices", "--json")
	if err != nil {
		return nil, models.NewDeviceError(models.ErrCommandFailed, "simctl", "listing simulators failed", err)
	}

	sims, err := parseDevices(out, m.deviceTypeNames(ctx))
	if err != nil {
		return nil, err
	}

	priority.SortIOS(sims)

	devices := make([]models.Device, len(sims))
	for i, d := range sims {
		devices[i] = d
	}
	return devices, nil
}

// deviceTypeNames returns the identifier to display name map, fetching it
// once and caching it. Lookup failure degrades to identifier-derived names.
func (m *Manager) deviceTypeNames(ctx context.Context) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.typeNames != nil {
		return m.typeNames
	}

	out, err := m.exec.Run(ctx, "xcrun", "simctl", "list", "devicetypes", "--json")
	if err != nil {
		m.logger.Debug("device type lookup failed", "error", err)
		return nil
	}
	names, err := parseDeviceTypes(out)
	if err != nil {
		m.logger.Debug("device type listing unparseable", "error", err)
		return nil
	}
	m.typeNames = names
	return names
}

// StartDevice boots a simulator. Booting an already-booted simulator
// succeeds.
func (m *Manager) StartDevice(ctx context.Context, id string) error {
	if err := m.requireAvailable(id); err != nil {
		return err
	}
	args := []string{"simctl", "boot", id}
	if _, err := m.exec.RunIgnoringErrors(ctx, "xcrun", args, bootIgnorePatterns); err != nil {
		return models.NewDeviceError(models.ErrStartFailed, id, "simulator boot failed", err)
	}
	return nil
}

// StopDevice shuts a simulator down. Shutting down a stopped simulator
// succeeds.
func (m *Manager) StopDevice(ctx context.Context, id string) error {
	if err := m.requireAvailable(id); err != nil {
		return err
	}
	args := []string{"simctl", "shutdown", id}
	if _, err := m.exec.RunIgnoringErrors(ctx, "xcrun", args, shutdownIgnorePatterns); err != nil {
		return models.NewDeviceError(models.ErrStopFailed, id, "simulator shutdown failed", err)
	}
	return nil
}

// CreateDevice creates a new simulator from a device type and runtime.
func (m *Manager) CreateDevice(ctx context.Context, cfg models.DeviceConfig) error {
	if err := m.requireAvailable(cfg.Name); err != nil {
		return err
	}
	if cfg.Name == "" {
		return models.NewDeviceError(models.ErrInvalidConfig, cfg.Name, "device name is empty", nil)
	}

	typeID, err := m.resolveDeviceType(ctx, cfg.DeviceType)
	if err != nil {
		return err
	}
	runtimeID, err := m.resolveRuntime(ctx, cfg.Version)
	if err != nil {
		return err
	}

	if _, err := m.exec.Run(ctx, "xcrun", "simctl", "create", cfg.Name, typeID, runtimeID); err != nil {
		return models.NewDeviceError(models.ErrCreateFailed, cfg.Name, err.Error(), err)
	}
	return nil
}

// resolveDeviceType matches a requested type against the known device
// types by identifier or display name.
func (m *Manager) resolveDeviceType(ctx context.Context, requested string) (string, error) {
	if strings.HasPrefix(requested, deviceTypePrefix) {
		return requested, nil
	}

	names := m.deviceTypeNames(ctx)
	wanted := strings.ToLower(requested)
	for id, name := range names {
		if strings.ToLower(name) == wanted || strings.ToLower(id) == wanted {
			return id, nil
		}
	}
	for id, name := range names {
		if strings.Contains(strings.ToLower(name), wanted) {
			return id, nil
		}
	}
	return "", models.NewDeviceError(models.ErrCreateFailed, requested,
		fmt.Sprintf("device type not found: %s", requested), nil)
}

// resolveRuntime matches a requested version string ("17.0" or a full
// identifier) against the installed runtimes.
func (m *Manager) resolveRuntime(ctx context.Context, requested string) (string, error) {
	if strings.HasPrefix(requested, runtimePrefix) {
		return requested, nil
	}

	runtimes, err := m.listRuntimeRecords(ctx)
	if err != nil {
		return "", err
	}
	for _, rt := range runtimes {
		if rt.Version == requested || rt.Name == requested {
			return rt.Identifier, nil
		}
	}
	return "", models.NewDeviceError(models.ErrCreateFailed, requested,
		fmt.Sprintf("runtime not found: %s", requested), nil)
}

// DeleteDevice removes a simulator permanently.
func (m *Manager) DeleteDevice(ctx context.Context, id string) error {
	if err := m.requireAvailable(id); err != nil {
		return err
	}
	if _, err := m.exec.Run(ctx, "xcrun", "simctl", "delete", id); err != nil {
		if strings.Contains(err.Error(), "Invalid device") {
			return models.NewDeviceError(models.ErrNotFound, id, "", err)
		}
		return models.NewDeviceError(models.ErrDeleteFailed, id, err.Error(), err)
	}
	return nil
}

// WipeDevice erases a simulator's content and settings. The simulator must
// be shut down first; the shutdown is idempotent.
func (m *Manager) WipeDevice(ctx context.Context, id string) error {
	if err := m.StopDevice(ctx, id); err != nil {
		return err
	}
	if _, err := m.exec.Run(ctx, "xcrun", "simctl", "erase", id); err != nil {
		return models.NewDeviceError(models.ErrCommandFailed, id, "simulator erase failed", err)
	}
	return nil
}

// GetDeviceDetails expands one simulator with its runtime and type info.
func (m *Manager) GetDeviceDetails(ctx context.Context, id string) (*models.DeviceDetails, error) {
	devices, err := m.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		sim, ok := d.(models.IOSDevice)
		if !ok || sim.UDID != id {
			continue
		}
		return &models.DeviceDetails{
			Name:       sim.Name,
			Status:     sim.State,
			Platform:   models.PlatformIOS,
			DeviceType: sim.DeviceType,
			Version:    sim.RuntimeVersion,
			Identifier: sim.UDID,
		}, nil
	}
	return nil, models.NewDeviceError(models.ErrNotFound, id, "", nil)
}

// ListRuntimes reports the installed simulator runtimes, newest version
// first.
func (m *Manager) ListRuntimes(ctx context.Context) ([]string, error) {
	if !m.available {
		return nil, nil
	}

	all, err := m.listRuntimeRecords(ctx)
	if err != nil {
		return nil, err
	}
	var records []runtimeRecord
	for _, rt := range all {
		if rt.IsAvailable {
			records = append(records, rt)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		vi, erri := goversion.NewVersion(records[i].Version)
		vj, errj := goversion.NewVersion(records[j].Version)
		if erri != nil || errj != nil {
			return records[i].Version > records[j].Version
		}
		return vi.GreaterThan(vj)
	})

	names := make([]string, len(records))
	for i, rt := range records {
		names[i] = rt.Name
	}
	return names, nil
}

// ListDeviceTypes reports the known simulator device type names in display
// priority order.
func (m *Manager) ListDeviceTypes(ctx context.Context) ([]string, error) {
	if !m.available {
		return nil, nil
	}

	typeNames := m.deviceTypeNames(ctx)
	names := make([]string, 0, len(typeNames))
	for _, name := range typeNames {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		pi, pj := priority.IOSPriority(names[i]), priority.IOSPriority(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return names, nil
}

func (m *Manager) listRuntimeRecords(ctx context.Context) ([]runtimeRecord, error) {
	out, err := m.exec.Run(ctx, "xcrun", "simctl", "list", "runtimes", "--json")
	if err != nil {
		return nil, models.NewDeviceError(models.ErrCommandFailed, "simctl", "listing runtimes failed", err)
	}
	return parseRuntimes(out)
}

func (m *Manager) requireAvailable(name string) error {
	if m.available {
		return nil
	}
	return models.NewDeviceError(models.ErrPlatformNotSupported, name,
		"iOS Simulator requires macOS", nil)
}
