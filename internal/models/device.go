package models

// Platform identifies which vendor toolchain owns a device.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// DeviceStatus is the operational state of a virtual device, normalized
// across both platforms.
type DeviceStatus string

const (
	StatusRunning  DeviceStatus = "Running"
	StatusStopped  DeviceStatus = "Stopped"
	StatusStarting DeviceStatus = "Starting"
	StatusStopping DeviceStatus = "Stopping"
	StatusCreating DeviceStatus = "Creating"
	StatusError    DeviceStatus = "Error"
	StatusUnknown  DeviceStatus = "Unknown"
)

// Device is the platform-agnostic view of a virtual device. Records are
// transient snapshots produced per listing; a changed device appears as a
// fresh record in the next snapshot, never as an in-place mutation.
type Device interface {
	// ID returns the unique identifier (AVD name for Android, UDID for iOS).
	ID() string
	// DisplayName returns the human-readable device name.
	DisplayName() string
	// Status returns the normalized device status.
	Status() DeviceStatus
	// IsRunning reports whether the device is currently running. It is
	// always derived from Status.
	IsRunning() bool
	// Platform returns the owning platform.
	Platform() Platform
}

// AndroidDevice represents one Android Virtual Device (AVD).
type AndroidDevice struct {
	// Name is the AVD name, which doubles as the unique identifier.
	Name string
	// DeviceType is the hardware profile id (e.g. "pixel_7", "tv_1080p").
	DeviceType string
	// APILevel is the Android API level (e.g. 34 for Android 14). Zero when
	// the avdmanager stanza carried no parseable level.
	APILevel int
	State    DeviceStatus
	// RAMSize is the RAM allocation in MB (e.g. "2048").
	RAMSize string
	// StorageSize is the data partition size (e.g. "8192M").
	StorageSize string
}

func (d AndroidDevice) ID() string           { return d.Name }
func (d AndroidDevice) DisplayName() string  { return d.Name }
func (d AndroidDevice) Status() DeviceStatus { return d.State }
func (d AndroidDevice) IsRunning() bool      { return d.State == StatusRunning }
func (d AndroidDevice) Platform() Platform   { return PlatformAndroid }

// IOSDevice represents one iOS Simulator instance.
type IOSDevice struct {
	Name string
	// UDID is the simulator's unique identifier.
	UDID string
	// DeviceType is the simctl device type identifier.
	DeviceType string
	// IOSVersion is the short version ("17.0") derived from the runtime key.
	IOSVersion string
	// RuntimeVersion is the full runtime display ("iOS 17.0").
	RuntimeVersion string
	State          DeviceStatus
	// Available reports whether the runtime backing the device is usable.
	Available bool
}

func (d IOSDevice) ID() string           { return d.UDID }
func (d IOSDevice) DisplayName() string  { return d.Name }
func (d IOSDevice) Status() DeviceStatus { return d.State }
func (d IOSDevice) IsRunning() bool      { return d.State == StatusRunning }
func (d IOSDevice) Platform() Platform   { return PlatformIOS }

// DeviceConfig carries the inputs for creating a new device. It is built by
// the caller and consumed once by CreateDevice.
type DeviceConfig struct {
	// Name is the requested display name.
	Name string
	// DeviceType is the platform-specific hardware profile identifier.
	DeviceType string
	// Version is the API level for Android or the runtime identifier for iOS.
	Version string
	// RAMSize optionally overrides RAM in MB (Android only).
	RAMSize string
	// StorageSize optionally overrides storage in MB (Android only).
	StorageSize string
	// AdditionalOptions passes platform-specific settings through untouched.
	AdditionalOptions map[string]string
}

// DeviceDetails is the expanded per-device view used by detail panes.
type DeviceDetails struct {
	Name        string
	Status      DeviceStatus
	Platform    Platform
	DeviceType  string
	Version     string
	RAMSize     string
	StorageSize string
	Resolution  string
	DPI         string
	DevicePath  string
	SystemImage string
	Identifier  string
}
