// Package manager defines the capability contract shared by the platform
// device managers.
package manager

import (
	"context"

	"github.com/emudevtools/emuctl/internal/models"
)

// DeviceManager is the unified lifecycle interface implemented by the
// Android and iOS managers. Implementations are safe for concurrent use;
// operations on the same device identifier are not serialized here, callers
// needing at-most-one-in-flight semantics must arrange that themselves.
type DeviceManager interface {
	// Platform identifies which platform this manager drives.
	Platform() models.Platform

	// ListDevices discovers all devices, running and stopped, as fresh
	// snapshot records.
	ListDevices(ctx context.Context) ([]models.Device, error)

	// StartDevice launches the device. Starting an already-running device
	// succeeds.
	StartDevice(ctx context.Context, id string) error

	// StopDevice shuts the device down. Stopping a stopped device succeeds.
	StopDevice(ctx context.Context, id string) error

	// CreateDevice creates a new device from the config without starting it.
	CreateDevice(ctx context.Context, cfg models.DeviceConfig) error

	// DeleteDevice permanently removes the device.
	DeleteDevice(ctx context.Context, id string) error

	// WipeDevice resets the device to factory state.
	WipeDevice(ctx context.Context, id string) error

	// GetDeviceDetails returns the expanded view for one device.
	GetDeviceDetails(ctx context.Context, id string) (*models.DeviceDetails, error)

	// IsAvailable reports whether the platform toolchain is usable on this
	// host. Managers on unsupported hosts still construct; they just report
	// false here and return empty lists.
	IsAvailable(ctx context.Context) bool
}
