package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies device management failures into a shared taxonomy
// consumed by every component and by user-facing formatting.
type ErrorKind string

const (
	ErrNotFound             ErrorKind = "not_found"
	ErrAlreadyRunning       ErrorKind = "already_running"
	ErrNotRunning           ErrorKind = "not_running"
	ErrStartFailed          ErrorKind = "start_failed"
	ErrStopFailed           ErrorKind = "stop_failed"
	ErrCreateFailed         ErrorKind = "create_failed"
	ErrDeleteFailed         ErrorKind = "delete_failed"
	ErrCommandFailed        ErrorKind = "command_failed"
	ErrPlatformNotSupported ErrorKind = "platform_not_supported"
	ErrSdkNotFound          ErrorKind = "sdk_not_found"
	ErrInvalidConfig        ErrorKind = "invalid_config"
	ErrIO                   ErrorKind = "io"
	ErrParse                ErrorKind = "parse"
	ErrOther                ErrorKind = "other"
)

// DeviceError is the shared error type for device operations.
type DeviceError struct {
	Kind   ErrorKind
	Name   string
	Reason string
	Err    error
}

func (e *DeviceError) Error() string {
	switch e.Kind {
	case ErrNotFound:
		return fmt.Sprintf("device not found: %s", e.Name)
	case ErrAlreadyRunning:
		return fmt.Sprintf("device %s is already running", e.Name)
	case ErrNotRunning:
		return fmt.Sprintf("device %s is not running", e.Name)
	case ErrStartFailed:
		return fmt.Sprintf("failed to start device %s: %s", e.Name, e.Reason)
	case ErrStopFailed:
		return fmt.Sprintf("failed to stop device %s: %s", e.Name, e.Reason)
	case ErrCreateFailed:
		return fmt.Sprintf("failed to create device %s: %s", e.Name, e.Reason)
	case ErrDeleteFailed:
		return fmt.Sprintf("failed to delete device %s: %s", e.Name, e.Reason)
	case ErrCommandFailed:
		return fmt.Sprintf("command execution failed: %s", e.Reason)
	case ErrPlatformNotSupported:
		return fmt.Sprintf("platform not supported: %s", e.Name)
	case ErrSdkNotFound:
		return fmt.Sprintf("SDK not found: %s", e.Name)
	case ErrInvalidConfig:
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	case ErrIO:
		return fmt.Sprintf("io error: %s", e.Reason)
	case ErrParse:
		return fmt.Sprintf("parse error: %s", e.Reason)
	default:
		if e.Reason != "" {
			return e.Reason
		}
		return "unknown device error"
	}
}

func (e *DeviceError) Unwrap() error { return e.Err }

// NewDeviceError builds a DeviceError with an optional wrapped cause.
func NewDeviceError(kind ErrorKind, name, reason string, err error) *DeviceError {
	return &DeviceError{Kind: kind, Name: name, Reason: reason, Err: err}
}

// IsKind reports whether err is (or wraps) a DeviceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

const maxUserErrorLength = 150

// FormatUserError converts any error into actionable user-facing text.
// Known tool failure patterns are rewritten; anything else passes through,
// truncated when unreasonably long.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "licenses not accepted") || strings.Contains(lower, "accept the license"):
		return "Android SDK licenses not accepted. Run 'sdkmanager --licenses' to accept them."
	case strings.Contains(lower, "system image") && strings.Contains(lower, "not installed"):
		return "Required system image not installed. Install it with sdkmanager first."
	case strings.Contains(msg, "ANDROID_HOME") || strings.Contains(msg, "ANDROID_SDK_ROOT"):
		return "Android SDK not found. Set the ANDROID_HOME environment variable."
	case strings.Contains(lower, "already exists"):
		return "A device with the same name already exists. Choose a different name or delete it first."
	case strings.Contains(lower, "device type") && strings.Contains(lower, "not found"):
		return "Specified device type not found. Select one of the available device types."
	case strings.Contains(lower, "emulator") && strings.Contains(lower, "not found"):
		return "Android emulator not found. Check that the Android SDK is properly installed."
	case strings.Contains(lower, "adb") && strings.Contains(lower, "not found"):
		return "adb not found. Check that the Android SDK platform-tools are on the PATH."
	case strings.Contains(lower, "xcrun") && strings.Contains(lower, "not found"):
		return "Xcode command line tools not found. Run 'xcode-select --install'."
	case strings.Contains(lower, "permission") || strings.Contains(lower, "denied"):
		return "Permission denied. Check file and directory access permissions."
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return "Operation timed out. Try again later."
	}

	if len(msg) > maxUserErrorLength {
		return msg[:maxUserErrorLength-3] + "..."
	}
	return msg
}
