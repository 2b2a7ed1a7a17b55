package models

import (
	"errors"
	"strings"
	"testing"
)

func TestIsRunningDerivedFromStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []DeviceStatus{
		StatusRunning, StatusStopped, StatusStarting, StatusStopping,
		StatusCreating, StatusError, StatusUnknown,
	} {
		android := AndroidDevice{Name: "a", State: status}
		if android.IsRunning() != (status == StatusRunning) {
			t.Errorf("AndroidDevice.IsRunning inconsistent for %s", status)
		}
		sim := IOSDevice{UDID: "u", State: status}
		if sim.IsRunning() != (status == StatusRunning) {
			t.Errorf("IOSDevice.IsRunning inconsistent for %s", status)
		}
	}
}

func TestDeviceIdentity(t *testing.T) {
	t.Parallel()

	var d Device = AndroidDevice{Name: "Pixel_7_API_34"}
	if d.ID() != "Pixel_7_API_34" || d.Platform() != PlatformAndroid {
		t.Errorf("unexpected identity %s/%s", d.ID(), d.Platform())
	}

	d = IOSDevice{Name: "iPhone 15 Pro", UDID: "AAAA-1111"}
	if d.ID() != "AAAA-1111" || d.DisplayName() != "iPhone 15 Pro" {
		t.Errorf("unexpected identity %s/%s", d.ID(), d.DisplayName())
	}
}

func TestRecommendedVariantPrefersPlaystore(t *testing.T) {
	t.Parallel()

	arch := PreferredArchitecture()
	level := NewAPILevel(34, "Android 14", "")
	level.Variants = []SystemImageVariant{
		NewSystemImageVariant("default", arch, "system-images;android-34;default;"+arch),
		NewSystemImageVariant("google_apis", arch, "system-images;android-34;google_apis;"+arch),
		NewSystemImageVariant("google_apis_playstore", arch, "system-images;android-34;google_apis_playstore;"+arch),
	}

	got := level.RecommendedVariant()
	if got == nil || got.Variant != "google_apis_playstore" {
		t.Fatalf("RecommendedVariant = %+v, want google_apis_playstore", got)
	}
}

func TestRecommendedVariantArchFallback(t *testing.T) {
	t.Parallel()

	level := NewAPILevel(34, "Android 14", "")
	level.Variants = []SystemImageVariant{
		NewSystemImageVariant("google_apis", "x86_64", "system-images;android-34;google_apis;x86_64"),
	}
	got := level.RecommendedVariant()
	if got == nil || got.Architecture != "x86_64" {
		t.Fatalf("expected x86_64 fallback, got %+v", got)
	}
}

func TestRecommendedVariantFirstAvailable(t *testing.T) {
	t.Parallel()

	level := NewAPILevel(34, "Android 14", "")
	level.Variants = []SystemImageVariant{
		NewSystemImageVariant("android-tv", "x86", "system-images;android-34;android-tv;x86"),
	}
	got := level.RecommendedVariant()
	if got == nil || got.Variant != "android-tv" {
		t.Fatalf("expected first variant fallback, got %+v", got)
	}

	empty := NewAPILevel(34, "Android 14", "")
	if empty.RecommendedVariant() != nil {
		t.Error("level without variants should recommend nil")
	}
}

func TestAPILevelDisplayName(t *testing.T) {
	t.Parallel()

	level := NewAPILevel(34, "Android 14", "pkg")
	if level.DisplayName != "API 34 (Android 14)" {
		t.Errorf("DisplayName = %q", level.DisplayName)
	}
}

func TestDeviceErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *DeviceError
		want string
	}{
		{NewDeviceError(ErrNotFound, "Pixel_7", "", nil), "device not found: Pixel_7"},
		{NewDeviceError(ErrAlreadyRunning, "Pixel_7", "", nil), "device Pixel_7 is already running"},
		{NewDeviceError(ErrStartFailed, "Pixel_7", "no image", nil), "failed to start device Pixel_7: no image"},
		{NewDeviceError(ErrSdkNotFound, "ANDROID_HOME", "", nil), "SDK not found: ANDROID_HOME"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestIsKindUnwraps(t *testing.T) {
	t.Parallel()

	inner := NewDeviceError(ErrCreateFailed, "X", "boom", nil)
	wrapped := errors.Join(errors.New("context"), inner)

	if !IsKind(wrapped, ErrCreateFailed) {
		t.Error("IsKind should see through wrapping")
	}
	if IsKind(wrapped, ErrDeleteFailed) {
		t.Error("IsKind should not match a different kind")
	}
	if IsKind(errors.New("plain"), ErrCreateFailed) {
		t.Error("IsKind should reject non-DeviceError values")
	}
}

func TestFormatUserError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"licenses",
			errors.New("Warning: licenses not accepted"),
			"Android SDK licenses not accepted. Run 'sdkmanager --licenses' to accept them.",
		},
		{
			"sdk missing",
			errors.New("ANDROID_HOME is not set"),
			"Android SDK not found. Set the ANDROID_HOME environment variable.",
		},
		{
			"duplicate name",
			errors.New("Error: AVD 'Pixel_7' already exists"),
			"A device with the same name already exists. Choose a different name or delete it first.",
		},
		{
			"xcrun missing",
			errors.New("xcrun: not found"),
			"Xcode command line tools not found. Run 'xcode-select --install'.",
		},
		{
			"timeout",
			errors.New("command emulator timed out after 2m0s"),
			"Operation timed out. Try again later.",
		},
		{
			"passthrough",
			errors.New("some unusual failure"),
			"some unusual failure",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatUserError(tt.err); got != tt.want {
				t.Errorf("FormatUserError = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatUserErrorTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 400)
	got := FormatUserError(errors.New(long))
	if len(got) != 150 {
		t.Errorf("truncated length = %d, want 150", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated message should end with ellipsis, got %q", got[len(got)-10:])
	}

	if FormatUserError(nil) != "" {
		t.Error("nil error should format to empty string")
	}
}
