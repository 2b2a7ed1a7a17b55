package models

import (
	"fmt"
	"runtime"
)

// APILevel describes one Android API level together with the system images
// known for it, as reported by sdkmanager.
type APILevel struct {
	// API is the numeric level (e.g. 34).
	API int
	// Version is the Android version name (e.g. "Android 14").
	Version string
	// DisplayName is the combined form shown to users.
	DisplayName string
	// SystemImageID is the canonical package id for this level.
	SystemImageID string
	// Installed is true when at least one variant is installed.
	Installed bool
	// Variants lists the system image variants discovered for this level,
	// in sdkmanager output order.
	Variants []SystemImageVariant
}

// SystemImageVariant is one (variant, architecture) system image package.
type SystemImageVariant struct {
	// Variant is the image flavor (e.g. "google_apis_playstore").
	Variant string
	// Architecture is the image ABI (e.g. "x86_64", "arm64-v8a").
	Architecture string
	// PackageID is the full sdkmanager package path.
	PackageID string
	Installed bool
	// DisplayName is the human form for pickers.
	DisplayName string
}

// InstallProgress reports system image installation progress. Percentage is
// monotonically non-decreasing across one install; ETASeconds, when present,
// never increases while the percentage grows.
type InstallProgress struct {
	Operation  string
	Percentage int
	ETASeconds *int
}

// NewAPILevel builds an APILevel with its derived display name.
func NewAPILevel(api int, version, systemImageID string) APILevel {
	return APILevel{
		API:           api,
		Version:       version,
		DisplayName:   fmt.Sprintf("API %d (%s)", api, version),
		SystemImageID: systemImageID,
	}
}

// NewSystemImageVariant builds a variant with its derived display name.
func NewSystemImageVariant(variant, architecture, packageID string) SystemImageVariant {
	var display string
	switch variant {
	case "google_apis_playstore":
		display = fmt.Sprintf("Google Play Store (%s)", architecture)
	case "google_apis":
		display = fmt.Sprintf("Google APIs (%s)", architecture)
	case "default":
		display = fmt.Sprintf("Default (%s)", architecture)
	default:
		display = fmt.Sprintf("%s (%s)", variant, architecture)
	}
	return SystemImageVariant{
		Variant:      variant,
		Architecture: architecture,
		PackageID:    packageID,
		DisplayName:  display,
	}
}

// variant preference, best first
var variantOrder = []string{"google_apis_playstore", "google_apis", "default"}

// RecommendedVariant selects the best variant for this level:
// google_apis_playstore over google_apis over default over anything else,
// preferring the host's native architecture and falling back to x86_64.
// Returns nil when the level has no variants at all.
func (a APILevel) RecommendedVariant() *SystemImageVariant {
	preferred := PreferredArchitecture()
	for _, want := range variantOrder {
		for _, arch := range []string{preferred, "x86_64"} {
			for i := range a.Variants {
				v := &a.Variants[i]
				if v.Variant == want && v.Architecture == arch {
					return v
				}
			}
		}
	}
	if len(a.Variants) > 0 {
		return &a.Variants[0]
	}
	return nil
}

// PreferredArchitecture returns the system image ABI matching the host CPU.
func PreferredArchitecture() string {
	if runtime.GOARCH == "arm64" {
		return "arm64-v8a"
	}
	return "x86_64"
}
