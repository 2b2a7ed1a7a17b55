// Package priority scores devices for display ordering. Lower scores sort
// first.
package priority

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/emudevtools/emuctl/internal/models"
)

// Category classifies an Android device profile by form factor.
type Category string

const (
	CategoryPhone      Category = "phone"
	CategoryFoldable   Category = "foldable"
	CategoryTablet     Category = "tablet"
	CategoryTV         Category = "tv"
	CategoryWear       Category = "wear"
	CategoryAutomotive Category = "automotive"
	CategoryDesktop    Category = "desktop"
)

const (
	phonePriority      = 0
	foldablePriority   = 20
	tabletPriority     = 100
	tvPriority         = 200
	wearPriority       = 300
	automotivePriority = 400
	otherPriority      = 500

	// Pixel phones bypass the generic formula so that every versioned
	// Pixel outranks every non-Pixel phone.
	pixelOffset              = 80
	pixelMaxBonus            = 19
	pixelUnversionedPriority = 25

	unknownOEMAdjustment = 100
	maxVersionBonus      = 100
)

// Classify buckets a device into a form-factor category from its id and
// display name. The foldable check runs before the phone and tablet checks
// so that "Pixel Fold" is not treated as a plain phone.
func Classify(id, displayName string) Category {
	s := strings.ToLower(id + " " + displayName)

	switch {
	case strings.Contains(s, "fold") || strings.Contains(s, "flip"):
		return CategoryFoldable
	case strings.Contains(s, "tv"):
		return CategoryTV
	case strings.Contains(s, "wear") || strings.Contains(s, "watch"):
		return CategoryWear
	case strings.Contains(s, "auto") || strings.Contains(s, "car"):
		return CategoryAutomotive
	case strings.Contains(s, "desktop"):
		return CategoryDesktop
	case strings.Contains(s, "tablet") || strings.Contains(s, "pad"):
		return CategoryTablet
	default:
		return CategoryPhone
	}
}

func categoryPriority(c Category) int {
	switch c {
	case CategoryPhone:
		return phonePriority
	case CategoryFoldable:
		return foldablePriority
	case CategoryTablet:
		return tabletPriority
	case CategoryTV:
		return tvPriority
	case CategoryWear:
		return wearPriority
	case CategoryAutomotive:
		return automotivePriority
	default:
		return otherPriority
	}
}

var parenOEMPattern = regexp.MustCompile(`\(([^)]+)\)`)

// oemAdjustment ranks manufacturers. Brands named directly in the display
// name win; otherwise a parenthesized OEM tag such as "(Xiaomi)" is
// consulted.
func oemAdjustment(displayName string) int {
	lower := strings.ToLower(displayName)

	switch {
	case strings.Contains(lower, "google") || strings.Contains(lower, "pixel"):
		return 0
	case strings.Contains(lower, "samsung") || strings.Contains(lower, "galaxy"):
		return 10
	case strings.Contains(lower, "oneplus"):
		return 20
	}

	if m := parenOEMPattern.FindStringSubmatch(lower); m != nil {
		switch {
		case strings.Contains(m[1], "xiaomi"):
			return 30
		case strings.Contains(m[1], "asus"):
			return 35
		case strings.Contains(m[1], "oppo"):
			return 40
		case strings.Contains(m[1], "vivo"):
			return 45
		case strings.Contains(m[1], "huawei"):
			return 50
		case strings.Contains(m[1], "motorola"):
			return 55
		case strings.Contains(m[1], "lenovo"):
			return 60
		case strings.Contains(m[1], "sony"):
			return 65
		}
	}

	return unknownOEMAdjustment
}

var firstNumberPattern = regexp.MustCompile(`\d+`)

// extractGeneration pulls the first integer out of the id or display name,
// e.g. 9 from "pixel_9" or 24 from "galaxy_s24". Zero means unversioned.
func extractGeneration(id, displayName string) int {
	for _, s := range []string{id, displayName} {
		if m := firstNumberPattern.FindString(s); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return n
			}
		}
	}
	return 0
}

func isPixel(id, displayName string) bool {
	return strings.Contains(strings.ToLower(id+" "+displayName), "pixel")
}

// AndroidPriority computes the display rank for an Android device profile.
// Lower values sort first.
func AndroidPriority(id, displayName string) int {
	category := Classify(id, displayName)
	gen := extractGeneration(id, displayName)

	if category == CategoryPhone && isPixel(id, displayName) {
		if gen == 0 {
			return pixelUnversionedPriority
		}
		bonus := maxVersionBonus - gen - pixelOffset
		if bonus < 0 {
			bonus = 0
		}
		if bonus > pixelMaxBonus {
			bonus = pixelMaxBonus
		}
		return bonus
	}

	adjustment := oemAdjustment(displayName)
	if category == CategoryPhone {
		adjustment /= 2
	} else {
		adjustment *= 2
	}

	bonus := maxVersionBonus - gen
	if bonus < 0 {
		bonus = 0
	}

	return categoryPriority(category) + adjustment + bonus
}

// Bands are spaced wider than the maximum version bonus so that the product
// line always decides the order and the bonus only orders within a band.
const (
	iphoneMiniBand   = 0
	iphoneSEBand     = 100
	iphoneBand       = 200
	iphonePlusBand   = 300
	iphoneProBand    = 400
	iphoneProMaxBand = 500
	ipadBand         = 1000
	ipadAirBand      = 1100
	ipadPro11Band    = 1200
	ipadPro13Band    = 1300
	appleTVBand      = 2000
	appleWatchBand   = 3000
	iosUnknownBand   = 9999

	iosMaxVersionBonus = 50
)

var generationPattern = regexp.MustCompile(`\((\d+)(?:st|nd|rd|th) generation\)`)

// iosVersion extracts the model number or generation from a simulator
// display name, e.g. 15 from "iPhone 15 Pro" or 3 from
// "iPhone SE (3rd generation)".
func iosVersion(displayName string) int {
	if m := generationPattern.FindStringSubmatch(displayName); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := firstNumberPattern.FindString(displayName); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return 0
}

// iosBand maps a product line to its base rank. More specific markers are
// matched first, so "Pro Max" never falls into the "Pro" band.
func iosBand(lower string) int {
	switch {
	case strings.Contains(lower, "iphone"):
		switch {
		case strings.Contains(lower, "pro max"):
			return iphoneProMaxBand
		case strings.Contains(lower, "pro"):
			return iphoneProBand
		case strings.Contains(lower, "plus") || strings.Contains(lower, "max"):
			return iphonePlusBand
		case strings.Contains(lower, "mini"):
			return iphoneMiniBand
		case strings.Contains(lower, "se"):
			return iphoneSEBand
		default:
			return iphoneBand
		}
	case strings.Contains(lower, "ipad"):
		switch {
		case strings.Contains(lower, "pro") && (strings.Contains(lower, "12.9") || strings.Contains(lower, "13")):
			return ipadPro13Band
		case strings.Contains(lower, "pro"):
			return ipadPro11Band
		case strings.Contains(lower, "air"):
			return ipadAirBand
		default:
			return ipadBand
		}
	case strings.Contains(lower, "apple tv"):
		return appleTVBand
	case strings.Contains(lower, "apple watch"):
		return appleWatchBand
	default:
		return iosUnknownBand
	}
}

// IOSPriority computes the display rank for a simulator device type. Lower
// values sort first; within a band, newer models outrank older ones.
func IOSPriority(displayName string) int {
	lower := strings.ToLower(displayName)
	band := iosBand(lower)
	if band == iosUnknownBand {
		return band
	}

	bonus := iosMaxVersionBonus - iosVersion(displayName)
	if bonus < 0 {
		bonus = 0
	}
	return band + bonus
}

// SortAndroid orders Android devices by priority, preserving input order
// for equal scores.
func SortAndroid(devices []models.AndroidDevice) {
	sort.SliceStable(devices, func(i, j int) bool {
		return AndroidPriority(devices[i].DeviceType, devices[i].Name) <
			AndroidPriority(devices[j].DeviceType, devices[j].Name)
	})
}

// SortIOS orders simulators by priority, preserving input order for equal
// scores.
func SortIOS(devices []models.IOSDevice) {
	sort.SliceStable(devices, func(i, j int) bool {
		return IOSPriority(devices[i].Name) < IOSPriority(devices[j].Name)
	})
}
