package android

import (
	"os"
	"path/filepath"

	"github.com/emudevtools/emuctl/internal/models"
)

// sdkTools holds the resolved paths of the Android SDK command line tools.
// When the SDK root cannot be discovered, each tool falls back to its bare
// name so PATH lookup still has a chance.
type sdkTools struct {
	Root       string
	AVDManager string
	SDKManager string
	ADB        string
	Emulator   string
}

func bareTools() sdkTools {
	return sdkTools{
		AVDManager: "avdmanager",
		SDKManager: "sdkmanager",
		ADB:        "adb",
		Emulator:   "emulator",
	}
}

// discoverSDK locates the Android SDK via ANDROID_HOME, then
// ANDROID_SDK_ROOT, and resolves tool paths inside it. A missing SDK is
// reported as an error alongside usable bare-name tools.
func discoverSDK() (sdkTools, error) {
	root := os.Getenv("ANDROID_HOME")
	if root == "" {
		root = os.Getenv("ANDROID_SDK_ROOT")
	}
	if root == "" {
		return bareTools(), models.NewDeviceError(models.ErrSdkNotFound, "ANDROID_HOME",
			"neither ANDROID_HOME nor ANDROID_SDK_ROOT is set", nil)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return bareTools(), models.NewDeviceError(models.ErrSdkNotFound, root,
			"SDK directory does not exist", nil)
	}

	tools := sdkTools{Root: root}
	tools.AVDManager = findTool(root, "avdmanager",
		filepath.Join("cmdline-tools", "latest", "bin"),
		filepath.Join("tools", "bin"))
	tools.SDKManager = findTool(root, "sdkmanager",
		filepath.Join("cmdline-tools", "latest", "bin"),
		filepath.Join("tools", "bin"))
	tools.ADB = findTool(root, "adb", "platform-tools")
	tools.Emulator = findTool(root, "emulator", "emulator", filepath.Join("tools"))
	return tools, nil
}

// findTool probes the candidate SDK subdirectories for a tool and falls
// back to the bare name when none contains it.
func findTool(root, name string, dirs ...string) string {
	for _, dir := range dirs {
		candidate := filepath.Join(root, dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if _, err := os.Stat(candidate + ".bat"); err == nil {
			return candidate + ".bat"
		}
	}
	return name
}
