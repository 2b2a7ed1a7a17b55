// Package cli wires the device managers and refresh coordinator into the
// emuctl command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/emudevtools/emuctl/internal/android"
	"github.com/emudevtools/emuctl/internal/cache"
	"github.com/emudevtools/emuctl/internal/command"
	"github.com/emudevtools/emuctl/internal/ios"
	"github.com/emudevtools/emuctl/internal/manager"
	"github.com/emudevtools/emuctl/internal/models"
)

var (
	appVersion = "dev"

	platformFlag string
	verboseFlag  bool
)

var rootCmd = &cobra.Command{
	Use:           "emuctl",
	Short:         "Manage Android emulators and iOS simulators from one place",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all devices across platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.coordinator.RefreshAll(cmd.Context()); err != nil {
			return err
		}

		var devices []models.Device
		for _, p := range app.platforms() {
			devices = append(devices, app.coordinator.Devices(p)...)
		}
		printDevices(devices)
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start DEVICE",
	Short: "Start a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")
		return withApp(func(app *app) error {
			if err := app.coordinator.StartDevice(cmd.Context(), app.platform(), args[0]); err != nil {
				return err
			}
			if wait && app.platform() == models.PlatformAndroid {
				return app.android.WaitForBoot(cmd.Context(), args[0])
			}
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop DEVICE",
	Short: "Stop a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *app) error {
			return app.coordinator.StopDevice(cmd.Context(), app.platform(), args[0])
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceType, _ := cmd.Flags().GetString("type")
		version, _ := cmd.Flags().GetString("version")
		return withApp(func(app *app) error {
			cfg := models.DeviceConfig{
				Name:       args[0],
				DeviceType: deviceType,
				Version:    version,
			}
			return app.coordinator.CreateDevice(cmd.Context(), app.platform(), cfg)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete DEVICE",
	Short: "Delete a device permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *app) error {
			return app.coordinator.DeleteDevice(cmd.Context(), app.platform(), args[0])
		})
	},
}

var wipeCmd = &cobra.Command{
	Use:   "wipe DEVICE",
	Short: "Reset a device to factory state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *app) error {
			return app.coordinator.WipeDevice(cmd.Context(), app.platform(), args[0])
		})
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details DEVICE",
	Short: "Show expanded information for one device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *app) error {
			mgr, err := app.manager()
			if err != nil {
				return err
			}
			details, err := mgr.GetDeviceDetails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDetails(details)
			return nil
		})
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List Android API levels and system images",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		levels, err := app.android.ListAPILevels(cmd.Context())
		if err != nil {
			return err
		}
		printAPILevels(levels)
		return nil
	},
}

var installCmd = &cobra.Command{
	Use:   "install PACKAGE",
	Short: "Install an Android system image package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		return app.android.InstallSystemImage(cmd.Context(), args[0], func(p models.InstallProgress) {
			fmt.Printf("%s: %d%%\n", p.Operation, p.Percentage)
		})
	},
}

var runtimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "List installed iOS simulator runtimes",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		runtimes, err := app.ios.ListRuntimes(cmd.Context())
		if err != nil {
			return err
		}
		for _, rt := range runtimes {
			fmt.Println(rt)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("emuctl %s\n", appVersion)
	},
}

func init() {
	rootCmd.AddCommand(listCmd, startCmd, stopCmd, createCmd, deleteCmd,
		wipeCmd, detailsCmd, imagesCmd, installCmd, runtimesCmd, versionCmd)

	rootCmd.PersistentFlags().StringVarP(&platformFlag, "platform", "p", "android",
		"target platform (android or ios)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose logging")

	startCmd.Flags().Bool("wait", false, "block until the device finishes booting (Android)")
	createCmd.Flags().String("type", "", "device type (hardware profile or simulator device type)")
	createCmd.Flags().String("version", "", "API level (Android) or runtime version (iOS)")
}

// Execute runs the root command. Errors come back formatted for the user.
func Execute(version string) error {
	appVersion = version
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return fmt.Errorf("%s", models.FormatUserError(err))
	}
	return nil
}

// app bundles the managers and coordinator behind the commands.
type app struct {
	android     *android.Manager
	ios         *ios.Manager
	coordinator *cache.Coordinator
}

func newApp() (*app, error) {
	logger := newLogger()
	runner := command.NewRunner(command.WithLogger(logger.Named("exec")))

	androidMgr := android.NewManager(runner, android.WithLogger(logger.Named("android")))
	iosMgr := ios.NewManager(runner, ios.WithLogger(logger.Named("ios")))

	coordinator := cache.NewCoordinator(
		[]manager.DeviceManager{androidMgr, iosMgr},
		cache.WithLogger(logger.Named("cache")),
	)
	return &app{android: androidMgr, ios: iosMgr, coordinator: coordinator}, nil
}

func withApp(fn func(*app) error) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	return fn(app)
}

// platform returns the platform selected by the --platform flag.
func (a *app) platform() models.Platform {
	if platformFlag == "ios" {
		return models.PlatformIOS
	}
	return models.PlatformAndroid
}

// platforms returns every platform usable on this host.
func (a *app) platforms() []models.Platform {
	platforms := []models.Platform{models.PlatformAndroid}
	if a.ios.IsAvailable(context.Background()) {
		platforms = append(platforms, models.PlatformIOS)
	}
	return platforms
}

// manager returns the manager for the selected platform.
func (a *app) manager() (manager.DeviceManager, error) {
	switch a.platform() {
	case models.PlatformIOS:
		return a.ios, nil
	default:
		return a.android, nil
	}
}

func newLogger() hclog.Logger {
	level := hclog.Warn
	if verboseFlag {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "emuctl",
		Level:  level,
		Output: os.Stderr,
	})
}

// printDevices renders the device table, aligned on a terminal and plain
// tab-separated when piped.
func printDevices(devices []models.Device) {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPLATFORM\tSTATUS")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID(), d.DisplayName(), d.Platform(), d.Status())
		}
		w.Flush()
		return
	}
	for _, d := range devices {
		fmt.Printf("%s\t%s\t%s\t%s\n", d.ID(), d.DisplayName(), d.Platform(), d.Status())
	}
}

func printDetails(d *models.DeviceDetails) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", d.Name)
	fmt.Fprintf(w, "Status:\t%s\n", d.Status)
	fmt.Fprintf(w, "Platform:\t%s\n", d.Platform)
	fmt.Fprintf(w, "Type:\t%s\n", d.DeviceType)
	fmt.Fprintf(w, "Version:\t%s\n", d.Version)
	if d.RAMSize != "" {
		fmt.Fprintf(w, "RAM:\t%s MB\n", d.RAMSize)
	}
	if d.StorageSize != "" {
		fmt.Fprintf(w, "Storage:\t%s\n", d.StorageSize)
	}
	if d.Resolution != "" {
		fmt.Fprintf(w, "Resolution:\t%s\n", d.Resolution)
	}
	if d.DPI != "" {
		fmt.Fprintf(w, "DPI:\t%s\n", d.DPI)
	}
	if d.DevicePath != "" {
		fmt.Fprintf(w, "Path:\t%s\n", d.DevicePath)
	}
	if d.SystemImage != "" {
		fmt.Fprintf(w, "System image:\t%s\n", d.SystemImage)
	}
	w.Flush()
}

func printAPILevels(levels []models.APILevel) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "API\tVERSION\tINSTALLED\tVARIANTS\tRECOMMENDED")
	for _, l := range levels {
		installed := ""
		if l.Installed {
			installed = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", l.API, l.Version, installed, len(l.Variants), l.SystemImageID)
	}
	w.Flush()
}
