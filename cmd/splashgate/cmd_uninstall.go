package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zonenet/splashgate/internal/gateway"
	"github.com/zonenet/splashgate/internal/logging"
	"github.com/zonenet/splashgate/internal/provision"
	"github.com/zonenet/splashgate/internal/uci"
	"github.com/zonenet/splashgate/internal/wireless"
)

var (
	uninstallYes       bool
	uninstallResetWifi bool
	uninstallIface     string
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Tear down the captive portal and restore a plain gateway",
	Long: `Tear down the captive portal on this device.

Uninstall stops and disables the portal daemon, removes the scheduled
jobs, disables the portal configuration, and deletes the deployed splash
page and the stored credentials. The web root and local state are
archived under the backup directory first; backups and the install log
are never deleted.

WiFi is left broadcasting the provisioned SSID unless --reset-wifi is
given (or confirmed at the prompt), which returns the radio to its
factory name.`,
	RunE: runUninstall,
}

func init() {
	f := uninstallCmd.Flags()
	f.BoolVarP(&uninstallYes, "yes", "y", false, "skip confirmation prompts")
	f.BoolVar(&uninstallResetWifi, "reset-wifi", false, "also reset the radio to the factory SSID")
	f.StringVar(&uninstallIface, "wifi-iface", "wlan0", "wireless interface watched after radio reload")
}

func runUninstall(cmd *cobra.Command, args []string) error {
	lay := layout()

	log, closeLog, err := logging.New(lay.InstallLog(), flagVerbose)
	if err != nil {
		return err
	}
	defer closeLog()

	prompts := newPrompter(cmd.InOrStdin(), uninstallYes)
	if !uninstallYes {
		if !prompts.YesNo("Remove the captive portal from this device?", false) {
			fmt.Fprintln(cmd.OutOrStdout(), "uninstall cancelled")
			return nil
		}
		if !uninstallResetWifi {
			uninstallResetWifi = prompts.YesNo("Also reset WiFi to factory defaults?", false)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := provision.Deps{
		Store:   uci.NewExecStore(log, lay.UCIConfigDir),
		Service: gateway.Detect(log),
	}
	if uninstallResetWifi {
		deps.Reloader = wireless.NewWatchdog(log, uninstallIface)
	}
	runs, closeState := openRunState(ctx, log, lay.StateDB())
	defer closeState()
	deps.Runs = runs

	uninstaller := provision.NewUninstaller(log, lay, deps)
	if err := uninstaller.Run(ctx, provision.UninstallOptions{ResetWifi: uninstallResetWifi}); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "uninstall complete")
	return nil
}
