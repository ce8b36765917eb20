// splashgate turns an OpenWrt-class access point into a managed
// captive-portal gateway: it provisions the nodogsplash daemon, deploys
// the splash page, whitelists the operator's device, and schedules the
// background jobs that keep the portal in sync with the backend.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/config"
	"github.com/zonenet/splashgate/internal/state"
	"github.com/zonenet/splashgate/internal/version"
)

var (
	flagConfig  string
	flagDataDir string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:          "splashgate",
	Short:        "Captive-portal gateway provisioner",
	Version:      version.Short(),
	SilenceUsage: true,
}

func init() {
	defaults := config.DefaultLayout()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", defaults.ConfigFile, "path to the provisioning config")
	pf.StringVar(&flagDataDir, "data-dir", defaults.DataDir, "directory for the install log, state database and backups")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(installCmd, uninstallCmd, verifyCmd, netinfoCmd, usageCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// layout resolves the filesystem layout with CLI overrides applied.
func layout() config.Layout {
	l := config.DefaultLayout()
	l.ConfigFile = flagConfig
	l.DataDir = flagDataDir
	return l
}

// openRunState opens the local run-history repository. The state database
// is advisory: when it cannot be opened the pipeline runs without history
// and the operator gets a warning instead of a failure.
func openRunState(ctx context.Context, log *zap.Logger, path string) (state.RunRepository, func()) {
	db, err := state.Open(path)
	if err != nil {
		log.Warn("state database unavailable, run history disabled",
			zap.String("path", path), zap.Error(err))
		return nil, func() {}
	}
	runs, err := state.NewRunRepository(ctx, db)
	if err != nil {
		log.Warn("run history disabled", zap.Error(err))
		db.Close()
		return nil, func() {}
	}
	return runs, func() { db.Close() }
}
