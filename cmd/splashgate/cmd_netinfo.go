package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zonenet/splashgate/internal/backend"
	"github.com/zonenet/splashgate/internal/config"
	"github.com/zonenet/splashgate/internal/logging"
	"github.com/zonenet/splashgate/internal/netinfo"
)

// netinfoTimeout bounds one cache refresh. Cron fires the next attempt
// soon enough that there is no point waiting longer.
const netinfoTimeout = time.Minute

var netinfoCmd = &cobra.Command{
	Use:   "netinfo",
	Short: "Refresh the cached network-info document",
	Long: `Fetch the network-info document from the portal backend and replace
the local cache if the response validates. An unreachable backend or an
invalid response leaves the existing cache untouched. Scheduled from
cron by install; safe to run by hand.`,
	RunE: runNetinfo,
}

func runNetinfo(cmd *cobra.Command, args []string) error {
	lay := layout()

	// Cron captures stderr; the install log stays reserved for
	// provisioning runs.
	log, closeLog, err := logging.New("", flagVerbose)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.Load(lay.ConfigFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, netinfoTimeout)
	defer cancel()

	client := backend.New(log, cfg.MainServer, cfg.RouterID, cfg.ContractID)
	return netinfo.NewRefresher(log, client, lay.NetInfoCache()).Refresh(ctx)
}
