package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zonenet/splashgate/internal/backend"
	"github.com/zonenet/splashgate/internal/config"
	"github.com/zonenet/splashgate/internal/logging"
	"github.com/zonenet/splashgate/internal/state"
	"github.com/zonenet/splashgate/internal/usage"
)

// usageTimeout bounds one collect-and-upload cycle.
const usageTimeout = 2 * time.Minute

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Collect client usage counters and upload the spool",
	Long: `Snapshot the per-client usage counters from the portal daemon,
spool them locally, and upload everything pending to the portal backend.
A failed upload keeps the records spooled for the next run, so no
interval is lost to a flaky uplink. Scheduled from cron by install; safe
to run by hand.`,
	RunE: runUsage,
}

func runUsage(cmd *cobra.Command, args []string) error {
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
	ctx, cancel := context.WithTimeout(ctx, usageTimeout)
	defer cancel()

	// Without the spool the job cannot promise that a failed upload loses
	// nothing, so an unavailable state database is a hard error here.
	db, err := state.Open(lay.StateDB())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	spool, err := state.NewUsageSpool(ctx, db)
	if err != nil {
		return fmt.Errorf("open usage spool: %w", err)
	}

	client := backend.New(log, cfg.MainServer, cfg.RouterID, cfg.ContractID)
	job := usage.NewJob(log, usage.NewCollector(log), spool, client)
	return job.Run(ctx)
}
