package provision

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/backup"
	"github.com/zonenet/splashgate/internal/conftx"
	"github.com/zonenet/splashgate/internal/config"
	"github.com/zonenet/splashgate/internal/cron"
	"github.com/zonenet/splashgate/internal/wireless"
	"github.com/zonenet/splashgate/pkg/models"
)

// UninstallOptions control the optional teardown steps.
type UninstallOptions struct {
	// ResetWifi returns the radio to the factory SSID after teardown.
	ResetWifi bool
}

// Uninstaller runs the mirror-image teardown: stop the daemon, drop the
// cron jobs, archive what the install wrote, and leave a minimal default
// configuration behind. Every step is best-effort; an uninstall that
// hits trouble keeps going and logs what it could not undo. The install
// log and the backup directory are never removed.
type Uninstaller struct {
	layout config.Layout
	deps   Deps
	log    *zap.Logger
}

// NewUninstaller wires an Uninstaller for the given layout.
func NewUninstaller(log *zap.Logger, layout config.Layout, deps Deps) *Uninstaller {
	return &Uninstaller{layout: layout, deps: deps, log: log}
}

// Run executes the teardown.
func (u *Uninstaller) Run(ctx context.Context, opts UninstallOptions) error {
	routerID := ""
	if cfg, err := config.Load(u.layout.ConfigFile); err == nil {
		routerID = cfg.RouterID
	}

	runID := uuid.New().String()
	recordStart(ctx, u.log, u.deps.Runs, models.RunRecord{
		ID:        runID,
		Kind:      models.RunUninstall,
		RouterID:  routerID,
		StartedAt: time.Now().UTC(),
	})

	// Stop serving before touching anything the daemon reads.
	if u.deps.Service != nil {
		if err := u.deps.Service.Stop(ctx); err != nil {
			u.log.Warn("gateway service not stopped", zap.Error(err))
		}
		if err := u.deps.Service.Disable(ctx); err != nil {
			u.log.Warn("gateway service not disabled", zap.Error(err))
		}
	}

	// Both background jobs run the same binary; one removal clears them.
	table := cron.NewTable(u.log, u.layout.CrontabFile)
	if err := table.Remove(u.layout.BinPath); err != nil {
		u.log.Warn("cron entries not removed", zap.Error(err))
	}

	u.archive(ctx)

	tx := conftx.New(u.log, u.deps.Store, u.layout.BackupDir())
	if _, err := tx.Apply(ctx, TeardownBatch()); err != nil {
		u.log.Warn("teardown phase incomplete", zap.Error(err))
	}

	if opts.ResetWifi {
		if _, err := tx.Apply(ctx, WifiResetBatch()); err != nil {
			u.log.Warn("wifi reset incomplete", zap.Error(err))
		} else if u.deps.Reloader != nil {
			outcome, err := u.deps.Reloader.Reload(ctx)
			switch {
			case err != nil:
				u.log.Warn("wireless reload failed", zap.Error(err))
			case outcome != wireless.Confirmed:
				u.log.Warn("wireless reload not confirmed", zap.String("outcome", outcome.String()))
			}
		}
	}

	// Deployed assets and the credentials file go; archives keep a copy.
	if err := os.RemoveAll(u.layout.WebRoot); err != nil {
		u.log.Warn("web root not removed", zap.String("path", u.layout.WebRoot), zap.Error(err))
	}
	if err := os.Remove(u.layout.ConfigFile); err != nil && !os.IsNotExist(err) {
		u.log.Warn("config file not removed", zap.String("path", u.layout.ConfigFile), zap.Error(err))
	}

	recordFinish(ctx, u.log, u.deps.Runs, runID, models.RunSucceeded, "")
	u.log.Info("uninstall finished", zap.String("run", runID))
	return nil
}

// archive keeps timestamped copies of the web root and local state
// before anything is deleted.
func (u *Uninstaller) archive(ctx context.Context) {
	if err := os.MkdirAll(u.layout.BackupDir(), 0o755); err != nil {
		u.log.Warn("backup dir unavailable, skipping archives", zap.Error(err))
		return
	}
	stamp := time.Now().UTC().Format("20060102-150405")

	webrootArchive := filepath.Join(u.layout.BackupDir(), "webroot-"+stamp+".tar.gz")
	if err := backup.ArchiveDir(u.layout.WebRoot, webrootArchive); err != nil {
		u.log.Warn("web root not archived", zap.Error(err))
	} else {
		u.log.Info("web root archived", zap.String("path", webrootArchive))
	}

	stateArchive := filepath.Join(u.layout.BackupDir(), "state-"+stamp+".tar.gz")
	if err := backup.ArchiveState(ctx, u.layout.StateDB(), u.layout.ConfigFile, stateArchive); err != nil {
		u.log.Warn("state not archived", zap.Error(err))
	} else {
		u.log.Info("state archived", zap.String("path", stateArchive))
	}
}
