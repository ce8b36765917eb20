// Package provision hosts the pipeline that turns an access point into a
// working captive-portal gateway, and the mirror-image teardown. The
// pipeline is linear: identity, assets, template injection, the
// configuration phases, background jobs, verification. Environment
// failures and entry-point loss abort it; everything softer degrades to
// a logged warning.
package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/assets"
	"github.com/zonenet/splashgate/internal/conftx"
	"github.com/zonenet/splashgate/internal/config"
	"github.com/zonenet/splashgate/internal/cron"
	"github.com/zonenet/splashgate/internal/gateway"
	"github.com/zonenet/splashgate/internal/identity"
	"github.com/zonenet/splashgate/internal/inject"
	"github.com/zonenet/splashgate/internal/state"
	"github.com/zonenet/splashgate/internal/uci"
	"github.com/zonenet/splashgate/internal/verify"
	"github.com/zonenet/splashgate/internal/wireless"
	"github.com/zonenet/splashgate/pkg/models"
)

// Reloader is the wireless watchdog seam.
type Reloader interface {
	Reload(ctx context.Context) (wireless.Outcome, error)
}

// Checker is the preflight seam.
type Checker interface {
	Run(ctx context.Context) error
}

// Deps are the collaborators the pipeline drives. Service, Runs and
// Reloader may be nil on hosts where the underlying facility is missing;
// the pipeline degrades accordingly. A nil Preflight gets the production
// checks; a nil Probe gets the real TCP dial.
type Deps struct {
	Store     uci.Store
	Service   gateway.Service
	Runs      state.RunRepository
	Reloader  Reloader
	Preflight Checker
	Probe     verify.ListenProbe
}

// Installer runs the provisioning pipeline end to end.
type Installer struct {
	layout config.Layout
	deps   Deps
	log    *zap.Logger
}

// NewInstaller wires an Installer for the given layout.
func NewInstaller(log *zap.Logger, layout config.Layout, deps Deps) *Installer {
	if deps.Probe == nil {
		deps.Probe = gateway.Listening
	}
	return &Installer{layout: layout, deps: deps, log: log}
}

// Run executes the full pipeline. cfg carries the operator-supplied
// credentials; blank identity fields are resolved here and persisted.
// The returned report is meaningful whenever err is nil.
func (i *Installer) Run(ctx context.Context, cfg *config.Provisioning) (verify.Report, error) {
	if err := cfg.Validate(); err != nil {
		return verify.Report{}, fmt.Errorf("validate config: %w", err)
	}

	pre := i.deps.Preflight
	if pre == nil {
		pre = NewPreflight(i.log, i.layout.DataDir, cfg.MainServer)
	}
	if err := pre.Run(ctx); err != nil {
		return verify.Report{}, err
	}

	if cfg.RouterID == "" {
		rid := identity.ResolveRouter(i.log)
		cfg.RouterID = rid.ID
		i.log.Info("router identity resolved",
			zap.String("router_id", rid.ID), zap.String("source", string(rid.Source)))
	}

	runID := uuid.New().String()
	recordStart(ctx, i.log, i.deps.Runs, models.RunRecord{
		ID:        runID,
		Kind:      models.RunInstall,
		RouterID:  cfg.RouterID,
		StartedAt: time.Now().UTC(),
	})

	report, err := i.pipeline(ctx, cfg)
	if err != nil {
		recordFinish(ctx, i.log, i.deps.Runs, runID, models.RunFailed, err.Error())
		return report, err
	}
	recordFinish(ctx, i.log, i.deps.Runs, runID, models.RunSucceeded, "")
	return report, nil
}

func (i *Installer) pipeline(ctx context.Context, cfg *config.Provisioning) (verify.Report, error) {
	if cfg.AdminMAC == "" {
		admin := identity.NewResolver(i.log).ResolveAdmin(ctx, "")
		cfg.AdminMAC = admin.MAC
	}
	if err := config.Save(i.layout.ConfigFile, cfg); err != nil {
		return verify.Report{}, fmt.Errorf("persist config: %w", err)
	}

	manifest := assets.NewManifest()
	entries, err := manifest.Entries()
	if err != nil {
		return verify.Report{}, err
	}
	fetcher := assets.NewFetcher(i.log, cfg.MainServer, i.layout.StagingDir())
	staged, err := fetcher.Fetch(ctx, entries)
	if err != nil {
		return verify.Report{}, fmt.Errorf("fetch assets: %w", err)
	}

	files, err := i.deployAssets(staged)
	if err != nil {
		return verify.Report{}, err
	}

	entryName, err := manifest.EntryPoint()
	if err != nil {
		return verify.Report{}, err
	}
	entryPath := filepath.Join(i.layout.WebRoot, entryName)
	injReport, err := inject.New(i.log).Inject(files, entryPath, inject.Values{
		RouterID:   cfg.RouterID,
		ContractID: cfg.ContractID,
		ServerURL:  cfg.MainServer,
		WifiSSID:   cfg.WifiSSID,
	})
	if err != nil {
		return verify.Report{}, fmt.Errorf("inject templates: %w", err)
	}
	for _, f := range injReport.Failed() {
		i.log.Warn("template kept original content",
			zap.String("file", f.Path), zap.Error(f.Err))
	}

	tx := conftx.New(i.log, i.deps.Store, i.layout.BackupDir())
	batches := []conftx.Batch{
		GatewayBatch(cfg.RouterID, i.layout.WebRoot),
		FirewallBatch(),
	}
	if cfg.AdminMAC != "" {
		batches = append(batches, WhitelistBatch(cfg.AdminMAC))
	} else {
		i.log.Warn("admin device unresolved, whitelist phase skipped")
	}
	batches = append(batches, WirelessBatch(cfg.WifiSSID))
	for _, b := range batches {
		if _, err := tx.Apply(ctx, b); err != nil {
			return verify.Report{}, fmt.Errorf("phase %s: %w", b.Phase, err)
		}
	}

	if i.deps.Service != nil {
		if err := i.deps.Service.Enable(ctx); err != nil {
			i.log.Warn("gateway service not enabled", zap.Error(err))
		}
		if err := i.deps.Service.Restart(ctx); err != nil {
			i.log.Warn("gateway service not restarted", zap.Error(err))
		}
	} else {
		i.log.Warn("no init system detected, gateway service untouched")
	}

	if i.deps.Reloader != nil {
		outcome, err := i.deps.Reloader.Reload(ctx)
		switch {
		case err != nil:
			i.log.Warn("wireless reload failed", zap.Error(err))
		case outcome != wireless.Confirmed:
			i.log.Warn("wireless reload not confirmed", zap.String("outcome", outcome.String()))
		}
	}

	table := cron.NewTable(i.log, i.layout.CrontabFile)
	for _, job := range cron.Jobs(i.layout.BinPath) {
		if err := table.InstallOrUpdate(job); err != nil {
			i.log.Warn("cron entry not installed",
				zap.String("command", job.Command), zap.Error(err))
		}
	}

	verifier := verify.New(i.log, i.deps.Store, i.layout.WebRoot, entries,
		expectedKeys(cfg), "127.0.0.1", gateway.ListenPort, i.deps.Probe)
	return verifier.Run(ctx), nil
}

// NewVerifier builds the standalone deployment verifier for an already
// provisioned system, holding it to the same expectations the installer
// checks after its final phase. A nil probe gets the real TCP dial.
func NewVerifier(log *zap.Logger, layout config.Layout, cfg *config.Provisioning,
	store uci.Store, probe verify.ListenProbe) (*verify.Verifier, error) {
	entries, err := assets.NewManifest().Entries()
	if err != nil {
		return nil, err
	}
	if probe == nil {
		probe = gateway.Listening
	}
	return verify.New(log, store, layout.WebRoot, entries,
		expectedKeys(cfg), "127.0.0.1", gateway.ListenPort, probe), nil
}

func expectedKeys(cfg *config.Provisioning) []verify.KeyCheck {
	return []verify.KeyCheck{
		{Key: portalSection + ".enabled", Want: "1"},
		{Key: portalSection + ".gatewayname", Want: cfg.RouterID},
		{Key: portalSection + ".gatewayport", Want: strconv.Itoa(gateway.ListenPort)},
	}
}

// deployAssets copies staged files into the web root, atomically per
// file. Staging and web root can sit on different filesystems, so this
// copies instead of renaming across.
func (i *Installer) deployAssets(staged []assets.StagedAsset) ([]string, error) {
	if err := os.MkdirAll(i.layout.WebRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create web root: %w", err)
	}
	files := make([]string, 0, len(staged))
	for _, a := range staged {
		dst := filepath.Join(i.layout.WebRoot, a.Name)
		if err := copyFile(a.Path, dst); err != nil {
			return nil, fmt.Errorf("deploy %s: %w", a.Name, err)
		}
		files = append(files, dst)
	}
	i.log.Info("assets deployed", zap.Int("files", len(files)), zap.String("webroot", i.layout.WebRoot))
	return files, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp := dst + ".deploy"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func recordStart(ctx context.Context, log *zap.Logger, runs state.RunRepository, rec models.RunRecord) {
	if runs == nil {
		return
	}
	if err := runs.Start(ctx, rec); err != nil {
		log.Warn("run history not recorded", zap.String("run", rec.ID), zap.Error(err))
	}
}

func recordFinish(ctx context.Context, log *zap.Logger, runs state.RunRepository, id string, outcome models.RunOutcome, failure string) {
	if runs == nil {
		return
	}
	if err := runs.Finish(ctx, id, outcome, failure); err != nil {
		log.Warn("run outcome not recorded", zap.String("run", id), zap.Error(err))
	}
}
