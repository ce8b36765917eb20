package config

import "path/filepath"

// Layout fixes where the provisioner reads and writes on the target
// system. Every path is overridable so tests can run against a temp tree.
type Layout struct {
	// ConfigFile is the restricted-permission provisioning config.
	ConfigFile string
	// DataDir holds the install log, state database, backups and staging.
	DataDir string
	// WebRoot is where validated splash assets are deployed.
	WebRoot string
	// CrontabFile is the system job table rewritten by the scheduler.
	CrontabFile string
	// UCIConfigDir holds the gateway and wireless configuration artifacts.
	UCIConfigDir string
	// BinPath is the installed provisioner binary referenced by cron lines.
	BinPath string
}

// DefaultLayout returns the production layout on an OpenWrt-style target.
func DefaultLayout() Layout {
	return Layout{
		ConfigFile:   "/etc/splashgate/config.yaml",
		DataDir:      "/usr/share/splashgate",
		WebRoot:      "/www/splash",
		CrontabFile:  "/etc/crontabs/root",
		UCIConfigDir: "/etc/config",
		BinPath:      "/usr/bin/splashgate",
	}
}

// InstallLog is the append-only durable log shared by install and
// uninstall runs.
func (l Layout) InstallLog() string { return filepath.Join(l.DataDir, "install.log") }

// StateDB is the local run-history and usage-spool database.
func (l Layout) StateDB() string { return filepath.Join(l.DataDir, "state.db") }

// BackupDir holds timestamped copies of mutated configuration artifacts.
func (l Layout) BackupDir() string { return filepath.Join(l.DataDir, "backups") }

// StagingDir is where fetched assets land before validation.
func (l Layout) StagingDir() string { return filepath.Join(l.DataDir, "staging") }

// NetInfoCache is the validated network-info document.
func (l Layout) NetInfoCache() string { return filepath.Join(l.DataDir, "netinfo.json") }

// UCIArtifact returns the on-disk artifact for a configuration section.
func (l Layout) UCIArtifact(section string) string {
	return filepath.Join(l.UCIConfigDir, section)
}
