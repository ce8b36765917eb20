// Package cron installs splashgate's recurring jobs into a crontab file.
// Updates are read-modify-write over the whole table with deduplication by
// command, so re-running provisioning never accumulates duplicate entries.
package cron

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Job is one recurring entry. Command doubles as the dedup key: at most one
// active line per command exists in the table.
type Job struct {
	Schedule string // five-field cron expression
	Command  string
}

// Line renders the job as a crontab line.
func (j Job) Line() string {
	return j.Schedule + " " + j.Command
}

// Jobs returns the recurring background jobs for a given binary path:
// network-info refresh every 15 minutes, usage collection every 5.
func Jobs(binPath string) []Job {
	return []Job{
		{Schedule: "*/15 * * * *", Command: binPath + " netinfo"},
		{Schedule: "*/5 * * * *", Command: binPath + " usage"},
	}
}

// Table edits one crontab file, preserving every line it does not own.
type Table struct {
	path string
	log  *zap.Logger
}

// NewTable returns a Table over the crontab at path, normally
// /etc/crontabs/root.
func NewTable(log *zap.Logger, path string) *Table {
	return &Table{path: path, log: log}
}

// InstallOrUpdate upserts the job: every line running the job's command is
// removed, then the new schedule line is appended. Idempotent.
func (t *Table) InstallOrUpdate(job Job) error {
	lines, mode, err := t.read()
	if err != nil {
		return err
	}

	kept := removeCommand(lines, job.Command)
	kept = append(kept, job.Line())

	if err := t.write(kept, mode); err != nil {
		return err
	}
	t.log.Info("cron job installed",
		zap.String("schedule", job.Schedule),
		zap.String("command", job.Command))
	return nil
}

// Remove deletes every line running command. Removing an absent entry is
// not an error.
func (t *Table) Remove(command string) error {
	lines, mode, err := t.read()
	if err != nil {
		return err
	}

	kept := removeCommand(lines, command)
	if len(kept) == len(lines) {
		return nil
	}
	if err := t.write(kept, mode); err != nil {
		return err
	}
	t.log.Info("cron job removed", zap.String("command", command))
	return nil
}

// Matches reports how many active lines run command. Used by verification.
func (t *Table) Matches(command string) (int, error) {
	lines, _, err := t.read()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, line := range lines {
		if lineRunsCommand(line, command) {
			n++
		}
	}
	return n, nil
}

// read returns the crontab's lines and file mode. A missing file reads as
// empty with the default restrictive mode.
func (t *Table) read() (lines []string, mode os.FileMode, err error) {
	mode = 0o600
	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil, mode, nil
	}
	if err != nil {
		return nil, mode, fmt.Errorf("read crontab: %w", err)
	}
	if info, statErr := os.Stat(t.path); statErr == nil {
		mode = info.Mode().Perm()
	}

	raw := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(raw) == 1 && raw[0] == "" {
		return nil, mode, nil
	}
	return raw, mode, nil
}

// write replaces the crontab atomically via a temp sibling.
func (t *Table) write(lines []string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create crontab dir: %w", err)
	}

	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), mode); err != nil {
		return fmt.Errorf("write crontab temp: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace crontab: %w", err)
	}
	return nil
}

func removeCommand(lines []string, command string) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if lineRunsCommand(line, command) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// lineRunsCommand reports whether an active crontab line's command part is
// command or starts with it. Comments and malformed lines never match.
func lineRunsCommand(line, command string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 6 {
		return false
	}
	cmd := strings.Join(fields[5:], " ")
	return cmd == command || strings.HasPrefix(cmd, command+" ")
}
