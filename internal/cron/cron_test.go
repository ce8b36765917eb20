package cron

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestTable(t *testing.T) (*Table, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "root")
	return NewTable(zap.NewNop(), path), path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read crontab: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestInstallIntoMissingTable(t *testing.T) {
	table, path := newTestTable(t)
	job := Job{Schedule: "*/15 * * * *", Command: "/usr/bin/splashgate netinfo"}

	if err := table.InstallOrUpdate(job); err != nil {
		t.Fatalf("InstallOrUpdate() error = %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("line count = %d, want 1", len(lines))
	}
	if lines[0] != "*/15 * * * * /usr/bin/splashgate netinfo" {
		t.Errorf("line = %q, want schedule + command", lines[0])
	}
}

func TestInstallOrUpdateIsIdempotent(t *testing.T) {
	table, path := newTestTable(t)
	job := Job{Schedule: "*/5 * * * *", Command: "/usr/bin/splashgate usage"}

	for i := 0; i < 2; i++ {
		if err := table.InstallOrUpdate(job); err != nil {
			t.Fatalf("InstallOrUpdate() #%d error = %v", i+1, err)
		}
	}

	n, err := table.Matches(job.Command)
	if err != nil {
		t.Fatalf("Matches() error = %v", err)
	}
	if n != 1 {
		t.Errorf("matching entries after double install = %d, want exactly 1", n)
	}
	if lines := readLines(t, path); len(lines) != 1 {
		t.Errorf("total lines = %d, want 1", len(lines))
	}
}

func TestInstallOrUpdateReplacesSchedule(t *testing.T) {
	table, path := newTestTable(t)
	cmd := "/usr/bin/splashgate netinfo"

	if err := table.InstallOrUpdate(Job{Schedule: "*/15 * * * *", Command: cmd}); err != nil {
		t.Fatalf("InstallOrUpdate() error = %v", err)
	}
	if err := table.InstallOrUpdate(Job{Schedule: "*/30 * * * *", Command: cmd}); err != nil {
		t.Fatalf("InstallOrUpdate() error = %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("line count = %d, want 1", len(lines))
	}
	if !strings.HasPrefix(lines[0], "*/30 ") {
		t.Errorf("line = %q, want updated schedule", lines[0])
	}
}

func TestUnrelatedLinesPreserved(t *testing.T) {
	table, path := newTestTable(t)
	existing := []string{
		"# keep this comment",
		"0  3  *  *  *	/sbin/reboot",
		"@reboot /usr/sbin/ntpd -q",
	}
	if err := os.WriteFile(path, []byte(strings.Join(existing, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("seed crontab: %v", err)
	}

	if err := table.InstallOrUpdate(Job{Schedule: "*/5 * * * *", Command: "/usr/bin/splashgate usage"}); err != nil {
		t.Fatalf("InstallOrUpdate() error = %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 4 {
		t.Fatalf("line count = %d, want 4", len(lines))
	}
	for i, want := range existing {
		if lines[i] != want {
			t.Errorf("line[%d] = %q, want preserved %q", i, lines[i], want)
		}
	}
}

func TestRemove(t *testing.T) {
	table, path := newTestTable(t)
	for _, job := range Jobs("/usr/bin/splashgate") {
		if err := table.InstallOrUpdate(job); err != nil {
			t.Fatalf("InstallOrUpdate() error = %v", err)
		}
	}

	if err := table.Remove("/usr/bin/splashgate netinfo"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("line count after remove = %d, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "usage") {
		t.Errorf("surviving line = %q, want the usage job", lines[0])
	}

	// Removing again is a no-op, not an error.
	if err := table.Remove("/usr/bin/splashgate netinfo"); err != nil {
		t.Errorf("Remove() of absent entry = %v, want nil", err)
	}
}

func TestDedupDoesNotCrossJobs(t *testing.T) {
	table, _ := newTestTable(t)
	jobs := Jobs("/usr/bin/splashgate")
	for _, job := range jobs {
		if err := table.InstallOrUpdate(job); err != nil {
			t.Fatalf("InstallOrUpdate() error = %v", err)
		}
	}

	// Reinstalling netinfo must not disturb usage: both share the binary
	// path but have distinct commands.
	if err := table.InstallOrUpdate(jobs[0]); err != nil {
		t.Fatalf("InstallOrUpdate() error = %v", err)
	}
	for _, job := range jobs {
		n, err := table.Matches(job.Command)
		if err != nil {
			t.Fatalf("Matches() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Matches(%q) = %d, want 1", job.Command, n)
		}
	}
}

func TestTableModePreserved(t *testing.T) {
	table, path := newTestTable(t)
	if err := os.WriteFile(path, []byte("# seeded\n"), 0o644); err != nil {
		t.Fatalf("seed crontab: %v", err)
	}

	if err := table.InstallOrUpdate(Job{Schedule: "*/5 * * * *", Command: "/usr/bin/splashgate usage"}); err != nil {
		t.Fatalf("InstallOrUpdate() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Errorf("crontab mode = %o, want preserved 644", perm)
	}
}
