// Package backup preserves target state that provisioning is about to
// overwrite: point-in-time records of individual config artifacts for
// transaction rollback, and tar.gz archives of whole directories for
// uninstall.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record captures one file's complete state so a failed transaction can put
// it back exactly as found. Existed=false records an absent file; restoring
// such a record removes whatever now occupies the path.
type Record struct {
	Path     string      `json:"path"`
	Existed  bool        `json:"existed"`
	Mode     os.FileMode `json:"mode,omitempty"`
	Contents []byte      `json:"contents,omitempty"`
	TakenAt  time.Time   `json:"taken_at"`
}

// Snapshot records the current state of every given path. Paths that do not
// exist produce an absent Record rather than an error.
func Snapshot(paths ...string) ([]Record, error) {
	now := time.Now().UTC()
	records := make([]Record, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			records = append(records, Record{Path: p, Existed: false, TakenAt: now})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		records = append(records, Record{
			Path:     p,
			Existed:  true,
			Mode:     info.Mode().Perm(),
			Contents: data,
			TakenAt:  now,
		})
	}
	return records, nil
}

// Restore puts every recorded path back to its captured state. It keeps
// going after individual failures so one bad path does not strand the rest,
// and returns the first error encountered.
func Restore(records []Record) error {
	var firstErr error
	for _, rec := range records {
		if err := restoreOne(rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func restoreOne(rec Record) error {
	if !rec.Existed {
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", rec.Path, err)
		}
		return nil
	}

	// Write to a sibling and rename so a crash mid-restore never leaves a
	// half-written artifact.
	tmp := rec.Path + ".restore"
	if err := os.WriteFile(tmp, rec.Contents, rec.Mode); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, rec.Mode); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, rec.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// WriteManifest stores records as a JSON manifest next to the other backup
// artifacts so a later run can inspect what an interrupted transaction saved.
func WriteManifest(dir string, records []Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("conftx-%s.json", time.Now().UTC().Format("20060102-150405")))
	data, err := marshalRecords(records)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

func marshalRecords(records []Record) ([]byte, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	return data, nil
}
