package state

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/zonenet/splashgate/pkg/models"
)

// SpooledUsage is a usage record with its queue id.
type SpooledUsage struct {
	ID int64
	models.UsageRecord
}

// UsageSpool queues per-client usage records between collection and upload.
// Records stay queued until the backend acknowledges them, so an offline
// stretch loses nothing.
type UsageSpool interface {
	// Enqueue appends records to the spool in one transaction.
	Enqueue(ctx context.Context, records []models.UsageRecord) error

	// Pending returns up to limit queued records, oldest first.
	Pending(ctx context.Context, limit int) ([]SpooledUsage, error)

	// Delete removes acknowledged records by queue id.
	Delete(ctx context.Context, ids []int64) error

	// Count returns the number of queued records.
	Count(ctx context.Context) (int, error)
}

// Compile-time interface guard.
var _ UsageSpool = (*SQLiteUsageSpool)(nil)

// SQLiteUsageSpool implements UsageSpool using SQLite.
type SQLiteUsageSpool struct {
	store *DB
}

// NewUsageSpool creates a UsageSpool and runs the spool migration.
func NewUsageSpool(ctx context.Context, db *DB) (*SQLiteUsageSpool, error) {
	if err := db.Migrate(ctx, "usage_spool", spoolMigrations); err != nil {
		return nil, fmt.Errorf("usage spool migrations: %w", err)
	}
	return &SQLiteUsageSpool{store: db}, nil
}

func (s *SQLiteUsageSpool) Enqueue(ctx context.Context, records []models.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO usage_spool
					(client_mac, client_ip, bytes_up, bytes_down, session_seconds, captured_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				rec.ClientMAC, rec.ClientIP, rec.BytesUp, rec.BytesDown,
				rec.SessionSeconds, rec.CapturedAt.UTC(),
			)
			if err != nil {
				return fmt.Errorf("enqueue usage for %s: %w", rec.ClientMAC, err)
			}
		}
		return nil
	})
}

func (s *SQLiteUsageSpool) Pending(ctx context.Context, limit int) ([]SpooledUsage, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT id, client_mac, client_ip, bytes_up, bytes_down, session_seconds, captured_at
		FROM usage_spool ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list spool: %w", err)
	}
	defer rows.Close()

	var records []SpooledUsage
	for rows.Next() {
		var rec SpooledUsage
		if err := rows.Scan(&rec.ID, &rec.ClientMAC, &rec.ClientIP, &rec.BytesUp,
			&rec.BytesDown, &rec.SessionSeconds, &rec.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan spool row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteUsageSpool) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.store.DB().ExecContext(ctx,
		"DELETE FROM usage_spool WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("delete spooled records: %w", err)
	}
	return nil
}

func (s *SQLiteUsageSpool) Count(ctx context.Context) (int, error) {
	var n int
	err := s.store.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM usage_spool").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count spool: %w", err)
	}
	return n, nil
}

// spoolMigrations defines the database schema for the usage spool.
var spoolMigrations = []Migration{
	{
		Version:     1,
		Description: "create usage_spool table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE usage_spool (
					id              INTEGER PRIMARY KEY AUTOINCREMENT,
					client_mac      TEXT NOT NULL,
					client_ip       TEXT NOT NULL DEFAULT '',
					bytes_up        INTEGER NOT NULL DEFAULT 0,
					bytes_down      INTEGER NOT NULL DEFAULT 0,
					session_seconds INTEGER NOT NULL DEFAULT 0,
					captured_at     DATETIME NOT NULL
				)`)
			return err
		},
	},
}
