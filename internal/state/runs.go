package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zonenet/splashgate/pkg/models"
)

// RunRepository records install and uninstall runs. Recording is advisory:
// a failure to write history must never fail the run itself, so callers
// log and continue on error.
type RunRepository interface {
	// Start inserts a run in progress.
	Start(ctx context.Context, rec models.RunRecord) error

	// Finish marks a run's terminal outcome.
	Finish(ctx context.Context, id string, outcome models.RunOutcome, failure string) error

	// History returns the most recent runs, newest first.
	History(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// Compile-time interface guard.
var _ RunRepository = (*SQLiteRunRepository)(nil)

// SQLiteRunRepository implements RunRepository using SQLite.
type SQLiteRunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a RunRepository and runs the runs migration.
func NewRunRepository(ctx context.Context, db *DB) (*SQLiteRunRepository, error) {
	if err := db.Migrate(ctx, "runs", runMigrations); err != nil {
		return nil, fmt.Errorf("runs migrations: %w", err)
	}
	return &SQLiteRunRepository{db: db.DB()}, nil
}

func (r *SQLiteRunRepository) Start(ctx context.Context, rec models.RunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, router_id, started_at)
		VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.RouterID, rec.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLiteRunRepository) Finish(ctx context.Context, id string, outcome models.RunOutcome, failure string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, outcome = ?, failure = ?
		WHERE id = ?`,
		time.Now().UTC(), outcome, failure, id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRunRepository) History(ctx context.Context, limit int) ([]models.RunRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, router_id, started_at, finished_at, outcome, failure
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		var (
			rec      models.RunRecord
			finished sql.NullTime
			outcome  sql.NullString
			failure  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.RouterID, &rec.StartedAt,
			&finished, &outcome, &failure); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if finished.Valid {
			rec.FinishedAt = finished.Time
		}
		if outcome.Valid {
			rec.Outcome = models.RunOutcome(outcome.String)
		}
		if failure.Valid {
			rec.Failure = failure.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// runMigrations defines the database schema for the run history.
var runMigrations = []Migration{
	{
		Version:     1,
		Description: "create runs table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE runs (
					id          TEXT PRIMARY KEY,
					kind        TEXT NOT NULL,
					router_id   TEXT NOT NULL DEFAULT '',
					started_at  DATETIME NOT NULL,
					finished_at DATETIME,
					outcome     TEXT,
					failure     TEXT
				)`)
			return err
		},
	},
}
