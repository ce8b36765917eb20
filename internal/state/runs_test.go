package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zonenet/splashgate/internal/state"
	"github.com/zonenet/splashgate/internal/testutil"
	"github.com/zonenet/splashgate/pkg/models"
)

func newRunRepo(t *testing.T) *state.SQLiteRunRepository {
	t.Helper()
	repo, err := state.NewRunRepository(context.Background(), testutil.NewStateDB(t))
	if err != nil {
		t.Fatalf("NewRunRepository: %v", err)
	}
	return repo
}

func TestRunLifecycle(t *testing.T) {
	repo := newRunRepo(t)
	ctx := context.Background()

	rec := models.RunRecord{
		ID:        uuid.New().String(),
		Kind:      models.RunInstall,
		RouterID:  "ZN-0A1B2C3D4E5F",
		StartedAt: time.Now().UTC(),
	}
	if err := repo.Start(ctx, rec); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := repo.Finish(ctx, rec.ID, models.RunSucceeded, ""); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	history, err := repo.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	got := history[0]
	if got.ID != rec.ID {
		t.Errorf("ID = %q, want %q", got.ID, rec.ID)
	}
	if got.Outcome != models.RunSucceeded {
		t.Errorf("Outcome = %q, want succeeded", got.Outcome)
	}
	if got.FinishedAt.IsZero() {
		t.Error("FinishedAt zero after Finish")
	}
}

func TestRunFailureRecorded(t *testing.T) {
	repo := newRunRepo(t)
	ctx := context.Background()

	rec := models.RunRecord{
		ID:        uuid.New().String(),
		Kind:      models.RunUninstall,
		StartedAt: time.Now().UTC(),
	}
	if err := repo.Start(ctx, rec); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := repo.Finish(ctx, rec.ID, models.RunFailed, "wireless commit failed"); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	history, err := repo.History(ctx, 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if history[0].Failure != "wireless commit failed" {
		t.Errorf("Failure = %q, want recorded message", history[0].Failure)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	repo := newRunRepo(t)
	err := repo.Finish(context.Background(), "no-such-run", models.RunSucceeded, "")
	if !errors.Is(err, state.ErrNotFound) {
		t.Errorf("Finish() unknown id = %v, want ErrNotFound", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := newRunRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	older := models.RunRecord{ID: uuid.New().String(), Kind: models.RunInstall, StartedAt: base}
	newer := models.RunRecord{ID: uuid.New().String(), Kind: models.RunInstall, StartedAt: base.Add(time.Hour)}
	for _, rec := range []models.RunRecord{older, newer} {
		if err := repo.Start(ctx, rec); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}

	history, err := repo.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].ID != newer.ID {
		t.Errorf("history[0] = %q, want newest run %q", history[0].ID, newer.ID)
	}
}
