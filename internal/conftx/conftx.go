// Package conftx applies ordered batches of uci mutations as commit/rollback
// units. Each provisioning phase (gateway parameters, firewall rules, admin
// whitelist, wireless) builds one Batch; the transaction backs up affected
// artifacts, applies mutations in order, commits once, and restores the
// backed-up state when the commit fails.
package conftx

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/backup"
	"github.com/zonenet/splashgate/internal/uci"
)

// Op is the mutation type against the config store.
type Op string

const (
	OpSet     Op = "set"
	OpDelete  Op = "delete"
	OpAddList Op = "add_list"
)

// State tracks a phase through the transaction lifecycle. Only Idle,
// Committed and RolledBack are externally consistent states.
type State string

const (
	StateIdle        State = "idle"
	StateBackedUp    State = "backed-up"
	StateMutating    State = "mutating"
	StateCommitted   State = "committed"
	StateRollingBack State = "rolling-back"
	StateRolledBack  State = "rolled-back"
)

// Mutation is one config-store change within a phase. MustSucceed marks
// identity-establishing mutations whose failure aborts the phase; everything
// else is best-effort and logged on failure.
type Mutation struct {
	Op          Op
	Key         string
	Value       string
	MustSucceed bool
}

// Batch is an ordered set of mutations applied and committed as one unit.
// Order is load-bearing: whitelist entries go in before the access-control
// lists that would lock the operator out are finalized.
type Batch struct {
	Phase     string
	Mutations []Mutation
}

// Configs returns the distinct uci configs the batch touches, in first-use
// order.
func (b Batch) Configs() []string {
	seen := make(map[string]bool)
	var configs []string
	for _, m := range b.Mutations {
		c := uci.ConfigOf(m.Key)
		if !seen[c] {
			seen[c] = true
			configs = append(configs, c)
		}
	}
	return configs
}

// Result reports what a phase did.
type Result struct {
	Phase          string
	State          State
	Applied        int
	Skipped        []string
	BackupManifest string
	RolledBack     bool
}

// Transaction runs batches against a Store.
type Transaction struct {
	store     uci.Store
	backupDir string
	log       *zap.Logger
}

// New creates a Transaction. backupDir receives a JSON manifest of every
// phase backup; backups are never deleted by the transaction itself.
func New(log *zap.Logger, store uci.Store, backupDir string) *Transaction {
	return &Transaction{store: store, backupDir: backupDir, log: log}
}

// Apply runs one phase. On success the batch is committed and the result
// state is Committed. A must-succeed mutation failure or a commit failure
// reverts staged changes, restores backed-up artifacts when a backup exists,
// and returns an error alongside the RolledBack state.
func (t *Transaction) Apply(ctx context.Context, batch Batch) (Result, error) {
	res := Result{Phase: batch.Phase, State: StateIdle}
	configs := batch.Configs()
	if len(configs) == 0 {
		res.State = StateCommitted
		return res, nil
	}

	// Snapshot affected artifacts before the first mutation. Records for
	// absent artifacts let rollback remove files a partial commit created.
	paths := make([]string, 0, len(configs))
	for _, c := range configs {
		paths = append(paths, t.store.ArtifactPath(c))
	}
	records, err := backup.Snapshot(paths...)
	if err != nil {
		return res, fmt.Errorf("phase %s: backup: %w", batch.Phase, err)
	}
	hasBackup := false
	for _, rec := range records {
		if rec.Existed {
			hasBackup = true
			break
		}
	}
	if hasBackup {
		manifest, err := backup.WriteManifest(t.backupDir, records)
		if err != nil {
			return res, fmt.Errorf("phase %s: backup manifest: %w", batch.Phase, err)
		}
		res.BackupManifest = manifest
	}
	res.State = StateBackedUp

	res.State = StateMutating
	for _, m := range batch.Mutations {
		if err := t.mutate(ctx, m); err != nil {
			if m.MustSucceed {
				t.log.Error("critical mutation failed, rolling back phase",
					zap.String("phase", batch.Phase),
					zap.String("key", m.Key),
					zap.String("backup", res.BackupManifest),
					zap.Error(err))
				t.rollback(ctx, &res, configs, records, hasBackup, false)
				return res, fmt.Errorf("phase %s: %s %s: %w", batch.Phase, m.Op, m.Key, err)
			}
			t.log.Warn("best-effort mutation failed, continuing",
				zap.String("phase", batch.Phase),
				zap.String("key", m.Key),
				zap.Error(err))
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s %s: %v", m.Op, m.Key, err))
			continue
		}
		res.Applied++
	}

	for _, c := range configs {
		if err := t.store.Commit(ctx, c); err != nil {
			t.log.Error("commit failed, rolling back phase",
				zap.String("phase", batch.Phase),
				zap.String("config", c),
				zap.String("backup", res.BackupManifest),
				zap.Error(err))
			t.rollback(ctx, &res, configs, records, hasBackup, true)
			return res, fmt.Errorf("phase %s: commit %s: %w", batch.Phase, c, err)
		}
	}

	res.State = StateCommitted
	t.log.Info("phase committed",
		zap.String("phase", batch.Phase),
		zap.Int("applied", res.Applied),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (t *Transaction) mutate(ctx context.Context, m Mutation) error {
	switch m.Op {
	case OpSet:
		return t.store.Set(ctx, m.Key, m.Value)
	case OpDelete:
		return t.store.Delete(ctx, m.Key)
	case OpAddList:
		return t.store.AddList(ctx, m.Key, m.Value)
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
}

// rollback reverts staged changes and, after a failed commit with a backup
// on hand, restores the snapshot files. A first-ever run has no backup;
// the failure is then only reported, there is nothing to restore.
func (t *Transaction) rollback(ctx context.Context, res *Result, configs []string, records []backup.Record, hasBackup, committed bool) {
	res.State = StateRollingBack
	for _, c := range configs {
		if err := t.store.Revert(ctx, c); err != nil {
			t.log.Warn("revert failed during rollback",
				zap.String("config", c), zap.Error(err))
		}
	}
	if committed && hasBackup {
		if err := backup.Restore(records); err != nil {
			t.log.Error("restoring backup failed, manual recovery needed",
				zap.String("manifest", res.BackupManifest), zap.Error(err))
		} else {
			res.RolledBack = true
		}
	}
	res.State = StateRolledBack
}
