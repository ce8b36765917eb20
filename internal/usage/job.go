package usage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zonenet/splashgate/internal/state"
	"github.com/zonenet/splashgate/pkg/models"
)

// maxBatch bounds how many spooled records one upload attempt carries.
const maxBatch = 500

// Pusher delivers a batch of usage records to the backend.
type Pusher interface {
	PushUsage(ctx context.Context, records []models.UsageRecord) error
}

// Job is one run of the usage-metrics cron task: snapshot the client
// table, spool it, then try to drain the spool. Collection and upload
// failures are soft; the spool carries anything undelivered into the
// next run.
type Job struct {
	collector *Collector
	spool     state.UsageSpool
	pusher    Pusher
	log       *zap.Logger
}

// NewJob wires a usage job from its parts.
func NewJob(log *zap.Logger, collector *Collector, spool state.UsageSpool, pusher Pusher) *Job {
	return &Job{collector: collector, spool: spool, pusher: pusher, log: log}
}

// Run executes one collection/upload cycle. Only a spool read failure is
// a hard error; everything else degrades to a warning so the next
// scheduled run can pick up where this one left off.
func (j *Job) Run(ctx context.Context) error {
	records, err := j.collector.Collect(ctx)
	if err != nil {
		j.log.Warn("client table collection failed, draining spool only", zap.Error(err))
	} else if len(records) > 0 {
		if err := j.spool.Enqueue(ctx, records); err != nil {
			j.log.Warn("usage spool enqueue failed, interval lost", zap.Error(err))
		}
	}

	pending, err := j.spool.Pending(ctx, maxBatch)
	if err != nil {
		return fmt.Errorf("read usage spool: %w", err)
	}
	if len(pending) == 0 {
		j.log.Debug("usage spool empty, nothing to upload")
		return nil
	}

	batch := make([]models.UsageRecord, len(pending))
	ids := make([]int64, len(pending))
	for i, rec := range pending {
		batch[i] = rec.UsageRecord
		ids[i] = rec.ID
	}

	if err := j.pusher.PushUsage(ctx, batch); err != nil {
		j.log.Warn("usage upload failed, records stay spooled",
			zap.Int("records", len(batch)), zap.Error(err))
		return nil
	}
	if err := j.spool.Delete(ctx, ids); err != nil {
		j.log.Warn("acknowledged records not cleared, duplicates possible", zap.Error(err))
		return nil
	}
	j.log.Info("usage batch uploaded", zap.Int("records", len(batch)))
	return nil
}
