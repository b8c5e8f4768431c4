package enrichment

import (
	"context"

	"github.com/dmitrijs2005/opacity/internal/logging"
	"github.com/dmitrijs2005/opacity/internal/server/services"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var _ services.Enricher = (*Trigger)(nil)

// Trigger schedules enrichment jobs. It never blocks on the job and never
// reports a failure to the caller.
type Trigger struct {
	queue   Queue
	labeler Labeler
	logger  logging.Logger
}

// NewTrigger returns a Trigger. A nil labeler disables scheduling.
func NewTrigger(queue Queue, labeler Labeler, logger logging.Logger) *Trigger {
	return &Trigger{queue: queue, labeler: labeler, logger: logger.With("module", "enrichment")}
}

func (t *Trigger) Trigger(ctx context.Context, names []string) {
	names = lo.Uniq(lo.Compact(names))
	if len(names) == 0 {
		return
	}
	if t.labeler == nil {
		t.logger.Debug(ctx, "no labeler configured, skipping enrichment", "names", len(names))
		return
	}

	job := &Job{ID: uuid.NewString(), Names: names}
	if err := t.queue.Enqueue(ctx, job); err != nil {
		t.logger.Warn(ctx, "enqueue enrichment job failed", "job_id", job.ID, "error", err)
		return
	}
	t.logger.Debug(ctx, "enrichment job scheduled", "job_id", job.ID, "names", names)
}
