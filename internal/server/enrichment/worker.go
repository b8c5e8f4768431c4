package enrichment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/dbx"
	"github.com/dmitrijs2005/opacity/internal/logging"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
	"github.com/sethvargo/go-retry"
)

const (
	stepRetries     = 3
	stepBackoffBase = 500 * time.Millisecond
	jobTimeout      = 2 * time.Minute
)

// Worker drains a Queue. Each job runs two steps, each retried with
// exponential backoff; a job whose step gives up is logged and dropped.
type Worker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	queue       Queue
	labeler     Labeler
	logger      logging.Logger
	backoff     func() retry.Backoff
	idle        time.Duration
}

func NewWorker(db *sql.DB, m repomanager.RepositoryManager, queue Queue, labeler Labeler, logger logging.Logger) *Worker {
	return &Worker{
		db:          db,
		repomanager: m,
		queue:       queue,
		labeler:     labeler,
		logger:      logger.With("module", "enrichment"),
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(stepRetries, retry.NewExponential(stepBackoffBase))
		},
		idle: time.Second,
	}
}

// Run requeues jobs a previous worker left in flight and then processes
// jobs until ctx is cancelled. A job already started is finished under its
// own timeout.
func (w *Worker) Run(ctx context.Context) error {
	if n, err := w.queue.Recover(ctx); err != nil {
		w.logger.Warn(ctx, "recover in-flight jobs failed", "error", err)
	} else if n > 0 {
		w.logger.Info(ctx, "requeued in-flight jobs", "count", n)
	}

	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error(ctx, "dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.idle):
			}
			continue
		}

		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobTimeout)
		if err := w.Process(jobCtx, job); err != nil {
			w.logger.Error(jobCtx, "enrichment job dropped", "job_id", job.ID, "error", err)
		}
		if err := w.queue.Ack(jobCtx, job); err != nil {
			w.logger.Warn(jobCtx, "ack failed", "job_id", job.ID, "error", err)
		}
		cancel()
	}
}

// Process runs both steps of one job.
func (w *Worker) Process(ctx context.Context, job *Job) error {
	log := w.logger.With("job_id", job.ID)
	log.Info(ctx, "enrichment job started", "labeler", w.labeler.Name(), "names", len(job.Names))

	if job.Labels == nil {
		err := w.step(ctx, log, "labels", job, func(ctx context.Context) error {
			labels, err := w.labeler.Labels(ctx, job.Names)
			if err != nil {
				return err
			}
			job.Labels = labels
			return nil
		})
		if err != nil {
			return fmt.Errorf("labels: %w", err)
		}
	}

	err := w.step(ctx, log, "store", job, func(ctx context.Context) error {
		return dbx.WithTx(ctx, w.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := w.repomanager.Dimensions(tx)
			for name, emoji := range job.Labels {
				if err := repo.SetEmoji(ctx, name, emoji); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	log.Info(ctx, "enrichment job done", "labelled", len(job.Labels), "attempts", job.Attempts)
	return nil
}

func (w *Worker) step(ctx context.Context, log logging.Logger, name string, job *Job, fn func(context.Context) error) error {
	return retry.Do(ctx, w.backoff(), func(ctx context.Context) error {
		job.Attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if permanent(ctx, err) {
			return err
		}
		log.Warn(ctx, "enrichment step failed, retrying", "step", name, "attempt", job.Attempts, "error", err)
		return retry.RetryableError(err)
	})
}

// permanent reports errors a retry cannot fix: cancellation and values the
// store rejects.
func permanent(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(dbx.Classify(err), common.ErrorValidation)
}
