package enrichment

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by a bounded queue that cannot take another job.
var ErrQueueFull = errors.New("enrichment queue is full")

// Job asks for labels of a set of dimension names. Labels is filled by the
// first step, so a retried second step does not call the labeler again.
type Job struct {
	ID       string            `json:"id"`
	Names    []string          `json:"names"`
	Labels   map[string]string `json:"labels,omitempty"`
	Attempts int               `json:"attempts"`

	// raw is the encoded form the job was dequeued as.
	raw string
}

// Queue is the durable hand-off between Trigger and Worker.
type Queue interface {
	Enqueue(ctx context.Context, job *Job) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (*Job, error)
	// Ack removes a dequeued job for good.
	Ack(ctx context.Context, job *Job) error
	// Recover puts jobs left in flight by a previous worker back in line.
	Recover(ctx context.Context) (int, error)
}
