package enrichment

import "context"

// MemoryQueue is an in-process Queue over a buffered channel. Jobs do not
// survive a restart.
type MemoryQueue struct {
	jobs chan *Job
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{jobs: make(chan *Job, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job *Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Ack(context.Context, *Job) error { return nil }

func (q *MemoryQueue) Recover(context.Context) (int, error) { return 0, nil }
