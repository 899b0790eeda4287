package repository

import "context"

// QueueRepository defines the interface for a FIFO queue of run IDs waiting to be executed.
type QueueRepository interface {
	// Push adds a run ID to the end of the queue.
	Push(ctx context.Context, runID string) error
	// Pop removes and returns a run ID from the front of the queue.
	// It returns entity.ErrNotFound when the queue is empty.
	Pop(ctx context.Context) (string, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
