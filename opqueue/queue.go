package opqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curately/postops/observe"
)

// Queue exposes the operation-queue API over a Store. Queue owns every
// record it writes; no other component mutates queued operations directly.
type Queue struct {
	store  Store
	logger observe.Logger
	now    func() time.Time
}

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Store holds the serialized records. Required.
	Store Store

	// Logger. Default: observe.NopLogger().
	Logger observe.Logger
}

// NewQueue creates a queue over the given store.
func NewQueue(config QueueConfig) (*Queue, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("opqueue: Store is required")
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Queue{store: config.Store, logger: config.Logger, now: time.Now}, nil
}

// Enqueue persists op and returns its id. A missing id is assigned a new
// uuid; a zero CreatedAt is stamped with the current time.
func (q *Queue) Enqueue(ctx context.Context, op Operation) (string, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = q.now().UTC()
	}

	data, err := op.marshal()
	if err != nil {
		return "", fmt.Errorf("opqueue: marshal operation: %w", err)
	}
	if err := q.store.Set(ctx, op.ID, data); err != nil {
		return "", fmt.Errorf("opqueue: store operation: %w", err)
	}

	q.logger.Info(ctx, "operation queued for retry",
		observe.Field{Key: "operation_id", Value: op.ID},
		observe.Field{Key: "context", Value: op.Context},
	)
	return op.ID, nil
}

// Pending returns all queued operations.
func (q *Queue) Pending(ctx context.Context) ([]Operation, error) {
	records, err := q.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("opqueue: load pending: %w", err)
	}

	ops := make([]Operation, 0, len(records))
	for id, data := range records {
		op, err := unmarshalOperation(data)
		if err != nil {
			// A corrupt record must not block the rest of the queue.
			q.logger.Warn(ctx, "skipping corrupt queued operation",
				observe.Field{Key: "operation_id", Value: id},
				observe.Field{Key: "error", Value: err.Error()},
			)
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Remove deletes an operation, typically after a successful replay.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if err := q.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("opqueue: remove %s: %w", id, err)
	}
	return nil
}

// Update applies patch to the stored operation and returns the updated
// record, or nil if the id is unknown. Read-modify-write, not transactional.
func (q *Queue) Update(ctx context.Context, id string, patch func(*Operation)) (*Operation, error) {
	data, err := q.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("opqueue: load %s: %w", id, err)
	}

	op, err := unmarshalOperation(data)
	if err != nil {
		return nil, fmt.Errorf("opqueue: decode %s: %w", id, err)
	}

	patch(&op)
	op.ID = id // the patch must not reassign identity

	updated, err := op.marshal()
	if err != nil {
		return nil, fmt.Errorf("opqueue: marshal %s: %w", id, err)
	}
	if err := q.store.Set(ctx, id, updated); err != nil {
		return nil, fmt.Errorf("opqueue: store %s: %w", id, err)
	}
	return &op, nil
}

// IncrementRetry bumps the retry count, stamps the attempt time, and records
// the replay error. Returns nil if the id is unknown.
func (q *Queue) IncrementRetry(ctx context.Context, id string, errMsg string) (*Operation, error) {
	now := q.now().UTC()
	return q.Update(ctx, id, func(op *Operation) {
		op.RetryCount++
		op.LastAttempt = &now
		op.LastError = errMsg
	})
}
