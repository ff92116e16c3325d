package opqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"golang.org/x/sync/errgroup"

	"github.com/curately/postops/observe"
)

// ReplayFunc re-executes one queued operation. A nil return removes the
// operation from the queue.
type ReplayFunc func(ctx context.Context, op Operation) error

// ReplayerConfig configures a Replayer.
type ReplayerConfig struct {
	// Queue to drain. Required.
	Queue *Queue

	// Replay re-executes one operation. Required.
	Replay ReplayFunc

	// Locker, when set, guards each operation with a distributed lock so
	// concurrent drainers skip ids another drainer is already replaying.
	Locker *redislock.Client

	// LockTTL bounds how long a replay may hold its lock.
	// Default: 30 seconds
	LockTTL time.Duration

	// Concurrency bounds parallel replays. Default: 4
	Concurrency int

	// MaxReplays drops an operation after this many failed replays.
	// Default: 5
	MaxReplays int

	// Logger. Default: observe.NopLogger().
	Logger observe.Logger
}

// ReplayStats summarizes one drain pass.
type ReplayStats struct {
	Replayed int
	Failed   int
	Dropped  int
	Skipped  int
}

// Replayer drains the operation queue.
type Replayer struct {
	queue       *Queue
	replay      ReplayFunc
	locker      *redislock.Client
	lockTTL     time.Duration
	concurrency int
	maxReplays  int
	logger      observe.Logger
}

// NewReplayer creates a queue drainer.
func NewReplayer(config ReplayerConfig) (*Replayer, error) {
	if config.Queue == nil {
		return nil, errors.New("opqueue: Queue is required")
	}
	if config.Replay == nil {
		return nil, errors.New("opqueue: Replay is required")
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Second
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.MaxReplays <= 0 {
		config.MaxReplays = 5
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Replayer{
		queue:       config.Queue,
		replay:      config.Replay,
		locker:      config.Locker,
		lockTTL:     config.LockTTL,
		concurrency: config.Concurrency,
		maxReplays:  config.MaxReplays,
		logger:      config.Logger,
	}, nil
}

// Drain replays every pending operation once. Operations that keep failing
// past MaxReplays are dropped from the queue. Drain stops early only when
// ctx is cancelled.
func (r *Replayer) Drain(ctx context.Context) (ReplayStats, error) {
	pending, err := r.queue.Pending(ctx)
	if err != nil {
		return ReplayStats{}, err
	}

	var stats ReplayStats
	results := make([]replayOutcome, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, op := range pending {
		i, op := i, op
		g.Go(func() error {
			results[i] = r.replayOne(gctx, op)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, out := range results {
		switch out {
		case replayedOK:
			stats.Replayed++
		case replayFailed:
			stats.Failed++
		case replayDropped:
			stats.Dropped++
		case replaySkipped:
			stats.Skipped++
		}
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

type replayOutcome int

const (
	replayedOK replayOutcome = iota
	replayFailed
	replayDropped
	replaySkipped
)

func (r *Replayer) replayOne(ctx context.Context, op Operation) replayOutcome {
	if r.locker != nil {
		lock, err := r.locker.Obtain(ctx, "replay:"+op.ID, r.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return replaySkipped
		}
		if err != nil {
			r.logger.Warn(ctx, "replay lock failed",
				observe.Field{Key: "operation_id", Value: op.ID},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return replaySkipped
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	if err := r.replay(ctx, op); err != nil {
		return r.recordFailure(ctx, op, err)
	}

	if err := r.queue.Remove(ctx, op.ID); err != nil {
		r.logger.Warn(ctx, "failed to remove replayed operation",
			observe.Field{Key: "operation_id", Value: op.ID},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	r.logger.Info(ctx, "operation replayed",
		observe.Field{Key: "operation_id", Value: op.ID},
		observe.Field{Key: "context", Value: op.Context},
	)
	return replayedOK
}

func (r *Replayer) recordFailure(ctx context.Context, op Operation, replayErr error) replayOutcome {
	updated, err := r.queue.IncrementRetry(ctx, op.ID, replayErr.Error())
	if err != nil || updated == nil {
		return replayFailed
	}

	if updated.RetryCount >= r.maxReplays {
		if err := r.queue.Remove(ctx, op.ID); err == nil {
			r.logger.Error(ctx, "operation dropped after repeated replay failures",
				observe.Field{Key: "operation_id", Value: op.ID},
				observe.Field{Key: "context", Value: op.Context},
				observe.Field{Key: "retry_count", Value: updated.RetryCount},
				observe.Field{Key: "error", Value: fmt.Sprintf("%v", replayErr)},
			)
			return replayDropped
		}
	}
	return replayFailed
}
