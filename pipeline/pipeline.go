package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/curately/postops/alert"
	"github.com/curately/postops/observe"
	"github.com/curately/postops/opqueue"
	"github.com/curately/postops/resilience"
)

// Config configures a Pipeline.
type Config struct {
	// Executor drives retries. Required.
	Executor *resilience.Executor

	// Queue persists incomplete operations for later replay. Optional;
	// when nil, exhausted operations are not queued.
	Queue *opqueue.Queue

	// Notifier alerts operators on exhaustion. Optional.
	Notifier *alert.Notifier

	// Logger. Default: observe.NopLogger().
	Logger observe.Logger
}

// Pipeline composes the retry executor with durable queuing and alerting.
type Pipeline struct {
	exec     *resilience.Executor
	queue    *opqueue.Queue
	notifier *alert.Notifier
	logger   observe.Logger
}

// New creates an execution pipeline.
func New(config Config) (*Pipeline, error) {
	if config.Executor == nil {
		return nil, errors.New("pipeline: Executor is required")
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Pipeline{
		exec:     config.Executor,
		queue:    config.Queue,
		notifier: config.Notifier,
		logger:   config.Logger,
	}, nil
}

// Execute runs op through the retry executor. When the result is incomplete
// (retry budget exhausted on a transient failure), the operation is queued
// with the given payload and an operator alert goes out. The operation id is
// set on the result whenever queuing succeeds, independent of the alert
// outcome.
func (p *Pipeline) Execute(ctx context.Context, label string, op resilience.Operation, payload map[string]any) resilience.Result {
	result := p.exec.ExecuteWithRetry(ctx, label, op)
	if !result.Incomplete {
		return result
	}

	queued := false
	if p.queue != nil {
		id, err := p.queue.Enqueue(ctx, opqueue.Operation{
			Context: label,
			Payload: payload,
		})
		if err != nil {
			p.logger.Error(ctx, "failed to queue incomplete operation",
				observe.Field{Key: "context", Value: label},
				observe.Field{Key: "error", Value: err.Error()},
			)
		} else {
			result.OperationID = id
			queued = true
		}
	}

	if p.notifier != nil {
		p.notifier.SendAPIErrorAlert(ctx, apiNameFromLabel(label), result.LastError(), result.Attempts, queued)
	}

	return result
}

// apiNameFromLabel extracts the API name from a context label: the part
// before the first underscore, e.g. "instagram_publish" -> "instagram".
func apiNameFromLabel(label string) string {
	if i := strings.Index(label, "_"); i > 0 {
		return label[:i]
	}
	return label
}
