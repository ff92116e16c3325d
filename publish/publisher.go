package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curately/postops/metrics"
	"github.com/curately/postops/observe"
)

// PublishResult is the outcome of one full publish flow. It is always a
// value; inspect Success and ErrorMessage rather than expecting an error.
type PublishResult struct {
	Success      bool
	MediaID      string
	ContainerID  string
	ErrorMessage string
	ErrorCode    int
	Retryable    bool
	Latency      time.Duration
	Attempts     int
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// API is the wire client. Required.
	API ContainerAPI

	// MaxPolls bounds how many status checks a container gets before the
	// publish is declared failed. Default 30.
	MaxPolls int

	// PollInterval is the delay between status checks. Default 2s.
	PollInterval time.Duration

	// Metrics optionally records every publish attempt.
	Metrics *metrics.Collector

	// Logger. Default: observe.NopLogger().
	Logger observe.Logger
}

// Publisher drives the two-phase publish flow: create a container, wait for
// it to finish processing, then publish it. Safe for concurrent use.
type Publisher struct {
	api          ContainerAPI
	maxPolls     int
	pollInterval time.Duration
	metrics      *metrics.Collector
	logger       observe.Logger
}

// NewPublisher creates a publisher.
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	if config.API == nil {
		return nil, errors.New("publish: API is required")
	}
	if config.MaxPolls <= 0 {
		config.MaxPolls = 30
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Publisher{
		api:          config.API,
		maxPolls:     config.MaxPolls,
		pollInterval: config.PollInterval,
		metrics:      config.Metrics,
		logger:       config.Logger,
	}, nil
}

// Publish runs the full flow for one image and reports the outcome. The
// container is published only after its status reaches FINISHED; any other
// terminal status, or exhausting the poll budget, fails the publish.
func (p *Publisher) Publish(ctx context.Context, imageURL, caption, locationID string) PublishResult {
	start := time.Now()

	res := p.publish(ctx, imageURL, caption, locationID)
	res.Latency = time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordPublishAttempt(ctx, res.Success, res.Latency, res.ErrorMessage)
	}

	if res.Success {
		p.logger.Info(ctx, "media published",
			observe.Field{Key: "media_id", Value: res.MediaID},
			observe.Field{Key: "container_id", Value: res.ContainerID},
			observe.Field{Key: "latency", Value: res.Latency.String()},
		)
	} else {
		p.logger.Error(ctx, "publish failed",
			observe.Field{Key: "container_id", Value: res.ContainerID},
			observe.Field{Key: "error", Value: res.ErrorMessage},
			observe.Field{Key: "retryable", Value: res.Retryable},
		)
	}

	return res
}

func (p *Publisher) publish(ctx context.Context, imageURL, caption, locationID string) PublishResult {
	containerID, err := p.api.CreateContainer(ctx, imageURL, caption, locationID)
	if err != nil {
		return p.failure("", err)
	}

	status, polls, err := p.WaitForContainer(ctx, containerID)
	if err != nil {
		res := p.failure(containerID, err)
		res.Attempts = polls
		return res
	}
	if status != StatusFinished {
		res := p.failure(containerID, fmt.Errorf("publish: container entered status %s", status))
		res.Attempts = polls
		return res
	}

	mediaID, err := p.api.PublishContainer(ctx, containerID)
	if err != nil {
		res := p.failure(containerID, err)
		res.Attempts = polls
		return res
	}

	return PublishResult{
		Success:     true,
		MediaID:     mediaID,
		ContainerID: containerID,
		Attempts:    polls,
	}
}

// WaitForContainer polls the container status until it reaches a terminal
// state or the poll budget runs out. It returns the last observed status and
// the number of polls made. A container still IN_PROGRESS after the budget is
// an error.
func (p *Publisher) WaitForContainer(ctx context.Context, containerID string) (Status, int, error) {
	var status Status

	for poll := 1; poll <= p.maxPolls; poll++ {
		var err error
		status, err = p.api.ContainerStatus(ctx, containerID)
		if err != nil {
			return status, poll, err
		}

		if status.Terminal() {
			return status, poll, nil
		}

		p.logger.Debug(ctx, "container still processing",
			observe.Field{Key: "container_id", Value: containerID},
			observe.Field{Key: "poll", Value: poll},
			observe.Field{Key: "status", Value: string(status)},
		)

		if poll < p.maxPolls {
			select {
			case <-time.After(p.pollInterval):
			case <-ctx.Done():
				return status, poll, ctx.Err()
			}
		}
	}

	return status, p.maxPolls, fmt.Errorf("publish: container %s not ready after %d polls", containerID, p.maxPolls)
}

// failure builds a failed result, classifying retryability from the error
// text and lifting provider error codes when present.
func (p *Publisher) failure(containerID string, err error) PublishResult {
	res := PublishResult{
		ContainerID:  containerID,
		ErrorMessage: err.Error(),
		Retryable:    RetryableError(err.Error()),
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		res.ErrorCode = apiErr.Code
	}
	return res
}
