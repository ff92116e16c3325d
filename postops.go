// Package postops wires the resilient publishing stack together: a retried
// HTTP client for the social network's API, a durable operation queue backed
// by Redis, rate-limited failure alerting, publish metrics, and the two-phase
// publish state machine on top.
//
// Most programs only need New with a config.Config, then System.Publisher and
// System.Pipeline. Every component is also usable on its own; this package is
// just the default assembly.
package postops

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	"github.com/curately/postops/alert"
	"github.com/curately/postops/config"
	"github.com/curately/postops/httpx"
	"github.com/curately/postops/metrics"
	"github.com/curately/postops/observe"
	"github.com/curately/postops/opqueue"
	"github.com/curately/postops/pipeline"
	"github.com/curately/postops/publish"
	"github.com/curately/postops/resilience"
)

// System is the assembled publishing stack.
type System struct {
	Logger    observe.Logger
	Executor  *resilience.Executor
	Queue     *opqueue.Queue
	Replayer  *opqueue.Replayer
	Notifier  *alert.Notifier
	Pipeline  *pipeline.Pipeline
	Metrics   *metrics.Collector
	Publisher *publish.Publisher

	redis *redis.Client
}

// Option customizes the assembly.
type Option func(*options)

type options struct {
	logger observe.Logger
	meter  metric.Meter
	sender alert.Sender
}

// WithLogger replaces the default structured logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMeter enables OpenTelemetry instruments on the metrics collector.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// WithSender replaces the Discord alert sender, e.g. for tests.
func WithSender(s alert.Sender) Option {
	return func(o *options) { o.sender = s }
}

// New assembles a System from configuration. Components degrade gracefully:
// without a Redis address the queue and cooldowns run in memory, and without
// a webhook URL or sender no alerts are sent.
func New(cfg config.Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = observe.NewLogger(cfg.LogLevel.String())
	}

	exec := resilience.NewExecutor(resilience.ExecutorConfig{
		Policy: cfg.Retry,
		Logger: logger,
	})

	sys := &System{Logger: logger, Executor: exec}

	var store opqueue.Store = opqueue.NewMemoryStore()
	var cooldowns alert.CooldownStore = alert.NewMemoryCooldown()
	var locker *redislock.Client

	if cfg.RedisAddress != "" {
		sys.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = opqueue.NewRedisStore(sys.redis, opqueue.DefaultHashKey)
		cooldowns = alert.NewRedisCooldown(sys.redis)
		locker = redislock.New(sys.redis)
	}

	queue, err := opqueue.NewQueue(opqueue.QueueConfig{Store: store, Logger: logger})
	if err != nil {
		return nil, err
	}
	sys.Queue = queue

	sender := o.sender
	if sender == nil && cfg.DiscordWebhookURL != "" {
		sender, err = alert.NewDiscordSender(cfg.DiscordWebhookURL)
		if err != nil {
			return nil, err
		}
	}
	if sender != nil {
		notifier, err := alert.NewNotifier(alert.NotifierConfig{
			Sender:    sender,
			Cooldowns: cooldowns,
			Cooldown:  cfg.AlertCooldown,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		sys.Notifier = notifier
	}

	pipe, err := pipeline.New(pipeline.Config{
		Executor: exec,
		Queue:    sys.Queue,
		Notifier: sys.Notifier,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	sys.Pipeline = pipe

	collector, err := metrics.New(metrics.Config{Logger: logger, Meter: o.meter})
	if err != nil {
		return nil, err
	}
	sys.Metrics = collector

	httpClient, err := httpx.New(httpx.Config{
		APIName:  "instagram",
		BaseURL:  cfg.GraphAPIBaseURL,
		Executor: exec,
		Breaker:  resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	wire, err := publish.NewClient(publish.ClientConfig{
		HTTP:        httpClient,
		AccountID:   cfg.BusinessAccountID,
		AccessToken: cfg.AccessToken,
	})
	if err != nil {
		return nil, err
	}

	publisher, err := publish.NewPublisher(publish.PublisherConfig{
		API:     wire,
		Metrics: collector,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	sys.Publisher = publisher

	replayer, err := opqueue.NewReplayer(opqueue.ReplayerConfig{
		Queue:  sys.Queue,
		Replay: sys.replayOperation,
		Locker: locker,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	sys.Replayer = replayer

	return sys, nil
}

// replayOperation re-runs a queued publish from its stored payload.
func (s *System) replayOperation(ctx context.Context, op opqueue.Operation) error {
	imageURL, _ := op.Payload["image_url"].(string)
	caption, _ := op.Payload["caption"].(string)
	locationID, _ := op.Payload["location_id"].(string)
	if imageURL == "" {
		return errors.New("postops: queued operation has no image_url")
	}

	res := s.Publisher.Publish(ctx, imageURL, caption, locationID)
	if !res.Success {
		return fmt.Errorf("postops: replay publish: %s", res.ErrorMessage)
	}
	return nil
}

// Close releases held connections.
func (s *System) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
