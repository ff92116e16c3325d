package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/curately/postops/observe"
)

// minSamplesForRateAlert is how many outcomes the window needs before a low
// success rate is worth warning about.
const minSamplesForRateAlert = 10

// Config configures a Collector.
type Config struct {
	// WindowSize bounds the sliding outcome and latency windows.
	// Default: 1000
	WindowSize int

	// QuotaLimit is the provider's hourly call budget. Default: 200
	QuotaLimit int

	// QuotaWindow is the quota period. Default: 1 hour
	QuotaWindow time.Duration

	// LatencyTarget triggers a warning for slower calls. Default: 5s
	LatencyTarget time.Duration

	// MinSuccessRate (percent) triggers a warning when the rolling rate
	// drops below it. Default: 80
	MinSuccessRate float64

	// FailureThreshold is the consecutive-failure count at which health
	// flips. Default: 3
	FailureThreshold int

	// Logger. Default: observe.NopLogger().
	Logger observe.Logger

	// Meter optionally emits OTel instruments alongside the in-memory
	// windows.
	Meter metric.Meter
}

// Snapshot is a point-in-time view of the collector.
type Snapshot struct {
	TotalAttempts  int64
	Successes      int64
	Failures       int64
	SuccessRate    float64
	MinLatency     time.Duration
	AvgLatency     time.Duration
	MaxLatency     time.Duration
	QuotaRemaining int
	QuotaResetAt   time.Time
}

// Health is the derived health view. It is computed, never stored.
type Health struct {
	Healthy             bool
	APIAvailable        bool
	ConsecutiveFailures int
	LastSuccess         time.Time
	LastFailure         time.Time
}

// Collector accumulates publish metrics. Safe for concurrent use.
type Collector struct {
	cfg Config

	mu                  sync.Mutex
	total               int64
	successes           int64
	failures            int64
	consecutiveFailures int
	lastSuccess         time.Time
	lastFailure         time.Time
	apiAvailable        bool
	outcomes            []bool
	latencies           []time.Duration
	windowStart         time.Time
	callsInWindow       int
	now                 func() time.Time

	attempts    metric.Int64Counter
	latencyHist metric.Float64Histogram
}

// New creates a collector.
func New(cfg Config) (*Collector, error) {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 1000
	}
	if cfg.QuotaLimit <= 0 {
		cfg.QuotaLimit = 200
	}
	if cfg.QuotaWindow <= 0 {
		cfg.QuotaWindow = time.Hour
	}
	if cfg.LatencyTarget <= 0 {
		cfg.LatencyTarget = 5 * time.Second
	}
	if cfg.MinSuccessRate <= 0 {
		cfg.MinSuccessRate = 80
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	c := &Collector{
		cfg:          cfg,
		apiAvailable: true,
		now:          time.Now,
	}

	if cfg.Meter != nil {
		var err error
		c.attempts, err = cfg.Meter.Int64Counter("publish.attempts",
			metric.WithDescription("Publish attempts by outcome"))
		if err != nil {
			return nil, fmt.Errorf("metrics: create counter: %w", err)
		}
		c.latencyHist, err = cfg.Meter.Float64Histogram("publish.duration",
			metric.WithDescription("Publish latency"),
			metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("metrics: create histogram: %w", err)
		}
	}

	return c, nil
}

// RecordPublishAttempt records one publish outcome.
func (c *Collector) RecordPublishAttempt(ctx context.Context, success bool, latency time.Duration, errMsg string) {
	c.mu.Lock()

	now := c.now()

	c.total++
	if success {
		c.successes++
		c.consecutiveFailures = 0
		c.lastSuccess = now
	} else {
		c.failures++
		c.consecutiveFailures++
		c.lastFailure = now
	}

	c.outcomes = appendBounded(c.outcomes, success, c.cfg.WindowSize)
	c.latencies = appendBounded(c.latencies, latency, c.cfg.WindowSize)

	if c.windowStart.IsZero() || now.Sub(c.windowStart) >= c.cfg.QuotaWindow {
		c.windowStart = now
		c.callsInWindow = 0
	}
	c.callsInWindow++

	rate := c.successRateLocked()
	samples := len(c.outcomes)
	c.mu.Unlock()

	if latency > c.cfg.LatencyTarget {
		c.cfg.Logger.Warn(ctx, "publish latency above target",
			observe.Field{Key: "latency", Value: latency.String()},
			observe.Field{Key: "target", Value: c.cfg.LatencyTarget.String()},
		)
	}
	if samples >= minSamplesForRateAlert && rate < c.cfg.MinSuccessRate {
		c.cfg.Logger.Warn(ctx, "publish success rate below threshold",
			observe.Field{Key: "success_rate", Value: rate},
			observe.Field{Key: "threshold", Value: c.cfg.MinSuccessRate},
			observe.Field{Key: "last_error", Value: errMsg},
		)
	}

	if c.attempts != nil {
		c.attempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
		c.latencyHist.Record(ctx, latency.Seconds())
	}
}

// SetAPIAvailable flips the upstream-availability flag used by the health
// derivation.
func (c *Collector) SetAPIAvailable(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiAvailable = ok
}

// Snapshot computes the current metrics view.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		TotalAttempts: c.total,
		Successes:     c.successes,
		Failures:      c.failures,
		SuccessRate:   c.successRateLocked(),
	}

	if len(c.latencies) > 0 {
		min, max := c.latencies[0], c.latencies[0]
		var sum time.Duration
		for _, l := range c.latencies {
			if l < min {
				min = l
			}
			if l > max {
				max = l
			}
			sum += l
		}
		s.MinLatency = min
		s.MaxLatency = max
		s.AvgLatency = sum / time.Duration(len(c.latencies))
	}

	s.QuotaRemaining = c.cfg.QuotaLimit - c.callsInWindow
	if s.QuotaRemaining < 0 {
		s.QuotaRemaining = 0
	}
	if !c.windowStart.IsZero() {
		s.QuotaResetAt = c.windowStart.Add(c.cfg.QuotaWindow)
	}

	return s
}

// HealthStatus derives the operator-facing health view.
func (c *Collector) HealthStatus() Health {
	c.mu.Lock()
	defer c.mu.Unlock()

	rate := c.successRateLocked()
	return Health{
		Healthy: c.consecutiveFailures < c.cfg.FailureThreshold &&
			c.apiAvailable &&
			rate >= 90,
		APIAvailable:        c.apiAvailable,
		ConsecutiveFailures: c.consecutiveFailures,
		LastSuccess:         c.lastSuccess,
		LastFailure:         c.lastFailure,
	}
}

// successRateLocked returns the rolling success rate as a percentage. An
// empty window counts as fully healthy.
func (c *Collector) successRateLocked() float64 {
	if len(c.outcomes) == 0 {
		return 100
	}
	ok := 0
	for _, s := range c.outcomes {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(c.outcomes)) * 100
}

// appendBounded appends v, evicting the oldest entry once the window is
// full.
func appendBounded[T any](window []T, v T, size int) []T {
	window = append(window, v)
	if len(window) > size {
		window = window[1:]
	}
	return window
}
