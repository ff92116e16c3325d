package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curately/postops/observe"
)

// DefaultCooldown is the minimum interval between alerts for one API.
const DefaultCooldown = 5 * time.Minute

// cooldownKey returns the durable key suppressing alerts for apiName.
func cooldownKey(apiName string) string {
	return "alert_cooldown:" + apiName
}

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	// Sender delivers the alert. Required.
	Sender Sender

	// Cooldowns tracks which APIs alerted recently. Required.
	Cooldowns CooldownStore

	// Cooldown overrides the per-API alert interval.
	// Default: DefaultCooldown.
	Cooldown time.Duration

	// Logger. Default: observe.NopLogger().
	Logger observe.Logger
}

// Notifier sends one operator alert per failing API per cooldown window.
type Notifier struct {
	sender    Sender
	cooldowns CooldownStore
	cooldown  time.Duration
	logger    observe.Logger
}

// NewNotifier creates a rate-limited alert notifier.
func NewNotifier(config NotifierConfig) (*Notifier, error) {
	if config.Sender == nil {
		return nil, errors.New("alert: Sender is required")
	}
	if config.Cooldowns == nil {
		return nil, errors.New("alert: Cooldowns is required")
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultCooldown
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Notifier{
		sender:    config.Sender,
		cooldowns: config.Cooldowns,
		cooldown:  config.Cooldown,
		logger:    config.Logger,
	}, nil
}

// SendAPIErrorAlert notifies operators that apiName is failing. It returns
// true only when an alert was actually delivered; a cooldown suppression or
// any internal failure returns false. It never propagates an error: alerting
// must not break the caller's pipeline.
func (n *Notifier) SendAPIErrorAlert(ctx context.Context, apiName, errText string, attempts int, queued bool) bool {
	key := cooldownKey(apiName)

	active, err := n.cooldowns.Active(ctx, key)
	if err != nil {
		n.logger.Warn(ctx, "alert cooldown check failed",
			observe.Field{Key: "api", Value: apiName},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return false
	}
	if active {
		n.logger.Debug(ctx, "alert suppressed by cooldown",
			observe.Field{Key: "api", Value: apiName},
		)
		return false
	}

	if err := n.sender.Send(ctx, formatAlert(apiName, errText, attempts, queued)); err != nil {
		n.logger.Warn(ctx, "alert send failed",
			observe.Field{Key: "api", Value: apiName},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return false
	}

	if err := n.cooldowns.Set(ctx, key, n.cooldown); err != nil {
		// The alert went out; a cooldown write failure only risks one
		// extra alert later.
		n.logger.Warn(ctx, "alert cooldown write failed",
			observe.Field{Key: "api", Value: apiName},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}

	n.logger.Info(ctx, "api error alert sent",
		observe.Field{Key: "api", Value: apiName},
		observe.Field{Key: "attempts", Value: attempts},
		observe.Field{Key: "queued", Value: queued},
	)
	return true
}

func formatAlert(apiName, errText string, attempts int, queued bool) string {
	status := "manual intervention required"
	if queued {
		status = "queued for retry"
	}
	return fmt.Sprintf("API failure: %s\nerror: %s\nattempts: %d\nstatus: %s",
		apiName, errText, attempts, status)
}
