// Package alert notifies operators about watcher restarts, recoveries and
// resource pressure.
package alert

import (
	"context"
	"log/slog"
	"time"
)

type AlertType string

const (
	AlertTypeWorkerRestart AlertType = "WORKER_RESTART"
	AlertTypeUnhealthy     AlertType = "UNHEALTHY"
	AlertTypeRecovery      AlertType = "RECOVERY"
	AlertTypeDBPool        AlertType = "DB_POOL"
)

// Alert describes one event. Chain and Scope identify the watcher it is
// about and are empty for process-wide alerts.
type Alert struct {
	Type    AlertType
	Chain   string
	Scope   string
	Title   string
	Message string
	Fields  map[string]string
}

func (a Alert) subject() string {
	if a.Chain == "" && a.Scope == "" {
		return "watcher"
	}
	return a.Chain + "/" + a.Scope
}

type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

type Config struct {
	SlackWebhookURL string
	WebhookURL      string
	// Cooldown suppresses repeats of the same alert for one subject.
	Cooldown time.Duration
}

// New returns a Dispatcher over the configured channels, or a NoopAlerter
// when none are set.
func New(cfg Config, logger *slog.Logger) Alerter {
	var channels []Channel
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, Channel{Name: "slack", Alerter: NewSlackAlerter(cfg.SlackWebhookURL)})
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, Channel{Name: "webhook", Alerter: NewWebhookAlerter(cfg.WebhookURL)})
	}
	if len(channels) == 0 {
		return NoopAlerter{}
	}
	return NewDispatcher(cfg.Cooldown, logger, channels...)
}

type NoopAlerter struct{}

func (NoopAlerter) Send(context.Context, Alert) error { return nil }
