package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
)

// Channel is a named delivery target.
type Channel struct {
	Name string
	Alerter
}

// Dispatcher delivers each alert to every channel concurrently. Repeats of
// a type for the same subject inside the cooldown are dropped. A recovery
// always goes out and clears the subject's cooldowns, so a relapse is
// reported immediately.
type Dispatcher struct {
	channels []Channel
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewDispatcher(cooldown time.Duration, logger *slog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		cooldown: cooldown,
		logger:   logger.With("component", "alert_dispatcher"),
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
}

func (d *Dispatcher) Send(ctx context.Context, a Alert) error {
	if !d.admit(a) {
		d.logger.Debug("alert suppressed by cooldown", "type", a.Type, "subject", a.subject())
		for _, ch := range d.channels {
			metrics.AlertsCooldownSkipped.WithLabelValues(ch.Name, string(a.Type)).Inc()
		}
		return nil
	}

	errs := make([]error, len(d.channels))
	var g errgroup.Group
	for i, ch := range d.channels {
		g.Go(func() error {
			if err := ch.Send(ctx, a); err != nil {
				d.logger.Warn("alert delivery failed", "channel", ch.Name, "type", a.Type, "error", err)
				errs[i] = fmt.Errorf("%s: %w", ch.Name, err)
				return nil
			}
			metrics.AlertsSentTotal.WithLabelValues(ch.Name, string(a.Type)).Inc()
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (d *Dispatcher) admit(a Alert) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	subject := a.subject()
	if a.Type == AlertTypeRecovery {
		for _, t := range []AlertType{AlertTypeWorkerRestart, AlertTypeUnhealthy} {
			delete(d.last, string(t)+"|"+subject)
		}
		return true
	}

	key := string(a.Type) + "|" + subject
	now := d.now()
	if sent, ok := d.last[key]; ok && now.Sub(sent) < d.cooldown {
		return false
	}
	d.last[key] = now
	return true
}
