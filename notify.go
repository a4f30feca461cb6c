package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Notifier is told about every phase change. Notifiers observe transitions
// without taking them from the queue.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, t Transition) error
}

func NewNotifier(cfg *NotifierConfig) (Notifier, error) {
	switch {
	case cfg.Command != nil:
		return NewCommandNotifier(cfg)
	case cfg.TCP != nil:
		return NewTCPNotifier(cfg)
	case cfg.HTTP != nil:
		return NewHTTPNotifier(cfg)
	default:
		return nil, fmt.Errorf("notifier %s: one of command, tcp or http is required", cfg.Name)
	}
}

func NewNotifiers(cfgs []*NotifierConfig) ([]Notifier, error) {
	var errs error
	notifiers := make([]Notifier, 0, len(cfgs))
	for i, cfg := range cfgs {
		n, err := NewNotifier(cfg)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("notifier %d: %w", i, err))
			continue
		}
		notifiers = append(notifiers, n)
	}
	if errs != nil {
		return nil, errs
	}
	return notifiers, nil
}

// notify runs every notifier in its own goroutine. Failures are logged only.
func (c *PhaseCycler) notify(ctx context.Context, t Transition) {
	for _, n := range c.notifiers {
		c.wg.Add(1)
		go func(n Notifier) {
			defer c.wg.Done()
			if err := n.Notify(ctx, t); err != nil {
				newLoggerFromContext(ctx).Warn("notify failed",
					slog.String("name", n.Name()),
					slog.String("error", err.Error()),
				)
			}
		}(n)
	}
}

// expandPhase replaces {{phase}} in s.
func expandPhase(s string, p Phase) string {
	return strings.ReplaceAll(s, "{{phase}}", p.String())
}
