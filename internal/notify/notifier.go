// Package notify pushes journal alerts to chat channels. Sync digests,
// oversell warnings, and report summaries go out through whichever senders
// the operator configured; an event allowlist keeps noisy channels quiet.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event names the journal emits. The notify.events config list selects which
// of these reach the configured channels.
const (
	EventSyncCompleted   = "sync_completed"
	EventOversellWarning = "oversell_warning"
	EventError           = "error"
	EventReport          = "report"
)

// Sender delivers one formatted alert to a single channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs and combined errors.
	Name() string
}

// Notifier fans journal events out to every configured sender, dropping
// events the operator did not subscribe to.
type Notifier struct {
	senders []Sender
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewNotifier builds a Notifier over the given senders. events is the
// subscription list; an empty list subscribes to everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

func (n *Notifier) wants(event string) bool {
	if len(n.allowed) == 0 {
		return true
	}
	_, ok := n.allowed[event]
	return ok
}

// Notify delivers the alert to every sender, unless the event is outside the
// subscription list, in which case it is dropped silently.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.wants(event) {
		n.logger.DebugContext(ctx, "event not subscribed, dropping",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll delivers the alert to every sender, bypassing the subscription
// filter. Used for operator-facing failures that must never be silenced.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch tries every sender even when an earlier one fails; a Telegram
// outage must not keep the Discord webhook dark. Failures come back joined.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("notify: %s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	return errors.Join(errs...)
}
