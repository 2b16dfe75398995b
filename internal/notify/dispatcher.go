package notify

import (
	"context"
	"log/slog"
)

// Dispatcher delivers service events best-effort. Failures are logged and
// never propagated: by the time an event exists, its transaction is already
// committed.
type Dispatcher struct {
	notifier Notifier
	log      *slog.Logger
}

func NewDispatcher(notifier Notifier, log *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, log: log}
}

// Dispatch sends every event, continuing past individual failures.
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) {
	for _, e := range events {
		text, showCard := e.Render()
		var err error
		if showCard && e.Subject != nil {
			err = d.notifier.SendProfileCard(ctx, e.Recipient, e.Subject, text)
		} else {
			err = d.notifier.SendText(ctx, e.Recipient, text)
		}
		if err != nil {
			d.log.Warn("failed to deliver notification",
				"kind", string(e.Kind),
				"recipient", e.Recipient,
				"error", err)
		}
	}
}
