package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/typeb/familyhub/internal/application"
)

// ReminderWorker drives the escalation scan on a fixed cadence. The scan itself
// is safe to run concurrently across replicas, so the worker carries no
// coordination state of its own.
type ReminderWorker struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

func NewReminderWorker(logger *slog.Logger, service *application.Service, interval time.Duration) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderWorker{logger: logger, service: service, interval: interval}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		escalated, err := w.service.EscalateDueReminders(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "reminder scan failed",
				"module", "events.reminder_worker",
				"layer", "adapter",
				"operation", "escalate_due_reminders",
				"outcome", "failure",
				"error", err,
			)
		} else if escalated > 0 {
			w.logger.InfoContext(ctx, "reminder scan completed",
				"module", "events.reminder_worker",
				"layer", "adapter",
				"operation", "escalate_due_reminders",
				"outcome", "success",
				"escalated_count", escalated,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
