package habit

import (
	"context"
	"fmt"
)

// Notifier delivers a reminder for a habit to the user.
type Notifier interface {
	Notify(ctx context.Context, h *Habit) error
}

// CheckReminders notifies for every habit of owner whose reminder is due and
// has not fired yet, then marks it notified using edit semantics. It returns
// the number of reminders delivered and recorded. A failure on one habit is
// logged and does not stop the others.
func (e *Engine) CheckReminders(ctx context.Context, owner string, n Notifier) (int, error) {
	if err := checkOwner(owner); err != nil {
		return 0, err
	}

	habits, err := e.local.ListHabits(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("listing local habits: %w", err)
	}

	now := e.clock.Now()
	fired := 0
	for _, h := range habits {
		if h.ReminderAt == nil || h.Notified || h.ReminderAt.After(now) {
			continue
		}
		if err := n.Notify(ctx, h); err != nil {
			e.logger.Warn("reminder delivery failed", "id", h.ID, "error", err)
			continue
		}

		updated := *h
		updated.Notified = true
		updated.UpdatedAt = now
		if _, err := e.save(ctx, &updated); err != nil {
			e.logger.Warn("marking reminder notified failed", "id", h.ID, "error", err)
			continue
		}
		fired++
		e.logger.Info("reminder sent", "id", h.ID)
	}
	return fired, nil
}
