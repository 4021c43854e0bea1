package app

import (
	"context"
	"errors"
	"time"

	"habitsync/internal/habit"
)

// Watch runs until ctx is cancelled. Every interval, starting immediately,
// it syncs when online and then delivers due reminders through n. Failures
// of a single round are logged and the loop carries on.
func (a *App) Watch(ctx context.Context, interval time.Duration, n habit.Notifier) error {
	if interval <= 0 {
		return errors.New("watch interval must be positive")
	}

	a.logger.Info("watching", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.watchRound(ctx, n)

		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (a *App) watchRound(ctx context.Context, n habit.Notifier) {
	if ctx.Err() != nil {
		return
	}

	if a.conn.Online(ctx) {
		report, err := a.engine.Synchronize(ctx, a.owner)
		if err != nil {
			a.logger.Warn("sync round failed", "error", err)
		} else if report.Attempted() > 0 {
			a.logger.Info("sync round", "pushed", report.Pushed, "remapped", report.Remapped, "failed", report.Failed)
		}
	}

	fired, err := a.engine.CheckReminders(ctx, a.owner, n)
	if err != nil {
		a.logger.Warn("reminder round failed", "error", err)
		return
	}
	if fired > 0 {
		a.logger.Info("reminders delivered", "count", fired)
	}
}
