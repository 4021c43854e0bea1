package habit

import (
	"context"
	"fmt"
	"time"
)

// LogEntry records one activity session against a habit. Entries live only
// in the local store.
type LogEntry struct {
	ID          string
	HabitID     string
	Owner       string
	DurationMin int
	Notes       string
	LoggedAt    time.Time
	CreatedAt   time.Time
}

// LogInput holds the user-supplied fields of a log entry.
// A zero LoggedAt means now.
type LogInput struct {
	DurationMin int
	Notes       string
	LoggedAt    time.Time
}

// AddLog records activity against a locally known habit.
func (e *Engine) AddLog(ctx context.Context, owner, habitID string, in LogInput) (*LogEntry, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	if in.DurationMin <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if _, err := e.lookup(ctx, owner, habitID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	loggedAt := in.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = now
	}

	entry := &LogEntry{
		ID:          e.idgen.New(),
		HabitID:     habitID,
		Owner:       owner,
		DurationMin: in.DurationMin,
		Notes:       in.Notes,
		LoggedAt:    loggedAt,
		CreatedAt:   now,
	}
	if err := e.local.AddLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("storing log entry: %w", err)
	}
	e.logger.Info("activity logged", "habit_id", habitID, "log_id", entry.ID, "minutes", entry.DurationMin)
	return entry, nil
}

// Logs returns the entries of a habit, newest first.
func (e *Engine) Logs(ctx context.Context, owner, habitID string) ([]*LogEntry, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	if _, err := e.lookup(ctx, owner, habitID); err != nil {
		return nil, err
	}
	entries, err := e.local.ListLogs(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}
	return entries, nil
}
