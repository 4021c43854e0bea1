package habit

import (
	"context"
	"time"
)

// LocalStore is the durable on-device cache of habits and activity logs.
// Lookups return (nil, nil) when nothing matches.
type LocalStore interface {
	// GetHabit returns the habit stored under id.
	GetHabit(ctx context.Context, id string) (*Habit, error)

	// ListHabits returns every habit of owner, oldest first.
	ListHabits(ctx context.Context, owner string) ([]*Habit, error)

	// ListUnsynced returns the habits of owner whose synced flag is false.
	ListUnsynced(ctx context.Context, owner string) ([]*Habit, error)

	// AddHabit inserts h. It fails with ErrDuplicateID if the ID is taken.
	AddHabit(ctx context.Context, h *Habit) error

	// PutHabit inserts or overwrites h.
	PutHabit(ctx context.Context, h *Habit) error

	// DeleteHabit removes the habit stored under id. A missing id is not an error.
	DeleteHabit(ctx context.Context, id string) error

	// ReplaceHabitID atomically removes the record keyed by oldID, stores h
	// under its new ID and re-points activity logs from oldID to h.ID.
	ReplaceHabitID(ctx context.Context, oldID string, h *Habit) error

	// AddLog inserts an activity log entry.
	AddLog(ctx context.Context, entry *LogEntry) error

	// ListLogs returns the entries of a habit, newest first.
	ListLogs(ctx context.Context, habitID string) ([]*LogEntry, error)

	// ListLogsBetween returns the entries of owner logged in [start, end).
	ListLogsBetween(ctx context.Context, owner string, start, end time.Time) ([]*LogEntry, error)

	// Close releases the underlying connection.
	Close() error
}

// RemoteStore is the authoritative document store, scoped by owner.
// Every method fails with ErrAuthRequired when owner is empty.
type RemoteStore interface {
	// Create stores doc and returns the identifier the remote assigned.
	Create(ctx context.Context, owner string, doc Document) (string, error)

	// List returns every habit document of owner, in no particular order.
	List(ctx context.Context, owner string) ([]RemoteHabit, error)

	// Update overwrites the document stored under id. It fails with
	// ErrNotFound when no such document exists.
	Update(ctx context.Context, owner, id string, doc Document) error

	// Delete removes the document stored under id. A missing id is not an error.
	Delete(ctx context.Context, owner, id string) error
}

// Connectivity reports whether the remote store is currently reachable.
// It is polled at the start of each operation; the answer may be stale by
// the time a network call completes.
type Connectivity interface {
	Online(ctx context.Context) bool
}
