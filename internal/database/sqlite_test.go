package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"habitsync/internal/habit"
)

var baseTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// newTestStore creates a new in-memory store with the schema applied.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func newHabit(id, owner, title string, synced bool) *habit.Habit {
	return &habit.Habit{
		ID:        id,
		Owner:     owner,
		Title:     title,
		Synced:    synced,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func TestSQLiteStore_GetHabit(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil when habit not found", func(t *testing.T) {
		s := newTestStore(t)

		h, err := s.GetHabit(ctx, "missing")
		if err != nil {
			t.Fatalf("GetHabit() error = %v", err)
		}
		if h != nil {
			t.Errorf("GetHabit() = %v, want nil", h)
		}
	})

	t.Run("round-trips every field", func(t *testing.T) {
		s := newTestStore(t)

		reminder := baseTime.Add(2 * time.Hour)
		want := &habit.Habit{
			ID:          "h-1",
			Owner:       "alice",
			Title:       "Read",
			Description: "20 pages",
			Synced:      true,
			ReminderAt:  &reminder,
			Notified:    true,
			CreatedAt:   baseTime,
			UpdatedAt:   baseTime.Add(time.Minute),
		}
		if err := s.AddHabit(ctx, want); err != nil {
			t.Fatalf("AddHabit() error = %v", err)
		}

		got, err := s.GetHabit(ctx, "h-1")
		if err != nil {
			t.Fatalf("GetHabit() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetHabit() returned nil, want habit")
		}
		if got.Title != want.Title || got.Description != want.Description || got.Owner != want.Owner {
			t.Errorf("GetHabit() = %+v, want %+v", got, want)
		}
		if !got.Synced || !got.Notified {
			t.Errorf("Synced = %v, Notified = %v, want both true", got.Synced, got.Notified)
		}
		if got.ReminderAt == nil || !got.ReminderAt.Equal(reminder) {
			t.Errorf("ReminderAt = %v, want %v", got.ReminderAt, reminder)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
			t.Errorf("timestamps = %v/%v, want %v/%v", got.CreatedAt, got.UpdatedAt, want.CreatedAt, want.UpdatedAt)
		}
	})
}

func TestSQLiteStore_AddHabit_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddHabit(ctx, newHabit("temp-1", "alice", "Read", false)); err != nil {
		t.Fatalf("AddHabit() error = %v", err)
	}
	err := s.AddHabit(ctx, newHabit("temp-1", "alice", "Run", false))
	if !errors.Is(err, habit.ErrDuplicateID) {
		t.Errorf("AddHabit() error = %v, want ErrDuplicateID", err)
	}
}

func TestSQLiteStore_PutHabit_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.PutHabit(ctx, newHabit("h-1", "alice", "Read", false)); err != nil {
		t.Fatalf("PutHabit() error = %v", err)
	}
	if err := s.PutHabit(ctx, newHabit("h-1", "alice", "Read more", true)); err != nil {
		t.Fatalf("PutHabit() error = %v", err)
	}

	got, err := s.GetHabit(ctx, "h-1")
	if err != nil {
		t.Fatalf("GetHabit() error = %v", err)
	}
	if got.Title != "Read more" || !got.Synced {
		t.Errorf("GetHabit() = %+v, want overwritten synced record", got)
	}
}

func TestSQLiteStore_ListUnsynced(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	habits := []*habit.Habit{
		newHabit("a", "alice", "A", true),
		newHabit("b", "alice", "B", false),
		newHabit("c", "bob", "C", false),
		newHabit("d", "alice", "D", false),
	}
	for _, h := range habits {
		if err := s.PutHabit(ctx, h); err != nil {
			t.Fatalf("PutHabit() error = %v", err)
		}
	}

	unsynced, err := s.ListUnsynced(ctx, "alice")
	if err != nil {
		t.Fatalf("ListUnsynced() error = %v", err)
	}
	if len(unsynced) != 2 || unsynced[0].ID != "b" || unsynced[1].ID != "d" {
		t.Errorf("ListUnsynced() = %v, want [b d]", ids(unsynced))
	}

	all, err := s.ListHabits(ctx, "alice")
	if err != nil {
		t.Fatalf("ListHabits() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListHabits() = %v, want 3 habits of alice", ids(all))
	}
}

func TestSQLiteStore_DeleteHabit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.PutHabit(ctx, newHabit("h-1", "alice", "Read", true)); err != nil {
		t.Fatalf("PutHabit() error = %v", err)
	}
	if err := s.DeleteHabit(ctx, "h-1"); err != nil {
		t.Fatalf("DeleteHabit() error = %v", err)
	}
	if err := s.DeleteHabit(ctx, "h-1"); err != nil {
		t.Errorf("DeleteHabit() of missing id error = %v, want nil", err)
	}

	got, err := s.GetHabit(ctx, "h-1")
	if err != nil {
		t.Fatalf("GetHabit() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetHabit() = %v, want nil after delete", got)
	}
}

func TestSQLiteStore_ReplaceHabitID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.AddHabit(ctx, newHabit("temp-1", "alice", "Read", false)); err != nil {
		t.Fatalf("AddHabit() error = %v", err)
	}
	entry := &habit.LogEntry{ID: "log-1", HabitID: "temp-1", Owner: "alice", DurationMin: 15, LoggedAt: baseTime, CreatedAt: baseTime}
	if err := s.AddLog(ctx, entry); err != nil {
		t.Fatalf("AddLog() error = %v", err)
	}

	if err := s.ReplaceHabitID(ctx, "temp-1", newHabit("r1", "alice", "Read", true)); err != nil {
		t.Fatalf("ReplaceHabitID() error = %v", err)
	}

	old, err := s.GetHabit(ctx, "temp-1")
	if err != nil {
		t.Fatalf("GetHabit() error = %v", err)
	}
	if old != nil {
		t.Error("old record still present after ReplaceHabitID()")
	}

	got, err := s.GetHabit(ctx, "r1")
	if err != nil {
		t.Fatalf("GetHabit() error = %v", err)
	}
	if got == nil || !got.Synced {
		t.Errorf("GetHabit(r1) = %+v, want synced record", got)
	}

	logs, err := s.ListLogs(ctx, "r1")
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(logs) != 1 || logs[0].ID != "log-1" {
		t.Errorf("ListLogs(r1) = %v, want [log-1]", logs)
	}
}

func TestSQLiteStore_ListLogsBetween(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, offset := range []time.Duration{-time.Hour, 0, 24 * time.Hour, 7 * 24 * time.Hour} {
		e := &habit.LogEntry{
			ID:          fmt.Sprintf("log-%d", i),
			HabitID:     "h-1",
			Owner:       "alice",
			DurationMin: 10,
			LoggedAt:    baseTime.Add(offset),
			CreatedAt:   baseTime,
		}
		if err := s.AddLog(ctx, e); err != nil {
			t.Fatalf("AddLog() error = %v", err)
		}
	}
	other := &habit.LogEntry{ID: "bob-1", HabitID: "h-2", Owner: "bob", DurationMin: 10, LoggedAt: baseTime, CreatedAt: baseTime}
	if err := s.AddLog(ctx, other); err != nil {
		t.Fatalf("AddLog() error = %v", err)
	}

	got, err := s.ListLogsBetween(ctx, "alice", baseTime, baseTime.Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("ListLogsBetween() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListLogsBetween() returned %d entries, want 2", len(got))
	}
	if !got[0].LoggedAt.Equal(baseTime) || !got[1].LoggedAt.Equal(baseTime.Add(24*time.Hour)) {
		t.Errorf("ListLogsBetween() = %v, want entries at start and start+1d in order", got)
	}

	all, err := s.ListLogs(ctx, "h-1")
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(all) != 4 || !all[0].LoggedAt.After(all[3].LoggedAt) {
		t.Errorf("ListLogs() should return 4 entries newest first, got %d", len(all))
	}
}

func TestSQLiteStore_Migrations(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	if err := s.CheckMigrations(); err == nil {
		t.Error("CheckMigrations() on fresh database expected error, got nil")
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := s.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() after Migrate() error = %v", err)
	}

	st, err := s.MigrationStatus()
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if st.Pending() != 0 {
		t.Errorf("MigrationStatus().Pending() = %d, want 0", st.Pending())
	}
}

func TestSQLiteStore_BackupTo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.PutHabit(ctx, newHabit("h-1", "alice", "Read", true)); err != nil {
		t.Fatalf("PutHabit() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := s.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	restored, err := NewSQLiteStore(dest)
	if err != nil {
		t.Fatalf("NewSQLiteStore(backup) error = %v", err)
	}
	defer restored.Close()

	got, err := restored.GetHabit(ctx, "h-1")
	if err != nil {
		t.Fatalf("GetHabit() on backup error = %v", err)
	}
	if got == nil || got.Title != "Read" {
		t.Errorf("GetHabit() on backup = %+v, want Read", got)
	}
}

func ids(habits []*habit.Habit) []string {
	out := make([]string, len(habits))
	for i, h := range habits {
		out[i] = h.ID
	}
	return out
}
