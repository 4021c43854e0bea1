package habit_test

import (
	"context"
	"testing"
	"time"

	"habitsync/internal/habit"
)

func TestWeekStart(t *testing.T) {
	monday := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday morning", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"wednesday", time.Date(2024, 1, 17, 23, 59, 0, 0, time.UTC)},
		{"sunday night", time.Date(2024, 1, 21, 23, 59, 59, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := habit.WeekStart(tt.in); !got.Equal(monday) {
				t.Errorf("WeekStart(%v) = %v, want %v", tt.in, got, monday)
			}
		})
	}

	nextMonday := time.Date(2024, 1, 22, 0, 0, 1, 0, time.UTC)
	if got := habit.WeekStart(nextMonday); !got.Equal(monday.AddDate(0, 0, 7)) {
		t.Errorf("WeekStart(%v) = %v, want following Monday", nextMonday, got)
	}
}

func TestEngine_WeeklyStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)
	monday := habit.WeekStart(env.clock.Now())

	read, err := env.engine.Create(ctx, owner, habit.Input{Title: "Read"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	run, err := env.engine.Create(ctx, owner, habit.Input{Title: "Run"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	idle, err := env.engine.Create(ctx, owner, habit.Input{Title: "Idle"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	logAt := func(h *habit.Habit, day int, hour int) {
		t.Helper()
		when := monday.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
		if _, err := env.engine.AddLog(ctx, owner, h.ID, habit.LogInput{DurationMin: 20, LoggedAt: when}); err != nil {
			t.Fatalf("AddLog() error = %v", err)
		}
	}
	// Read: Mon, Tue, Wed (twice), Fri.
	logAt(read, 0, 8)
	logAt(read, 1, 8)
	logAt(read, 2, 8)
	logAt(read, 2, 21)
	logAt(read, 4, 8)
	// Run: Sunday, plus entries outside the week.
	logAt(run, 6, 7)
	logAt(run, -1, 7)
	logAt(run, 7, 7)

	stats, err := env.engine.WeeklyStats(ctx, owner, env.clock.Now())
	if err != nil {
		t.Fatalf("WeeklyStats() error = %v", err)
	}

	if !stats.Start.Equal(monday) {
		t.Errorf("Start = %v, want %v", stats.Start, monday)
	}
	if len(stats.Habits) != 3 {
		t.Fatalf("len(Habits) = %d, want 3", len(stats.Habits))
	}

	byID := make(map[string]habit.HabitWeek)
	for _, hw := range stats.Habits {
		byID[hw.HabitID] = hw
	}

	r := byID[read.ID]
	if r.Completions != [7]bool{true, true, true, false, true, false, false} {
		t.Errorf("Read completions = %v", r.Completions)
	}
	if r.Completed != 4 || r.Streak != 3 {
		t.Errorf("Read completed/streak = %d/%d, want 4/3", r.Completed, r.Streak)
	}

	if got := byID[run.ID]; got.Completed != 1 || got.Streak != 1 || !got.Completions[6] {
		t.Errorf("Run week = %+v, want only Sunday", got)
	}
	if got := byID[idle.ID]; got.Completed != 0 || got.Streak != 0 {
		t.Errorf("Idle week = %+v, want nothing", got)
	}

	if stats.TotalCompleted != 5 {
		t.Errorf("TotalCompleted = %d, want 5", stats.TotalCompleted)
	}
	if stats.BestStreak != 3 {
		t.Errorf("BestStreak = %d, want 3", stats.BestStreak)
	}
	if stats.BestHabit != "Read" {
		t.Errorf("BestHabit = %q, want %q", stats.BestHabit, "Read")
	}
}

func TestEngine_WeeklyStats_TiesAndEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("no activity has no best habit", func(t *testing.T) {
		env := newTestEnv(t, true)
		if _, err := env.engine.Create(ctx, owner, habit.Input{Title: "Read"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		stats, err := env.engine.WeeklyStats(ctx, owner, env.clock.Now())
		if err != nil {
			t.Fatalf("WeeklyStats() error = %v", err)
		}
		if stats.BestHabit != "" || stats.TotalCompleted != 0 || stats.BestStreak != 0 {
			t.Errorf("WeeklyStats() = %+v, want zero totals", stats)
		}
	})

	t.Run("first habit wins a tie", func(t *testing.T) {
		env := newTestEnv(t, true)
		first, err := env.engine.Create(ctx, owner, habit.Input{Title: "First"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		env.clock.Advance(time.Second)
		second, err := env.engine.Create(ctx, owner, habit.Input{Title: "Second"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		for _, h := range []*habit.Habit{second, first} {
			if _, err := env.engine.AddLog(ctx, owner, h.ID, habit.LogInput{DurationMin: 5}); err != nil {
				t.Fatalf("AddLog() error = %v", err)
			}
		}

		stats, err := env.engine.WeeklyStats(ctx, owner, env.clock.Now())
		if err != nil {
			t.Fatalf("WeeklyStats() error = %v", err)
		}
		if stats.BestHabit != "First" {
			t.Errorf("BestHabit = %q, want %q", stats.BestHabit, "First")
		}
	})
}
