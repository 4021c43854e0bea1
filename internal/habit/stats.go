package habit

import (
	"context"
	"fmt"
	"time"
)

// HabitWeek is the completion record of a single habit over one week.
type HabitWeek struct {
	HabitID string
	Title   string
	// Completions is indexed Monday (0) through Sunday (6).
	Completions [7]bool
	Completed   int
	// Streak is the longest run of consecutive completed days in the week.
	Streak int
}

// WeekStats aggregates completions of every habit of an owner.
type WeekStats struct {
	Start          time.Time
	Habits         []HabitWeek
	TotalCompleted int
	BestStreak     int
	// BestHabit is the title of the habit with the most completed days, or
	// empty when no habit has any.
	BestHabit string
}

// WeekStart returns midnight of the Monday of t's week, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// WeeklyStats computes completion statistics for the week containing weekOf.
// A day counts as completed when at least one log entry falls on it.
func (e *Engine) WeeklyStats(ctx context.Context, owner string, weekOf time.Time) (*WeekStats, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}

	start := WeekStart(weekOf.In(e.clock.Now().Location()))
	end := start.AddDate(0, 0, 7)

	habits, err := e.local.ListHabits(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing local habits: %w", err)
	}
	entries, err := e.local.ListLogsBetween(ctx, owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}

	return summarizeWeek(start, habits, entries), nil
}

func summarizeWeek(start time.Time, habits []*Habit, entries []*LogEntry) *WeekStats {
	stats := &WeekStats{Start: start, Habits: make([]HabitWeek, 0, len(habits))}

	index := make(map[string]int, len(habits))
	for i, h := range habits {
		index[h.ID] = i
		stats.Habits = append(stats.Habits, HabitWeek{HabitID: h.ID, Title: h.Title})
	}

	for _, entry := range entries {
		i, ok := index[entry.HabitID]
		if !ok {
			continue
		}
		day := dayIndex(start, entry.LoggedAt)
		if day < 0 || day > 6 {
			continue
		}
		stats.Habits[i].Completions[day] = true
	}

	best := 0
	for i := range stats.Habits {
		hw := &stats.Habits[i]
		run := 0
		for _, done := range hw.Completions {
			if !done {
				run = 0
				continue
			}
			hw.Completed++
			run++
			if run > hw.Streak {
				hw.Streak = run
			}
		}

		stats.TotalCompleted += hw.Completed
		if hw.Streak > stats.BestStreak {
			stats.BestStreak = hw.Streak
		}
		if hw.Completed > best {
			best = hw.Completed
			stats.BestHabit = hw.Title
		}
	}
	return stats
}

// dayIndex returns the number of calendar days between start and t, compared
// by date in start's location so DST shifts do not skew the result.
func dayIndex(start, t time.Time) int {
	t = t.In(start.Location())
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	for i := 0; i < 7; i++ {
		if start.AddDate(0, 0, i).Equal(day) {
			return i
		}
	}
	return -1
}
