package app

import (
	"context"
	"fmt"
	"io"

	"habitsync/internal/habit"
)

// WriterNotifier delivers reminders as lines of text, e.g. on stdout.
type WriterNotifier struct {
	w io.Writer
}

var _ habit.Notifier = (*WriterNotifier)(nil)

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(_ context.Context, h *habit.Habit) error {
	due := ""
	if h.ReminderAt != nil {
		due = h.ReminderAt.Local().Format("2006-01-02 15:04")
	}
	_, err := fmt.Fprintf(n.w, "Reminder: %s (due %s)\n", h.Title, due)
	return err
}
