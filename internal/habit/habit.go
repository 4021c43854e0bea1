package habit

import (
	"fmt"
	"strings"
	"time"
)

// TempIDPrefix marks identifiers generated on the device before the remote
// store has assigned one. Remote IDs never contain a dash.
const TempIDPrefix = "temp-"

// Habit is the local representation of a habit record.
type Habit struct {
	ID          string
	Owner       string
	Title       string
	Description string
	// Synced is true while the local copy is known equal to the last
	// successfully written remote copy.
	Synced     bool
	ReminderAt *time.Time
	Notified   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Input holds the user-editable fields of a habit.
type Input struct {
	Title       string
	Description string
	ReminderAt  *time.Time
}

// Validate checks the fields required before any store is touched.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return nil
}

// Document is the shape of a habit in the remote store. It never carries the
// identifier (the remote key) nor the synced flag.
type Document struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ReminderAt  *time.Time `json:"reminder_at,omitempty"`
	Notified    bool       `json:"notified"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RemoteHabit pairs a remote document with the ID the remote assigned to it.
type RemoteHabit struct {
	ID       string
	Document Document
}

// Document builds the minimal remote payload for h.
func (h *Habit) Document() Document {
	return Document{
		Title:       h.Title,
		Description: h.Description,
		ReminderAt:  h.ReminderAt,
		Notified:    h.Notified,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}

// IsTemporary reports whether h still carries a device-generated ID.
func (h *Habit) IsTemporary() bool {
	return IsTemporaryID(h.ID)
}

// FromRemote converts a remote document into a synced local habit.
func FromRemote(owner string, rh RemoteHabit) *Habit {
	return &Habit{
		ID:          rh.ID,
		Owner:       owner,
		Title:       rh.Document.Title,
		Description: rh.Document.Description,
		Synced:      true,
		ReminderAt:  rh.Document.ReminderAt,
		Notified:    rh.Document.Notified,
		CreatedAt:   rh.Document.CreatedAt,
		UpdatedAt:   rh.Document.UpdatedAt,
	}
}

// IsTemporaryID reports whether id was generated on the device.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// apply copies the editable fields of in onto h. Moving the reminder re-arms
// notification.
func (h *Habit) apply(in Input) {
	h.Title = strings.TrimSpace(in.Title)
	h.Description = in.Description
	if !sameTime(h.ReminderAt, in.ReminderAt) {
		h.Notified = false
	}
	h.ReminderAt = in.ReminderAt
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
