package habit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Engine mediates every habit mutation between the local cache and the
// remote store. It decides per operation, from the connectivity oracle,
// whether to write remote-then-local or local only.
//
// The engine holds no lock: callers are expected to serialize operations
// on a device.
type Engine struct {
	local  LocalStore
	remote RemoteStore
	conn   Connectivity
	logger Logger
	clock  Clock
	idgen  IDGenerator
	temps  *TempIDs
}

// NewEngine creates an Engine with the provided dependencies.
// idgen is used for activity log IDs; habit IDs come from the remote store
// or, offline, from a TempIDs generator driven by clock.
func NewEngine(local LocalStore, remote RemoteStore, conn Connectivity, logger Logger, clock Clock, idgen IDGenerator) *Engine {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Engine{
		local:  local,
		remote: remote,
		conn:   conn,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
		temps:  NewTempIDs(clock),
	}
}

func checkOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return ErrAuthRequired
	}
	return nil
}

// Create stores a new habit.
//
// Online, the remote store is written first and the local copy takes the
// remote-assigned ID with Synced set. A remote failure is returned as is and
// leaves the local store untouched. Offline, the habit is stored locally only
// under a temporary ID with Synced unset.
func (e *Engine) Create(ctx context.Context, owner string, in Input) (*Habit, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	h := &Habit{Owner: owner, CreatedAt: now, UpdatedAt: now}
	h.apply(in)

	if e.conn.Online(ctx) {
		id, err := e.remote.Create(ctx, owner, h.Document())
		if err != nil {
			e.logger.Error("remote create failed", "title", h.Title, "error", err)
			return nil, fmt.Errorf("creating habit remotely: %w", err)
		}
		h.ID = id
		h.Synced = true
		// The remote copy already exists; a failed local write is repaired
		// by the next Load.
		if err := e.local.PutHabit(ctx, h); err != nil {
			return nil, fmt.Errorf("caching habit locally: %w", err)
		}
		e.logger.Info("habit created", "id", h.ID)
		return h, nil
	}

	h.ID = e.temps.New()
	if err := e.local.AddHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("storing habit locally: %w", err)
	}
	e.logger.Info("habit created offline", "id", h.ID)
	return h, nil
}

// Get returns the locally cached habit stored under id.
func (e *Engine) Get(ctx context.Context, owner, id string) (*Habit, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	return e.lookup(ctx, owner, id)
}

// lookup fetches a habit and hides records that belong to another owner.
func (e *Engine) lookup(ctx context.Context, owner, id string) (*Habit, error) {
	h, err := e.local.GetHabit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading habit %s: %w", id, err)
	}
	if h == nil || h.Owner != owner {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h, nil
}

// Edit replaces the editable fields of the habit stored under id.
//
// Online, the remote store is written first and the local copy only after it
// succeeds; on remote failure the local copy keeps its prior state. Offline,
// the local copy is written with Synced unset so the next sweep forwards it.
func (e *Engine) Edit(ctx context.Context, owner, id string, in Input) (*Habit, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	current, err := e.lookup(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.apply(in)
	updated.UpdatedAt = e.clock.Now()

	saved, err := e.save(ctx, &updated)
	if err != nil {
		return nil, err
	}
	e.logger.Info("habit edited", "id", saved.ID, "synced", saved.Synced)
	return saved, nil
}

// save writes h through to the stores according to current connectivity.
// A habit that still has a temporary ID, or whose remote document has
// vanished, is created remotely and re-keyed.
func (e *Engine) save(ctx context.Context, h *Habit) (*Habit, error) {
	if !e.conn.Online(ctx) {
		h.Synced = false
		if err := e.local.PutHabit(ctx, h); err != nil {
			return nil, fmt.Errorf("storing habit locally: %w", err)
		}
		return h, nil
	}

	if h.IsTemporary() {
		return e.promote(ctx, h)
	}

	if err := e.remote.Update(ctx, h.Owner, h.ID, h.Document()); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Deleted on another device; keep the local change under a new ID.
			e.logger.Warn("remote document gone, re-creating", "id", h.ID)
			return e.promote(ctx, h)
		}
		e.logger.Error("remote update failed", "id", h.ID, "error", err)
		return nil, fmt.Errorf("updating habit remotely: %w", err)
	}
	h.Synced = true
	if err := e.local.PutHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("caching habit locally: %w", err)
	}
	return h, nil
}

// promote creates h remotely and swaps its local record over to the
// remote-assigned ID in a single local transaction.
func (e *Engine) promote(ctx context.Context, h *Habit) (*Habit, error) {
	oldID := h.ID

	id, err := e.remote.Create(ctx, h.Owner, h.Document())
	if err != nil {
		return nil, fmt.Errorf("creating habit remotely: %w", err)
	}

	promoted := *h
	promoted.ID = id
	promoted.Synced = true
	if err := e.local.ReplaceHabitID(ctx, oldID, &promoted); err != nil {
		return nil, fmt.Errorf("replacing id %s with %s: %w", oldID, id, err)
	}
	return &promoted, nil
}

// Delete removes a habit. Online, the remote delete is attempted first on a
// best-effort basis: its failure is logged and not retried. The local copy
// is removed regardless. Deleting an unknown id succeeds.
//
// Activity logs of the habit are kept.
func (e *Engine) Delete(ctx context.Context, owner, id string) error {
	if err := checkOwner(owner); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}

	h, err := e.local.GetHabit(ctx, id)
	if err != nil {
		return fmt.Errorf("reading habit %s: %w", id, err)
	}
	if h != nil && h.Owner != owner {
		e.logger.Warn("refusing to delete habit of another owner", "id", id)
		return nil
	}

	if !IsTemporaryID(id) && e.conn.Online(ctx) {
		if err := e.remote.Delete(ctx, owner, id); err != nil {
			e.logger.Warn("remote delete failed", "id", id, "error", err)
		}
	}

	if h == nil {
		e.logger.Debug("habit not cached locally", "id", id)
		return nil
	}
	if err := e.local.DeleteHabit(ctx, id); err != nil {
		return fmt.Errorf("deleting habit locally: %w", err)
	}
	e.logger.Info("habit deleted", "id", id)
	return nil
}

// Load produces the merged view of owner's habits.
//
// Online, the remote set is authoritative: every remote habit overwrites its
// local copy with Synced set. Local records the remote does not know yet stay
// as they are until the next Synchronize. Offline, only the local cache is
// read.
func (e *Engine) Load(ctx context.Context, owner string) ([]*Habit, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}

	if e.conn.Online(ctx) {
		remoteHabits, err := e.remote.List(ctx, owner)
		if err != nil {
			e.logger.Error("remote list failed", "error", err)
			return nil, fmt.Errorf("fetching remote habits: %w", err)
		}
		for _, rh := range remoteHabits {
			if err := e.local.PutHabit(ctx, FromRemote(owner, rh)); err != nil {
				return nil, fmt.Errorf("caching habit %s: %w", rh.ID, err)
			}
		}
		e.logger.Debug("remote habits cached", "count", len(remoteHabits))
	}

	habits, err := e.local.ListHabits(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing local habits: %w", err)
	}
	return habits, nil
}

// Cached returns owner's habits from the local store only, without
// consulting the remote.
func (e *Engine) Cached(ctx context.Context, owner string) ([]*Habit, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	habits, err := e.local.ListHabits(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing local habits: %w", err)
	}
	return habits, nil
}
