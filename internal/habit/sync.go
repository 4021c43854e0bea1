package habit

import (
	"context"
	"errors"
	"fmt"
)

// SyncReport summarizes one synchronization sweep.
type SyncReport struct {
	// Pushed counts edits forwarded to existing remote documents.
	Pushed int
	// Remapped counts habits created remotely and re-keyed locally.
	Remapped int
	// Failed counts habits left pending after a remote or local error.
	Failed int
	// Skipped counts habits not attempted because the device was offline.
	Skipped int
}

// Attempted returns the number of habits the sweep tried to push.
func (r *SyncReport) Attempted() int {
	return r.Pushed + r.Remapped + r.Failed
}

// Synchronize pushes every unsynced local habit of owner to the remote store.
//
// Temporary-ID habits are created remotely and re-keyed locally in one
// transaction. Permanent-ID habits edited offline are forwarded as updates;
// if the remote copy has meanwhile disappeared the habit is created again
// under a fresh ID rather than dropped. Connectivity is re-checked before each
// habit, and a failure on one habit never stops the others: it stays pending
// for the next sweep. Habits already synced cost no remote call, so a repeated
// sweep is a no-op.
func (e *Engine) Synchronize(ctx context.Context, owner string) (*SyncReport, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}

	pending, err := e.local.ListUnsynced(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing unsynced habits: %w", err)
	}

	report := &SyncReport{}
	for _, h := range pending {
		if !e.conn.Online(ctx) {
			report.Skipped++
			continue
		}
		if err := e.syncOne(ctx, h, report); err != nil {
			report.Failed++
			e.logger.Warn("habit sync failed", "id", h.ID, "error", err)
		}
	}

	e.logger.Info("sync complete",
		"pending", len(pending),
		"pushed", report.Pushed,
		"remapped", report.Remapped,
		"failed", report.Failed,
		"skipped", report.Skipped)
	return report, nil
}

func (e *Engine) syncOne(ctx context.Context, h *Habit, report *SyncReport) error {
	if h.IsTemporary() {
		promoted, err := e.promote(ctx, h)
		if err != nil {
			return err
		}
		report.Remapped++
		e.logger.Info("habit synchronized", "temp_id", h.ID, "id", promoted.ID)
		return nil
	}

	err := e.remote.Update(ctx, h.Owner, h.ID, h.Document())
	if errors.Is(err, ErrNotFound) {
		e.logger.Warn("remote copy missing, recreating", "id", h.ID)
		promoted, err := e.promote(ctx, h)
		if err != nil {
			return err
		}
		report.Remapped++
		e.logger.Info("habit synchronized", "old_id", h.ID, "id", promoted.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("updating habit remotely: %w", err)
	}

	synced := *h
	synced.Synced = true
	if err := e.local.PutHabit(ctx, &synced); err != nil {
		return fmt.Errorf("marking habit synced: %w", err)
	}
	report.Pushed++
	e.logger.Info("habit synchronized", "id", h.ID)
	return nil
}
