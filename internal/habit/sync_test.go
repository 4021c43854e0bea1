package habit_test

import (
	"context"
	"testing"

	"habitsync/internal/habit"
	"habitsync/internal/testutil"
)

func createOffline(t *testing.T, env *testEnv, titles ...string) []*habit.Habit {
	t.Helper()
	env.conn.Set(false)
	var out []*habit.Habit
	for _, title := range titles {
		h, err := env.engine.Create(context.Background(), owner, habit.Input{Title: title})
		if err != nil {
			t.Fatalf("Create(%q) error = %v", title, err)
		}
		out = append(out, h)
	}
	return out
}

func TestEngine_Synchronize(t *testing.T) {
	ctx := context.Background()

	t.Run("offline creations are promoted to remote ids", func(t *testing.T) {
		env := newTestEnv(t, false)
		created := createOffline(t, env, "Read", "Run")
		env.conn.Set(true)

		report, err := env.engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}
		if report.Remapped != 2 || report.Failed != 0 || report.Pushed != 0 {
			t.Errorf("Synchronize() report = %+v, want 2 remapped", report)
		}

		for _, h := range created {
			if env.localHabit(t, h.ID) != nil {
				t.Errorf("temporary record %s still present", h.ID)
			}
		}

		local, err := env.local.ListHabits(ctx, owner)
		if err != nil {
			t.Fatalf("ListHabits() error = %v", err)
		}
		if len(local) != 2 {
			t.Fatalf("local holds %d habits, want 2", len(local))
		}
		remoteIDs := make(map[string]bool)
		for _, rh := range env.remoteHabits(t, owner) {
			remoteIDs[rh.ID] = true
		}
		for _, h := range local {
			if h.IsTemporary() || !h.Synced || !remoteIDs[h.ID] {
				t.Errorf("local %+v does not match a remote document", h)
			}
		}
	})

	t.Run("a second sweep makes no remote calls", func(t *testing.T) {
		env := newTestEnv(t, false)
		createOffline(t, env, "Read")
		env.conn.Set(true)

		if _, err := env.engine.Synchronize(ctx, owner); err != nil {
			t.Fatalf("first Synchronize() error = %v", err)
		}
		env.remote.Reset()

		report, err := env.engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("second Synchronize() error = %v", err)
		}
		if report.Attempted() != 0 {
			t.Errorf("second Synchronize() report = %+v, want nothing attempted", report)
		}
		if env.remote.TotalCalls() != 0 {
			t.Errorf("remote called %d times on idle sweep, want 0", env.remote.TotalCalls())
		}
		if n := len(env.remoteHabits(t, owner)); n != 1 {
			t.Errorf("remote holds %d documents, want 1", n)
		}
	})

	t.Run("one failure does not stop the sweep", func(t *testing.T) {
		env := newTestEnv(t, false)
		created := createOffline(t, env, "A", "B", "C")
		env.conn.Set(true)
		env.remote.FailTitle("B", errNetwork)

		report, err := env.engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}
		if report.Remapped != 2 || report.Failed != 1 {
			t.Errorf("Synchronize() report = %+v, want 2 remapped and 1 failed", report)
		}
		if got := env.remote.Calls(testutil.OpCreate); got != 3 {
			t.Errorf("remote creates = %d, want 3 (every record attempted)", got)
		}

		failed := env.localHabit(t, created[1].ID)
		if failed == nil || failed.Synced {
			t.Errorf("failed record = %+v, want unchanged pending temporary record", failed)
		}

		env.remote.FailTitle("B", nil)
		report, err = env.engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("retry Synchronize() error = %v", err)
		}
		if report.Remapped != 1 || report.Failed != 0 {
			t.Errorf("retry report = %+v, want 1 remapped", report)
		}
		if n := len(env.remoteHabits(t, owner)); n != 3 {
			t.Errorf("remote holds %d documents, want 3", n)
		}
	})

	t.Run("offline edits are pushed as updates", func(t *testing.T) {
		env := newTestEnv(t, true)
		h, err := env.engine.Create(ctx, owner, habit.Input{Title: "Read"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		env.conn.Set(false)
		if _, err := env.engine.Edit(ctx, owner, h.ID, habit.Input{Title: "Read on the train"}); err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		env.conn.Set(true)

		report, err := env.engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}
		if report.Pushed != 1 || report.Remapped != 0 {
			t.Errorf("Synchronize() report = %+v, want 1 pushed", report)
		}

		docs := env.remoteHabits(t, owner)
		if len(docs) != 1 || docs[0].ID != h.ID || docs[0].Document.Title != "Read on the train" {
			t.Errorf("remote = %+v, want updated document under original id", docs)
		}
		if local := env.localHabit(t, h.ID); !local.Synced {
			t.Error("local record not marked synced after push")
		}
	})

	t.Run("pending edit of a vanished document is re-created", func(t *testing.T) {
		env := newTestEnv(t, true)
		h, err := env.engine.Create(ctx, owner, habit.Input{Title: "Read"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		env.conn.Set(false)
		if _, err := env.engine.Edit(ctx, owner, h.ID, habit.Input{Title: "Read offline"}); err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		// Another device deletes the habit meanwhile.
		if err := env.remote.Inner().Delete(ctx, owner, h.ID); err != nil {
			t.Fatalf("remote Delete() error = %v", err)
		}
		env.conn.Set(true)

		report, err := env.engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}
		if report.Remapped != 1 {
			t.Errorf("Synchronize() report = %+v, want 1 remapped", report)
		}

		docs := env.remoteHabits(t, owner)
		if len(docs) != 1 || docs[0].ID == h.ID || docs[0].Document.Title != "Read offline" {
			t.Errorf("remote = %+v, want the edit re-created under a new id", docs)
		}
		if env.localHabit(t, h.ID) != nil {
			t.Error("record under the vanished id still present locally")
		}
	})

	t.Run("offline sweep skips every record", func(t *testing.T) {
		env := newTestEnv(t, false)
		createOffline(t, env, "A", "B")

		report, err := env.engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}
		if report.Skipped != 2 || report.Attempted() != 0 {
			t.Errorf("Synchronize() report = %+v, want 2 skipped", report)
		}
		if env.remote.TotalCalls() != 0 {
			t.Errorf("remote called %d times while offline, want 0", env.remote.TotalCalls())
		}
	})

	t.Run("sweep only touches the caller's records", func(t *testing.T) {
		env := newTestEnv(t, false)
		createOffline(t, env, "Alice's")
		if _, err := env.engine.Create(ctx, "bob", habit.Input{Title: "Bob's"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		env.conn.Set(true)

		report, err := env.engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}
		if report.Remapped != 1 {
			t.Errorf("Synchronize() report = %+v, want 1 remapped", report)
		}
		if n := len(env.remoteHabits(t, "bob")); n != 0 {
			t.Errorf("bob has %d remote documents, want 0", n)
		}
	})

	t.Run("log entries follow the promoted habit", func(t *testing.T) {
		env := newTestEnv(t, false)
		h := createOffline(t, env, "Read")[0]
		if _, err := env.engine.AddLog(ctx, owner, h.ID, habit.LogInput{DurationMin: 15}); err != nil {
			t.Fatalf("AddLog() error = %v", err)
		}
		env.conn.Set(true)

		if _, err := env.engine.Synchronize(ctx, owner); err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}

		docs := env.remoteHabits(t, owner)
		if len(docs) != 1 {
			t.Fatalf("remote holds %d documents, want 1", len(docs))
		}
		logs, err := env.engine.Logs(ctx, owner, docs[0].ID)
		if err != nil {
			t.Fatalf("Logs() error = %v", err)
		}
		if len(logs) != 1 || logs[0].HabitID != docs[0].ID {
			t.Errorf("Logs() = %+v, want the entry re-pointed to %s", logs, docs[0].ID)
		}
	})

	t.Run("connection lost mid-sweep leaves the rest pending", func(t *testing.T) {
		env := newTestEnv(t, false)
		createOffline(t, env, "A", "B", "C")
		env.conn.Set(true)

		// Drop the connection as soon as the first document lands.
		dropping := &droppingRemote{FlakyRemote: env.remote, conn: env.conn}
		engine := habit.NewEngine(env.local, dropping, env.conn, nil, env.clock, testutil.NewStubIDGenerator())

		report, err := engine.Synchronize(ctx, owner)
		if err != nil {
			t.Fatalf("Synchronize() error = %v", err)
		}
		if report.Remapped != 1 || report.Skipped != 2 {
			t.Errorf("Synchronize() report = %+v, want 1 remapped and 2 skipped", report)
		}

		pending, err := env.local.ListUnsynced(ctx, owner)
		if err != nil {
			t.Fatalf("ListUnsynced() error = %v", err)
		}
		if len(pending) != 2 {
			t.Errorf("pending = %d, want 2", len(pending))
		}
	})
}

type droppingRemote struct {
	*testutil.FlakyRemote
	conn interface{ Set(bool) }
}

func (d *droppingRemote) Create(ctx context.Context, owner string, doc habit.Document) (string, error) {
	id, err := d.FlakyRemote.Create(ctx, owner, doc)
	d.conn.Set(false)
	return id, err
}
