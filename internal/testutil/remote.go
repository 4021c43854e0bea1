package testutil

import (
	"context"
	"sync"

	"habitsync/internal/habit"
	"habitsync/internal/remote"
)

// Remote operation names understood by FlakyRemote.
const (
	OpCreate = "create"
	OpList   = "list"
	OpUpdate = "update"
	OpDelete = "delete"
)

// FlakyRemote wraps a real remote store and injects failures on demand.
// It counts every call that reaches it, failed or not. Safe for concurrent use.
type FlakyRemote struct {
	inner habit.RemoteStore

	mu         sync.Mutex
	failOps    map[string]error
	failTitles map[string]error
	calls      map[string]int
}

var _ habit.RemoteStore = (*FlakyRemote)(nil)

// NewTestRemote creates a FlakyRemote over an unencrypted in-memory client.
func NewTestRemote() *FlakyRemote {
	return NewFlakyRemote(remote.NewClient(remote.NewMemoryBackend("test-remote"), nil))
}

func NewFlakyRemote(inner habit.RemoteStore) *FlakyRemote {
	return &FlakyRemote{
		inner:      inner,
		failOps:    make(map[string]error),
		failTitles: make(map[string]error),
		calls:      make(map[string]int),
	}
}

// Inner returns the wrapped store, bypassing failure injection and counting.
func (f *FlakyRemote) Inner() habit.RemoteStore { return f.inner }

// FailOn makes every call of op return err. A nil err clears the failure.
func (f *FlakyRemote) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failOps, op)
		return
	}
	f.failOps[op] = err
}

// FailAll makes every operation return err, as a dropped connection would.
func (f *FlakyRemote) FailAll(err error) {
	for _, op := range []string{OpCreate, OpList, OpUpdate, OpDelete} {
		f.FailOn(op, err)
	}
}

// FailTitle makes creates and updates of documents titled title return err.
func (f *FlakyRemote) FailTitle(title string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failTitles, title)
		return
	}
	f.failTitles[title] = err
}

// Reset clears every injected failure and the call counters.
func (f *FlakyRemote) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOps = make(map[string]error)
	f.failTitles = make(map[string]error)
	f.calls = make(map[string]int)
}

// Calls returns how many times op was invoked.
func (f *FlakyRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of invocations across all operations.
func (f *FlakyRemote) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FlakyRemote) enter(op, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if err, ok := f.failOps[op]; ok {
		return err
	}
	if title != "" {
		if err, ok := f.failTitles[title]; ok {
			return err
		}
	}
	return nil
}

func (f *FlakyRemote) Create(ctx context.Context, owner string, doc habit.Document) (string, error) {
	if err := f.enter(OpCreate, doc.Title); err != nil {
		return "", err
	}
	return f.inner.Create(ctx, owner, doc)
}

func (f *FlakyRemote) List(ctx context.Context, owner string) ([]habit.RemoteHabit, error) {
	if err := f.enter(OpList, ""); err != nil {
		return nil, err
	}
	return f.inner.List(ctx, owner)
}

func (f *FlakyRemote) Update(ctx context.Context, owner, id string, doc habit.Document) error {
	if err := f.enter(OpUpdate, doc.Title); err != nil {
		return err
	}
	return f.inner.Update(ctx, owner, id, doc)
}

func (f *FlakyRemote) Delete(ctx context.Context, owner, id string) error {
	if err := f.enter(OpDelete, ""); err != nil {
		return err
	}
	return f.inner.Delete(ctx, owner, id)
}

// Ping reports the failure injected for list, standing in for a
// reachability check.
func (f *FlakyRemote) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failOps[OpList]
}
