package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"habitsync/internal/config"
	"habitsync/internal/connectivity"
	"habitsync/internal/database"
	"habitsync/internal/database/migrations"
	"habitsync/internal/encryption"
	"habitsync/internal/habit"
	"habitsync/internal/remote"
)

// Options are the per-invocation overrides the CLI passes on top of the
// config file.
type Options struct {
	// Owner replaces cfg.Owner when set.
	Owner string
	// ForceOffline pins the connectivity oracle to offline.
	ForceOffline bool
	// Verbose mirrors the log to stderr.
	Verbose bool
	// Passphrase unlocks age keys. Only consulted for encryption type "age".
	Passphrase encryption.PassphraseFunc
}

// App is the application layer between the CLI and the habit engine.
// It constructs all dependencies from config, scopes every call to the
// signed-in owner, and releases resources on Close.
type App struct {
	cfg     *config.Config
	owner   string
	store   *database.SQLiteStore
	client  *remote.Client
	conn    habit.Connectivity
	engine  *habit.Engine
	clock   habit.Clock
	logger  *slog.Logger
	logFile io.Closer
	op      *Operation
}

// New creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "AddHabit", "Sync").
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	owner := cfg.Owner
	if opts.Owner != "" {
		owner = opts.Owner
	}
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: set owner in the config or pass --owner", habit.ErrAuthRequired)
	}

	clock := habit.RealClock{}
	op := NewOperation(operation, clock.Now())

	logger, logFile, err := newLogger(cfg.LogDir, op.ID, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	store, err := database.NewLocalStoreFromConfig(cfg.Database, cfg.DeviceID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating local store: %w", err)
	}

	if err := migrateStore(store, logger); err != nil {
		store.Close()
		logFile.Close()
		return nil, err
	}

	backend, err := remote.NewBackendFromConfig(ctx, cfg.Remote)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating remote backend: %w", err)
	}

	cipher, err := encryption.NewCipherFromConfig(cfg.Encryption, opts.Passphrase)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	client := remote.NewClient(backend, cipher)

	conn, err := connectivity.NewFromConfig(cfg.Connectivity, client, opts.ForceOffline, adapter)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating connectivity oracle: %w", err)
	}

	engine := habit.NewEngine(store, client, conn, adapter, clock, habit.UUIDGenerator{})

	logger.Info("operation started", "operation", op.Name, "owner", owner, "remote", client.Name())

	return &App{
		cfg:     cfg,
		owner:   owner,
		store:   store,
		client:  client,
		conn:    conn,
		engine:  engine,
		clock:   clock,
		logger:  logger,
		logFile: logFile,
		op:      op,
	}, nil
}

// migrateStore brings a fresh or outdated local store up to the embedded
// schema and refuses a dirty one.
func migrateStore(store *database.SQLiteStore, logger *slog.Logger) error {
	st, err := store.MigrationStatus()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if st.Dirty {
		return fmt.Errorf("database schema is dirty at version %d: repair %s manually", st.Current, store.Path())
	}
	if st.Pending() > 0 {
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		logger.Info("database migrated", "from", st.Current, "to", st.Latest)
	}
	if err := store.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}
	return nil
}

// Owner returns the identity every operation is scoped to.
func (a *App) Owner() string { return a.owner }

// Online reports whether the remote is currently reachable.
func (a *App) Online(ctx context.Context) bool { return a.conn.Online(ctx) }

// track records the outcome of a call on the operation and passes err through.
func (a *App) track(err error) error {
	if err != nil {
		a.op.Fail(err)
	}
	return err
}

func (a *App) AddHabit(ctx context.Context, in habit.Input) (*habit.Habit, error) {
	h, err := a.engine.Create(ctx, a.owner, in)
	return h, a.track(err)
}

func (a *App) GetHabit(ctx context.Context, id string) (*habit.Habit, error) {
	return a.engine.Get(ctx, a.owner, id)
}

func (a *App) EditHabit(ctx context.Context, id string, in habit.Input) (*habit.Habit, error) {
	h, err := a.engine.Edit(ctx, a.owner, id, in)
	return h, a.track(err)
}

func (a *App) RemoveHabit(ctx context.Context, id string) error {
	return a.track(a.engine.Delete(ctx, a.owner, id))
}

// ListHabits pushes pending changes when online, then merges the remote
// state into the local store and returns the owner's habits. When some
// changes could not be pushed the remote merge is skipped, so it cannot
// overwrite them; they are retried on the next sync.
func (a *App) ListHabits(ctx context.Context) ([]*habit.Habit, error) {
	if a.conn.Online(ctx) {
		report, err := a.engine.Synchronize(ctx, a.owner)
		if err != nil {
			return nil, a.track(err)
		}
		if report.Failed > 0 {
			a.logger.Warn("pending changes not pushed, showing local habits", "failed", report.Failed)
			a.op.Fail(fmt.Errorf("%d record(s) failed to sync", report.Failed))
			habits, err := a.engine.Cached(ctx, a.owner)
			return habits, a.track(err)
		}
	}
	habits, err := a.engine.Load(ctx, a.owner)
	return habits, a.track(err)
}

// Sync runs one reconciliation sweep.
func (a *App) Sync(ctx context.Context) (*habit.SyncReport, error) {
	report, err := a.engine.Synchronize(ctx, a.owner)
	if err == nil && report.Failed > 0 {
		a.op.Fail(fmt.Errorf("%d record(s) failed to sync", report.Failed))
	}
	return report, a.track(err)
}

func (a *App) AddLog(ctx context.Context, habitID string, in habit.LogInput) (*habit.LogEntry, error) {
	e, err := a.engine.AddLog(ctx, a.owner, habitID, in)
	return e, a.track(err)
}

func (a *App) Logs(ctx context.Context, habitID string) ([]*habit.LogEntry, error) {
	return a.engine.Logs(ctx, a.owner, habitID)
}

// WeeklyStats summarizes the week containing weekOf. A zero weekOf means
// the current week.
func (a *App) WeeklyStats(ctx context.Context, weekOf time.Time) (*habit.WeekStats, error) {
	if weekOf.IsZero() {
		weekOf = a.clock.Now()
	}
	return a.engine.WeeklyStats(ctx, a.owner, weekOf)
}

// Remind delivers every due reminder through n and returns how many fired.
func (a *App) Remind(ctx context.Context, n habit.Notifier) (int, error) {
	fired, err := a.engine.CheckReminders(ctx, a.owner, n)
	return fired, a.track(err)
}

// DBStatus reports the local schema version.
func (a *App) DBStatus() (migrations.Status, error) {
	return a.store.MigrationStatus()
}

// BackupDB snapshots the local store to destPath.
func (a *App) BackupDB(destPath string) error {
	if destPath == "" {
		return errors.New("backup path is required")
	}
	a.logger.Info("backing up database", "dest", destPath)
	return a.track(a.store.BackupTo(destPath))
}

// Close logs the operation outcome and closes all resources.
func (a *App) Close() error {
	var firstErr error

	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"duration", a.clock.Now().Sub(a.op.StartedAt).Truncate(time.Millisecond))

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log: %w", err)
		}
	}

	return firstErr
}
