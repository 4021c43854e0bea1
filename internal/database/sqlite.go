package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"habitsync/internal/database/migrations"
	"habitsync/internal/habit"
)

// SQLiteStore implements habit.LocalStore using SQLite.
// Timestamps are stored as Unix nanoseconds in UTC.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the SQLite database at path.
// path can be a file path or ":memory:" for an in-memory database.
// The schema is not touched; call Migrate or CheckMigrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite database connection.
// An in-memory database lives and dies with its connection, so the pool is
// pinned to a single one.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return db, nil
}

// Habits

const habitColumns = `id, owner, title, description, synced, reminder_at, notified, created_at, updated_at`

const upsertHabit = `INSERT INTO habits (` + habitColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	owner = excluded.owner,
	title = excluded.title,
	description = excluded.description,
	synced = excluded.synced,
	reminder_at = excluded.reminder_at,
	notified = excluded.notified,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (*habit.Habit, error) {
	var (
		h          habit.Habit
		synced     bool
		notified   bool
		reminderAt sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&h.ID, &h.Owner, &h.Title, &h.Description, &synced, &reminderAt, &notified, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	h.Synced = synced
	h.Notified = notified
	h.CreatedAt = fromNanos(createdAt)
	h.UpdatedAt = fromNanos(updatedAt)
	if reminderAt.Valid {
		t := fromNanos(reminderAt.Int64)
		h.ReminderAt = &t
	}
	return &h, nil
}

func habitArgs(h *habit.Habit) []any {
	var reminderAt sql.NullInt64
	if h.ReminderAt != nil {
		reminderAt = sql.NullInt64{Int64: h.ReminderAt.UnixNano(), Valid: true}
	}
	return []any{h.ID, h.Owner, h.Title, h.Description, h.Synced, reminderAt, h.Notified, h.CreatedAt.UnixNano(), h.UpdatedAt.UnixNano()}
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func (s *SQLiteStore) GetHabit(ctx context.Context, id string) (*habit.Habit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting habit: %w", err)
	}
	return h, nil
}

func (s *SQLiteStore) ListHabits(ctx context.Context, owner string) ([]*habit.Habit, error) {
	return s.listHabits(ctx, `SELECT `+habitColumns+` FROM habits WHERE owner = ? ORDER BY created_at, id`, owner)
}

func (s *SQLiteStore) ListUnsynced(ctx context.Context, owner string) ([]*habit.Habit, error) {
	return s.listHabits(ctx, `SELECT `+habitColumns+` FROM habits WHERE owner = ? AND synced = 0 ORDER BY created_at, id`, owner)
}

func (s *SQLiteStore) listHabits(ctx context.Context, query string, args ...any) ([]*habit.Habit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	defer rows.Close()

	var habits []*habit.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning habit: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	return habits, nil
}

func (s *SQLiteStore) AddHabit(ctx context.Context, h *habit.Habit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO habits (`+habitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, habitArgs(h)...)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return fmt.Errorf("%w: %s", habit.ErrDuplicateID, h.ID)
		}
		return fmt.Errorf("adding habit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutHabit(ctx context.Context, h *habit.Habit) error {
	return putHabit(ctx, s.db, h)
}

func putHabit(ctx context.Context, q queryer, h *habit.Habit) error {
	if _, err := q.ExecContext(ctx, upsertHabit, habitArgs(h)...); err != nil {
		return fmt.Errorf("putting habit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteHabit(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting habit: %w", err)
	}
	return nil
}

// ReplaceHabitID swaps the record keyed by oldID for h in one transaction, so
// a crash leaves either the old record or the new one, never both or neither.
func (s *SQLiteStore) ReplaceHabitID(ctx context.Context, oldID string, h *habit.Habit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, oldID); err != nil {
		return fmt.Errorf("deleting habit %s: %w", oldID, err)
	}
	if err := putHabit(ctx, tx, h); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE habit_logs SET habit_id = ? WHERE habit_id = ?`, h.ID, oldID); err != nil {
		return fmt.Errorf("re-pointing logs of %s: %w", oldID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Activity logs

const logColumns = `id, habit_id, owner, duration_min, notes, logged_at, created_at`

func scanLog(row rowScanner) (*habit.LogEntry, error) {
	var (
		e         habit.LogEntry
		loggedAt  int64
		createdAt int64
	)
	if err := row.Scan(&e.ID, &e.HabitID, &e.Owner, &e.DurationMin, &e.Notes, &loggedAt, &createdAt); err != nil {
		return nil, err
	}
	e.LoggedAt = fromNanos(loggedAt)
	e.CreatedAt = fromNanos(createdAt)
	return &e, nil
}

func (s *SQLiteStore) AddLog(ctx context.Context, e *habit.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO habit_logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.HabitID, e.Owner, e.DurationMin, e.Notes, e.LoggedAt.UnixNano(), e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("adding log entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLogs(ctx context.Context, habitID string) ([]*habit.LogEntry, error) {
	return s.listLogs(ctx, `SELECT `+logColumns+` FROM habit_logs WHERE habit_id = ? ORDER BY logged_at DESC, id`, habitID)
}

func (s *SQLiteStore) ListLogsBetween(ctx context.Context, owner string, start, end time.Time) ([]*habit.LogEntry, error) {
	return s.listLogs(ctx, `SELECT `+logColumns+` FROM habit_logs WHERE owner = ? AND logged_at >= ? AND logged_at < ? ORDER BY logged_at, id`,
		owner, start.UnixNano(), end.UnixNano())
}

func (s *SQLiteStore) listLogs(ctx context.Context, query string, args ...any) ([]*habit.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}
	defer rows.Close()

	var entries []*habit.LogEntry
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}
	return entries, nil
}

// Maintenance

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// Migrate brings the schema up to the latest embedded version.
func (s *SQLiteStore) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the current and latest schema versions.
func (s *SQLiteStore) MigrationStatus() (migrations.Status, error) {
	return migrations.ReadStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ habit.LocalStore = (*SQLiteStore)(nil)
