/*
Package sqlite provides SQLite-backed persistence for the reconciliation engine.

PURPOSE:
  Holds the five input relations as replaceable snapshots (time entries,
  roster, lifecycle windows, leave windows, calendar) and the mutable
  justification table. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

SNAPSHOT SEMANTICS:
  Reference tables are read-only for the duration of a run. Each Replace*
  method swaps the whole relation atomically inside one SQL transaction, so
  a concurrent run never observes a half-loaded source. A missing source is
  simply an empty table.

JUSTIFICATION MUTATIONS:
  The justification table is the one read-modify-write path. Records keep a
  stable UUID id, and the positional surface (append, edit by position,
  delete by position) is validated against the current ordered list. All
  three mutations hold the store mutex, so two simultaneous edits serialize
  instead of racing.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  snapshot, err := store.LoadInputs(ctx)
  result, err := engine.Run(snapshot)

SEE ALSO:
  - reconcile/engine.go: Consumes the loaded snapshot
  - reconcile/errors.go: PositionError returned by positional mutations
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/reconcile"
)

// Store implements snapshot and justification persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Raw time entries (replaced wholesale on each upload)
	CREATE TABLE IF NOT EXISTS time_entries (
		person TEXT NOT NULL,
		discipline TEXT NOT NULL,
		work_date TEXT NOT NULL,
		normal_hours TEXT NOT NULL,
		extra_hours TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_key
		ON time_entries(person, discipline, work_date);

	-- Roster (person, discipline, employment category)
	CREATE TABLE IF NOT EXISTS roster (
		person TEXT NOT NULL,
		discipline TEXT NOT NULL,
		category TEXT NOT NULL
	);

	-- Admission/termination windows
	CREATE TABLE IF NOT EXISTS lifecycle_windows (
		person TEXT NOT NULL,
		discipline TEXT NOT NULL,
		admission TEXT,
		termination TEXT
	);

	-- Vacation and medical-leave intervals
	CREATE TABLE IF NOT EXISTS leave_windows (
		person TEXT NOT NULL,
		discipline TEXT NOT NULL,
		kind TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);

	-- Chargeable-day calendar (empty table = no calendar source)
	CREATE TABLE IF NOT EXISTS calendar_days (
		work_date TEXT PRIMARY KEY,
		chargeable BOOLEAN NOT NULL
	);

	-- Justifications keep insertion order for the positional surface and a
	-- stable UUID id for everything else
	CREATE TABLE IF NOT EXISTS justifications (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		person TEXT NOT NULL,
		discipline TEXT NOT NULL,
		work_date TEXT NOT NULL,
		code TEXT NOT NULL,
		context TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_justifications_key
		ON justifications(person, discipline, work_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOT REPLACEMENT
// =============================================================================

// ReplaceEntries swaps the full time-entry relation.
func (s *Store) ReplaceEntries(ctx context.Context, entries []reconcile.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM time_entries"); err != nil {
			return err
		}
		for _, e := range entries {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO time_entries (person, discipline, work_date, normal_hours, extra_hours) VALUES (?, ?, ?, ?, ?)",
				e.Person, e.Discipline, e.Date.String(), e.NormalHours.String(), e.ExtraHours.String(),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceRoster swaps the full roster relation.
func (s *Store) ReplaceRoster(ctx context.Context, members []reconcile.RosterMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM roster"); err != nil {
			return err
		}
		for _, m := range members {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO roster (person, discipline, category) VALUES (?, ?, ?)",
				m.Person, m.Discipline, m.Category,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceLifecycle swaps the admission/termination relation.
func (s *Store) ReplaceLifecycle(ctx context.Context, windows []reconcile.LifecycleWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM lifecycle_windows"); err != nil {
			return err
		}
		for _, w := range windows {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO lifecycle_windows (person, discipline, admission, termination) VALUES (?, ?, ?, ?)",
				w.Person, w.Discipline, nullDay(w.Admission), nullDay(w.Termination),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceLeaves swaps the leave-window relation.
func (s *Store) ReplaceLeaves(ctx context.Context, windows []reconcile.LeaveWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM leave_windows"); err != nil {
			return err
		}
		for _, w := range windows {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO leave_windows (person, discipline, kind, start_date, end_date) VALUES (?, ?, ?, ?, ?)",
				w.Person, w.Discipline, w.Kind, w.Start.String(), w.End.String(),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceCalendar swaps the chargeable-day calendar. An empty map removes
// the calendar source entirely (every day becomes chargeable, fail-open).
func (s *Store) ReplaceCalendar(ctx context.Context, days map[reconcile.Day]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_days"); err != nil {
			return err
		}
		for d, chargeable := range days {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO calendar_days (work_date, chargeable) VALUES (?, ?)",
				d.String(), chargeable,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// SNAPSHOT LOADING
// =============================================================================

// LoadInputs reads the full snapshot the engine consumes. Missing sources
// come back as empty relations; the engine decides what that means.
func (s *Store) LoadInputs(ctx context.Context) (reconcile.Inputs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var in reconcile.Inputs
	var err error

	if in.Entries, err = s.listEntries(ctx); err != nil {
		return in, err
	}
	members, err := s.listRoster(ctx)
	if err != nil {
		return in, err
	}
	in.Roster = reconcile.NewRoster(members)
	if in.Lifecycle, err = s.listLifecycle(ctx); err != nil {
		return in, err
	}
	if in.Leaves, err = s.listLeaves(ctx); err != nil {
		return in, err
	}
	if in.Calendar, err = s.loadCalendar(ctx); err != nil {
		return in, err
	}
	if in.Justifications, err = s.listJustifications(ctx); err != nil {
		return in, err
	}
	return in, nil
}

func (s *Store) listEntries(ctx context.Context) ([]reconcile.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT person, discipline, work_date, normal_hours, extra_hours FROM time_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	var entries []reconcile.TimeEntry
	for rows.Next() {
		var person, discipline, date, normal, extra string
		if err := rows.Scan(&person, &discipline, &date, &normal, &extra); err != nil {
			return nil, err
		}
		day, err := reconcile.ParseDay(date)
		if err != nil {
			return nil, fmt.Errorf("corrupt work_date %q: %w", date, err)
		}
		normalD, err := decimal.NewFromString(normal)
		if err != nil {
			return nil, fmt.Errorf("corrupt normal_hours %q: %w", normal, err)
		}
		extraD, err := decimal.NewFromString(extra)
		if err != nil {
			return nil, fmt.Errorf("corrupt extra_hours %q: %w", extra, err)
		}
		entries = append(entries, reconcile.TimeEntry{
			Person:      reconcile.PersonID(person),
			Discipline:  reconcile.Discipline(discipline),
			Date:        day,
			NormalHours: normalD,
			ExtraHours:  extraD,
		})
	}
	return entries, rows.Err()
}

func (s *Store) listRoster(ctx context.Context) ([]reconcile.RosterMember, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT person, discipline, category FROM roster")
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var members []reconcile.RosterMember
	for rows.Next() {
		var m reconcile.RosterMember
		if err := rows.Scan(&m.Person, &m.Discipline, &m.Category); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) listLifecycle(ctx context.Context) ([]reconcile.LifecycleWindow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT person, discipline, admission, termination FROM lifecycle_windows")
	if err != nil {
		return nil, fmt.Errorf("failed to query lifecycle windows: %w", err)
	}
	defer rows.Close()

	var windows []reconcile.LifecycleWindow
	for rows.Next() {
		var w reconcile.LifecycleWindow
		var admission, termination sql.NullString
		if err := rows.Scan(&w.Person, &w.Discipline, &admission, &termination); err != nil {
			return nil, err
		}
		if w.Admission, err = scanDay(admission); err != nil {
			return nil, err
		}
		if w.Termination, err = scanDay(termination); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (s *Store) listLeaves(ctx context.Context) ([]reconcile.LeaveWindow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT person, discipline, kind, start_date, end_date FROM leave_windows")
	if err != nil {
		return nil, fmt.Errorf("failed to query leave windows: %w", err)
	}
	defer rows.Close()

	var windows []reconcile.LeaveWindow
	for rows.Next() {
		var w reconcile.LeaveWindow
		var start, end string
		if err := rows.Scan(&w.Person, &w.Discipline, &w.Kind, &start, &end); err != nil {
			return nil, err
		}
		if w.Start, err = reconcile.ParseDay(start); err != nil {
			return nil, err
		}
		if w.End, err = reconcile.ParseDay(end); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (s *Store) loadCalendar(ctx context.Context) (reconcile.Calendar, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT work_date, chargeable FROM calendar_days")
	if err != nil {
		return reconcile.Calendar{}, fmt.Errorf("failed to query calendar: %w", err)
	}
	defer rows.Close()

	days := make(map[reconcile.Day]bool)
	for rows.Next() {
		var date string
		var chargeable bool
		if err := rows.Scan(&date, &chargeable); err != nil {
			return reconcile.Calendar{}, err
		}
		day, err := reconcile.ParseDay(date)
		if err != nil {
			return reconcile.Calendar{}, fmt.Errorf("corrupt calendar date %q: %w", date, err)
		}
		days[day] = chargeable
	}
	if err := rows.Err(); err != nil {
		return reconcile.Calendar{}, err
	}
	if len(days) == 0 {
		return reconcile.NoCalendar(), nil
	}
	return reconcile.NewCalendar(days), nil
}

// HasAnyInput reports whether at least one input source carries rows.
// Used by callers to distinguish "empty report" from "nothing was loaded".
func (s *Store) HasAnyInput(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM time_entries)
		     + (SELECT COUNT(*) FROM roster)
	`).Scan(&count)
	return count > 0, err
}

// =============================================================================
// JUSTIFICATION STORE
// =============================================================================

// ListJustifications returns all justifications in positional order.
func (s *Store) ListJustifications(ctx context.Context) ([]reconcile.Justification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listJustifications(ctx)
}

func (s *Store) listJustifications(ctx context.Context) ([]reconcile.Justification, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, person, discipline, work_date, code, context FROM justifications ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query justifications: %w", err)
	}
	defer rows.Close()

	var records []reconcile.Justification
	for rows.Next() {
		var j reconcile.Justification
		var date string
		if err := rows.Scan(&j.ID, &j.Person, &j.Discipline, &date, &j.Code, &j.Context); err != nil {
			return nil, err
		}
		if j.Date, err = reconcile.ParseDay(date); err != nil {
			return nil, fmt.Errorf("corrupt justification date %q: %w", date, err)
		}
		records = append(records, j)
	}
	return records, rows.Err()
}

// AppendJustification adds one record and returns it with its assigned id
// and its zero-based position at the end of the list.
func (s *Store) AppendJustification(ctx context.Context, j reconcile.Justification) (reconcile.Justification, int, error) {
	if !reconcile.KnownDeviation(j.Code) {
		return j, 0, fmt.Errorf("%w: %q", reconcile.ErrUnknownDeviation, j.Code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO justifications (id, person, discipline, work_date, code, context, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		j.ID, j.Person, j.Discipline, j.Date.String(), j.Code, j.Context,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return j, 0, fmt.Errorf("failed to append justification: %w", err)
	}
	count, err := s.countJustifications(ctx)
	if err != nil {
		return j, 0, err
	}
	return j, count - 1, nil
}

// EditJustification replaces the record at the given position. The stored
// UUID id is preserved; only the caller-editable fields change. Out-of-range
// positions are rejected with no partial write.
func (s *Store) EditJustification(ctx context.Context, position int, j reconcile.Justification) (reconcile.Justification, error) {
	if !reconcile.KnownDeviation(j.Code) {
		return j, fmt.Errorf("%w: %q", reconcile.ErrUnknownDeviation, j.Code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rowid, id, err := s.rowAt(ctx, position)
	if err != nil {
		return j, err
	}

	j.ID = id
	_, err = s.db.ExecContext(ctx,
		"UPDATE justifications SET person = ?, discipline = ?, work_date = ?, code = ?, context = ? WHERE position = ?",
		j.Person, j.Discipline, j.Date.String(), j.Code, j.Context, rowid,
	)
	if err != nil {
		return j, fmt.Errorf("failed to edit justification: %w", err)
	}
	return j, nil
}

// DeleteJustification removes the record at the given position.
func (s *Store) DeleteJustification(ctx context.Context, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rowid, _, err := s.rowAt(ctx, position)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM justifications WHERE position = ?", rowid)
	if err != nil {
		return fmt.Errorf("failed to delete justification: %w", err)
	}
	return nil
}

// rowAt resolves a zero-based list position to the underlying row.
func (s *Store) rowAt(ctx context.Context, position int) (rowid int64, id string, err error) {
	if position < 0 {
		length, _ := s.countJustifications(ctx)
		return 0, "", &reconcile.PositionError{Position: position, Length: length}
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT position, id FROM justifications ORDER BY position ASC LIMIT 1 OFFSET ?",
		position,
	).Scan(&rowid, &id)
	if err == sql.ErrNoRows {
		length, cerr := s.countJustifications(ctx)
		if cerr != nil {
			return 0, "", cerr
		}
		return 0, "", &reconcile.PositionError{Position: position, Length: length}
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to resolve position %d: %w", position, err)
	}
	return rowid, id, nil
}

func (s *Store) countJustifications(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM justifications").Scan(&count)
	return count, err
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func nullDay(d *reconcile.Day) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDay(s sql.NullString) (*reconcile.Day, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := reconcile.ParseDay(s.String)
	if err != nil {
		return nil, fmt.Errorf("corrupt date %q: %w", s.String, err)
	}
	return &d, nil
}
