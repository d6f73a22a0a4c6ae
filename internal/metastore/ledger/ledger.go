// Package ledger is an auxiliary, rebuildable sqlite-backed index recording
// when each split was staged, used by the garbage collector's minimum-age
// filter (see DESIGN.md's Open Question resolution for spec.md §9). It is
// never the source of truth for split state — the metastore JSON file is —
// so a missing or stale ledger entry only means GC treats that split's age
// as unknown, never a correctness problem.
package ledger

import (
	"database/sql"
	"embed"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Ledger wraps a small sqlite database, grounded on the teacher's
// internal/db.NewSqliteStore shape (WAL mode, busy timeout, migrate-on-open)
// trimmed down: no backup-before-migrate step, since this table is
// rebuildable from the metastore and source data, not a loss if wiped.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite ledger at path and applies
// any pending migrations.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	// SQLite is single-writer; avoid handing out more than one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("ledger migration driver: %w", err)
	}

	source, err := httpfs.New(http.FS(migrationFiles), "migrations")
	if err != nil {
		return fmt.Errorf("ledger migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("migrations", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("ledger migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("ledger migration up: %w", err)
	}

	return nil
}

// Close closes the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordStaged records the moment a split was staged. Idempotent: a split
// that already has a recorded staged_at is left untouched, since a split's
// age is measured from when it was *first* staged.
func (l *Ledger) RecordStaged(splitID string, stagedAt time.Time) error {
	_, err := l.db.Exec(
		`INSERT INTO split_staged_at (split_id, staged_at_unix_nano)
		 VALUES (?, ?)
		 ON CONFLICT(split_id) DO NOTHING`,
		splitID, stagedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record staged: %w", err)
	}
	return nil
}

// Age returns how long ago splitID was staged. ok is false if the ledger has
// no record for it (e.g. the ledger was rebuilt, or the split predates the
// ledger); callers must treat that as "age unknown", not "age zero".
func (l *Ledger) Age(splitID string, now time.Time) (age time.Duration, ok bool, err error) {
	var stagedAtNano int64
	row := l.db.QueryRow(
		`SELECT staged_at_unix_nano FROM split_staged_at WHERE split_id = ?`,
		splitID,
	)
	if scanErr := row.Scan(&stagedAtNano); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query staged_at: %w", scanErr)
	}

	return now.Sub(time.Unix(0, stagedAtNano)), true, nil
}

// Forget removes a split's ledger entry, called once it has been deleted
// from both the metastore and storage.
func (l *Ledger) Forget(splitID string) error {
	_, err := l.db.Exec(`DELETE FROM split_staged_at WHERE split_id = ?`, splitID)
	if err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	return nil
}
