// Package sqlite is the persistent store for worktracker.
// One database file holds every collection; schema changes are goose
// migrations embedded in the binary.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/worktracker/worktracker/internal/domain"
	"github.com/worktracker/worktracker/internal/infra/sqlite/migrations"
)

// FileName is the database file created inside the data directory.
const FileName = "worktracker.db"

const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// goose keeps its settings in package globals.
var migrateMu sync.Mutex

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements domain.Repository over any querier.
type queries struct {
	q querier
}

// DB is the SQLite-backed domain.Store.
type DB struct {
	queries
	db   *sql.DB
	path string
}

var _ domain.Store = (*DB)(nil)

// Open opens (or creates) the database inside dir and applies migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return OpenPath(filepath.Join(dir, FileName))
}

// OpenPath opens the database file at path and applies migrations.
func OpenPath(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", filepath.Clean(path)+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps writers serialized and pragmas applied.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &DB{queries: queries{q: sqlDB}, db: sqlDB, path: path}, nil
}

func migrate(sqlDB *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(context.Background(), sqlDB, ".")
}

// Close closes the database handle.
func (db *DB) Close() error {
	if db == nil || db.db == nil {
		return nil
	}
	return db.db.Close()
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// InTx runs fn inside one transaction. The transaction commits only if fn
// returns nil.
func (db *DB) InTx(ctx context.Context, fn func(tx domain.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit tx", err)
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StoreError{Op: op, Err: err}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
