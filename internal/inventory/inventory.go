// Package inventory owns the SQLite database the search engine queries: the
// schema, the demo data set and the SQL functions the generated statements
// rely on.
package inventory

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

//go:embed schema.sql
var schemaSQL string

//go:embed seed.sql
var seedSQL string

// SchemaVersion is stored in the meta table and bumped on incompatible
// schema changes.
const SchemaVersion = 1

var (
	// ErrLocked indicates another process is creating the database.
	ErrLocked = errors.New("inventory is locked by another process")
	// ErrNotEmpty is returned by Seed when the inventory already has rows.
	ErrNotEmpty = errors.New("inventory already contains data")
)

// DB is the inventory database handle.
type DB struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Option configures Open.
type Option func(*DB)

// WithLogger sets the logger used for schema and seed messages.
func WithLogger(l zerolog.Logger) Option {
	return func(d *DB) { d.logger = l }
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newDB(db, path, opts)
}

// OpenInMemory opens a private in-memory database (for tests and demos).
func OpenInMemory(opts ...Option) (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every pooled connection would see its own empty database.
	db.SetMaxOpenConns(1)
	return newDB(db, ":memory:", opts)
}

func newDB(db *sql.DB, path string, opts []Option) (*DB, error) {
	d := &DB{db: db, path: path, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Create opens the database at path under an exclusive lock. With force,
// an existing database is removed first. The demo data set is loaded when
// the database is empty.
func Create(ctx context.Context, path string, force bool, opts ...Option) (*DB, error) {
	dir := filepath.Dir(path)
	lock, err := acquireLock(dir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	if force {
		if err := removeDatabaseFiles(path); err != nil {
			return nil, err
		}
	}
	d, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Seed(ctx); err != nil && !errors.Is(err, ErrNotEmpty) {
		d.Close()
		return nil, err
	}
	return d, nil
}

// DB returns the underlying sql.DB.
func (d *DB) DB() *sql.DB {
	return d.db
}

// Path is the database file, or ":memory:".
func (d *DB) Path() string {
	return d.path
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initialize() error {
	pragmas := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
	`
	if d.path != ":memory:" {
		if _, err := d.db.Exec(pragmas); err != nil {
			return fmt.Errorf("failed to configure database: %w", err)
		}
	}
	if _, err := d.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := d.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprint(SchemaVersion),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// IsEmpty reports whether the inventory holds no computers.
func (d *DB) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM glpi_computers").Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

// Seed loads the demo data set in one transaction. It returns ErrNotEmpty
// when the inventory already has rows.
func (d *DB) Seed(ctx context.Context) error {
	empty, err := d.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return ErrNotEmpty
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, seedSQL); err != nil {
		return fmt.Errorf("failed to load demo data: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	d.logger.Info().Str("path", d.path).Msg("loaded demo inventory")
	return nil
}

// Tables lists the user tables present in the database.
func (d *DB) Tables(ctx context.Context) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// CheckRegistry verifies that every table declared in the registry exists.
// Plugin catalogs can declare tables this schema does not create.
func (d *DB) CheckRegistry(ctx context.Context, reg *searchopt.Registry) error {
	have, err := d.Tables(ctx)
	if err != nil {
		return err
	}
	var missing []string
	for _, t := range reg.Tables() {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("inventory is missing tables: %v", missing)
	}
	return nil
}

func removeDatabaseFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}
