// Package sqlite provides SQLite-backed implementations of the event
// store, outbox, and read model contracts. It uses a pure Go driver with
// no CGo dependencies, so the binary stays a single static artifact.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// config holds internal configuration for a SQLite database handle.
type config struct {
	// dsn is the data source name (file path or ":memory:" for in-memory)
	dsn string

	// maxOpenConns sets the maximum number of open connections
	maxOpenConns int

	// maxIdleConns sets the maximum number of idle connections
	maxIdleConns int

	// walMode enables write-ahead logging for better concurrency
	walMode bool

	// autoMigrate automatically runs pending migrations on open
	autoMigrate bool
}

// defaultConfig returns sensible defaults.
func defaultConfig() config {
	return config{
		dsn:          "timeentries.db",
		maxOpenConns: 25,
		maxIdleConns: 5,
		walMode:      true,
		autoMigrate:  true,
	}
}

// Option is a function that configures a database handle.
type Option func(*config)

// WithDSN sets the data source name (file path or ":memory:" for in-memory).
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

// WithMemoryDatabase sets the database to an in-memory database.
func WithMemoryDatabase() Option {
	return func(c *config) {
		c.dsn = ":memory:"
	}
}

// WithMaxOpenConns sets the maximum number of open connections to the database.
func WithMaxOpenConns(n int) Option {
	return func(c *config) {
		c.maxOpenConns = n
	}
}

// WithMaxIdleConns sets the maximum number of idle connections in the pool.
func WithMaxIdleConns(n int) Option {
	return func(c *config) {
		c.maxIdleConns = n
	}
}

// WithWALMode enables write-ahead logging for better concurrency.
// Recommended for file databases, not available for :memory: databases.
func WithWALMode(enabled bool) Option {
	return func(c *config) {
		c.walMode = enabled
	}
}

// WithAutoMigrate enables automatic migration on open.
func WithAutoMigrate(enabled bool) Option {
	return func(c *config) {
		c.autoMigrate = enabled
	}
}

// DB is a shared SQLite handle. The event store, outbox, and read model
// stores are all constructed over the same handle so they share one
// schema and one connection pool.
type DB struct {
	db *sql.DB
}

// Open opens a SQLite database with the given options.
//
// Example usage:
//
//	// Use defaults (timeentries.db, WAL mode, auto-migrate)
//	db, err := sqlite.Open()
//
//	// In-memory database for testing
//	db, err := sqlite.Open(sqlite.WithMemoryDatabase())
func Open(opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite", cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// For :memory: databases a single connection is required, otherwise
	// each connection gets its own isolated in-memory database.
	if cfg.dsn == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.maxOpenConns)
		db.SetMaxIdleConns(cfg.maxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	if cfg.walMode {
		if _, err := db.Exec(`
			PRAGMA journal_mode = WAL;
			PRAGMA synchronous = NORMAL;
			PRAGMA foreign_keys = ON;
		`); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set WAL mode: %w", err)
		}
	}

	if cfg.autoMigrate {
		if err := runMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DB{db: db}, nil
}

// Handle exposes the raw database handle, mainly for tests and ad-hoc
// maintenance queries.
func (d *DB) Handle() *sql.DB {
	return d.db
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}
