// Package sqliteutils opens and migrates the embedded SQLite ledger store.
package sqliteutils

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverName = "sqlite3"
	MemoryPath = ":memory:"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DSN builds a connection string for path. Every transaction is opened with
// BEGIN IMMEDIATE so writers take the database lock up front.
func DSN(path string) string {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")

	if path == MemoryPath {
		return "file::memory:?" + q.Encode()
	}

	q.Set("_journal_mode", "WAL")

	return "file:" + path + "?" + q.Encode()
}

// OpenDB opens the database at path and applies the embedded migrations.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}

	if path == MemoryPath {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(8)
	}

	err = db.PingContext(ctx)
	if err != nil {
		//nolint:errcheck
		db.Close()

		return nil, fmt.Errorf("ping: %w", err)
	}

	err = Migrate(db)
	if err != nil {
		//nolint:errcheck
		db.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded schema. The migrate instance is not closed:
// closing the sqlite3 driver would close db as well.
func Migrate(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlite3 driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("m.Up: %w", err)
	}

	return nil
}
