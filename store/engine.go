// Package store wraps embedded SQLite into named, versioned databases
// of JSON record collections. Each database is one file under the
// engine's data directory; records are keyed either by a store-assigned
// auto-incrementing integer or by a string field of the record itself.
//
// All operations block until their transaction has committed or failed,
// so a read issued after a write returned nil is guaranteed to observe
// that write.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Engine opens and caches database handles. It is owned by the
// application root and shared by reference; repositories never open or
// close databases themselves.
type Engine struct {
	dir    string
	logger *slog.Logger

	mu   sync.Mutex
	open map[string]*Database
}

// NewEngine creates an engine storing its databases under dir.
func NewEngine(dir string, logger *slog.Logger) *Engine {
	return &Engine{
		dir:    dir,
		logger: logger,
		open:   make(map[string]*Database),
	}
}

// Open returns a handle to the named database, creating it at version
// if it does not exist yet and upgrading it if its stored version is
// behind. Open is idempotent: a second call for the same name returns
// the cached handle without touching the schema again.
//
// The upgrade routine runs exactly once, inside the transaction that
// bumps the stored version, and may only add collections and indexes.
// A stored version higher than the requested one is unrecoverable and
// fails wrapping ErrOpen.
func (e *Engine) Open(ctx context.Context, name string, version int, upgrade UpgradeFunc) (*Database, error) {
	if version < 1 {
		return nil, fmt.Errorf("%w: schema version %d is not positive", ErrOpen, version)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.open[name]; ok {
		return db, nil
	}

	db, err := e.openLocked(ctx, name, version, upgrade)
	if err != nil {
		return nil, err
	}
	e.open[name] = db
	return db, nil
}

func (e *Engine) openLocked(ctx context.Context, name string, version int, upgrade UpgradeFunc) (*Database, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	path := filepath.Join(e.dir, name+".db")
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	// WAL keeps readers unblocked while a write transaction is open.
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if _, err := sqlDB.ExecContext(ctx, metaSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	var stored int
	if err := sqlDB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&stored); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	switch {
	case stored > version:
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %q is at schema version %d, version %d was requested",
			ErrOpen, name, stored, version)
	case stored < version:
		if err := runUpgrade(ctx, sqlDB, stored, version, upgrade); err != nil {
			sqlDB.Close()
			return nil, err
		}
		e.logger.Info("database upgraded", "database", name, "from", stored, "to", version)
	}

	collections, err := loadCollections(ctx, sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	e.logger.Info("database opened", "database", name, "version", version, "path", path)
	return &Database{
		name:        name,
		sql:         sqlDB,
		logger:      e.logger,
		collections: collections,
	}, nil
}

func runUpgrade(ctx context.Context, sqlDB *sql.DB, stored, version int, upgrade UpgradeFunc) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if upgrade != nil {
		if err := upgrade(stored, version, &Upgrade{tx: tx}); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: upgrade %d to %d: %v", ErrOpen, stored, version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	return nil
}

// Close closes every database the engine has opened. Normal operation
// never calls this; it exists for shutdown and tests.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for name, db := range e.open {
		if err := db.sql.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.open, name)
	}
	return firstErr
}
