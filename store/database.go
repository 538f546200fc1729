package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

type collection struct {
	name          string
	keyPath       string
	autoIncrement bool
}

// Database is an open handle to one named database. Handles are created
// by Engine.Open and live for the whole session.
type Database struct {
	name        string
	sql         *sql.DB
	logger      *slog.Logger
	collections map[string]collection
}

// Name returns the database name the handle was opened under.
func (d *Database) Name() string {
	return d.name
}

// Mode selects what a transaction may do with its collections.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Transact runs body as one atomic unit against the named collections:
// either every operation inside body becomes visible, or none does.
// Body returning an error rolls the transaction back and Transact
// returns that error unchanged. Using a collection that was not
// declared here fails with ErrUnknownCollection.
func (d *Database) Transact(ctx context.Context, collections []string, mode Mode, body func(tx *Tx) error) error {
	scope := make(map[string]collection, len(collections))
	for _, name := range collections {
		c, ok := d.collections[name]
		if !ok {
			return fmt.Errorf("%w: %q in %q", ErrUnknownCollection, name, d.name)
		}
		scope[name] = c
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	t := &Tx{tx: tx, mode: mode, scope: scope}
	if err := body(t); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			d.logger.Error("rollback failed", "database", d.name, "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}
