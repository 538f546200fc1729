package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// metaSchema records each collection's key layout so a database can be
// reopened without re-declaring its collections.
const metaSchema = `CREATE TABLE IF NOT EXISTS _collections (
	name TEXT PRIMARY KEY,
	key_path TEXT NOT NULL,
	auto_increment INTEGER NOT NULL DEFAULT 0
)`

var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// UpgradeFunc migrates a database from its stored schema version to the
// requested one. It runs at most once per Open, inside the transaction
// that bumps the version.
type UpgradeFunc func(oldVersion, newVersion int, up *Upgrade) error

// CollectionOptions declares how records of a collection are keyed.
// With AutoIncrement the store assigns integer keys; otherwise the
// record's KeyPath field must hold a non-empty string key.
type CollectionOptions struct {
	KeyPath       string
	AutoIncrement bool
}

// Upgrade is the handle passed to an UpgradeFunc. It only exposes
// additive operations: collections and indexes that already exist are
// left untouched, and nothing can be dropped.
type Upgrade struct {
	tx *sql.Tx
}

// CreateCollection declares a collection, creating its table when
// missing.
func (u *Upgrade) CreateCollection(name string, opts CollectionOptions) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("store: invalid collection name %q", name)
	}
	keyPath := opts.KeyPath
	if keyPath == "" {
		keyPath = "id"
	}
	if !identPattern.MatchString(keyPath) {
		return fmt.Errorf("store: invalid key path %q", keyPath)
	}

	var ddl string
	if opts.AutoIncrement {
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (id INTEGER PRIMARY KEY AUTOINCREMENT, data TEXT NOT NULL)`, name)
	} else {
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (id TEXT PRIMARY KEY, data TEXT NOT NULL)`, name)
	}
	if _, err := u.tx.Exec(ddl); err != nil {
		return err
	}

	autoIncrement := 0
	if opts.AutoIncrement {
		autoIncrement = 1
	}
	_, err := u.tx.Exec(
		`INSERT OR IGNORE INTO _collections (name, key_path, auto_increment) VALUES (?, ?, ?)`,
		name, keyPath, autoIncrement,
	)
	return err
}

// CreateIndex adds a non-unique index over one record field. Indexes
// only accelerate lookups; no read depends on them.
func (u *Upgrade) CreateIndex(collection, field string) error {
	if !identPattern.MatchString(collection) {
		return fmt.Errorf("store: invalid collection name %q", collection)
	}
	if !identPattern.MatchString(field) {
		return fmt.Errorf("store: invalid index field %q", field)
	}
	stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (json_extract(data, '$.%s'))`,
		"idx_"+collection+"_"+field, collection, field)
	_, err := u.tx.Exec(stmt)
	return err
}

func loadCollections(ctx context.Context, sqlDB *sql.DB) (map[string]collection, error) {
	rows, err := sqlDB.QueryContext(ctx, `SELECT name, key_path, auto_increment FROM _collections`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collections := make(map[string]collection)
	for rows.Next() {
		var c collection
		var autoIncrement int
		if err := rows.Scan(&c.name, &c.keyPath, &autoIncrement); err != nil {
			return nil, err
		}
		c.autoIncrement = autoIncrement == 1
		collections[c.name] = c
	}
	return collections, rows.Err()
}
