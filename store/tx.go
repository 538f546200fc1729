package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Tx gives a transaction body access to its declared collections.
// Records cross the boundary as JSON objects; on the way out the key
// column is written back into the record's key field, so readers always
// see the authoritative identity.
type Tx struct {
	tx    *sql.Tx
	mode  Mode
	scope map[string]collection
}

// Insert adds a record. For auto-increment collections a record without
// a key gets a fresh one, which is returned; inserting at a key that is
// already taken fails with ErrConstraint.
func (t *Tx) Insert(name string, record json.RawMessage) (any, error) {
	c, err := t.use(name, true)
	if err != nil {
		return nil, err
	}
	fields, err := decodeRecord(record)
	if err != nil {
		return nil, err
	}

	if c.autoIncrement {
		id, err := keyFromFields(c, fields)
		if err != nil {
			return nil, err
		}
		payload, err := marshalWithoutKey(c, fields)
		if err != nil {
			return nil, err
		}
		if id != 0 {
			if _, err := t.tx.Exec(fmt.Sprintf(`INSERT INTO %q (id, data) VALUES (?, ?)`, c.name), id, payload); err != nil {
				return nil, mapSQLError(err)
			}
			return id, nil
		}
		res, err := t.tx.Exec(fmt.Sprintf(`INSERT INTO %q (data) VALUES (?)`, c.name), payload)
		if err != nil {
			return nil, mapSQLError(err)
		}
		assigned, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return assigned, nil
	}

	key, err := stringKeyFromFields(c, fields)
	if err != nil {
		return nil, err
	}
	if _, err := t.tx.Exec(fmt.Sprintf(`INSERT INTO %q (id, data) VALUES (?, ?)`, c.name), key, string(record)); err != nil {
		return nil, mapSQLError(err)
	}
	return key, nil
}

// Upsert writes a record at its key, creating or overwriting. A record
// without a key in an auto-increment collection behaves like Insert.
// Upsert never fails for a missing prior record; callers that care
// whether one existed must check with Get first.
func (t *Tx) Upsert(name string, record json.RawMessage) (any, error) {
	c, err := t.use(name, true)
	if err != nil {
		return nil, err
	}
	fields, err := decodeRecord(record)
	if err != nil {
		return nil, err
	}

	if c.autoIncrement {
		id, err := keyFromFields(c, fields)
		if err != nil {
			return nil, err
		}
		payload, err := marshalWithoutKey(c, fields)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			res, err := t.tx.Exec(fmt.Sprintf(`INSERT INTO %q (data) VALUES (?)`, c.name), payload)
			if err != nil {
				return nil, mapSQLError(err)
			}
			return res.LastInsertId()
		}
		_, err = t.tx.Exec(
			fmt.Sprintf(`INSERT INTO %q (id, data) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data`, c.name),
			id, payload,
		)
		if err != nil {
			return nil, mapSQLError(err)
		}
		return id, nil
	}

	key, err := stringKeyFromFields(c, fields)
	if err != nil {
		return nil, err
	}
	_, err = t.tx.Exec(
		fmt.Sprintf(`INSERT INTO %q (id, data) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data`, c.name),
		key, string(record),
	)
	if err != nil {
		return nil, mapSQLError(err)
	}
	return key, nil
}

// Get returns the record at key. Absence is not an error: the second
// result reports whether the record exists.
func (t *Tx) Get(name string, key any) (json.RawMessage, bool, error) {
	c, err := t.use(name, false)
	if err != nil {
		return nil, false, err
	}
	k, err := c.bindKey(key)
	if err != nil {
		return nil, false, err
	}

	var data string
	err = t.tx.QueryRow(fmt.Sprintf(`SELECT data FROM %q WHERE id = ?`, c.name), k).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	record, err := injectKey(c, k, []byte(data))
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// GetAll returns every record in the collection, in no particular
// order. The whole collection is always loaded; there is no paging.
func (t *Tx) GetAll(name string) ([]json.RawMessage, error) {
	c, err := t.use(name, false)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.Query(fmt.Sprintf(`SELECT id, data FROM %q`, c.name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]json.RawMessage, 0)
	for rows.Next() {
		var data string
		var key any
		if c.autoIncrement {
			var id int64
			if err := rows.Scan(&id, &data); err != nil {
				return nil, err
			}
			key = id
		} else {
			var id string
			if err := rows.Scan(&id, &data); err != nil {
				return nil, err
			}
			key = id
		}
		record, err := injectKey(c, key, []byte(data))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Remove deletes the record at key. Removing an absent key is a no-op
// success.
func (t *Tx) Remove(name string, key any) error {
	c, err := t.use(name, true)
	if err != nil {
		return err
	}
	k, err := c.bindKey(key)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, c.name), k)
	return err
}

func (t *Tx) use(name string, write bool) (collection, error) {
	c, ok := t.scope[name]
	if !ok {
		return collection{}, fmt.Errorf("%w: %q is not in the transaction scope", ErrUnknownCollection, name)
	}
	if write && t.mode != ReadWrite {
		return collection{}, ErrReadOnly
	}
	return c, nil
}

func (c collection) bindKey(key any) (any, error) {
	if c.autoIncrement {
		id, err := asInt64(key)
		if err != nil {
			return nil, fmt.Errorf("store: collection %q is integer-keyed: %v", c.name, err)
		}
		return id, nil
	}
	s, ok := key.(string)
	if !ok || s == "" {
		return nil, fmt.Errorf("store: collection %q needs a non-empty string key, got %T", c.name, key)
	}
	return s, nil
}

func decodeRecord(data json.RawMessage) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("store: record must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// keyFromFields reads the key field of an auto-increment record.
// A missing or null key reads as zero, meaning "assign one".
func keyFromFields(c collection, fields map[string]any) (int64, error) {
	raw, ok := fields[c.keyPath]
	if !ok || raw == nil {
		return 0, nil
	}
	id, err := asInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("store: key field %q: %v", c.keyPath, err)
	}
	return id, nil
}

func stringKeyFromFields(c collection, fields map[string]any) (string, error) {
	raw, ok := fields[c.keyPath]
	if !ok {
		return "", fmt.Errorf("%w: record is missing key field %q", ErrConstraint, c.keyPath)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: key field %q must be a non-empty string", ErrConstraint, c.keyPath)
	}
	return s, nil
}

// marshalWithoutKey strips the key field before storing: the key column
// is the single authoritative identity, injected back on every read.
func marshalWithoutKey(c collection, fields map[string]any) (string, error) {
	delete(fields, c.keyPath)
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func injectKey(c collection, key any, data []byte) (json.RawMessage, error) {
	fields, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	fields[c.keyPath] = key
	return json.Marshal(fields)
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	}
	return 0, fmt.Errorf("unsupported key type %T", v)
}

func mapSQLError(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}
