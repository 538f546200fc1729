// Package repository maps domain records onto store collections. It is
// the only layer that touches record identity: ids are normalized to
// int64 here once, so no caller ever compares heterogeneous id
// representations.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"calendrier/store"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)
	ErrNoteNotFound  = fmt.Errorf("note %w", ErrNotFound)

	ErrMissingID = errors.New("repository: record has no id")
	ErrBadID     = errors.New("repository: malformed record id")
)

// Record is implemented by every persisted model: it exposes the
// store-assigned identity so the shared plumbing below can read it
// before a write and stamp it after one.
type Record[T any] interface {
	*T
	RecordID() int64
	SetRecordID(int64)
}

// records implements the collection plumbing once; each repository
// instantiates it for its own record type.
type records[T any, P Record[T]] struct {
	db         *store.Database
	collection string
}

func (r records[T, P]) add(ctx context.Context, rec P) (int64, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}

	var assigned int64
	err = r.db.Transact(ctx, []string{r.collection}, store.ReadWrite, func(tx *store.Tx) error {
		key, err := tx.Insert(r.collection, payload)
		if err != nil {
			return err
		}
		id, ok := key.(int64)
		if !ok {
			return fmt.Errorf("%w: store assigned a %T key", ErrBadID, key)
		}
		assigned = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	rec.SetRecordID(assigned)
	return assigned, nil
}

func (r records[T, P]) update(ctx context.Context, rec P) error {
	id := rec.RecordID()
	if id <= 0 {
		return ErrMissingID
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return r.db.Transact(ctx, []string{r.collection}, store.ReadWrite, func(tx *store.Tx) error {
		// Upsert alone cannot tell an update from a resurrection, so
		// the existence check lives in the same transaction.
		_, ok, err := tx.Get(r.collection, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("id %d: %w", id, ErrNotFound)
		}
		_, err = tx.Upsert(r.collection, payload)
		return err
	})
}

func (r records[T, P]) remove(ctx context.Context, id int64) error {
	return r.db.Transact(ctx, []string{r.collection}, store.ReadWrite, func(tx *store.Tx) error {
		return tx.Remove(r.collection, id)
	})
}

func (r records[T, P]) get(ctx context.Context, id int64) (*T, error) {
	var out *T
	err := r.db.Transact(ctx, []string{r.collection}, store.ReadOnly, func(tx *store.Tx) error {
		raw, ok, err := tx.Get(r.collection, id)
		if err != nil || !ok {
			return err
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		out = &rec
		return nil
	})
	// (nil, nil) when the id is unknown
	return out, err
}

func (r records[T, P]) list(ctx context.Context) ([]T, error) {
	out := make([]T, 0)
	err := r.db.Transact(ctx, []string{r.collection}, store.ReadOnly, func(tx *store.Tx) error {
		raws, err := tx.GetAll(r.collection)
		if err != nil {
			return err
		}
		for _, raw := range raws {
			var rec T
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseID normalizes the id representations the UI pathways produce: a
// typed form field hands over a string, a widget callback a stringly
// identifier object, decoded JSON a float64. Anything that is not a
// positive integer fails with ErrBadID.
func ParseID(v any) (int64, error) {
	switch id := v.(type) {
	case int64:
		return checkID(id)
	case int:
		return checkID(int64(id))
	case float64:
		if id != math.Trunc(id) {
			return 0, fmt.Errorf("%w: %v", ErrBadID, v)
		}
		return checkID(int64(id))
	case json.Number:
		parsed, err := id.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadID, id.String())
		}
		return checkID(parsed)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadID, id)
		}
		return checkID(parsed)
	case fmt.Stringer:
		return ParseID(id.String())
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrBadID, v)
}

func checkID(id int64) (int64, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrBadID, id)
	}
	return id, nil
}
