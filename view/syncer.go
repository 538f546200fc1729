// Package view keeps the external rendering widgets consistent with
// stored state. The policy is reload-then-render: after every
// successful mutation the owning collection is re-fetched in full and
// handed back to the widget. No incremental update path exists, so the
// displayed state always matches the store as of the last completed
// mutation.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNoSession    = errors.New("view: no edit session is open")
	ErrStaleSession = errors.New("view: edit surface belongs to a finished session")
	ErrNotPersisted = errors.New("view: record has not been persisted yet")
	ErrRecordGone   = errors.New("view: record no longer exists")
)

type record[T any] interface {
	*T
	RecordID() int64
	SetRecordID(int64)
}

// Repo is the slice of a repository the synchronizer drives.
type Repo[T any, P record[T]] interface {
	Add(ctx context.Context, rec P) (int64, error)
	Update(ctx context.Context, rec P) error
	Remove(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context) ([]T, error)
}

// Renderer is the external widget: the calendar view or the note-list
// board. Render replaces whatever the widget currently displays.
type Renderer[T any] interface {
	Render(records []T)
}

// Syncer reconciles one collection with one widget and owns the edit
// session for records of that collection. At most one session is open
// at a time.
type Syncer[T any, P record[T]] struct {
	repo   Repo[T, P]
	view   Renderer[T]
	logger *slog.Logger

	mu      sync.Mutex
	session Session
}

// NewSyncer wires a repository to its widget.
func NewSyncer[T any, P record[T]](repo Repo[T, P], view Renderer[T], logger *slog.Logger) *Syncer[T, P] {
	return &Syncer[T, P]{repo: repo, view: view, logger: logger}
}

// Refresh reloads the full collection and re-renders the widget.
func (s *Syncer[T, P]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

// BeginCreate opens an empty edit surface for a record that does not
// exist yet. Any previously open session is discarded.
func (s *Syncer[T, P]) BeginCreate() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = Session{Token: uuid.New(), State: EditingNew}
	return s.session
}

// BeginEdit loads an existing record into a fresh edit surface. Asking
// for an id the store does not know fails with ErrRecordGone instead of
// silently opening an empty surface.
func (s *Syncer[T, P]) BeginEdit(ctx context.Context, id int64) (*T, Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, Session{}, err
	}
	if rec == nil {
		return nil, Session{}, fmt.Errorf("id %d: %w", id, ErrRecordGone)
	}

	s.session = Session{Token: uuid.New(), State: EditingExisting, RecordID: id}
	return rec, s.session, nil
}

// Submit routes the surface contents to the repository: add for a new
// record, update for an existing one. The record's identity is taken
// from the session, never from the surface. On success the session ends
// and the collection is reloaded and re-rendered; on failure the
// session stays open and nothing is rendered, so the user's input
// survives for correction.
func (s *Syncer[T, P]) Submit(ctx context.Context, token uuid.UUID, rec P) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(token); err != nil {
		return err
	}

	switch s.session.State {
	case EditingNew:
		// Whatever placeholder the surface carried must not reach the
		// store; the authoritative id is the one the repository returns.
		rec.SetRecordID(0)
		id, err := s.repo.Add(ctx, rec)
		if err != nil {
			return err
		}
		s.logger.Debug("record added", "id", id)
	case EditingExisting:
		rec.SetRecordID(s.session.RecordID)
		if err := s.repo.Update(ctx, rec); err != nil {
			return err
		}
		s.logger.Debug("record updated", "id", s.session.RecordID)
	}

	s.session = Session{}
	return s.reload(ctx)
}

// Delete removes the record under edit. It is only valid for a surface
// editing a persisted record.
func (s *Syncer[T, P]) Delete(ctx context.Context, token uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(token); err != nil {
		return err
	}
	if s.session.State != EditingExisting {
		return ErrNotPersisted
	}

	id := s.session.RecordID
	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("record removed", "id", id)

	s.session = Session{}
	return s.reload(ctx)
}

// Cancel discards the edit surface without touching the store.
// Cancelling a surface whose session already ended is a no-op.
func (s *Syncer[T, P]) Cancel(token uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.State != Idle && s.session.Token == token {
		s.session = Session{}
	}
}

// Current reports the active session; State is Idle when none is open.
func (s *Syncer[T, P]) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Syncer[T, P]) check(token uuid.UUID) error {
	if s.session.State == Idle {
		return ErrNoSession
	}
	if s.session.Token != token {
		return ErrStaleSession
	}
	return nil
}

func (s *Syncer[T, P]) reload(ctx context.Context) error {
	records, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	s.view.Render(records)
	return nil
}
