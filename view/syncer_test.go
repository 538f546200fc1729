package view

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"calendrier/models"
)

// ==================== MOCKS ====================

// MockEventRepo is a mock implementation of the Repo interface
type MockEventRepo struct {
	mock.Mock
}

var _ Repo[models.Event, *models.Event] = (*MockEventRepo)(nil)

func (m *MockEventRepo) Add(ctx context.Context, rec *models.Event) (int64, error) {
	args := m.Called(rec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepo) Update(ctx context.Context, rec *models.Event) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockEventRepo) Remove(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockEventRepo) Get(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepo) List(ctx context.Context) ([]models.Event, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

// MockCalendar is a mock implementation of the Renderer interface
type MockCalendar struct {
	mock.Mock
}

var _ Renderer[models.Event] = (*MockCalendar)(nil)

func (m *MockCalendar) Render(records []models.Event) {
	m.Called(records)
}

func newTestSyncer(t *testing.T) (*Syncer[models.Event, *models.Event], *MockEventRepo, *MockCalendar) {
	t.Helper()
	repo := new(MockEventRepo)
	calendar := new(MockCalendar)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSyncer[models.Event, *models.Event](repo, calendar, logger), repo, calendar
}

// ==================== TESTS ====================

func TestRefreshReloadsAndRenders(t *testing.T) {
	syncer, repo, calendar := newTestSyncer(t)

	stored := []models.Event{{ID: 1, Title: "Standup"}}
	repo.On("List").Return(stored, nil)
	calendar.On("Render", stored).Once()

	require.NoError(t, syncer.Refresh(context.Background()))

	repo.AssertExpectations(t)
	calendar.AssertExpectations(t)
}

func TestRefreshFailureRendersNothing(t *testing.T) {
	syncer, repo, calendar := newTestSyncer(t)

	repo.On("List").Return(nil, assert.AnError)

	err := syncer.Refresh(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	calendar.AssertNotCalled(t, "Render", mock.Anything)
}

func TestSubmitNewRecordReloadsAfterCommit(t *testing.T) {
	syncer, repo, calendar := newTestSyncer(t)

	draft := &models.Event{Title: "Standup", Start: "2024-01-01T09:00", End: "2024-01-01T09:15", Color: "#ff0000"}
	stored := []models.Event{{ID: 1, Title: "Standup"}}

	repo.On("Add", draft).Return(int64(1), nil)
	repo.On("List").Return(stored, nil)
	calendar.On("Render", stored).Once()

	session := syncer.BeginCreate()
	assert.Equal(t, EditingNew, session.State)

	require.NoError(t, syncer.Submit(context.Background(), session.Token, draft))
	assert.Equal(t, Idle, syncer.Current().State)

	repo.AssertExpectations(t)
	calendar.AssertExpectations(t)
}

func TestSubmitStripsTransientPlaceholderID(t *testing.T) {
	syncer, repo, calendar := newTestSyncer(t)

	// The surface correlated its pending save with a timestamp
	// placeholder; the store must never see it.
	draft := &models.Event{ID: 1700000000, Title: "Standup", Start: "a", End: "b", Color: "#ff0000"}

	repo.On("Add", mock.MatchedBy(func(e *models.Event) bool { return e.ID == 0 })).Return(int64(1), nil)
	repo.On("List").Return([]models.Event{}, nil)
	calendar.On("Render", mock.Anything)

	session := syncer.BeginCreate()
	require.NoError(t, syncer.Submit(context.Background(), session.Token, draft))

	repo.AssertExpectations(t)
}

func TestSubmitExistingUsesSessionIdentity(t *testing.T) {
	syncer, repo, calendar := newTestSyncer(t)

	stored := &models.Event{ID: 7, Title: "Standup", Start: "a", End: "b", Color: "#ff0000"}
	repo.On("Get", int64(7)).Return(stored, nil)

	loaded, session, err := syncer.BeginEdit(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, stored, loaded)
	assert.Equal(t, EditingExisting, session.State)

	// The edited copy comes back with a mangled id; the session's id
	// must win.
	edited := &models.Event{ID: 999, Title: "Standup (moved)", Start: "a", End: "b", Color: "#ff0000"}
	repo.On("Update", mock.MatchedBy(func(e *models.Event) bool { return e.ID == 7 })).Return(nil)
	repo.On("List").Return([]models.Event{}, nil)
	calendar.On("Render", mock.Anything)

	require.NoError(t, syncer.Submit(context.Background(), session.Token, edited))
	assert.Equal(t, Idle, syncer.Current().State)

	repo.AssertExpectations(t)
}

func TestSubmitFailureKeepsSessionAndInput(t *testing.T) {
	syncer, repo, calendar := newTestSyncer(t)

	draft := &models.Event{Title: "Standup", Start: "a", End: "b", Color: "#ff0000"}
	boom := errors.New("disk full")
	repo.On("Add", draft).Return(int64(0), boom).Once()

	session := syncer.BeginCreate()
	err := syncer.Submit(context.Background(), session.Token, draft)
	assert.ErrorIs(t, err, boom)

	// Failure never renders and the surface stays open for correction.
	calendar.AssertNotCalled(t, "Render", mock.Anything)
	assert.Equal(t, EditingNew, syncer.Current().State)
	assert.Equal(t, session.Token, syncer.Current().Token)

	// A resubmit on the same session succeeds.
	repo.On("Add", draft).Return(int64(1), nil)
	repo.On("List").Return([]models.Event{}, nil)
	calendar.On("Render", mock.Anything)

	require.NoError(t, syncer.Submit(context.Background(), session.Token, draft))
	assert.Equal(t, Idle, syncer.Current().State)
}

func TestSubmitWithoutSessionFails(t *testing.T) {
	syncer, _, _ := newTestSyncer(t)

	err := syncer.Submit(context.Background(), uuid.New(), &models.Event{})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSubmitStaleTokenFails(t *testing.T) {
	syncer, repo, _ := newTestSyncer(t)

	abandoned := syncer.BeginCreate()
	syncer.BeginCreate() // a new surface replaces the first one

	err := syncer.Submit(context.Background(), abandoned.Token, &models.Event{})
	assert.ErrorIs(t, err, ErrStaleSession)
	repo.AssertNotCalled(t, "Add", mock.Anything)
}

func TestDeleteRemovesAndReloads(t *testing.T) {
	syncer, repo, calendar := newTestSyncer(t)

	stored := &models.Event{ID: 7, Title: "Standup"}
	repo.On("Get", int64(7)).Return(stored, nil)
	repo.On("Remove", int64(7)).Return(nil)
	repo.On("List").Return([]models.Event{}, nil)
	calendar.On("Render", []models.Event{}).Once()

	_, session, err := syncer.BeginEdit(context.Background(), 7)
	require.NoError(t, err)

	require.NoError(t, syncer.Delete(context.Background(), session.Token))
	assert.Equal(t, Idle, syncer.Current().State)

	repo.AssertExpectations(t)
	calendar.AssertExpectations(t)
}

func TestDeleteOnUnsavedSurfaceFails(t *testing.T) {
	syncer, repo, _ := newTestSyncer(t)

	session := syncer.BeginCreate()
	err := syncer.Delete(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrNotPersisted)
	repo.AssertNotCalled(t, "Remove", mock.Anything)
}

func TestCancelDiscardsWithoutTouchingStore(t *testing.T) {
	syncer, repo, calendar := newTestSyncer(t)

	session := syncer.BeginCreate()
	syncer.Cancel(session.Token)

	assert.Equal(t, Idle, syncer.Current().State)
	repo.AssertNotCalled(t, "Add", mock.Anything)
	repo.AssertNotCalled(t, "List")
	calendar.AssertNotCalled(t, "Render", mock.Anything)

	// The dead token cannot submit afterwards.
	err := syncer.Submit(context.Background(), session.Token, &models.Event{})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCancelStaleTokenIsNoOp(t *testing.T) {
	syncer, _, _ := newTestSyncer(t)

	current := syncer.BeginCreate()
	syncer.Cancel(uuid.New())

	assert.Equal(t, current.Token, syncer.Current().Token)
	assert.Equal(t, EditingNew, syncer.Current().State)
}

func TestBeginEditMissingRecord(t *testing.T) {
	syncer, repo, _ := newTestSyncer(t)

	repo.On("Get", int64(41)).Return(nil, nil)

	_, _, err := syncer.BeginEdit(context.Background(), 41)
	assert.ErrorIs(t, err, ErrRecordGone)
	assert.Equal(t, Idle, syncer.Current().State)
}
