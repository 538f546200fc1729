package repository

import (
	"context"
	"errors"

	"calendrier/models"
	"calendrier/store"
	"calendrier/validator"
)

const (
	eventsDatabase      = "Calendrier"
	eventsSchemaVersion = 2
	eventsCollection    = "events"
)

// Events persists calendar events in the Calendrier database.
type Events struct {
	records  records[models.Event, *models.Event]
	validate *validator.Validator
}

// OpenEvents opens the Calendrier database, upgrading its schema if an
// older version is on disk.
func OpenEvents(ctx context.Context, engine *store.Engine, validate *validator.Validator) (*Events, error) {
	db, err := engine.Open(ctx, eventsDatabase, eventsSchemaVersion, upgradeEvents)
	if err != nil {
		return nil, err
	}
	return &Events{
		records:  records[models.Event, *models.Event]{db: db, collection: eventsCollection},
		validate: validate,
	}, nil
}

func upgradeEvents(oldVersion, newVersion int, up *store.Upgrade) error {
	if err := up.CreateCollection(eventsCollection, store.CollectionOptions{KeyPath: "id", AutoIncrement: true}); err != nil {
		return err
	}
	for _, field := range []string{"title", "desc", "start", "end", "color"} {
		if err := up.CreateIndex(eventsCollection, field); err != nil {
			return err
		}
	}
	return nil
}

// Add validates the draft and persists it, returning the assigned id.
// An invalid draft never reaches the store.
func (r *Events) Add(ctx context.Context, event *models.Event) (int64, error) {
	if err := r.validate.Validate(event); err != nil {
		return 0, err
	}
	return r.records.add(ctx, event)
}

// Update replaces the stored event at event.ID. Updating an id the
// store does not know fails with ErrEventNotFound.
func (r *Events) Update(ctx context.Context, event *models.Event) error {
	if err := r.validate.Validate(event); err != nil {
		return err
	}
	err := r.records.update(ctx, event)
	if errors.Is(err, ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}

// Remove deletes the event with the given id. Removing an unknown id is
// a no-op success.
func (r *Events) Remove(ctx context.Context, id int64) error {
	return r.records.remove(ctx, id)
}

// Get returns the event with the given id, or (nil, nil) when the id is
// unknown.
func (r *Events) Get(ctx context.Context, id int64) (*models.Event, error) {
	return r.records.get(ctx, id)
}

// List returns every stored event, unordered, with ids normalized.
func (r *Events) List(ctx context.Context) ([]models.Event, error) {
	return r.records.list(ctx)
}
