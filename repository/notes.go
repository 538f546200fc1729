package repository

import (
	"context"
	"errors"

	"calendrier/models"
	"calendrier/store"
)

const (
	notesDatabase      = "NotesDB"
	notesSchemaVersion = 2
	notesCollection    = "notes"
)

// Notes persists sticky notes in the NotesDB database. Field checks
// stay with the editing UI; the repository accepts any note as-is.
type Notes struct {
	records records[models.Note, *models.Note]
}

// OpenNotes opens the NotesDB database, upgrading its schema if an
// older version is on disk.
func OpenNotes(ctx context.Context, engine *store.Engine) (*Notes, error) {
	db, err := engine.Open(ctx, notesDatabase, notesSchemaVersion, upgradeNotes)
	if err != nil {
		return nil, err
	}
	return &Notes{
		records: records[models.Note, *models.Note]{db: db, collection: notesCollection},
	}, nil
}

func upgradeNotes(oldVersion, newVersion int, up *store.Upgrade) error {
	if err := up.CreateCollection(notesCollection, store.CollectionOptions{KeyPath: "id", AutoIncrement: true}); err != nil {
		return err
	}
	for _, field := range []string{"title", "content", "color", "startDate", "endDate"} {
		if err := up.CreateIndex(notesCollection, field); err != nil {
			return err
		}
	}
	return nil
}

// Add persists a new note and returns the assigned id.
func (r *Notes) Add(ctx context.Context, note *models.Note) (int64, error) {
	return r.records.add(ctx, note)
}

// Update fully replaces the stored note at note.ID; there is no
// partial-field patch. Updating an unknown id fails with
// ErrNoteNotFound.
func (r *Notes) Update(ctx context.Context, note *models.Note) error {
	err := r.records.update(ctx, note)
	if errors.Is(err, ErrNotFound) {
		return ErrNoteNotFound
	}
	return err
}

// Remove deletes the note with the given id. Removing an unknown id is
// a no-op success.
func (r *Notes) Remove(ctx context.Context, id int64) error {
	return r.records.remove(ctx, id)
}

// Get returns the note with the given id, or (nil, nil) when the id is
// unknown.
func (r *Notes) Get(ctx context.Context, id int64) (*models.Note, error) {
	return r.records.get(ctx, id)
}

// List returns every stored note, unordered.
func (r *Notes) List(ctx context.Context) ([]models.Note, error) {
	return r.records.list(ctx)
}
