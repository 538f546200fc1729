package repository

import (
	"context"
	"encoding/json"

	"calendrier/models"
	"calendrier/store"
	"calendrier/validator"
)

const (
	colorsDatabase      = "ColorsDB"
	colorsSchemaVersion = 1
	colorsCollection    = "colors"
)

// Colors persists the palette legend in the ColorsDB database. Unlike
// events and notes, colors are keyed by the color value itself, so a
// save is always an upsert and there is no store-assigned identity.
type Colors struct {
	db       *store.Database
	validate *validator.Validator
}

// OpenColors opens the ColorsDB database.
func OpenColors(ctx context.Context, engine *store.Engine, validate *validator.Validator) (*Colors, error) {
	db, err := engine.Open(ctx, colorsDatabase, colorsSchemaVersion, upgradeColors)
	if err != nil {
		return nil, err
	}
	return &Colors{db: db, validate: validate}, nil
}

func upgradeColors(oldVersion, newVersion int, up *store.Upgrade) error {
	if err := up.CreateCollection(colorsCollection, store.CollectionOptions{KeyPath: "color"}); err != nil {
		return err
	}
	return up.CreateIndex(colorsCollection, "name")
}

// Save writes the label for a color, creating or renaming it.
func (r *Colors) Save(ctx context.Context, color *models.Color) error {
	if err := r.validate.Validate(color); err != nil {
		return err
	}
	payload, err := json.Marshal(color)
	if err != nil {
		return err
	}
	return r.db.Transact(ctx, []string{colorsCollection}, store.ReadWrite, func(tx *store.Tx) error {
		_, err := tx.Upsert(colorsCollection, payload)
		return err
	})
}

// Get returns the label for a color, or (nil, nil) when the color has
// no label yet.
func (r *Colors) Get(ctx context.Context, color string) (*models.Color, error) {
	var out *models.Color
	err := r.db.Transact(ctx, []string{colorsCollection}, store.ReadOnly, func(tx *store.Tx) error {
		raw, ok, err := tx.Get(colorsCollection, color)
		if err != nil || !ok {
			return err
		}
		var rec models.Color
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		out = &rec
		return nil
	})
	return out, err
}

// List returns every labelled color, unordered.
func (r *Colors) List(ctx context.Context) ([]models.Color, error) {
	out := make([]models.Color, 0)
	err := r.db.Transact(ctx, []string{colorsCollection}, store.ReadOnly, func(tx *store.Tx) error {
		raws, err := tx.GetAll(colorsCollection)
		if err != nil {
			return err
		}
		for _, raw := range raws {
			var rec models.Color
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
