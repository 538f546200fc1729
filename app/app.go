// Package app assembles the persistence core: one store engine owned by
// the application root, the repositories over it, and the synchronizers
// feeding the external widgets. The engine is constructed here exactly
// once and shared by reference; nothing else opens or closes databases.
package app

import (
	"context"
	"log/slog"

	"calendrier/config"
	"calendrier/models"
	"calendrier/repository"
	"calendrier/store"
	"calendrier/validator"
	"calendrier/view"
)

// App holds all application dependencies
type App struct {
	Engine *store.Engine
	Events *repository.Events
	Notes  *repository.Notes
	Colors *repository.Colors

	Calendar *view.Syncer[models.Event, *models.Event]
	Board    *view.Syncer[models.Note, *models.Note]

	Logger *slog.Logger
}

// New opens every database, wires the repositories and synchronizers,
// and hands both widgets their first render so the displayed state
// starts out matching the store.
func New(ctx context.Context, cfg *config.Config, calendar view.Renderer[models.Event], board view.Renderer[models.Note], logger *slog.Logger) (*App, error) {
	engine := store.NewEngine(cfg.DataDir, logger)
	validate := validator.New()

	events, err := repository.OpenEvents(ctx, engine, validate)
	if err != nil {
		engine.Close()
		return nil, err
	}
	notes, err := repository.OpenNotes(ctx, engine)
	if err != nil {
		engine.Close()
		return nil, err
	}
	colors, err := repository.OpenColors(ctx, engine, validate)
	if err != nil {
		engine.Close()
		return nil, err
	}

	a := &App{
		Engine:   engine,
		Events:   events,
		Notes:    notes,
		Colors:   colors,
		Calendar: view.NewSyncer[models.Event, *models.Event](events, calendar, logger),
		Board:    view.NewSyncer[models.Note, *models.Note](notes, board, logger),
		Logger:   logger,
	}

	if err := a.Calendar.Refresh(ctx); err != nil {
		engine.Close()
		return nil, err
	}
	if err := a.Board.Refresh(ctx); err != nil {
		engine.Close()
		return nil, err
	}

	logger.Info("organizer core initialized", "data_dir", cfg.DataDir)
	return a, nil
}

// Close closes every open database. Only shutdown calls this.
func (a *App) Close() error {
	return a.Engine.Close()
}
