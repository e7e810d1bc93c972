package app

import (
	"context"
	"fmt"
	"log"

	"organizer/internal/config"
	"organizer/internal/secret"
	"organizer/internal/service"
	"organizer/internal/storage"
)

// services is everything the window and the standalone MCP process share.
type services struct {
	db        *storage.DB
	pages     *service.PageService
	widgets   *service.WidgetService
	history   *service.HistoryService
	mirrors   *service.MirrorService
	scheduler *service.Scheduler
	notes     *service.NoteService
	settings  *service.AppSettingsService
}

// openServices opens the database and wires the services. Widget changes
// reach the mirror, scheduler and note watcher through observers.
func openServices(cfg *config.Config, emitter service.EventEmitter) (*services, error) {
	db, err := storage.New(cfg.DBPath(), cfg.NotesDir())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pageStore := storage.NewPageStore(db)
	widgetStore := storage.NewWidgetStore(db)

	defaults := cfg.Grid.PageGrid()
	history := service.NewHistoryService(storage.NewLayoutHistoryStore(db), widgetStore)
	widgets := service.NewWidgetService(pageStore, widgetStore, history, emitter)
	mirrors := service.NewMirrorService(
		storage.NewSyncTargetStore(db), pageStore, widgets,
		secret.Default(cfg.DataDir), emitter,
	)
	s := &services{
		db:        db,
		pages:     service.NewPageService(pageStore, widgetStore, defaults, emitter),
		widgets:   widgets,
		history:   history,
		mirrors:   mirrors,
		scheduler: service.NewScheduler(pageStore, widgetStore, mirrors, emitter),
		notes:     service.NewNoteService(widgetStore, cfg.NotesDir(), emitter),
		settings:  service.NewAppSettingsService(db),
	}
	widgets.AddObserver(mirrors)
	widgets.AddObserver(s.scheduler)
	widgets.AddObserver(s.notes)

	if err := mirrors.SeedTargets(cfg.Mirrors); err != nil {
		log.Printf("[app] %v", err)
	}
	return s, nil
}

// start runs the background jobs: a default page, the refresh scheduler
// and the notes file watcher.
func (s *services) start(ctx context.Context) error {
	if _, err := s.pages.EnsureDefaultPage(ctx); err != nil {
		return fmt.Errorf("default page: %w", err)
	}
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := s.notes.Start(ctx); err != nil {
		return fmt.Errorf("start notes watcher: %w", err)
	}
	return nil
}

// close stops the background jobs and waits for running syncs.
func (s *services) close(ctx context.Context) {
	s.scheduler.Stop()
	s.notes.Stop()
	if err := s.mirrors.WaitRunning(ctx); err != nil {
		log.Printf("[app] %v", err)
	}
	if err := s.db.Close(); err != nil {
		log.Printf("[app] close database: %v", err)
	}
}
