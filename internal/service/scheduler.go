package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"organizer/internal/domain"
	"organizer/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Scheduler — periodic widget refresh and scheduled mirror syncs
// ─────────────────────────────────────────────────────────────

// RefreshEvent asks the frontend to reload a widget's data.
type RefreshEvent struct {
	WidgetID string            `json:"widgetId"`
	PageID   string            `json:"pageId"`
	Kind     domain.WidgetKind `json:"type"`
}

// Scheduler runs one cron entry per widget with an updateInterval setting
// (minutes) and one per sync target with a schedule. The whole table is
// rebuilt whenever widgets change.
type Scheduler struct {
	pages   *storage.PageStore
	widgets *storage.WidgetStore
	mirrors *MirrorService
	emitter EventEmitter

	mu      sync.Mutex
	ctx     context.Context
	cron    *cron.Cron
	entries int
}

func NewScheduler(pages *storage.PageStore, widgets *storage.WidgetStore, mirrors *MirrorService, emitter EventEmitter) *Scheduler {
	return &Scheduler{pages: pages, widgets: widgets, mirrors: mirrors, emitter: emitter}
}

// Start builds the schedule. ctx bounds every job run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	return s.Reload()
}

// Reload tears down the current schedule and rebuilds it from the store.
func (s *Scheduler) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	if s.ctx == nil {
		return nil
	}
	ctx := s.ctx

	c := cron.New()
	entries := 0

	pages, err := s.pages.ListPages()
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pages {
		widgets, err := s.widgets.ListWidgets(p.ID)
		if err != nil {
			return fmt.Errorf("list widgets: %w", err)
		}
		for _, w := range widgets {
			minutes, ok := refreshMinutes(w.Settings)
			if !ok {
				continue
			}
			ev := RefreshEvent{WidgetID: w.ID, PageID: w.PageID, Kind: w.Kind}
			if _, err := c.AddFunc(fmt.Sprintf("@every %dm", minutes), func() {
				s.emitter.Emit(ctx, EventWidgetRefresh, ev)
			}); err != nil {
				log.Printf("[scheduler] widget %s: %v", w.ID, err)
				continue
			}
			entries++
		}
	}

	if s.mirrors != nil {
		targets, err := s.mirrors.ListTargets()
		if err != nil {
			return fmt.Errorf("list sync targets: %w", err)
		}
		for _, t := range targets {
			if t.Schedule == "" {
				continue
			}
			targetID, name := t.ID, t.Name
			if _, err := c.AddFunc(t.Schedule, func() {
				log.Printf("[scheduler] pushing all pages to %s", name)
				if err := s.mirrors.PushAll(ctx, targetID); err != nil {
					log.Printf("[scheduler] push to %s failed: %v", name, err)
				}
			}); err != nil {
				log.Printf("[scheduler] invalid schedule %q for target %s: %v", t.Schedule, name, err)
				continue
			}
			entries++
		}
	}

	c.Start()
	s.cron = c
	s.entries = entries
	if entries > 0 {
		log.Printf("[scheduler] %d job(s) scheduled", entries)
	}
	return nil
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries
}

// WidgetsChanged rebuilds the schedule.
func (s *Scheduler) WidgetsChanged(_ context.Context, _ string) {
	if err := s.Reload(); err != nil {
		log.Printf("[scheduler] reload: %v", err)
	}
}

// Stop halts all jobs. Running jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.ctx = nil
}

func (s *Scheduler) stopLocked() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	s.entries = 0
}

// refreshMinutes reads a positive updateInterval from settings. JSON numbers
// arrive as float64, template defaults as int.
func refreshMinutes(settings domain.Settings) (int, bool) {
	var minutes int
	switch v := settings["updateInterval"].(type) {
	case int:
		minutes = v
	case int64:
		minutes = int(v)
	case float64:
		minutes = int(v)
	default:
		return 0, false
	}
	return minutes, minutes > 0
}
