package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"organizer/internal/config"
	"organizer/internal/dbclient"
	"organizer/internal/domain"
	"organizer/internal/secret"
	"organizer/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Mirror Service — copies page layouts to hosted databases
// ─────────────────────────────────────────────────────────────

// MirrorFactory opens a mirror for a target. Replaced in tests.
type MirrorFactory func(target *domain.SyncTarget, password string) (dbclient.LayoutMirror, error)

// SyncResult is emitted after each push or pull.
type SyncResult struct {
	TargetID  string    `json:"targetId"`
	PageID    string    `json:"pageId"`
	Direction string    `json:"direction"` // "push" | "pull"
	Widgets   int       `json:"widgets"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// MirrorService manages sync targets and moves layouts to and from them.
// Only one sync per target and page runs at a time.
type MirrorService struct {
	targets *storage.SyncTargetStore
	pages   *storage.PageStore
	widgets *WidgetService
	secrets secret.SecretStore
	emitter EventEmitter
	connect MirrorFactory
	running syncGuard
}

func NewMirrorService(targets *storage.SyncTargetStore, pages *storage.PageStore, widgets *WidgetService, secrets secret.SecretStore, emitter EventEmitter) *MirrorService {
	return &MirrorService{
		targets: targets,
		pages:   pages,
		widgets: widgets,
		secrets: secrets,
		emitter: emitter,
		connect: dbclient.NewMirror,
	}
}

// SetFactory swaps the mirror constructor.
func (s *MirrorService) SetFactory(f MirrorFactory) {
	s.connect = f
}

// ── Target CRUD ────────────────────────────────────────────

type SyncTargetInput struct {
	Name      string              `json:"name"`
	Driver    domain.MirrorDriver `json:"driver"`
	Host      string              `json:"host"`
	Port      int                 `json:"port"`
	Database  string              `json:"database"`
	Username  string              `json:"username"`
	Password  string              `json:"password"`
	SSLMode   string              `json:"sslMode"`
	ExtraJSON string              `json:"extraJson"`
	Schedule  string              `json:"schedule"`
	AutoSync  bool                `json:"autoSync"`
}

func (in SyncTargetInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("sync target: name is required")
	}
	switch in.Driver {
	case domain.MirrorDriverPostgres, domain.MirrorDriverMySQL, domain.MirrorDriverSQLite, domain.MirrorDriverMongoDB:
	default:
		return fmt.Errorf("sync target %q: unsupported driver %q", in.Name, in.Driver)
	}
	return nil
}

func (s *MirrorService) CreateTarget(in SyncTargetInput) (*domain.SyncTarget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := &domain.SyncTarget{ID: uuid.New().String()}
	applyTargetInput(t, in)
	if err := s.targets.CreateTarget(t); err != nil {
		return nil, err
	}
	if in.Password != "" {
		if err := s.secrets.Set(t.ID, []byte(in.Password)); err != nil {
			return nil, fmt.Errorf("store password: %w", err)
		}
	}
	return t, nil
}

// UpdateTarget changes a target. An empty password keeps the stored one.
func (s *MirrorService) UpdateTarget(id string, in SyncTargetInput) (*domain.SyncTarget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t, err := s.targets.GetTarget(id)
	if err != nil {
		return nil, err
	}
	applyTargetInput(t, in)
	if err := s.targets.UpdateTarget(t); err != nil {
		return nil, err
	}
	if in.Password != "" {
		if err := s.secrets.Set(t.ID, []byte(in.Password)); err != nil {
			return nil, fmt.Errorf("store password: %w", err)
		}
	}
	return t, nil
}

func applyTargetInput(t *domain.SyncTarget, in SyncTargetInput) {
	t.Name = strings.TrimSpace(in.Name)
	t.Driver = in.Driver
	t.Host = in.Host
	t.Port = in.Port
	t.Database = in.Database
	t.Username = in.Username
	t.SSLMode = in.SSLMode
	if t.SSLMode == "" {
		t.SSLMode = "disable"
	}
	t.ExtraJSON = in.ExtraJSON
	t.Schedule = in.Schedule
	t.AutoSync = in.AutoSync
}

func (s *MirrorService) ListTargets() ([]domain.SyncTarget, error) {
	return s.targets.ListTargets()
}

func (s *MirrorService) GetTarget(id string) (*domain.SyncTarget, error) {
	return s.targets.GetTarget(id)
}

// ResolveTarget accepts a target ID or name.
func (s *MirrorService) ResolveTarget(idOrName string) (*domain.SyncTarget, error) {
	t, err := s.targets.GetTarget(idOrName)
	if errors.Is(err, domain.ErrNotFound) {
		return s.targets.GetTargetByName(idOrName)
	}
	return t, err
}

func (s *MirrorService) DeleteTarget(id string) error {
	if err := s.targets.DeleteTarget(id); err != nil {
		return err
	}
	return s.secrets.Delete(id)
}

// SeedTargets creates targets declared in the config file that do not exist
// yet. Existing targets are left as edited in the app.
func (s *MirrorService) SeedTargets(mirrors []config.Mirror) error {
	for _, m := range mirrors {
		_, err := s.targets.GetTargetByName(m.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		_, err = s.CreateTarget(SyncTargetInput{
			Name:     m.Name,
			Driver:   domain.MirrorDriver(m.Driver),
			Host:     m.Host,
			Port:     m.Port,
			Database: m.Database,
			Username: m.Username,
			SSLMode:  m.SSLMode,
			Schedule: m.Schedule,
			AutoSync: m.AutoSync,
		})
		if err != nil {
			return fmt.Errorf("seed mirror %q: %w", m.Name, err)
		}
		log.Printf("[mirror] seeded target %q from config", m.Name)
	}
	return nil
}

// ── Sync ───────────────────────────────────────────────────

func (s *MirrorService) open(t *domain.SyncTarget) (dbclient.LayoutMirror, error) {
	password, err := s.secrets.Get(t.ID)
	if err != nil {
		return nil, fmt.Errorf("load password: %w", err)
	}
	return s.connect(t, string(password))
}

// TestTarget checks that the target is reachable.
func (s *MirrorService) TestTarget(ctx context.Context, id string) error {
	t, err := s.targets.GetTarget(id)
	if err != nil {
		return err
	}
	m, err := s.open(t)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.TestConnection(ctx)
}

// PushPage copies the page's current layout to the target.
func (s *MirrorService) PushPage(ctx context.Context, targetID, pageID string) (*SyncResult, error) {
	return s.sync(ctx, targetID, pageID, "push", s.pushLayout(ctx, pageID))
}

func (s *MirrorService) pushLayout(ctx context.Context, pageID string) func(dbclient.LayoutMirror, *domain.SyncTarget) (int, error) {
	return func(m dbclient.LayoutMirror, _ *domain.SyncTarget) (int, error) {
		page, err := s.pages.GetPage(pageID)
		if err != nil {
			return 0, err
		}
		widgets, err := s.widgets.ListWidgets(pageID)
		if err != nil {
			return 0, err
		}
		layout := dbclient.Layout{
			PageID:   page.ID,
			Name:     page.Name,
			Grid:     page.Grid,
			Widgets:  widgets,
			PushedAt: time.Now().UTC(),
		}
		return len(widgets), m.PushLayout(ctx, layout)
	}
}

// PullPage replaces the page's layout with the target's copy. The pulled
// layout goes through the layout history, so it can be undone.
func (s *MirrorService) PullPage(ctx context.Context, targetID, pageID string) (*SyncResult, error) {
	return s.sync(ctx, targetID, pageID, "pull", func(m dbclient.LayoutMirror, t *domain.SyncTarget) (int, error) {
		layout, err := m.PullLayout(ctx, pageID)
		if err != nil {
			return 0, err
		}
		if _, err := s.widgets.ReplaceLayout(ctx, pageID, layout.Widgets, "pull from "+t.Name); err != nil {
			return 0, err
		}
		return len(layout.Widgets), nil
	})
}

// PushAll pushes every page to the target.
func (s *MirrorService) PushAll(ctx context.Context, targetID string) error {
	pages, err := s.pages.ListPages()
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range pages {
		if _, err := s.PushPage(ctx, targetID, p.ID); err != nil {
			errs = append(errs, fmt.Errorf("page %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *MirrorService) sync(ctx context.Context, targetID, pageID, direction string, run func(dbclient.LayoutMirror, *domain.SyncTarget) (int, error)) (*SyncResult, error) {
	release, err := s.running.Acquire(targetID, pageID)
	if err != nil {
		return nil, err
	}
	defer s.finish(ctx, release, targetID, pageID)
	return s.run(ctx, targetID, pageID, direction, run)
}

// finish releases a claim. A push queued while the sync ran continues in the
// background under the same claim.
func (s *MirrorService) finish(ctx context.Context, release Release, targetID, pageID string) {
	if release() {
		go s.pushQueued(context.WithoutCancel(ctx), release, targetID, pageID)
	}
}

// pushQueued pushes under a held claim until no further push is queued.
func (s *MirrorService) pushQueued(ctx context.Context, release Release, targetID, pageID string) {
	for {
		if _, err := s.run(ctx, targetID, pageID, "push", s.pushLayout(ctx, pageID)); err != nil {
			log.Printf("[mirror] auto-sync page %s to %s: %v", pageID, targetID, err)
		}
		if !release() {
			return
		}
	}
}

func (s *MirrorService) run(ctx context.Context, targetID, pageID, direction string, run func(dbclient.LayoutMirror, *domain.SyncTarget) (int, error)) (*SyncResult, error) {
	t, err := s.targets.GetTarget(targetID)
	if err != nil {
		return nil, err
	}
	m, err := s.open(t)
	if err != nil {
		s.recordStatus(t, err)
		return nil, err
	}
	defer m.Close()

	n, runErr := run(m, t)
	result := &SyncResult{
		TargetID:  t.ID,
		PageID:    pageID,
		Direction: direction,
		Widgets:   n,
		At:        time.Now().UTC(),
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}
	s.recordStatus(t, runErr)
	s.emitter.Emit(ctx, EventMirrorSynced, result)
	if runErr != nil {
		return result, fmt.Errorf("%s page %s: %w", direction, pageID, runErr)
	}
	return result, nil
}

func (s *MirrorService) recordStatus(t *domain.SyncTarget, err error) {
	now := time.Now().UTC()
	t.LastSyncAt = &now
	t.LastError = ""
	if err != nil {
		t.LastError = err.Error()
	}
	if uerr := s.targets.UpdateTarget(t); uerr != nil {
		log.Printf("[mirror] record status of %s: %v", t.Name, uerr)
	}
}

// WidgetsChanged pushes the page to every auto-sync target in the background.
func (s *MirrorService) WidgetsChanged(ctx context.Context, pageID string) {
	targets, err := s.targets.ListTargets()
	if err != nil {
		log.Printf("[mirror] list targets: %v", err)
		return
	}
	for _, t := range targets {
		if !t.AutoSync {
			continue
		}
		// claimed before the goroutine starts so WaitRunning sees it
		release, err := s.running.Queue(t.ID, pageID)
		if err != nil {
			continue // the running sync pushes again when it ends
		}
		go s.pushQueued(context.WithoutCancel(ctx), release, t.ID, pageID)
	}
}

// WaitRunning blocks until all running syncs finish or ctx is cancelled.
func (s *MirrorService) WaitRunning(ctx context.Context) error {
	if err := s.running.Wait(ctx); err != nil {
		return fmt.Errorf("%d syncs still running: %w", s.running.Running(), err)
	}
	return nil
}
