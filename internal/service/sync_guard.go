package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ExportedSyncGuard lets _test packages exercise the guard.
type ExportedSyncGuard = syncGuard

// ─────────────────────────────────────────────────────────────
// syncGuard — one sync per (target, page) at a time
// ─────────────────────────────────────────────────────────────

// ErrSyncRunning is returned when the same page is already syncing to the
// same target.
type ErrSyncRunning struct {
	TargetID string
	PageID   string
	Since    time.Time
}

func (e *ErrSyncRunning) Error() string {
	return fmt.Sprintf("sync of page %s to %s is already running (started %s)",
		e.PageID, e.TargetID, e.Since.Format(time.TimeOnly))
}

type syncKey struct{ target, page string }

// syncGuard hands out claims on (target, page) pairs. A claim taken with
// Queue while the pair is busy is not lost: the holder's release reports it,
// keeps the claim, and the holder pushes once more.
type syncGuard struct {
	mu      sync.Mutex
	running map[syncKey]time.Time
	queued  map[syncKey]bool
	wg      sync.WaitGroup
}

// Release ends a claim. It returns true, keeping the claim, when a push was
// queued meanwhile; the caller then pushes again and calls Release again.
type Release func() (again bool)

// Acquire claims the pair or fails with *ErrSyncRunning.
func (g *syncGuard) Acquire(targetID, pageID string) (Release, error) {
	return g.acquire(syncKey{targetID, pageID}, false)
}

// Queue is Acquire for follow-up pushes. When the pair is busy it also asks
// the current holder to push again before letting go.
func (g *syncGuard) Queue(targetID, pageID string) (Release, error) {
	return g.acquire(syncKey{targetID, pageID}, true)
}

func (g *syncGuard) acquire(key syncKey, queue bool) (Release, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[syncKey]time.Time)
		g.queued = make(map[syncKey]bool)
	}
	if since, ok := g.running[key]; ok {
		if queue {
			g.queued[key] = true
		}
		return nil, &ErrSyncRunning{TargetID: key.target, PageID: key.page, Since: since}
	}
	g.running[key] = time.Now()
	g.wg.Add(1)
	var done bool
	return func() bool { return g.release(key, &done) }, nil
}

// release is a no-op once the claim has been let go, so a stale Release
// never ends someone else's claim on the same pair.
func (g *syncGuard) release(key syncKey, done *bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if *done {
		return false
	}
	if g.queued[key] {
		delete(g.queued, key)
		g.running[key] = time.Now()
		return true
	}
	*done = true
	delete(g.running, key)
	g.wg.Done()
	return false
}

// Running reports how many syncs are in flight.
func (g *syncGuard) Running() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running)
}

// Wait blocks until no sync is running. It returns ctx.Err() if ctx ends
// first.
func (g *syncGuard) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
