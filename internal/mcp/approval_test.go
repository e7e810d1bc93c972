package mcpserver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"organizer/internal/service"
	"organizer/internal/storage"
)

func waitForPending(t *testing.T, em *service.MockEmitter) PendingAction {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := em.Named(service.EventApprovalRequired); len(evs) > 0 {
			return evs[len(evs)-1].Data.(PendingAction)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("approval was never requested")
	return PendingAction{}
}

func TestApprovalQueue_Approve(t *testing.T) {
	em := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), em, time.Second)

	go func() {
		a := waitForPending(t, em)
		q.Approve(a.ID)
	}()

	ok, err := q.Request(context.Background(), "remove_widget", "Remove clock", `{"widgetIds":["w1"]}`)
	if err != nil || !ok {
		t.Fatalf("expected approval, got %v %v", ok, err)
	}
	if q.Pending() != 0 {
		t.Error("expected pending map to be cleaned up")
	}
}

func TestApprovalQueue_Reject(t *testing.T) {
	em := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), em, time.Second)

	go func() {
		a := waitForPending(t, em)
		if a.Metadata != "{}" {
			t.Errorf("expected default metadata, got %q", a.Metadata)
		}
		q.Reject(a.ID)
	}()

	ok, err := q.Request(context.Background(), "delete_page", "Delete page")
	if ok || !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v %v", ok, err)
	}
}

func TestApprovalQueue_Timeout(t *testing.T) {
	em := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), em, 30*time.Millisecond)

	start := time.Now()
	ok, err := q.Request(context.Background(), "delete_page", "Delete page")
	if ok || !errors.Is(err, ErrRejected) {
		t.Fatalf("expected timeout rejection, got %v %v", ok, err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout took too long")
	}
	if len(em.Named(service.EventApprovalDismissed)) != 1 {
		t.Error("expected a dismiss event")
	}
}

func TestApprovalQueue_CancelledContext(t *testing.T) {
	em := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), em, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		waitForPending(t, em)
		cancel()
	}()
	if ok, err := q.Request(ctx, "remove_widget", "Remove"); ok || err == nil {
		t.Fatalf("expected cancellation, got %v %v", ok, err)
	}
}

func TestApprovalQueue_DBMode(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), filepath.Join(dir, "notes"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	q := NewApprovalQueue(context.Background(), &service.MockEmitter{}, 2*time.Second)
	q.SetDB(db.Conn())
	q.poll = 10 * time.Millisecond

	go func() {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			pending, _ := PendingInDB(db.Conn())
			if len(pending) == 1 {
				if pending[0].Tool != "delete_page" {
					t.Errorf("unexpected tool %q", pending[0].Tool)
				}
				if err := ResolveInDB(db.Conn(), pending[0].ID, true); err != nil {
					t.Error(err)
				}
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	ok, err := q.Request(context.Background(), "delete_page", "Delete page", `{"pageId":"p1"}`)
	if err != nil || !ok {
		t.Fatalf("expected approval, got %v %v", ok, err)
	}
	pending, _ := PendingInDB(db.Conn())
	if len(pending) != 0 {
		t.Errorf("expected approval row to be removed, have %d", len(pending))
	}
	if err := ResolveInDB(db.Conn(), "missing", false); err == nil {
		t.Error("expected error resolving an unknown approval")
	}
}
