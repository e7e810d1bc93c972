package service_test

import (
	"context"
	"errors"
	"testing"

	"organizer/internal/domain"
	"organizer/internal/grid"
	"organizer/internal/service"
)

func TestPageService_FirstPageIsMain(t *testing.T) {
	env := newTestEnv(t)

	first := env.page(t, "Home")
	second := env.page(t, "Work")

	if !first.IsMain {
		t.Error("expected first page to be main")
	}
	if second.IsMain {
		t.Error("expected second page not to be main")
	}
	if second.Order != 1 {
		t.Errorf("expected order 1, got %d", second.Order)
	}
	if len(env.emitter.Named(service.EventPagesChanged)) != 2 {
		t.Errorf("expected 2 pages-changed events, got %d", len(env.emitter.Named(service.EventPagesChanged)))
	}
}

func TestPageService_CreateRequiresName(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.pages.CreatePage(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestPageService_SetMainPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.page(t, "Home")
	work := env.page(t, "Work")

	if err := env.pages.SetMainPage(ctx, work.ID); err != nil {
		t.Fatal(err)
	}
	main, err := env.pages.MainPage()
	if err != nil {
		t.Fatal(err)
	}
	if main.ID != work.ID {
		t.Errorf("expected %s to be main, got %s", work.ID, main.ID)
	}

	pages, _ := env.pages.ListPages()
	mains := 0
	for _, p := range pages {
		if p.IsMain {
			mains++
		}
	}
	if mains != 1 {
		t.Errorf("expected exactly one main page, got %d", mains)
	}
}

func TestPageService_DeleteMainReassigns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	home := env.page(t, "Home")
	work := env.page(t, "Work")
	env.add(t, home.ID, domain.WidgetKindClock)

	if err := env.pages.DeletePage(ctx, home.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.pages.GetPage(home.ID); !service.IsNotFound(err) {
		t.Errorf("expected deleted page to be gone, got %v", err)
	}
	main, err := env.pages.MainPage()
	if err != nil {
		t.Fatal(err)
	}
	if main.ID != work.ID {
		t.Errorf("expected %s to become main, got %s", work.ID, main.ID)
	}

	if err := env.pages.DeletePage(ctx, work.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.pages.MainPage(); !service.IsNotFound(err) {
		t.Errorf("expected no main page on empty store, got %v", err)
	}
}

func TestPageService_EnsureDefaultPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.pages.EnsureDefaultPage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsMain || p.Name != "Main Dashboard" {
		t.Errorf("unexpected default page %+v", p)
	}

	again, err := env.pages.EnsureDefaultPage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != p.ID {
		t.Error("expected the existing main page to be returned")
	}
	pages, _ := env.pages.ListPages()
	if len(pages) != 1 {
		t.Errorf("expected 1 page, got %d", len(pages))
	}
}

func TestPageService_UpdateGridConfig(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.page(t, "Home")
	w, err := env.widgets.AddWidget(ctx, service.AddWidgetInput{
		PageID:   p.ID,
		Kind:     domain.WidgetKindClock,
		Position: &grid.Cell{X: 6, Y: 6},
	})
	if err != nil {
		t.Fatal(err)
	}

	small := p.Grid
	small.Cols, small.Rows = 4, 4
	if _, err := env.widgets.UpdateGridConfig(ctx, p.ID, small); !errors.Is(err, grid.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}

	bad := p.Grid
	bad.Cols = 0
	if _, err := env.widgets.UpdateGridConfig(ctx, p.ID, bad); !errors.Is(err, grid.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	wide := p.Grid
	wide.Cols, wide.Compact = 12, true
	got, err := env.widgets.UpdateGridConfig(ctx, p.ID, wide)
	if err != nil {
		t.Fatal(err)
	}
	if got.Grid.Cols != 12 || !got.Grid.Compact {
		t.Errorf("grid not updated: %+v", got.Grid)
	}
	still, _ := env.widgets.GetWidget(w.ID)
	if still.Rect != (grid.Rect{X: 6, Y: 6, W: 2, H: 1}) {
		t.Errorf("widget moved by grid update: %v", still.Rect)
	}
}

func TestUpdateGridConfig_OverflowingWidgetDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.page(t, "Tiny")
	tiny := p.Grid
	tiny.Cols, tiny.Rows = 3, 2
	if _, err := env.widgets.UpdateGridConfig(ctx, p.ID, tiny); err != nil {
		t.Fatal(err)
	}
	weather := env.add(t, p.ID, domain.WidgetKindWeather) // (0,0) 3x1
	clock := env.add(t, p.ID, domain.WidgetKindClock)     // (0,1) 2x1

	// no room left for the clock: it is parked below the grid
	if _, err := env.widgets.ResizeWidget(ctx, weather.ID, grid.Size{W: 3, H: 2}); err != nil {
		t.Fatal(err)
	}
	parked, _ := env.widgets.GetWidget(clock.ID)
	if parked.Rect.Y != 2 {
		t.Fatalf("expected clock below the grid, got %v", parked.Rect)
	}

	gap := tiny
	gap.Gap = 4
	if _, err := env.widgets.UpdateGridConfig(ctx, p.ID, gap); err != nil {
		t.Errorf("gap change blocked by parked widget: %v", err)
	}

	short := gap
	short.Rows = 1
	if _, err := env.widgets.UpdateGridConfig(ctx, p.ID, short); !errors.Is(err, grid.ErrOutOfBounds) {
		t.Errorf("expected shrink under the weather widget to fail, got %v", err)
	}
}

func TestPageService_PageState(t *testing.T) {
	env := newTestEnv(t)
	p := env.page(t, "Home")

	state, err := env.pages.PageState(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if state.Widgets == nil || len(state.Widgets) != 0 {
		t.Errorf("expected empty non-nil widgets, got %#v", state.Widgets)
	}

	env.add(t, p.ID, domain.WidgetKindWeather)
	env.add(t, p.ID, domain.WidgetKindClock)
	state, _ = env.pages.PageState(p.ID)
	if len(state.Widgets) != 2 || state.Widgets[0].Kind != domain.WidgetKindWeather {
		t.Errorf("expected widgets in insertion order, got %+v", state.Widgets)
	}
}
