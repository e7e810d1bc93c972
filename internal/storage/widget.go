package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"organizer/internal/domain"
	"organizer/internal/grid"
)

// WidgetStore implements domain.WidgetStore using SQLite.
type WidgetStore struct {
	db *DB
}

func NewWidgetStore(db *DB) *WidgetStore {
	return &WidgetStore{db: db}
}

const widgetColumns = `id, page_id, kind, x, y, w, h, settings_json, file_path, sort_order, created_at, updated_at`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// CreateWidget appends the widget to its page. Order is assigned here so
// insertion order survives restarts.
func (s *WidgetStore) CreateWidget(w *domain.Widget) error {
	var next int
	err := s.db.Conn().QueryRow(
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM widgets WHERE page_id = ?`, w.PageID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("next widget order: %w", err)
	}
	w.Order = next
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	return insertWidget(s.db.Conn(), w)
}

func insertWidget(x execer, w *domain.Widget) error {
	settings, err := encodeSettings(w.Settings)
	if err != nil {
		return err
	}
	_, err = x.Exec(
		`INSERT INTO widgets (`+widgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.PageID, w.Kind, w.Rect.X, w.Rect.Y, w.Rect.W, w.Rect.H, settings, w.FilePath, w.Order, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert widget %s: %w", w.ID, err)
	}
	return nil
}

func (s *WidgetStore) GetWidget(id string) (*domain.Widget, error) {
	w, err := scanWidget(s.db.Conn().QueryRow(`SELECT `+widgetColumns+` FROM widgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("widget %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get widget: %w", err)
	}
	return w, nil
}

// ListWidgets returns the page's widgets in insertion order.
func (s *WidgetStore) ListWidgets(pageID string) ([]domain.Widget, error) {
	rows, err := s.db.Conn().Query(
		`SELECT `+widgetColumns+` FROM widgets WHERE page_id = ? ORDER BY sort_order ASC, created_at ASC`,
		pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var widgets []domain.Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, *w)
	}
	return widgets, rows.Err()
}

// ListLinkedWidgets returns every widget that has a linked file, across pages.
func (s *WidgetStore) ListLinkedWidgets() ([]domain.Widget, error) {
	rows, err := s.db.Conn().Query(`SELECT ` + widgetColumns + ` FROM widgets WHERE file_path != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var widgets []domain.Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, *w)
	}
	return widgets, rows.Err()
}

func (s *WidgetStore) UpdateWidget(w *domain.Widget) error {
	w.UpdatedAt = time.Now()
	settings, err := encodeSettings(w.Settings)
	if err != nil {
		return err
	}
	res, err := s.db.Conn().Exec(
		`UPDATE widgets SET kind = ?, x = ?, y = ?, w = ?, h = ?, settings_json = ?, file_path = ?, updated_at = ? WHERE id = ?`,
		w.Kind, w.Rect.X, w.Rect.Y, w.Rect.W, w.Rect.H, settings, w.FilePath, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(res, "widget", w.ID)
}

// UpdateWidgetRects writes a batch of layout changes in one transaction, so a
// resize and the relocations it caused are never half-applied.
func (s *WidgetStore) UpdateWidgetRects(pageID string, placements []grid.Placement) error {
	if len(placements) == 0 {
		return nil
	}
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, p := range placements {
		res, err := tx.Exec(
			`UPDATE widgets SET x = ?, y = ?, w = ?, h = ?, updated_at = ? WHERE id = ? AND page_id = ?`,
			p.Rect.X, p.Rect.Y, p.Rect.W, p.Rect.H, now, p.ID, pageID,
		)
		if err != nil {
			return fmt.Errorf("update widget %s: %w", p.ID, err)
		}
		if err := expectRow(res, "widget", p.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *WidgetStore) DeleteWidget(id string) error {
	res, err := s.db.Conn().Exec(`DELETE FROM widgets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "widget", id)
}

func (s *WidgetStore) DeleteWidgetsByPage(pageID string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM widgets WHERE page_id = ?`, pageID)
	return err
}

// ReplacePageWidgets atomically replaces all widgets of a page.
// Used by undo/redo and mirror pulls to fully sync the DB with a snapshot.
func (s *WidgetStore) ReplacePageWidgets(pageID string, widgets []domain.Widget) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM widgets WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("delete widgets: %w", err)
	}

	now := time.Now()
	for i := range widgets {
		w := widgets[i]
		w.PageID = pageID
		w.Order = i
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		w.UpdatedAt = now
		if err := insertWidget(tx, &w); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func scanWidget(row rowScanner) (*domain.Widget, error) {
	w := &domain.Widget{}
	var settings string
	err := row.Scan(&w.ID, &w.PageID, &w.Kind, &w.Rect.X, &w.Rect.Y, &w.Rect.W, &w.Rect.H,
		&settings, &w.FilePath, &w.Order, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(settings), &w.Settings); err != nil {
		return nil, fmt.Errorf("decode settings of widget %s: %w", w.ID, err)
	}
	if w.Settings == nil {
		w.Settings = domain.Settings{}
	}
	return w, nil
}

func encodeSettings(s domain.Settings) (string, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode widget settings: %w", err)
	}
	return string(b), nil
}
