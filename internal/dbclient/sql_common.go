package dbclient

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"organizer/internal/domain"
	"organizer/internal/grid"
)

// sqlMirror is the shared implementation for MySQL, Postgres, and SQLite.
// The tables only use types all three accept.
type sqlMirror struct {
	driverName string
	db         *sql.DB

	once      sync.Once
	schemaErr error
}

var mirrorSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizer_pages (
		page_id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		grid_json TEXT NOT NULL,
		pushed_at VARCHAR(40) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS organizer_widgets (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		page_id VARCHAR(64) NOT NULL,
		kind VARCHAR(32) NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		w INTEGER NOT NULL,
		h INTEGER NOT NULL,
		settings_json TEXT NOT NULL,
		sort_order INTEGER NOT NULL
	)`,
}

// newSQLMirror opens a generic SQL mirror. The schema is created lazily.
func newSQLMirror(driverName, dsn string) (*sqlMirror, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlMirror{driverName: driverName, db: db}, nil
}

func (m *sqlMirror) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.db.PingContext(ctx)
}

func (m *sqlMirror) ensureSchema(ctx context.Context) error {
	m.once.Do(func() {
		for _, stmt := range mirrorSchema {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				m.schemaErr = fmt.Errorf("create mirror schema: %w", err)
				return
			}
		}
	})
	return m.schemaErr
}

// rebind rewrites ? placeholders to the driver's syntax.
func (m *sqlMirror) rebind(query string) string {
	if m.driverName != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (m *sqlMirror) PushLayout(ctx context.Context, layout Layout) error {
	if err := m.ensureSchema(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	gridJSON, err := json.Marshal(layout.Grid)
	if err != nil {
		return fmt.Errorf("encode grid config: %w", err)
	}
	pushedAt := layout.PushedAt
	if pushedAt.IsZero() {
		pushedAt = time.Now()
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.rebind(`DELETE FROM organizer_widgets WHERE page_id = ?`), layout.PageID); err != nil {
		return fmt.Errorf("clear mirrored widgets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, m.rebind(`DELETE FROM organizer_pages WHERE page_id = ?`), layout.PageID); err != nil {
		return fmt.Errorf("clear mirrored page: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		m.rebind(`INSERT INTO organizer_pages (page_id, name, grid_json, pushed_at) VALUES (?, ?, ?, ?)`),
		layout.PageID, layout.Name, string(gridJSON), pushedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert mirrored page: %w", err)
	}

	insert := m.rebind(`INSERT INTO organizer_widgets (id, page_id, kind, x, y, w, h, settings_json, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, w := range layout.Widgets {
		settings, err := json.Marshal(w.Settings)
		if err != nil {
			return fmt.Errorf("encode settings of widget %s: %w", w.ID, err)
		}
		_, err = tx.ExecContext(ctx, insert,
			w.ID, layout.PageID, string(w.Kind), w.Rect.X, w.Rect.Y, w.Rect.W, w.Rect.H, string(settings), i,
		)
		if err != nil {
			return fmt.Errorf("insert mirrored widget %s: %w", w.ID, err)
		}
	}

	return tx.Commit()
}

func (m *sqlMirror) PullLayout(ctx context.Context, pageID string) (*Layout, error) {
	if err := m.ensureSchema(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	layout := &Layout{PageID: pageID}
	var gridJSON, pushedAt string
	err := m.db.QueryRowContext(ctx,
		m.rebind(`SELECT name, grid_json, pushed_at FROM organizer_pages WHERE page_id = ?`), pageID,
	).Scan(&layout.Name, &gridJSON, &pushedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrNotMirrored)
	}
	if err != nil {
		return nil, fmt.Errorf("read mirrored page: %w", err)
	}
	if err := json.Unmarshal([]byte(gridJSON), &layout.Grid); err != nil {
		return nil, fmt.Errorf("decode mirrored grid config: %w", err)
	}
	layout.PushedAt, _ = time.Parse(time.RFC3339Nano, pushedAt)

	rows, err := m.db.QueryContext(ctx,
		m.rebind(`SELECT id, kind, x, y, w, h, settings_json, sort_order FROM organizer_widgets WHERE page_id = ? ORDER BY sort_order`),
		pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("read mirrored widgets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		w := domain.Widget{PageID: pageID}
		var kind, settings string
		var r grid.Rect
		if err := rows.Scan(&w.ID, &kind, &r.X, &r.Y, &r.W, &r.H, &settings, &w.Order); err != nil {
			return nil, err
		}
		w.Kind = domain.WidgetKind(kind)
		w.Rect = r
		if err := json.Unmarshal([]byte(settings), &w.Settings); err != nil {
			return nil, fmt.Errorf("decode settings of widget %s: %w", w.ID, err)
		}
		layout.Widgets = append(layout.Widgets, w)
	}
	return layout, rows.Err()
}

func (m *sqlMirror) Close() error {
	return m.db.Close()
}
