package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"organizer/internal/domain"
)

// PageStore implements domain.PageStore using SQLite.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

const pageColumns = `id, name, description, is_main, sort_order, grid_json, created_at, updated_at`

func (s *PageStore) CreatePage(p *domain.WidgetPage) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	gridJSON, err := json.Marshal(p.Grid)
	if err != nil {
		return fmt.Errorf("encode grid config: %w", err)
	}
	_, err = s.db.Conn().Exec(
		`INSERT INTO pages (`+pageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.IsMain, p.Order, string(gridJSON), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *PageStore) GetPage(id string) (*domain.WidgetPage, error) {
	p, err := scanPage(s.db.Conn().QueryRow(`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

// ListPages returns pages by sort order, oldest first on ties.
func (s *PageStore) ListPages() ([]domain.WidgetPage, error) {
	rows, err := s.db.Conn().Query(`SELECT ` + pageColumns + ` FROM pages ORDER BY sort_order ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.WidgetPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

func (s *PageStore) UpdatePage(p *domain.WidgetPage) error {
	p.UpdatedAt = time.Now()
	gridJSON, err := json.Marshal(p.Grid)
	if err != nil {
		return fmt.Errorf("encode grid config: %w", err)
	}
	res, err := s.db.Conn().Exec(
		`UPDATE pages SET name = ?, description = ?, sort_order = ?, grid_json = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.Order, string(gridJSON), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(res, "page", p.ID)
}

// SetMainPage flags id as the main page and clears the flag everywhere else.
func (s *PageStore) SetMainPage(id string) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE pages SET is_main = 1, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set main page: %w", err)
	}
	if err := expectRow(res, "page", id); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE pages SET is_main = 0 WHERE id != ?`, id); err != nil {
		return fmt.Errorf("clear main page: %w", err)
	}
	return tx.Commit()
}

// DeletePage removes the page with its widgets and layout history.
func (s *PageStore) DeletePage(id string) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM layout_state WHERE page_id = ?`,
		`DELETE FROM layout_nodes WHERE page_id = ?`,
		`DELETE FROM widgets WHERE page_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("delete page %s: %w", id, err)
		}
	}
	res, err := tx.Exec(`DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	if err := expectRow(res, "page", id); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*domain.WidgetPage, error) {
	p := &domain.WidgetPage{}
	var gridJSON string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.IsMain, &p.Order, &gridJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Grid = domain.DefaultGridConfig()
	if err := json.Unmarshal([]byte(gridJSON), &p.Grid); err != nil {
		return nil, fmt.Errorf("decode grid config of page %s: %w", p.ID, err)
	}
	return p, nil
}

func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
