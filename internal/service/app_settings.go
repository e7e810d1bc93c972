package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"organizer/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// App Settings — window size and the page on screen
// ─────────────────────────────────────────────────────────────
//
// Key-value rows in app_settings. The active page is shared between the
// desktop window and the MCP process through the same database file.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type AppSettingsService struct {
	db *storage.DB
}

func NewAppSettingsService(db *storage.DB) *AppSettingsService {
	return &AppSettingsService{db: db}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	settingActivePage   = "active_page_id"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
)

// LoadWindowSize returns the saved window dimensions, or defaults when
// nothing usable was saved.
func (s *AppSettingsService) LoadWindowSize() WindowSize {
	size := WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	if s.db == nil {
		return size
	}
	if v, err := s.get(settingWindowWidth); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n >= 800 {
			size.Width = n
		}
	}
	if v, err := s.get(settingWindowHeight); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n >= 600 {
			size.Height = n
		}
	}
	return size
}

// SaveWindowSize persists the current window dimensions.
func (s *AppSettingsService) SaveWindowSize(width, height int) error {
	if s.db == nil {
		return fmt.Errorf("app settings: no db")
	}
	if err := s.set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.set(settingWindowHeight, strconv.Itoa(height))
}

// ActivePage returns the ID of the page last shown, "" when none was saved.
func (s *AppSettingsService) ActivePage() (string, error) {
	v, err := s.get(settingActivePage)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *AppSettingsService) SetActivePage(pageID string) error {
	return s.set(settingActivePage, pageID)
}

func (s *AppSettingsService) get(key string) (string, error) {
	var v string
	err := s.db.Conn().QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
	return v, err
}

func (s *AppSettingsService) set(key, value string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}
