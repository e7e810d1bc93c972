package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"organizer/internal/domain"
)

// SyncTargetStore manages layout mirror records in SQLite.
type SyncTargetStore struct {
	db *DB
}

func NewSyncTargetStore(db *DB) *SyncTargetStore {
	return &SyncTargetStore{db: db}
}

const syncTargetColumns = `id, name, driver, host, port, database_name, username, ssl_mode, extra_json, schedule, auto_sync, last_sync_at, last_error, created_at, updated_at`

func (s *SyncTargetStore) CreateTarget(t *domain.SyncTarget) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.ExtraJSON == "" {
		t.ExtraJSON = "{}"
	}

	_, err := s.db.Conn().Exec(
		`INSERT INTO sync_targets (`+syncTargetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Driver, t.Host, t.Port, t.Database, t.Username, t.SSLMode, t.ExtraJSON,
		t.Schedule, t.AutoSync, nullTime(t.LastSyncAt), t.LastError, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync target %s: %w", t.Name, err)
	}
	return nil
}

func (s *SyncTargetStore) GetTarget(id string) (*domain.SyncTarget, error) {
	t, err := scanSyncTarget(s.db.Conn().QueryRow(`SELECT `+syncTargetColumns+` FROM sync_targets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync target %s: %w", id, domain.ErrNotFound)
	}
	return t, err
}

func (s *SyncTargetStore) GetTargetByName(name string) (*domain.SyncTarget, error) {
	t, err := scanSyncTarget(s.db.Conn().QueryRow(`SELECT `+syncTargetColumns+` FROM sync_targets WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync target %q: %w", name, domain.ErrNotFound)
	}
	return t, err
}

func (s *SyncTargetStore) ListTargets() ([]domain.SyncTarget, error) {
	rows, err := s.db.Conn().Query(`SELECT ` + syncTargetColumns + ` FROM sync_targets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []domain.SyncTarget
	for rows.Next() {
		t, err := scanSyncTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *t)
	}
	return targets, rows.Err()
}

func (s *SyncTargetStore) UpdateTarget(t *domain.SyncTarget) error {
	t.UpdatedAt = time.Now()
	res, err := s.db.Conn().Exec(
		`UPDATE sync_targets SET name=?, driver=?, host=?, port=?, database_name=?, username=?, ssl_mode=?, extra_json=?,
		 schedule=?, auto_sync=?, last_sync_at=?, last_error=?, updated_at=?
		 WHERE id=?`,
		t.Name, t.Driver, t.Host, t.Port, t.Database, t.Username, t.SSLMode, t.ExtraJSON,
		t.Schedule, t.AutoSync, nullTime(t.LastSyncAt), t.LastError, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(res, "sync target", t.ID)
}

func (s *SyncTargetStore) DeleteTarget(id string) error {
	res, err := s.db.Conn().Exec(`DELETE FROM sync_targets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "sync target", id)
}

func scanSyncTarget(row rowScanner) (*domain.SyncTarget, error) {
	t := &domain.SyncTarget{}
	var last sql.NullTime
	err := row.Scan(&t.ID, &t.Name, &t.Driver, &t.Host, &t.Port, &t.Database, &t.Username, &t.SSLMode, &t.ExtraJSON,
		&t.Schedule, &t.AutoSync, &last, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		ts := last.Time
		t.LastSyncAt = &ts
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
