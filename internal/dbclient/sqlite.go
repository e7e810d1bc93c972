package dbclient

import (
	"fmt"

	"organizer/internal/domain"

	_ "modernc.org/sqlite"
)

// newSQLiteMirror mirrors into a SQLite file at the target's Host path.
func newSQLiteMirror(t *domain.SyncTarget) (*sqlMirror, error) {
	if t.Host == "" {
		return nil, fmt.Errorf("sqlite mirror %q: empty file path", t.Name)
	}
	m, err := newSQLMirror("sqlite", t.Host+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	m.db.SetMaxOpenConns(1)
	return m, nil
}
