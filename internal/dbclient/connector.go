// Package dbclient copies page layouts to and from hosted databases.
package dbclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"organizer/internal/domain"
)

// ErrNotMirrored is returned by PullLayout when the target holds no copy of the page.
var ErrNotMirrored = errors.New("page has no mirrored layout")

// Layout is the mirrored form of a page: its grid and widgets in order.
type Layout struct {
	PageID   string            `json:"pageId"`
	Name     string            `json:"name"`
	Grid     domain.GridConfig `json:"gridConfig"`
	Widgets  []domain.Widget   `json:"widgets"`
	PushedAt time.Time         `json:"pushedAt"`
}

// LayoutMirror abstracts a hosted database that stores page layouts.
type LayoutMirror interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// PushLayout replaces the mirrored copy of the page.
	PushLayout(ctx context.Context, layout Layout) error

	// PullLayout reads the mirrored copy of a page.
	PullLayout(ctx context.Context, pageID string) (*Layout, error)

	// Close closes the connection.
	Close() error
}

// NewMirror creates a LayoutMirror for the given target.
// The password must be provided separately (from SecretStore).
func NewMirror(target *domain.SyncTarget, password string) (LayoutMirror, error) {
	switch target.Driver {
	case domain.MirrorDriverSQLite:
		return newSQLiteMirror(target)
	case domain.MirrorDriverMySQL:
		return newMySQLMirror(target, password)
	case domain.MirrorDriverPostgres:
		return newPostgresMirror(target, password)
	case domain.MirrorDriverMongoDB:
		return newMongoMirror(target, password)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", target.Driver)
	}
}
