package dbclient

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"organizer/internal/domain"

	_ "github.com/lib/pq"
)

// postgresURL renders the target as a postgres:// URL. The URL form escapes
// passwords that would break the key=value format (spaces, quotes).
func postgresURL(t *domain.SyncTarget, password string) (string, error) {
	if t.Host == "" {
		return "", fmt.Errorf("postgres mirror %q: empty host", t.Name)
	}
	port := t.Port
	if port == 0 {
		port = 5432
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	if t.SSLMode != "" {
		q.Set("sslmode", t.SSLMode)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(t.Username, password),
		Host:     net.JoinHostPort(t.Host, strconv.Itoa(port)),
		Path:     "/" + t.Database,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

func newPostgresMirror(t *domain.SyncTarget, password string) (*sqlMirror, error) {
	dsn, err := postgresURL(t, password)
	if err != nil {
		return nil, err
	}
	return newSQLMirror("postgres", dsn)
}
