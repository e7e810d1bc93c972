package dbclient

import (
	"fmt"
	"net"
	"strconv"

	"organizer/internal/domain"

	"github.com/go-sql-driver/mysql"
)

func mysqlConfig(t *domain.SyncTarget, password string) (*mysql.Config, error) {
	if t.Host == "" {
		return nil, fmt.Errorf("mysql mirror %q: empty host", t.Name)
	}
	port := t.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = t.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(t.Host, strconv.Itoa(port))
	cfg.DBName = t.Database
	// pushed_at is scanned into time.Time
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	switch t.SSLMode {
	case "require":
		cfg.TLSConfig = "true"
	case "skip-verify":
		cfg.TLSConfig = "skip-verify"
	}
	return cfg, nil
}

func newMySQLMirror(t *domain.SyncTarget, password string) (*sqlMirror, error) {
	cfg, err := mysqlConfig(t, password)
	if err != nil {
		return nil, err
	}
	return newSQLMirror("mysql", cfg.FormatDSN())
}
