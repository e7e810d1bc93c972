package domain

import "time"

// MirrorDriver is the database engine a layout mirror writes to.
type MirrorDriver string

const (
	MirrorDriverMySQL    MirrorDriver = "mysql"
	MirrorDriverPostgres MirrorDriver = "postgres"
	MirrorDriverMongoDB  MirrorDriver = "mongodb"
	MirrorDriverSQLite   MirrorDriver = "sqlite"
)

// SyncTarget is a hosted database that receives copies of page layouts.
// The password lives in the SecretStore under the target ID.
type SyncTarget struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Driver     MirrorDriver `json:"driver"`
	Host       string       `json:"host"`     // hostname, URI (mongodb) or file path (sqlite)
	Port       int          `json:"port"`     // 0 selects the driver default
	Database   string       `json:"database"` // empty for sqlite
	Username   string       `json:"username"`
	SSLMode    string       `json:"sslMode"`
	ExtraJSON  string       `json:"extraJson"`
	Schedule   string       `json:"schedule"` // cron expression, empty for manual
	AutoSync   bool         `json:"autoSync"` // push after every layout change
	LastSyncAt *time.Time   `json:"lastSyncAt"`
	LastError  string       `json:"lastError"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type SyncTargetStore interface {
	CreateTarget(t *SyncTarget) error
	GetTarget(id string) (*SyncTarget, error)
	GetTargetByName(name string) (*SyncTarget, error)
	ListTargets() ([]SyncTarget, error)
	UpdateTarget(t *SyncTarget) error
	DeleteTarget(id string) error
}
