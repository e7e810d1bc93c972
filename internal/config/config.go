// Package config loads the organizer settings file.
//
// The file is optional HCL:
//
//	data_dir         = "/srv/organizer"
//	cell_size        = 135
//	approval_timeout = "2m"
//	watch_interval   = "2s"
//
//	grid {
//	  cols = 9
//	  rows = 8
//	  gap  = 16
//	}
//
//	mirror "supabase" {
//	  driver   = "postgres"
//	  host     = "db.example.com"
//	  database = "postgres"
//	  username = "organizer"
//	  schedule = "@every 15m"
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"organizer/internal/domain"
)

const (
	EnvConfigPath = "ORGANIZER_CONFIG"
	EnvDataDir    = "ORGANIZER_DATA_DIR"
)

// Config is the resolved application configuration.
type Config struct {
	DataDir         string
	CellSize        float64 // widget cell edge in pixels, used for drag mapping
	ApprovalTimeout time.Duration
	WatchInterval   time.Duration
	Grid            GridDefaults
	Mirrors         []Mirror
}

// GridDefaults seeds the grid of newly created pages.
type GridDefaults struct {
	Cols    int
	Rows    int
	Gap     int
	Compact bool
}

// PageGrid returns the grid config for a new page.
func (g GridDefaults) PageGrid() domain.GridConfig {
	cfg := domain.DefaultGridConfig()
	cfg.Cols = g.Cols
	cfg.Rows = g.Rows
	cfg.Gap = g.Gap
	cfg.Compact = g.Compact
	return cfg
}

// Mirror seeds a sync target by name.
type Mirror struct {
	Name     string
	Driver   string
	Host     string
	Port     int
	Database string
	Username string
	SSLMode  string
	Schedule string
	AutoSync bool
}

// DBPath is the SQLite file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "organizer.db")
}

// NotesDir holds markdown files linked to notes widgets.
func (c *Config) NotesDir() string {
	return filepath.Join(c.DataDir, "notes")
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		homeDir, _ := os.UserHomeDir()
		c.DataDir = filepath.Join(homeDir, ".local", "share", "organizer")
	}
	if c.CellSize == 0 {
		c.CellSize = 135
	}
	if c.ApprovalTimeout == 0 {
		c.ApprovalTimeout = 120 * time.Second
	}
	if c.WatchInterval == 0 {
		c.WatchInterval = 2 * time.Second
	}
	if c.Grid.Cols == 0 {
		c.Grid.Cols = 9
	}
	if c.Grid.Rows == 0 {
		c.Grid.Rows = 8
	}
	if c.Grid.Gap == 0 {
		c.Grid.Gap = 16
	}
	for i := range c.Mirrors {
		if c.Mirrors[i].SSLMode == "" {
			c.Mirrors[i].SSLMode = "disable"
		}
	}
}

func (c *Config) validate() error {
	if c.CellSize <= 0 {
		return fmt.Errorf("cell_size must be positive, got %v", c.CellSize)
	}
	if c.Grid.Cols < 1 || c.Grid.Rows < 1 {
		return fmt.Errorf("grid must have at least one cell, got %dx%d", c.Grid.Cols, c.Grid.Rows)
	}
	if c.Grid.Gap < 0 {
		return fmt.Errorf("grid gap must not be negative, got %d", c.Grid.Gap)
	}
	seen := make(map[string]bool)
	for _, m := range c.Mirrors {
		if seen[m.Name] {
			return fmt.Errorf("duplicate mirror %q", m.Name)
		}
		seen[m.Name] = true
		switch m.Driver {
		case "postgres", "mysql", "sqlite", "mongodb":
		default:
			return fmt.Errorf("mirror %q: unsupported driver %q", m.Name, m.Driver)
		}
	}
	return nil
}

// DefaultPath returns the settings file location, honouring ORGANIZER_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		dir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(dir, "organizer", "organizer.hcl")
}

// Load reads the settings file at path. A missing file yields the defaults.
// ORGANIZER_DATA_DIR overrides data_dir.
func Load(path string) (*Config, error) {
	var cfg *Config
	src, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = &Config{}
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		cfg, err = decode(src, path)
		if err != nil {
			return nil, err
		}
	}

	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.DataDir = dir
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes HCL source and applies defaults. filename is only used in
// diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	cfg, err := decode(src, filename)
	if err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return cfg, nil
}

// hclFile is the on-disk shape of the settings file.
type hclFile struct {
	DataDir         string       `hcl:"data_dir,optional"`
	CellSize        float64      `hcl:"cell_size,optional"`
	ApprovalTimeout string       `hcl:"approval_timeout,optional"`
	WatchInterval   string       `hcl:"watch_interval,optional"`
	Grid            *hclGrid     `hcl:"grid,block"`
	Mirrors         []*hclMirror `hcl:"mirror,block"`
}

type hclGrid struct {
	Cols    int  `hcl:"cols,optional"`
	Rows    int  `hcl:"rows,optional"`
	Gap     int  `hcl:"gap,optional"`
	Compact bool `hcl:"compact,optional"`
}

type hclMirror struct {
	Name     string `hcl:"name,label"`
	Driver   string `hcl:"driver"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	Database string `hcl:"database,optional"`
	Username string `hcl:"username,optional"`
	SSLMode  string `hcl:"ssl_mode,optional"`
	Schedule string `hcl:"schedule,optional"`
	AutoSync bool   `hcl:"auto_sync,optional"`
}

func decode(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var raw hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	cfg := &Config{
		DataDir:  raw.DataDir,
		CellSize: raw.CellSize,
	}
	var err error
	if cfg.ApprovalTimeout, err = parseDuration("approval_timeout", raw.ApprovalTimeout); err != nil {
		return nil, err
	}
	if cfg.WatchInterval, err = parseDuration("watch_interval", raw.WatchInterval); err != nil {
		return nil, err
	}
	if raw.Grid != nil {
		cfg.Grid = GridDefaults{
			Cols:    raw.Grid.Cols,
			Rows:    raw.Grid.Rows,
			Gap:     raw.Grid.Gap,
			Compact: raw.Grid.Compact,
		}
	}
	for _, m := range raw.Mirrors {
		cfg.Mirrors = append(cfg.Mirrors, Mirror{
			Name:     m.Name,
			Driver:   m.Driver,
			Host:     m.Host,
			Port:     m.Port,
			Database: m.Database,
			Username: m.Username,
			SSLMode:  m.SSLMode,
			Schedule: m.Schedule,
			AutoSync: m.AutoSync,
		})
	}
	return cfg, nil
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
