package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Full(t *testing.T) {
	src := `
data_dir         = "/tmp/organizer"
cell_size        = 120
approval_timeout = "30s"

grid {
  cols    = 12
  rows    = 6
  gap     = 8
  compact = true
}

mirror "supabase" {
  driver   = "postgres"
  host     = "db.example.com"
  database = "postgres"
  username = "organizer"
  schedule = "@every 15m"
}

mirror "local" {
  driver    = "sqlite"
  host      = "/tmp/mirror.db"
  auto_sync = true
}
`
	cfg, err := Parse([]byte(src), "organizer.hcl")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.DataDir != "/tmp/organizer" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.CellSize != 120 {
		t.Errorf("CellSize = %v, want 120", cfg.CellSize)
	}
	if cfg.ApprovalTimeout != 30*time.Second {
		t.Errorf("ApprovalTimeout = %v, want 30s", cfg.ApprovalTimeout)
	}
	if cfg.WatchInterval != 2*time.Second {
		t.Errorf("WatchInterval = %v, want default 2s", cfg.WatchInterval)
	}
	if cfg.Grid != (GridDefaults{Cols: 12, Rows: 6, Gap: 8, Compact: true}) {
		t.Errorf("Grid = %+v", cfg.Grid)
	}
	if len(cfg.Mirrors) != 2 {
		t.Fatalf("expected 2 mirrors, got %d", len(cfg.Mirrors))
	}
	if m := cfg.Mirrors[0]; m.Name != "supabase" || m.Driver != "postgres" || m.SSLMode != "disable" || m.Schedule != "@every 15m" {
		t.Errorf("mirror[0] = %+v", m)
	}
	if m := cfg.Mirrors[1]; !m.AutoSync || m.Host != "/tmp/mirror.db" {
		t.Errorf("mirror[1] = %+v", m)
	}
	if got := cfg.DBPath(); got != filepath.Join("/tmp/organizer", "organizer.db") {
		t.Errorf("DBPath = %q", got)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`data_dir = "/data"`), "min.hcl")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid != (GridDefaults{Cols: 9, Rows: 8, Gap: 16}) {
		t.Errorf("Grid = %+v, want 9x8 gap 16", cfg.Grid)
	}
	if cfg.CellSize != 135 {
		t.Errorf("CellSize = %v, want 135", cfg.CellSize)
	}
	if cfg.ApprovalTimeout != 120*time.Second {
		t.Errorf("ApprovalTimeout = %v", cfg.ApprovalTimeout)
	}
}

func TestGridDefaults_PageGrid(t *testing.T) {
	g := GridDefaults{Cols: 12, Rows: 6, Gap: 8, Compact: true}.PageGrid()
	if g.Cols != 12 || g.Rows != 6 || g.Gap != 8 || !g.Compact {
		t.Errorf("PageGrid = %+v", g)
	}
	if g.Breakpoints.LG != 1200 {
		t.Errorf("expected default breakpoints, got %+v", g.Breakpoints)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `grid {`, "parse"},
		{"bad duration", `approval_timeout = "soon"`, "approval_timeout"},
		{"bad driver", `mirror "x" { driver = "oracle" }`, "unsupported driver"},
		{"duplicate mirror", `
mirror "x" { driver = "sqlite" }
mirror "x" { driver = "sqlite" }`, "duplicate mirror"},
		{"negative cell", `cell_size = -1`, "cell_size"},
		{"unknown attribute", `colour = "blue"`, "decode"},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.src), tt.name+".hcl")
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	cfg, err := Load(filepath.Join(dir, "does-not-exist.hcl"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.Grid.Cols != 9 {
		t.Errorf("Grid.Cols = %d, want 9", cfg.Grid.Cols)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "organizer.hcl")
	if err := os.WriteFile(path, []byte("cell_size = 100\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvDataDir, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CellSize != 100 {
		t.Errorf("CellSize = %v, want 100", cfg.CellSize)
	}
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/organizer.hcl")
	if got := DefaultPath(); got != "/etc/organizer.hcl" {
		t.Errorf("DefaultPath = %q", got)
	}
}
