package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reajuria/bindb"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bindb.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesDirAndTables(t *testing.T) {
	path := writeConfig(t, `
database: shop
dir: ./data
tables:
  - name: widgets
    cache_size: 256
    max_pending_records: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "shop" || cfg.Dir != "./data" {
		t.Fatalf("Load = %+v, want database=shop dir=./data", cfg)
	}
	if len(cfg.Tables) != 1 || cfg.Tables[0].Name != "widgets" {
		t.Fatalf("Tables = %+v, want one entry named widgets", cfg.Tables)
	}
}

func TestLoadRequiresDir(t *testing.T) {
	path := writeConfig(t, "database: shop\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a config file missing dir")
	}
}

func TestTableEntryOptionsFallsBackToDefaults(t *testing.T) {
	e := TableEntry{Name: "widgets"}
	opts := e.TableOptions()
	defaults := bindb.DefaultTableOptions()
	if opts != defaults {
		t.Fatalf("TableOptions() = %+v, want the bindb defaults %+v", opts, defaults)
	}
}
