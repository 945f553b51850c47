package config

import (
	"path/filepath"
	"testing"

	"github.com/ghostkellz/gshell/internal/state"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.yaml")

	want := Runtime{HistorySize: 2000, HistoryFile: "/tmp/h", Plugins: []string{"git", "prompt"}}
	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.HistorySize != want.HistorySize || got.HistoryFile != want.HistoryFile {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.Plugins) != 2 {
		t.Errorf("plugins = %v", got.Plugins)
	}
}

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	got, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if got.HistorySize != 0 || got.HistoryFile != "" || len(got.Plugins) != 0 {
		t.Errorf("expected zero value, got %+v", got)
	}
}

func TestApplyToOnlyOverridesSetFields(t *testing.T) {
	cfg := state.DefaultConfig()
	cfg.HistorySize = 1000
	cfg.HistoryFile = "/tmp/original"

	r := Runtime{HistorySize: 5000}
	r.ApplyTo(&cfg)

	if cfg.HistorySize != 5000 {
		t.Errorf("HistorySize = %d, want 5000", cfg.HistorySize)
	}
	if cfg.HistoryFile != "/tmp/original" {
		t.Errorf("HistoryFile should be untouched, got %q", cfg.HistoryFile)
	}
}
