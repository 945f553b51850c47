// Package config persists a small slice of ShellConfig (history size/file,
// which the script host can change at runtime, and the configured plugin
// list) so a later non-interactive invocation still honors a prior
// session's overrides, per SPEC_FULL.md §4.2.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ghostkellz/gshell/internal/shellerr"
	"github.com/ghostkellz/gshell/internal/state"
)

// Runtime is the YAML-round-trippable subset of ShellConfig: the fields
// set_history_size/set_history_file change, plus ShellConfig.Plugins.
// enable_plugin/disable_plugin track plugins on the script host only and
// do not change ShellConfig.Plugins, so they are not persisted here.
type Runtime struct {
	HistorySize int      `yaml:"history_size,omitempty"`
	HistoryFile string   `yaml:"history_file,omitempty"`
	Plugins     []string `yaml:"plugins,omitempty"`
}

// Load reads the sidecar at path, returning a zero Runtime (not an
// error) if it does not exist yet.
func Load(path string) (Runtime, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Runtime{}, nil
	}
	if err != nil {
		return Runtime{}, &shellerr.HistoryError{Op: "config-load", Err: err}
	}
	var r Runtime
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Runtime{}, &shellerr.HistoryError{Op: "config-load", Err: err}
	}
	return r, nil
}

// Save writes r to path with owner-only permissions.
func Save(path string, r Runtime) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return &shellerr.HistoryError{Op: "config-save", Err: err}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &shellerr.HistoryError{Op: "config-save", Err: err}
	}
	return nil
}

// FromConfig extracts the persistable subset from a live ShellConfig.
func FromConfig(cfg state.ShellConfig) Runtime {
	return Runtime{
		HistorySize: cfg.HistorySize,
		HistoryFile: cfg.HistoryFile,
		Plugins:     append([]string(nil), cfg.Plugins...),
	}
}

// ApplyTo merges r into cfg, overriding only the fields r actually set.
func (r Runtime) ApplyTo(cfg *state.ShellConfig) {
	if r.HistorySize > 0 {
		cfg.HistorySize = r.HistorySize
	}
	if r.HistoryFile != "" {
		cfg.HistoryFile = r.HistoryFile
	}
	if len(r.Plugins) > 0 {
		cfg.Plugins = r.Plugins
	}
}
