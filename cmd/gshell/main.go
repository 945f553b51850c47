// Command gshell is the POSIX-style interactive shell execution core:
// a bare REPL, a single-shot `-c` command mode, and a script runner.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ghostkellz/gshell/internal/builtin"
	"github.com/ghostkellz/gshell/internal/config"
	"github.com/ghostkellz/gshell/internal/exec"
	"github.com/ghostkellz/gshell/internal/history"
	"github.com/ghostkellz/gshell/internal/repl"
	"github.com/ghostkellz/gshell/internal/script"
	"github.com/ghostkellz/gshell/internal/shellerr"
	"github.com/ghostkellz/gshell/internal/signals"
	"github.com/ghostkellz/gshell/internal/state"
)

var command = flag.String("c", "", "command to be executed")

func init() {
	flag.StringVar(command, "command", "", "command to be executed")
}

func main() {
	flag.Parse()
	os.Exit(shellerr.ClampExitCode(run()))
}

func run() int {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	home, _ := os.UserHomeDir()
	cfg := state.DefaultConfig()
	cfg.HistoryFile = filepath.Join(home, ".gshell_history")
	cfg.RCFile = filepath.Join(home, ".gshellrc")

	runtimePath := filepath.Join(home, ".gshell_runtime.yaml")
	if rt, err := config.Load(runtimePath); err == nil {
		rt.ApplyTo(&cfg)
	} else {
		sugar.Warnw("failed to load runtime config", "path", runtimePath, "error", err)
	}

	s := state.New(cfg, os.Environ())
	reg := builtin.NewRegistry()
	ex := exec.New(s, reg, logger)

	h, err := history.Open(cfg.HistoryFile, cfg.HistorySize, cfg.WarnOnBadPerms, func(e error) {
		sugar.Warnw("history warning", "error", e)
	})
	if err != nil {
		sugar.Warnw("history store unavailable, continuing without persistence", "error", err)
		h, _ = history.Open("", cfg.HistorySize, false, nil)
	}
	defer h.Close()

	sig := signals.New(nil)
	defer sig.Close()

	d := repl.New(s, ex, h, sig, nil, sugar, os.Stdin, os.Stdout, os.Stderr)
	d.RegisterExtras(reg)

	scriptHost := script.New(s, func(cmdString string) bool {
		return d.RunCommand(cmdString) == 0
	}, "", filepath.Join(home, ".gshell"))
	d.Script = scriptHost

	if cfg.RCFile != "" {
		if _, statErr := os.Stat(cfg.RCFile + ".lua"); statErr == nil {
			if err := scriptHost.RunFile(cfg.RCFile + ".lua"); err != nil {
				fmt.Fprintf(os.Stderr, "rc file error: %v\n", err)
			}
		}
	}

	defer func() {
		config.Save(runtimePath, config.FromConfig(s.Config))
	}()

	if *command != "" {
		return d.RunCommand(*command)
	}

	args := flag.Args()
	if len(args) == 0 {
		return d.RunInteractive()
	}
	return d.RunScript(args[0], args[1:])
}
