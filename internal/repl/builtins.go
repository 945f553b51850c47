package repl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ghostkellz/gshell/internal/builtin"
	"github.com/ghostkellz/gshell/internal/history"
	"github.com/ghostkellz/gshell/internal/state"
)

// RegisterExtras installs the "source" and "history" builtins. Both need
// to close over the Driver (source: recursive parse+execute; history: a
// bound *history.Store), rather than live in builtin.NewRegistry(),
// which would otherwise create an import cycle back into this package.
func (d *Driver) RegisterExtras(reg *builtin.Registry) {
	reg.Register("source", d.builtinSource)
	reg.Register("history", d.builtinHistory)
}

func (d *Driver) builtinSource(s *state.ShellState, argv []string, stdin []byte) builtin.Result {
	if len(argv) < 2 {
		return builtin.Result{Status: 1, Output: []byte("source: missing file operand\n")}
	}
	status := d.RunScript(argv[1], argv[2:])
	return builtin.Result{Status: status}
}

// builtinHistory implements `history [N]` (print the last N entries, or
// all of them) and the supplemented `history -d N1 N2` unified-diff
// debug form (SPEC_FULL.md §4.1).
func (d *Driver) builtinHistory(s *state.ShellState, argv []string, stdin []byte) builtin.Result {
	if d.History == nil {
		return builtin.Result{Status: 1, Output: []byte("history: no history store configured\n")}
	}

	if len(argv) >= 4 && argv[1] == "-d" {
		return d.historyDiff(argv[2], argv[3])
	}

	limit := 0
	if len(argv) >= 2 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			limit = n
		}
	}
	entries, err := d.History.Recent(limit)
	if err != nil {
		return builtin.Result{Status: 1, Output: []byte(err.Error() + "\n")}
	}
	var sb strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&sb, "%5d  %s\n", i+1, e.Command)
	}
	return builtin.Result{Status: 0, Output: []byte(sb.String())}
}

func (d *Driver) historyDiff(a, b string) builtin.Result {
	n1, err1 := strconv.Atoi(a)
	n2, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil {
		return builtin.Result{Status: 1, Output: []byte("history: -d requires two numeric indices\n")}
	}
	entries, err := d.History.Recent(0)
	if err != nil {
		return builtin.Result{Status: 1, Output: []byte(err.Error() + "\n")}
	}
	if n1 < 1 || n2 < 1 || n1 > len(entries) || n2 > len(entries) {
		return builtin.Result{Status: 1, Output: []byte("history: index out of range\n")}
	}
	out, err := history.Diff(entries[n1-1], entries[n2-1])
	if err != nil {
		return builtin.Result{Status: 1, Output: []byte(err.Error() + "\n")}
	}
	return builtin.Result{Status: 0, Output: []byte(out)}
}
