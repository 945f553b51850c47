// Package repl implements the REPL driver from spec.md §4.9: the
// one-iteration loop (drain signals, prompt, read, parse+execute,
// persist history), plus script mode and command mode.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ghostkellz/gshell/internal/editor"
	"github.com/ghostkellz/gshell/internal/exec"
	"github.com/ghostkellz/gshell/internal/history"
	"github.com/ghostkellz/gshell/internal/parser"
	"github.com/ghostkellz/gshell/internal/script"
	"github.com/ghostkellz/gshell/internal/shellerr"
	"github.com/ghostkellz/gshell/internal/signals"
	"github.com/ghostkellz/gshell/internal/state"
)

// PromptContext is what the external prompt collaborator renders from.
type PromptContext struct {
	User     string
	Host     string
	Cwd      string
	Status   int
	JobsLen  int
}

// PromptRenderer renders a prompt string from context. A renderer that
// errors or panics must not abort the REPL: Driver falls back to the
// config's literal prompt string, per spec.md §9 design notes.
type PromptRenderer interface {
	Render(ctx PromptContext) (string, error)
}

// literalPrompt is the trivial fallback PromptRenderer.
type literalPrompt struct{ s string }

func (l literalPrompt) Render(PromptContext) (string, error) { return l.s, nil }

// Driver orchestrates one REPL session against a shared ShellState.
type Driver struct {
	State    *state.ShellState
	Executor *exec.Executor
	History  *history.Store
	Signals  *signals.Layer
	Script   *script.Host
	Prompt   PromptRenderer
	Logger   *zap.SugaredLogger

	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	lineReader *bufio.Reader // used when stdin is not a TTY
}

// New builds a Driver. A nil logger becomes a no-op logger; a nil
// Prompt falls back to the config's literal PromptTemplate.
func New(s *state.ShellState, ex *exec.Executor, h *history.Store, sig *signals.Layer, prompt PromptRenderer, logger *zap.SugaredLogger, stdin *os.File, stdout, stderr io.Writer) *Driver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if prompt == nil {
		prompt = literalPrompt{s: s.Config.PromptTemplate}
	}
	return &Driver{
		State:    s,
		Executor: ex,
		History:  h,
		Signals:  sig,
		Prompt:   prompt,
		Logger:   logger,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}
}

// historyAdapter exposes the Store to the editor's HistorySource interface.
type historyAdapter struct{ s *history.Store }

func (h historyAdapter) Entries() []string {
	entries := h.s.RingSnapshot()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Command
	}
	return out
}

// RunInteractive drives the REPL until state.ShouldExit, returning the
// final exit code.
func (d *Driver) RunInteractive() int {
	isTTY := term.IsTerminal(int(d.stdin.Fd()))

	var ed *editor.Editor
	if isTTY {
		ed = editor.New(int(d.stdin.Fd()), d.stdin, d.stdout,
			func() string { return d.renderPrompt() },
			historyAdapter{d.History}, nil, 0)
	} else {
		d.lineReader = bufio.NewReader(d.stdin)
	}

	for {
		if d.Signals != nil {
			d.reapJobs()
			d.Signals.TakeInterrupted()
			if d.Signals.TakeSuspended() {
				fmt.Fprintln(d.stderr, "gshell: job control is not supported; suspend ignored")
			}
		}

		var line string
		var err error
		if isTTY {
			fmt.Fprint(d.stdout, d.renderPrompt())
			line, err = ed.ReadLine()
		} else {
			// Batch/piped stdin: no prompt is rendered, matching
			// conventional shell behavior for non-interactive input.
			line, err = d.lineReader.ReadString('\n')
			line = strings.TrimRight(line, "\n")
		}

		if err != nil && !isTTY && err == io.EOF && line != "" {
			// Final line of a piped/batch input with no trailing
			// newline: still a real line, process it before exiting.
			d.runLine(line)
			break
		}

		if err != nil {
			if err == io.EOF {
				break
			}
			var ee *shellerr.EditorError
			if errors.As(err, &ee) {
				continue
			}
			break
		}

		d.runLine(line)
		if d.State.ShouldExit {
			break
		}
	}
	return shellerr.ClampExitCode(d.State.ExitCode)
}

func (d *Driver) renderPrompt() (prompt string) {
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Warnw("prompt renderer panicked, using fallback", "panic", r)
			prompt = d.State.Config.PromptTemplate
		}
	}()
	ctx := PromptContext{
		User:    d.State.Getenv("USER"),
		Host:    d.State.Getenv("HOSTNAME"),
		Cwd:     cwdOrEmpty(),
		Status:  d.State.ExitCode,
		JobsLen: len(d.State.Jobs()),
	}
	s, err := d.Prompt.Render(ctx)
	if err != nil {
		d.Logger.Warnw("prompt renderer failed, using fallback", "error", err)
		return d.State.Config.PromptTemplate
	}
	return s
}

func cwdOrEmpty() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// reapJobs drains the SIGCHLD-observed flag. Marking a job done is the
// responsibility of its own background wait goroutine (internal/exec,
// which owns the child via os/exec and already reaps it in c.Wait()); a
// second waitpid here would race that reap and only ever see ECHILD.
func (d *Driver) reapJobs() {
	d.Signals.TakeChildExited()
}

// runLine executes one trimmed input line: skips blanks/comments, dedups
// and records history, restores default signals around execution, and
// prints captured output, per spec.md §4.9 steps 4-8.
func (d *Driver) runLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	p, err := parser.Parse(line)
	if err != nil {
		d.printParseError(err)
		d.State.ExitCode = 2
		return
	}
	if p.Empty() {
		return
	}

	ctx := context.Background()
	var res exec.Result
	if d.Signals != nil {
		d.Signals.RestoreDefaults(func() {
			res = d.Executor.Run(ctx, p)
		})
	} else {
		res = d.Executor.Run(ctx, p)
	}

	d.State.ExitCode = res.Status

	if d.History != nil {
		if err := d.History.Append(line, res.Status); err != nil {
			d.Logger.Warnw("history append failed", "error", err)
		}
	}

	d.printOutput(res.CapturedOutput)
}

func (d *Driver) printParseError(err error) {
	var pe *shellerr.ParseError
	if errors.As(err, &pe) {
		fmt.Fprintf(d.stderr, "error: %s\n", pe.Kind)
		return
	}
	fmt.Fprintf(d.stderr, "error: %v\n", err)
}

func (d *Driver) printOutput(out []byte) {
	if len(out) == 0 {
		return
	}
	d.stdout.Write(out)
	if out[len(out)-1] != '\n' {
		fmt.Fprintln(d.stdout)
	}
}
