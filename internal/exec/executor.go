// Package exec runs a Pipeline: it chains stdin/stdout between stages,
// invokes builtins or fork/exec's externals, applies redirections, and
// registers background jobs, per spec.md §4.4.
package exec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ghostkellz/gshell/internal/builtin"
	"github.com/ghostkellz/gshell/internal/expand"
	"github.com/ghostkellz/gshell/internal/parser"
	"github.com/ghostkellz/gshell/internal/shellerr"
	"github.com/ghostkellz/gshell/internal/state"
)

// maxRedirectInput caps how much a `<` redirection will read into memory
// before failing with FileTooLarge, per spec.md §4.4.
const maxRedirectInput = 100 << 20 // 100 MiB

// unsafeWriteRoots is the deny-list of system directories no redirection
// may write into, per spec.md §4.4.
var unsafeWriteRoots = []string{
	"/bin", "/sbin", "/usr/bin", "/usr/sbin", "/boot", "/sys", "/proc",
}

// Result is what Run returns for one pipeline.
type Result struct {
	Status         int
	CapturedOutput []byte
	JobID          *uint32
}

// Executor runs pipelines against a shared ShellState and builtin registry.
type Executor struct {
	State    *state.ShellState
	Builtins *builtin.Registry
	Logger   *zap.Logger
}

// New creates an Executor. A nil logger becomes a no-op logger.
func New(s *state.ShellState, reg *builtin.Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{State: s, Builtins: reg, Logger: logger}
}

// Run executes pipeline to completion following the algorithm in spec.md
// §4.4: builtin side effects and file writes commit left to right; each
// stage fully drains its stdin before the next stage begins.
func (e *Executor) Run(ctx context.Context, p *parser.Pipeline) Result {
	if p.Empty() {
		return Result{Status: 0}
	}

	e.Logger.Debug("running pipeline",
		zap.Int("stages", len(p.Commands)),
		zap.Bool("background", p.Background))

	if p.Background {
		return e.runBackground(ctx, p.Commands[0])
	}

	var previous []byte
	status := 0

	for _, cmd := range p.Commands {
		stdinData := previous
		if cmd.StdinFile != "" {
			data, err := readRedirectInput(cmd.StdinFile)
			if err != nil {
				e.printErr(err)
				return Result{Status: 1, CapturedOutput: nil}
			}
			stdinData = data
		}

		argv := expandArgv(cmd, e.State.EnvMap())
		if len(argv) == 0 {
			// Elided stage: carry previous output forward unchanged.
			continue
		}
		argv = expand.SubstituteAlias(argv, e.State.Alias)

		var output []byte
		var stageStatus int

		if fn, ok := e.Builtins.Lookup(argv[0]); ok {
			res := fn(e.State, argv, stdinData)
			stageStatus, output = res.Status, res.Output
		} else {
			stageStatus, output = e.runExternal(ctx, argv, stdinData)
		}
		status = stageStatus

		if cmd.StdoutFile != "" {
			if err := writeRedirectOutput(cmd.StdoutFile, cmd.StdoutMode, output); err != nil {
				e.printErr(err)
				status = 1
			}
			previous = nil
		} else {
			previous = output
		}
	}

	return Result{Status: shellerr.ClampExitCode(status), CapturedOutput: previous}
}

func expandArgv(cmd *parser.Command, env map[string]string) []string {
	return expand.ExpandArgv(cmd.Argv, env)
}

// runExternal forks argv[0] via os/exec, feeding stdinData and capturing
// the full stdout, per spec.md §4.4 step 2e. stderr is inherited from the
// parent. runExternal itself does not touch signal dispositions: the REPL
// (internal/repl) wraps Run in signals.Layer.RestoreDefaults, so the child
// inherits the defaults and the shell handlers are reinstalled afterward
// (spec.md §4.7).
func (e *Executor) runExternal(ctx context.Context, argv []string, stdinData []byte) (int, []byte) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = e.State.Environ()
	cmd.Stderr = os.Stderr
	prepareCommand(cmd)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		e.printErr(err)
		return 127, nil
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		e.printErr(err)
		return 127, nil
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
			e.Logger.Debug("command not found", zap.String("cmd", argv[0]))
			return 127, nil
		}
		return 126, nil
	}

	var out bytes.Buffer
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stdinPipe.Close()
		_, err := stdinPipe.Write(stdinData)
		if err != nil && !errors.Is(err, syscall.EPIPE) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		_, err := io.Copy(&out, stdoutPipe)
		return err
	})
	writeErr := g.Wait()

	err = cmd.Wait()
	if writeErr != nil && errors.Is(writeErr, syscall.EPIPE) {
		return 141, out.Bytes()
	}

	if err == nil {
		return 0, out.Bytes()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return (&shellerr.SignalExit{Signo: int(status.Signal())}).Status(), out.Bytes()
			}
			return status.ExitStatus(), out.Bytes()
		}
		return exitErr.ExitCode(), out.Bytes()
	}
	return 127, out.Bytes()
}

// runBackground spawns a single-stage pipeline in the background: stdin
// and stdout are the null device, and a Job is recorded immediately
// without waiting for completion.
func (e *Executor) runBackground(ctx context.Context, cmd *parser.Command) Result {
	argv := expandArgv(cmd, e.State.EnvMap())
	if len(argv) == 0 {
		return Result{Status: 0}
	}
	argv = expand.SubstituteAlias(argv, e.State.Alias)

	if _, ok := e.Builtins.Lookup(argv[0]); ok {
		// Builtins run in-process; there is no child PID to background, so
		// we run it synchronously and still report a job for symmetry.
		fn, _ := e.Builtins.Lookup(argv[0])
		res := fn(e.State, argv, nil)
		j := e.State.AddJob(os.Getpid(), strings.Join(argv, " "))
		e.State.MarkDone(os.Getpid())
		return Result{Status: res.Status, JobID: &j.ID}
	}

	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		e.printErr(err)
		return Result{Status: 1}
	}
	defer null.Close()

	c := exec.Command(argv[0], argv[1:]...)
	c.Env = e.State.Environ()
	c.Stdin = null
	c.Stdout = null
	c.Stderr = null
	prepareCommand(c)

	if err := c.Start(); err != nil {
		e.printErr(err)
		return Result{Status: 127}
	}

	j := e.State.AddJob(c.Process.Pid, strings.Join(argv, " "))
	pid := c.Process.Pid
	go func() {
		c.Wait()
		e.State.MarkDone(pid)
	}()
	return Result{Status: 0, JobID: &j.ID}
}

func readRedirectInput(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &shellerr.RedirectError{Kind: shellerr.PermissionDenied, Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err == nil && info.Size() > maxRedirectInput {
		return nil, &shellerr.RedirectError{Kind: shellerr.FileTooLarge, Path: path}
	}
	data, err := io.ReadAll(io.LimitReader(f, maxRedirectInput+1))
	if err != nil {
		return nil, &shellerr.RedirectError{Kind: shellerr.PermissionDenied, Path: path, Err: err}
	}
	if len(data) > maxRedirectInput {
		return nil, &shellerr.RedirectError{Kind: shellerr.FileTooLarge, Path: path}
	}
	return data, nil
}

func writeRedirectOutput(path string, mode parser.RedirectMode, data []byte) error {
	if isUnsafeWritePath(path) {
		return &shellerr.RedirectError{Kind: shellerr.UnsafeOperation, Path: path}
	}

	flags := os.O_WRONLY | os.O_CREATE
	if mode == parser.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return &shellerr.RedirectError{Kind: shellerr.PermissionDenied, Path: path, Err: err}
	}
	defer f.Close()
	_, err = f.Write(data)
	if err != nil {
		return &shellerr.RedirectError{Kind: shellerr.PermissionDenied, Path: path, Err: err}
	}
	return nil
}

func isUnsafeWritePath(path string) bool {
	abs := path
	if !filepath.IsAbs(abs) {
		wd, err := os.Getwd()
		if err != nil {
			return false
		}
		abs = filepath.Join(wd, abs)
	}
	abs = filepath.Clean(abs)
	for _, root := range unsafeWriteRoots {
		if abs == root || strings.HasPrefix(abs, root+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

func (e *Executor) printErr(err error) {
	e.Logger.Debug("stage error", zap.Error(err))
	os.Stderr.WriteString(err.Error() + "\n")
}
