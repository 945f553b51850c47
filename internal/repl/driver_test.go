package repl

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghostkellz/gshell/internal/builtin"
	"github.com/ghostkellz/gshell/internal/exec"
	"github.com/ghostkellz/gshell/internal/history"
	"github.com/ghostkellz/gshell/internal/state"
)

func newDriver(t *testing.T) (*Driver, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	s := state.New(state.DefaultConfig(), os.Environ())
	reg := builtin.NewRegistry()
	ex := exec.New(s, reg, nil)

	dir := t.TempDir()
	h, err := history.Open(filepath.Join(dir, "hist"), 1000, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })

	var stdout, stderr bytes.Buffer
	d := New(s, ex, h, nil, nil, nil, os.Stdin, &stdout, &stderr)
	d.RegisterExtras(reg)
	return d, &stdout, &stderr
}

func TestRunLineExecutesAndRecordsHistory(t *testing.T) {
	d, stdout, _ := newDriver(t)
	d.runLine("echo hello")

	if stdout.String() != "hello\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	entries, err := d.History.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Command != "echo hello" {
		t.Errorf("history = %+v", entries)
	}
}

func TestRunLineSkipsBlankAndComment(t *testing.T) {
	d, stdout, _ := newDriver(t)
	d.runLine("")
	d.runLine("   ")
	d.runLine("# a comment")

	entries, _ := d.History.Recent(0)
	if len(entries) != 0 {
		t.Errorf("expected no history entries, got %+v", entries)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output, got %q", stdout.String())
	}
}

func TestRunLineParseErrorSetsStatusTwo(t *testing.T) {
	d, _, stderr := newDriver(t)
	d.runLine("echo 'unterminated")

	if d.State.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", d.State.ExitCode)
	}
	if stderr.Len() == 0 {
		t.Error("expected a parse error message on stderr")
	}
}

func TestRunCommandReturnsStatus(t *testing.T) {
	d, stdout, _ := newDriver(t)
	status := d.RunCommand("echo hi")
	if status != 0 {
		t.Errorf("status = %d", status)
	}
	if stdout.String() != "hi\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunScriptExecutesLinesSkippingComments(t *testing.T) {
	d, stdout, _ := newDriver(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	script := "# a header comment\necho one\n\necho two\n"
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	status := d.RunScript(path, nil)
	if status != 0 {
		t.Errorf("status = %d", status)
	}
	if stdout.String() != "one\ntwo\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestHistoryBuiltinListsEntries(t *testing.T) {
	d, stdout, _ := newDriver(t)
	d.runLine("echo a")
	d.runLine("echo b")
	stdout.Reset()

	d.runLine("history")
	out := stdout.String()
	if out == "" {
		t.Fatal("expected history listing output")
	}
}

func TestSourceBuiltinRunsFileAndReturnsStatus(t *testing.T) {
	d, stdout, _ := newDriver(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "rc")
	if err := os.WriteFile(path, []byte("echo sourced\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	d.runLine("source " + path)
	if stdout.String() != "sourced\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if d.State.ExitCode != 0 {
		t.Errorf("source status = %d, want 0", d.State.ExitCode)
	}
}
