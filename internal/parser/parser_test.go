package parser

import (
	"errors"
	"testing"

	"github.com/ghostkellz/gshell/internal/shellerr"
	"github.com/google/go-cmp/cmp"
)

func argv(words ...string) []Arg {
	out := make([]Arg, len(words))
	for i, w := range words {
		out[i] = Arg{Text: w}
	}
	return out
}

func TestParseSimple(t *testing.T) {
	p, err := Parse("echo hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Commands) != 1 {
		t.Fatalf("want 1 command, got %d", len(p.Commands))
	}
	got := p.Commands[0].Argv
	want := argv("echo", "hello", "world")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePipeline(t *testing.T) {
	p, err := Parse("cat | grep foo | wc -l")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Commands) != 3 {
		t.Fatalf("want 3 commands, got %d", len(p.Commands))
	}
}

func TestParseRedirections(t *testing.T) {
	p, err := Parse("cat < in.txt | grep foo >> out.log")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Commands[0].StdinFile != "in.txt" {
		t.Errorf("StdinFile = %q, want in.txt", p.Commands[0].StdinFile)
	}
	last := p.Commands[len(p.Commands)-1]
	if last.StdoutFile != "out.log" || last.StdoutMode != Append {
		t.Errorf("got StdoutFile=%q mode=%v, want out.log append", last.StdoutFile, last.StdoutMode)
	}
}

func TestParseQuotePreservation(t *testing.T) {
	for _, b := range []string{"hi there", "a&b|c", "", "x"} {
		p, err := Parse("echo '" + b + "'")
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", b, err)
		}
		got := p.Commands[0].Argv
		want := argv("echo", b)
		if diff := cmp.Diff(want, got, cmp.Comparer(func(a, bb Arg) bool { return a.Text == bb.Text })); diff != "" {
			t.Errorf("mismatch for body %q (-want +got):\n%s", b, diff)
		}
		if !got[1].Quoted {
			t.Errorf("expected second arg to be marked Quoted for body %q", b)
		}
	}
}

func TestParseDoubleQuoted(t *testing.T) {
	p, err := Parse(`echo "a $X b"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Commands[0].Argv[1].Text != "a $X b" {
		t.Errorf("got %q, want literal a $X b (expansion deferred)", p.Commands[0].Argv[1].Text)
	}
	if p.Commands[0].Argv[1].Quoted {
		t.Errorf("double-quoted arg must not be marked Quoted (it IS re-expanded)")
	}
}

func TestParseBackground(t *testing.T) {
	p, err := Parse("sleep 10 &")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Background {
		t.Errorf("expected Background=true")
	}
}

func TestParseComment(t *testing.T) {
	p, err := Parse("# this is a comment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Empty() {
		t.Errorf("expected empty pipeline for comment line")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		line string
		kind shellerr.ParseErrorKind
	}{
		{"| cat", shellerr.UnexpectedToken},
		{"cat |", shellerr.MissingCommand},
		{"cat >", shellerr.MissingRedirectionTarget},
		{"echo 'hi", shellerr.UnclosedQuote},
		{"echo hi & extra", shellerr.UnexpectedToken},
		{"cat >> > out", shellerr.UnexpectedToken},
	}
	for _, c := range cases {
		_, err := Parse(c.line)
		if err == nil {
			t.Errorf("Parse(%q): expected error", c.line)
			continue
		}
		var pe *shellerr.ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q): error is not *ParseError: %v", c.line, err)
			continue
		}
		if pe.Kind != c.kind {
			t.Errorf("Parse(%q): kind = %v, want %v", c.line, pe.Kind, c.kind)
		}
	}
}

func TestParseDeterministic(t *testing.T) {
	const line = "echo a | grep b > out.txt"
	p1, err1 := Parse(line)
	p2, err2 := Parse(line)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if diff := cmp.Diff(p1, p2, cmp.Comparer(func(a, b Arg) bool { return a == b })); diff != "" {
		t.Errorf("Parse not deterministic (-p1 +p2):\n%s", diff)
	}
}

func TestParseArity(t *testing.T) {
	p, err := Parse("echo a | cat | cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Commands) < 1 {
		t.Fatalf("pipeline arity invariant violated: 0 commands")
	}
	for _, c := range p.Commands {
		if len(c.Argv) < 1 {
			t.Errorf("command arity invariant violated: 0 argv")
		}
	}
}
