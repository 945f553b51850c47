package expand

import (
	"testing"

	"github.com/ghostkellz/gshell/internal/parser"
)

func TestVarsBasic(t *testing.T) {
	env := map[string]string{"A": "x", "B": "y"}
	got := Vars("$A$B", env)
	if got != "xy" {
		t.Errorf("got %q, want xy", got)
	}
}

func TestVarsUnset(t *testing.T) {
	got := Vars("[$UNSET]", map[string]string{})
	if got != "[]" {
		t.Errorf("got %q, want []", got)
	}
}

func TestVarsPurity(t *testing.T) {
	env := map[string]string{"A": "1"}
	a1 := Vars("$A", env)
	a2 := Vars("$A", env)
	if a1 != a2 {
		t.Errorf("expansion not pure: %q != %q", a1, a2)
	}
}

func TestArgQuotedNeverExpanded(t *testing.T) {
	a := parser.Arg{Text: "$HOME", Quoted: true}
	got := Arg(a, map[string]string{"HOME": "/root"})
	if got != "$HOME" {
		t.Errorf("quoted arg was expanded: got %q", got)
	}
}

func TestArgUnquotedExpanded(t *testing.T) {
	a := parser.Arg{Text: "$HOME", Quoted: false}
	got := Arg(a, map[string]string{"HOME": "/root"})
	if got != "/root" {
		t.Errorf("got %q, want /root", got)
	}
}

func TestAliasNonRecursive(t *testing.T) {
	table := map[string]string{
		"ll": "ls -la",
		"ls": "ll",
	}
	lookup := func(name string) (string, bool) {
		v, ok := table[name]
		return v, ok
	}
	got := SubstituteAlias([]string{"ll"}, lookup)
	want := []string{"ls", "-la"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestAliasAppendsRemainingArgs(t *testing.T) {
	lookup := func(name string) (string, bool) {
		if name == "ll" {
			return "ls -la", true
		}
		return "", false
	}
	got := SubstituteAlias([]string{"ll", "/tmp"}, lookup)
	want := []string{"ls", "-la", "/tmp"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
