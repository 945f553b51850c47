// Package expand implements the per-argument variable expansion and alias
// substitution pass described in spec.md §4.2. It runs once per command,
// immediately before dispatch, on the already-tokenized output of the
// parser.
package expand

import (
	"strings"

	"github.com/ghostkellz/gshell/internal/parser"
)

// varNameByte reports whether b can appear in a $NAME run: [A-Za-z0-9_?].
func varNameByte(b byte) bool {
	return b == '_' || b == '?' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Arg expands a single argument's text against env. It depends only on
// text and env (expansion purity, spec.md §8 property 4). A Quoted arg
// (pure single-quoted word) is returned unchanged: the parser already
// preserved it verbatim and it is never re-expanded.
func Arg(a parser.Arg, env map[string]string) string {
	if a.Quoted {
		return a.Text
	}
	return Vars(a.Text, env)
}

// Vars expands every $NAME run in s against env. NAME is the maximal
// [A-Za-z0-9_?]+ run following a '$'. An unset variable expands to the
// empty string; this is never an error.
func Vars(s string, env map[string]string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	n := len(s)
	for i := 0; i < n; i++ {
		if s[i] != '$' {
			b.WriteByte(s[i])
			continue
		}
		j := i + 1
		for j < n && varNameByte(s[j]) {
			j++
		}
		if j == i+1 {
			// bare '$' with no name following: literal.
			b.WriteByte('$')
			continue
		}
		name := s[i+1 : j]
		b.WriteString(env[name])
		i = j - 1
	}
	return b.String()
}

// ExpandArgv expands every argument of argv against env, returning plain
// strings. An argument that was never quoted and expands to the empty
// string is dropped (it was an unset-variable reference, not a deliberate
// empty argument) — this is what lets a command whose only word is
// `$UNSET` become empty-after-expansion and be elided per spec.md §3.
func ExpandArgv(argv []parser.Arg, env map[string]string) []string {
	out := make([]string, 0, len(argv))
	for _, a := range argv {
		v := Arg(a, env)
		if v == "" && !a.Literal {
			continue
		}
		out = append(out, v)
	}
	return out
}

// SubstituteAlias replaces argv[0] with its alias expansion's whitespace-
// split words (if argv[0] names a known alias), followed by the rest of
// argv unchanged. It is not recursive: the alias's own expansion words are
// never themselves checked against the alias table. Per spec.md §9 open
// question, this applies to every stage's first argv, not just the
// pipeline's first stage.
func SubstituteAlias(argv []string, lookup func(name string) (string, bool)) []string {
	if len(argv) == 0 {
		return argv
	}
	expansion, ok := lookup(argv[0])
	if !ok {
		return argv
	}
	words := strings.Fields(expansion)
	out := make([]string, 0, len(words)+len(argv)-1)
	out = append(out, words...)
	out = append(out, argv[1:]...)
	return out
}
