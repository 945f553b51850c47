// Package parser tokenizes a line and builds a Pipeline of Commands with
// redirections, per spec.md §4.1. Parse is a pure function: deterministic,
// and it never mutates global state.
package parser

import (
	"strings"

	"github.com/ghostkellz/gshell/internal/shellerr"
)

// RedirectMode distinguishes truncate (>) from append (>>) output
// redirection.
type RedirectMode int

const (
	Truncate RedirectMode = iota
	Append
)

// Arg is one argv element, still carrying the quoting classification the
// expander needs: a Quoted arg is never re-expanded. Literal marks an arg
// that must survive expansion even if it expands to the empty string (it
// came from a pure single-quoted word or a word with a double-quoted span,
// so it is a deliberate empty argument, not an unset variable that should
// vanish). A word that mixes a single-quoted span with unquoted text is
// neither Quoted nor Literal.
type Arg struct {
	Text    string
	Quoted  bool // came from a pure single-quoted word: never re-expanded
	Literal bool // Quoted, or has a double-quoted span: an empty expansion is kept, not elided
}

// Command is a single pipeline stage.
type Command struct {
	Argv       []Arg
	StdinFile  string // optional; "" means none
	StdoutFile string // optional; "" means none
	StdoutMode RedirectMode
}

// Pipeline is an ordered sequence of one or more Commands plus a background
// flag. Invariant: Background==true implies exactly one Command.
type Pipeline struct {
	Commands   []*Command
	Background bool
}

// Empty reports whether the pipeline has no commands (e.g. a comment-only
// or blank line): a successful, no-op parse.
func (p *Pipeline) Empty() bool { return p == nil || len(p.Commands) == 0 }

// Parse tokenizes line and builds a Pipeline. It is a pure function over
// its input; it produces entirely owned strings.
func Parse(line string) (*Pipeline, error) {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return &Pipeline{}, nil
	}

	toks, err := lex(line)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return &Pipeline{}, nil
	}

	p := &Pipeline{}
	pos := 0
	for {
		cmd, err := parseCommand(toks, &pos)
		if err != nil {
			return nil, err
		}
		p.Commands = append(p.Commands, cmd)

		if pos < len(toks) && toks[pos].Kind == TokPipe {
			if len(cmd.Argv) == 0 {
				return nil, &shellerr.ParseError{Kind: shellerr.UnexpectedToken, Msg: "pipe with empty left side"}
			}
			pos++
			continue
		}
		break
	}

	last := p.Commands[len(p.Commands)-1]
	if len(last.Argv) == 0 {
		return nil, &shellerr.ParseError{Kind: shellerr.MissingCommand, Msg: "empty final stage"}
	}

	if pos < len(toks) && toks[pos].Kind == TokAmpersand {
		if len(p.Commands) > 1 {
			return nil, &shellerr.ParseError{Kind: shellerr.UnexpectedToken, Msg: "background pipelines support exactly one command"}
		}
		p.Background = true
		pos++
	}

	if pos != len(toks) {
		return nil, &shellerr.ParseError{Kind: shellerr.UnexpectedToken, Msg: "trailing tokens after '&'"}
	}

	return p, nil
}

// parseCommand consumes word and redirect tokens starting at *pos, stopping
// at a pipe, ampersand, or end of stream. It advances *pos past everything
// it consumes.
func parseCommand(toks []Token, pos *int) (*Command, error) {
	cmd := &Command{}

	for *pos < len(toks) {
		tok := toks[*pos]
		switch tok.Kind {
		case TokPipe, TokAmpersand:
			return cmd, nil
		case TokWord:
			cmd.Argv = append(cmd.Argv, Arg{Text: tok.Text, Quoted: tok.Quoted, Literal: tok.Quoted || tok.DoubleQuoted})
			*pos++
		case TokRedirectIn:
			*pos++
			target, err := consumeRedirectTarget(toks, pos)
			if err != nil {
				return nil, err
			}
			cmd.StdinFile = target
		case TokRedirectOut, TokRedirectAppend:
			mode := Truncate
			if tok.Kind == TokRedirectAppend {
				mode = Append
			}
			*pos++
			target, err := consumeRedirectTarget(toks, pos)
			if err != nil {
				return nil, err
			}
			cmd.StdoutFile = target
			cmd.StdoutMode = mode
		default:
			return nil, &shellerr.ParseError{Kind: shellerr.UnexpectedToken, Msg: "unexpected token"}
		}
	}
	return cmd, nil
}

func consumeRedirectTarget(toks []Token, pos *int) (string, error) {
	if *pos >= len(toks) {
		return "", &shellerr.ParseError{Kind: shellerr.MissingRedirectionTarget, Msg: "redirection requires a target"}
	}
	switch toks[*pos].Kind {
	case TokRedirectIn, TokRedirectOut, TokRedirectAppend:
		return "", &shellerr.ParseError{Kind: shellerr.UnexpectedToken, Msg: "multiple consecutive redirect operators"}
	case TokWord:
		target := toks[*pos].Text
		*pos++
		return target, nil
	default:
		return "", &shellerr.ParseError{Kind: shellerr.MissingRedirectionTarget, Msg: "redirection requires a target"}
	}
}
