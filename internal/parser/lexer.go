package parser

import (
	"strings"

	"github.com/ghostkellz/gshell/internal/shellerr"
)

// lex performs the single left-to-right pass over line with one-character
// lookahead described in spec.md §4.1, splitting it into tokens. It never
// mutates global state and is deterministic for a given input.
func lex(line string) ([]Token, error) {
	var toks []Token
	i := 0
	n := len(line)

	for i < n {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
			continue
		case c == '|':
			toks = append(toks, Token{Kind: TokPipe, Text: "|"})
			i++
			continue
		case c == '&':
			toks = append(toks, Token{Kind: TokAmpersand, Text: "&"})
			i++
			continue
		case c == '>':
			if i+1 < n && line[i+1] == '>' {
				toks = append(toks, Token{Kind: TokRedirectAppend, Text: ">>"})
				i += 2
			} else {
				toks = append(toks, Token{Kind: TokRedirectOut, Text: ">"})
				i++
			}
			continue
		case c == '<':
			toks = append(toks, Token{Kind: TokRedirectIn, Text: "<"})
			i++
			continue
		}

		// Anything else starts a word: consume a run of word material,
		// which may itself splice together quoted and unquoted spans.
		tok, next, err := lexWord(line, i)
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		i = next
	}
	return toks, nil
}

// lexWord consumes one whitespace/metachar-delimited word starting at i,
// gluing together any number of unquoted, single-quoted, and double-quoted
// spans. It reports whether the ENTIRE word came from a single matching
// pair of single quotes (Quoted) — the only case the expander must never
// re-scan — per spec.md §4.2.
func lexWord(line string, i int) (Token, int, error) {
	var b strings.Builder
	n := len(line)
	start := i
	spans := 0     // number of quoted/unquoted spans contributing text
	singleSpans := 0
	sawDouble := false

	for i < n {
		c := line[i]
		switch c {
		case ' ', '\t', '|', '&', '<', '>':
			goto done
		case '\'':
			spans++
			singleSpans++
			j := i + 1
			for j < n && line[j] != '\'' {
				b.WriteByte(line[j])
				j++
			}
			if j >= n {
				return Token{}, 0, &shellerr.ParseError{Kind: shellerr.UnclosedQuote, Msg: "unterminated '"}
			}
			i = j + 1
		case '"':
			spans++
			sawDouble = true
			j := i + 1
			for j < n && line[j] != '"' {
				if line[j] == '\\' && j+1 < n {
					b.WriteByte(line[j+1])
					j += 2
					continue
				}
				b.WriteByte(line[j])
				j++
			}
			if j >= n {
				return Token{}, 0, &shellerr.ParseError{Kind: shellerr.UnclosedQuote, Msg: `unterminated "`}
			}
			i = j + 1
		case '\\':
			spans++
			if i+1 < n {
				b.WriteByte(line[i+1])
				i += 2
			} else {
				// trailing backslash with nothing to escape: drop it
				i++
			}
		default:
			j := i
			for j < n {
				cj := line[j]
				if cj == ' ' || cj == '\t' || cj == '|' || cj == '&' || cj == '<' || cj == '>' || cj == '\'' || cj == '"' || cj == '\\' {
					break
				}
				j++
			}
			b.WriteString(line[i:j])
			spans++
			i = j
		}
	}

done:
	if i == start {
		// Should not happen: caller only invokes lexWord on non-metachar,
		// non-whitespace bytes.
		return Token{}, i, &shellerr.ParseError{Kind: shellerr.UnexpectedToken, Msg: "empty word"}
	}

	tok := Token{Kind: TokWord, Text: b.String()}
	tok.Quoted = spans == 1 && singleSpans == 1
	tok.DoubleQuoted = sawDouble
	return tok, i, nil
}
