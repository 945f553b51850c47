// Package editor implements the raw-mode grapheme-aware line editor from
// spec.md §4.5: one raw-mode session per input line, NORMAL/HISTORY/SEARCH
// modes, grapheme-cluster cursor movement, and an exact redraw protocol.
package editor

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/ghostkellz/gshell/internal/shellerr"
)

// Completer supplies Tab-completion candidates for (buffer, cursor), per
// spec.md §4.5's completion row. Returning nil or an empty slice means
// no matches.
type Completer interface {
	Complete(buffer string, cursor int) []string
}

// HistorySource gives the editor read-only access to recorded commands,
// oldest first, for Up/Down navigation and Ctrl-R search.
type HistorySource interface {
	Entries() []string
}

// Editor owns one terminal file descriptor and drives raw-mode line
// editing against it. Construct with New; one Editor may be reused
// across many ReadLine calls (each call is its own raw-mode session).
type Editor struct {
	fd         int
	in         *bufio.Reader
	out        io.Writer
	prompt     func() string
	history    HistorySource
	completer  Completer
	maxLineLen int
}

// New builds an Editor reading from fd/r and writing prompt/redraw
// output to w. prompt is invoked fresh on every redraw so it can embed
// state (cwd, exit code) that changes between lines. maxLineLen bounds
// buffer growth; 0 means spec.md's default of 65536 bytes.
func New(fd int, r io.Reader, w io.Writer, prompt func() string, hist HistorySource, completer Completer, maxLineLen int) *Editor {
	if maxLineLen <= 0 {
		maxLineLen = 65536
	}
	return &Editor{
		fd:         fd,
		in:         bufio.NewReader(r),
		out:        w,
		prompt:     prompt,
		history:    hist,
		completer:  completer,
		maxLineLen: maxLineLen,
	}
}

type mode int

const (
	modeNormal mode = iota
	modeHistory
	modeSearch
)

// lineState is the mutable editing state for a single ReadLine call.
type lineState struct {
	cs         []string // grapheme clusters of the buffer, in order
	cursor     int      // index into cs, 0..len(cs)
	mode       mode
	histPos    int    // index into history entries; len(entries) means "live"
	liveSave   string // buffer saved when entering HISTORY from NORMAL
	searchQ    string
	searchPos  int // index searched up to, strictly older each repeat
	searchOK   bool
	lastMatch  string
	prevWidth  int // visual width of the line rendered by the last redraw
}

func (ls *lineState) text() string { return strings.Join(ls.cs, "") }

// ReadLine runs one raw-mode session: it enables raw mode, reads and
// edits a line, restores the terminal, and returns the finished buffer.
// io.EOF is returned for Ctrl-D on an empty buffer.
func (e *Editor) ReadLine() (string, error) {
	oldState, err := term.MakeRaw(e.fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(e.fd, oldState)

	ls := &lineState{mode: modeNormal}
	if e.history != nil {
		ls.histPos = len(e.history.Entries())
	}

	e.redraw(ls)

	for {
		b, err := e.in.ReadByte()
		if err != nil {
			return "", err
		}

		switch {
		case b == keyCR || b == keyLF:
			if ls.mode == modeSearch && ls.searchOK {
				ls.cs = clusters(ls.lastMatch)
				ls.cursor = len(ls.cs)
			}
			fmt.Fprint(e.out, "\r\n")
			return ls.text(), nil

		case b == keyCtrlC:
			if ls.mode == modeSearch {
				ls.mode = modeNormal
				ls.cs = nil
				ls.cursor = 0
				e.redraw(ls)
				continue
			}
			return "", &shellerr.EditorError{Kind: shellerr.OperationAborted}

		case b == keyCtrlD:
			if len(ls.cs) == 0 {
				return "", io.EOF
			}

		case b == keyCtrlA:
			if ls.mode != modeSearch {
				ls.cursor = 0
				e.redraw(ls)
			}

		case b == keyCtrlE:
			if ls.mode != modeSearch {
				ls.cursor = len(ls.cs)
				e.redraw(ls)
			}

		case b == keyCtrlR:
			if ls.mode != modeSearch {
				ls.mode = modeSearch
				ls.searchQ = ""
				ls.searchPos = e.historyLen()
			} else {
				ls.searchPos = e.stepSearchOlder(ls)
			}
			e.runSearch(ls)
			e.redraw(ls)

		case b == keyBackspace || b == keyDEL:
			if ls.mode == modeSearch {
				if len(ls.searchQ) > 0 {
					qc := clusters(ls.searchQ)
					ls.searchQ = strings.Join(qc[:len(qc)-1], "")
					ls.searchPos = e.historyLen()
					e.runSearch(ls)
				}
			} else if ls.cursor > 0 {
				ls.cs = append(ls.cs[:ls.cursor-1], ls.cs[ls.cursor:]...)
				ls.cursor--
			}
			e.redraw(ls)

		case b == keyTab:
			if ls.mode != modeSearch {
				e.handleTab(ls)
			}

		case b == keyESC:
			e.handleEscape(ls)

		default:
			if b >= 0x20 || b == '\t' {
				e.insertByte(ls, b)
			}
		}
	}
}

func (e *Editor) historyLen() int {
	if e.history == nil {
		return 0
	}
	return len(e.history.Entries())
}

func (e *Editor) insertByte(ls *lineState, b byte) {
	r := string([]byte{b})
	if ls.mode == modeSearch {
		ls.searchQ += r
		ls.searchPos = e.historyLen()
		e.runSearch(ls)
		e.redraw(ls)
		return
	}

	if ls.mode == modeHistory {
		ls.mode = modeNormal
	}

	s := ls.text()
	if len(s)+len(r) > e.maxLineLen {
		e.redraw(ls)
		return
	}
	// Re-cluster after every byte so a multi-byte UTF-8 sequence (or a ZWJ
	// emoji sequence) fed in one byte at a time ends up as one cluster.
	prefix := strings.Join(ls.cs[:ls.cursor], "") + r
	suffix := strings.Join(ls.cs[ls.cursor:], "")
	ls.cs = clusters(prefix + suffix)
	ls.cursor = len(clusters(prefix))
	e.redraw(ls)
}

func (e *Editor) handleEscape(ls *lineState) {
	res := decodeEscape(func() (byte, error) { return e.in.ReadByte() })
	switch res {
	case escLeft:
		if ls.mode != modeSearch && ls.cursor > 0 {
			ls.cursor--
			e.redraw(ls)
		}
	case escRight:
		if ls.mode != modeSearch && ls.cursor < len(ls.cs) {
			ls.cursor++
			e.redraw(ls)
		}
	case escHome:
		ls.cursor = 0
		e.redraw(ls)
	case escEnd:
		ls.cursor = len(ls.cs)
		e.redraw(ls)
	case escDeleteForward:
		if ls.cursor < len(ls.cs) {
			ls.cs = append(ls.cs[:ls.cursor], ls.cs[ls.cursor+1:]...)
			e.redraw(ls)
		}
	case escUp:
		e.navigateHistory(ls, -1)
	case escDown:
		e.navigateHistory(ls, 1)
	}
}

func (e *Editor) navigateHistory(ls *lineState, delta int) {
	if e.history == nil {
		return
	}
	entries := e.history.Entries()
	if ls.mode == modeNormal && delta < 0 {
		ls.liveSave = ls.text()
		ls.mode = modeHistory
	}
	if ls.mode != modeHistory {
		return
	}
	next := ls.histPos + delta
	if next < 0 {
		next = 0
	}
	if next > len(entries) {
		next = len(entries)
	}
	ls.histPos = next
	if ls.histPos == len(entries) {
		ls.cs = clusters(ls.liveSave)
		ls.mode = modeNormal
	} else {
		ls.cs = clusters(entries[ls.histPos])
	}
	ls.cursor = len(ls.cs)
	e.redraw(ls)
}

// stepSearchOlder returns the next strictly-older starting index for a
// repeated Ctrl-R (Open Question decision, DESIGN.md: "the source
// searches strictly older"). runSearch scans from searchPos-1 downward and
// leaves searchPos on the last match, so keeping it makes the next scan
// start at the entry just older than that match.
func (e *Editor) stepSearchOlder(ls *lineState) int {
	if ls.searchPos <= 0 {
		return 0
	}
	return ls.searchPos
}

func (e *Editor) runSearch(ls *lineState) {
	ls.searchOK = false
	ls.lastMatch = ""
	if e.history == nil || ls.searchQ == "" {
		return
	}
	entries := e.history.Entries()
	q := strings.ToLower(ls.searchQ)
	for i := ls.searchPos - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(entries[i]), q) {
			ls.searchOK = true
			ls.lastMatch = entries[i]
			ls.searchPos = i
			return
		}
	}
}

func (e *Editor) handleTab(ls *lineState) {
	if e.completer == nil {
		return
	}
	matches := e.completer.Complete(ls.text(), ls.cursor)
	switch len(matches) {
	case 0:
		return
	case 1:
		e.replaceBuffer(ls, matches[0])
	default:
		lcp := longestCommonPrefix(matches)
		if len(lcp) > len(ls.text()) {
			e.replaceBuffer(ls, lcp)
			return
		}
		fmt.Fprint(e.out, "\r\n")
		for _, m := range matches {
			fmt.Fprint(e.out, m+"  ")
		}
		fmt.Fprint(e.out, "\r\n")
		e.redraw(ls)
	}
}

func (e *Editor) replaceBuffer(ls *lineState, s string) {
	ls.cs = clusters(s)
	ls.cursor = len(ls.cs)
	e.redraw(ls)
}

func longestCommonPrefix(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	prefix := ss[0]
	for _, s := range ss[1:] {
		for !strings.HasPrefix(s, prefix) {
			if prefix == "" {
				return ""
			}
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// redraw implements spec.md §4.5's redraw protocol: return to column 0,
// re-emit the prompt and buffer (or the search prompt), pad over any
// shrinkage with spaces equal to the width the line lost since the last
// redraw, then walk the cursor back to its grapheme position.
func (e *Editor) redraw(ls *lineState) {
	fmt.Fprint(e.out, "\r")

	if ls.mode == modeSearch {
		line := renderSearchPrompt(ls.searchQ, ls.lastMatch, ls.searchOK)
		fmt.Fprint(e.out, line)
		e.padShrinkage(ls, visualWidth(line), 0)
		return
	}

	prompt := ""
	if e.prompt != nil {
		prompt = e.prompt()
	}
	buf := ls.text()
	fmt.Fprint(e.out, prompt+buf)

	cursorWidth := totalWidth(ls.cs[:ls.cursor])
	lineWidth := visualWidth(prompt) + totalWidth(ls.cs)
	backFromEnd := totalWidth(ls.cs) - cursorWidth
	e.padShrinkage(ls, lineWidth, backFromEnd)
}

// padShrinkage emits enough spaces to overwrite any glyphs left over from a
// longer previous render, then returns the cursor to backFromEnd columns
// before the end of the newly rendered content.
func (e *Editor) padShrinkage(ls *lineState, newWidth, backFromEnd int) {
	pad := ls.prevWidth - newWidth
	if pad > 0 {
		fmt.Fprint(e.out, strings.Repeat(" ", pad))
		backFromEnd += pad
	}
	if backFromEnd > 0 {
		fmt.Fprintf(e.out, "\x1b[%dD", backFromEnd)
	}
	ls.prevWidth = newWidth
}

// renderSearchPrompt renders the reverse-i-search line per spec.md §4.5.
func renderSearchPrompt(query, match string, ok bool) string {
	if ok {
		return fmt.Sprintf("(reverse-i-search)`%s': %s", query, match)
	}
	return fmt.Sprintf("(failed reverse-i-search)`%s': %s", query, match)
}
