package editor

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
)

type fakeHistory struct{ entries []string }

func (f fakeHistory) Entries() []string { return f.entries }

func TestGraphemeSafeInsertAndBackspace(t *testing.T) {
	var out bytes.Buffer
	e := New(0, strings.NewReader(""), &out, nil, nil, nil, 0)

	ls := &lineState{mode: modeNormal}
	before := ls.text()

	// family emoji with ZWJ joiners: a single grapheme cluster.
	emoji := "\U0001F468‍\U0001F469‍\U0001F467"
	for _, b := range []byte(emoji) {
		e.insertByte(ls, b)
	}
	if ls.text() == before {
		t.Fatal("expected buffer to grow after inserting emoji bytes")
	}
	if len(ls.cs) != 1 {
		t.Fatalf("expected emoji to collapse into 1 grapheme cluster, got %d: %q", len(ls.cs), ls.cs)
	}

	// one backspace should remove the whole cluster, returning to the
	// pre-insertion buffer byte-for-byte.
	ls.cs = append(ls.cs[:ls.cursor-1], ls.cs[ls.cursor:]...)
	ls.cursor--
	if ls.text() != before {
		t.Fatalf("buffer after backspace = %q, want %q", ls.text(), before)
	}
}

func TestRedrawPadsOverShrinkage(t *testing.T) {
	var out bytes.Buffer
	e := New(0, strings.NewReader(""), &out, func() string { return "$ " }, nil, nil, 0)

	ls := &lineState{mode: modeNormal, cs: clusters("hello"), cursor: 5}
	e.redraw(ls)
	if ls.prevWidth != len("$ hello") {
		t.Fatalf("prevWidth after first redraw = %d, want %d", ls.prevWidth, len("$ hello"))
	}

	out.Reset()
	ls.cs = clusters("hi")
	ls.cursor = 2
	e.redraw(ls)

	want := "\r$ hi" + strings.Repeat(" ", len("hello")-len("hi"))
	if !strings.HasPrefix(out.String(), want) {
		t.Fatalf("redraw output = %q, want prefix %q", out.String(), want)
	}
	if ls.prevWidth != len("$ hi") {
		t.Fatalf("prevWidth after shrink redraw = %d, want %d", ls.prevWidth, len("$ hi"))
	}
}

func TestLongestCommonPrefix(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"echo", "ech"}, "ech"},
		{[]string{"cat", "cp"}, "c"},
		{[]string{"ls"}, "ls"},
		{[]string{"a", "b"}, ""},
	}
	for _, c := range cases {
		got := longestCommonPrefix(c.in)
		if got != c.want {
			t.Errorf("longestCommonPrefix(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRenderSearchPrompt(t *testing.T) {
	ok := renderSearchPrompt("ec", "echo hi", true)
	if ok != "(reverse-i-search)`ec': echo hi" {
		t.Errorf("got %q", ok)
	}
	failed := renderSearchPrompt("zz", "", false)
	if failed != "(failed reverse-i-search)`zz': " {
		t.Errorf("got %q", failed)
	}
}

func TestSearchStepsStrictlyOlder(t *testing.T) {
	e := &Editor{history: fakeHistory{entries: []string{"echo a", "echo b", "echo a"}}}
	ls := &lineState{mode: modeSearch, searchQ: "echo a", searchPos: e.historyLen()}
	e.runSearch(ls)
	if !ls.searchOK || ls.lastMatch != "echo a" || ls.searchPos != 2 {
		t.Fatalf("first search: ok=%v match=%q pos=%d", ls.searchOK, ls.lastMatch, ls.searchPos)
	}

	ls.searchPos = e.stepSearchOlder(ls)
	e.runSearch(ls)
	if !ls.searchOK || ls.searchPos != 0 {
		t.Fatalf("second search should find the strictly-older match: ok=%v pos=%d", ls.searchOK, ls.searchPos)
	}
}

func TestReadLineOverPTYEchoesSimpleLine(t *testing.T) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available in sandbox: %v", err)
	}
	defer ptmx.Close()
	defer pts.Close()

	e := New(int(pts.Fd()), pts, pts, func() string { return "$ " }, nil, nil, 0)

	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := e.ReadLine()
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- line
	}()

	if _, err := ptmx.Write([]byte("hi\r")); err != nil {
		t.Fatal(err)
	}

	select {
	case line := <-resultCh:
		if line != "hi" {
			t.Errorf("got %q, want %q", line, "hi")
		}
	case err := <-errCh:
		t.Fatalf("ReadLine error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("ReadLine did not return in time")
	}

	// drain any remaining echoed bytes so the goroutine's writer doesn't block.
	go io.Copy(io.Discard, ptmx)
}

type fakeCompleter struct{ matches []string }

func (f fakeCompleter) Complete(buffer string, cursor int) []string { return f.matches }

func TestReadLineTabCompletesSingleMatch(t *testing.T) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available in sandbox: %v", err)
	}
	defer ptmx.Close()
	defer pts.Close()

	e := New(int(pts.Fd()), pts, pts, func() string { return "$ " },
		nil, fakeCompleter{matches: []string{"echo"}}, 0)

	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := e.ReadLine()
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- line
	}()

	go io.Copy(io.Discard, ptmx)

	if _, err := ptmx.Write([]byte("ec\t\r")); err != nil {
		t.Fatal(err)
	}

	select {
	case line := <-resultCh:
		if line != "echo" {
			t.Errorf("got %q, want %q", line, "echo")
		}
	case err := <-errCh:
		t.Fatalf("ReadLine error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("ReadLine did not return in time")
	}
}

func TestReadLineCtrlRSearchThenAccept(t *testing.T) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available in sandbox: %v", err)
	}
	defer ptmx.Close()
	defer pts.Close()

	hist := fakeHistory{entries: []string{"echo one", "git status", "echo two"}}
	e := New(int(pts.Fd()), pts, pts, func() string { return "$ " }, hist, nil, 0)

	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := e.ReadLine()
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- line
	}()

	go io.Copy(io.Discard, ptmx)

	// Ctrl-R, type "echo", Enter accepts the most recent match ("echo two").
	if _, err := ptmx.Write([]byte{keyCtrlR}); err != nil {
		t.Fatal(err)
	}
	if _, err := ptmx.Write([]byte("echo")); err != nil {
		t.Fatal(err)
	}
	if _, err := ptmx.Write([]byte{keyCR}); err != nil {
		t.Fatal(err)
	}

	select {
	case line := <-resultCh:
		if line != "echo two" {
			t.Errorf("got %q, want %q", line, "echo two")
		}
	case err := <-errCh:
		t.Fatalf("ReadLine error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("ReadLine did not return in time")
	}
}
