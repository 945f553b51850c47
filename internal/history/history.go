// Package history implements the append-only timestamped history store
// described in spec.md §4.6: a bounded in-memory ring for up-arrow recall
// backed by an on-disk flatfile, one entry per line.
package history

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pkg/diff"

	"github.com/ghostkellz/gshell/internal/shellerr"
)

// Entry is one history record. It is stored on disk as one line, fields
// separated by '|'; Command is the final field and may itself contain '|'.
type Entry struct {
	TimestampSeconds int64
	ExitCode         int32
	Command          string
}

func (e Entry) marshal() string {
	return fmt.Sprintf("%d|%d|%s", e.TimestampSeconds, e.ExitCode, e.Command)
}

func unmarshal(line string) (Entry, error) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("malformed history line: %q", line)
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed timestamp: %w", err)
	}
	code, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed exit code: %w", err)
	}
	return Entry{TimestampSeconds: ts, ExitCode: int32(code), Command: parts[2]}, nil
}

// Store owns the on-disk history file handle exclusively, plus a bounded
// in-memory mirror used by the line editor's up-arrow recall.
type Store struct {
	mu       sync.Mutex
	path     string // "" means in-memory only (no history file configured)
	file     *os.File
	ring     []Entry
	ringCap  int
	now      func() time.Time
	onWarn   func(error)
}

// Open opens (creating if necessary) the history file at path with
// owner-only permissions, loads up to ringCap entries into the in-memory
// ring, and returns a Store. If path is empty, the store is in-memory
// only. warnOnBadPerms controls whether a looser-than-0600 existing file
// is corrected silently or surfaced via onWarn.
func Open(path string, ringCap int, warnOnBadPerms bool, onWarn func(error)) (*Store, error) {
	if onWarn == nil {
		onWarn = func(error) {}
	}
	s := &Store{path: path, ringCap: ringCap, now: time.Now, onWarn: onWarn}

	if path == "" {
		return s, nil
	}

	if err := ensurePerms(path, warnOnBadPerms, onWarn); err != nil {
		return nil, &shellerr.HistoryError{Op: "open", Err: err}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, &shellerr.HistoryError{Op: "open", Err: err}
	}
	s.file = f

	entries, err := readAll(path)
	if err != nil {
		onWarn(&shellerr.HistoryError{Op: "load", Err: err})
	} else {
		if len(entries) > ringCap {
			entries = entries[len(entries)-ringCap:]
		}
		s.ring = entries
	}
	return s, nil
}

// ensurePerms creates the file with 0600 if it doesn't exist (via an
// atomic renameio write, so a concurrent reader never observes a
// zero-length or wrong-mode file), or tightens an existing file's
// permissions, warning instead of silently correcting when configured to.
func ensurePerms(path string, warnOnBadPerms bool, onWarn func(error)) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return renameio.WriteFile(path, nil, 0o600)
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0o600 {
		if warnOnBadPerms {
			onWarn(fmt.Errorf("history file %s has loose permissions %o; tightening to 0600", path, info.Mode().Perm()))
		}
		return os.Chmod(path, 0o600)
	}
	return nil
}

func readAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		e, err := unmarshal(line)
		if err != nil {
			continue // skip corrupt lines rather than fail the whole load
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Append records command with status, suppressing an exact duplicate of
// the most-recently recorded command (never a full-buffer dedup: users
// expect interleaved duplicates after a gap, per spec.md §9).
func (s *Store) Append(command string, status int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ring) > 0 && s.ring[len(s.ring)-1].Command == command {
		return nil
	}

	e := Entry{TimestampSeconds: s.now().Unix(), ExitCode: int32(status), Command: command}

	s.ring = append(s.ring, e)
	if len(s.ring) > s.ringCap {
		s.ring = s.ring[len(s.ring)-s.ringCap:]
	}

	if s.file == nil {
		return nil
	}
	if _, err := s.file.WriteString(e.marshal() + "\n"); err != nil {
		return &shellerr.HistoryError{Op: "append", Err: err}
	}
	return nil
}

// Recent re-reads the file (or, if in-memory only, the ring) and returns
// the last limit entries in file order.
func (s *Store) Recent(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return tailEntries(s.ring, limit), nil
	}
	entries, err := readAll(s.path)
	if err != nil {
		return nil, &shellerr.HistoryError{Op: "recent", Err: err}
	}
	return tailEntries(entries, limit), nil
}

func tailEntries(entries []Entry, limit int) []Entry {
	if limit <= 0 || limit >= len(entries) {
		out := make([]Entry, len(entries))
		copy(out, entries)
		return out
	}
	out := make([]Entry, limit)
	copy(out, entries[len(entries)-limit:])
	return out
}

// RingSnapshot returns a copy of the in-memory ring, used by the line
// editor for up/down arrow navigation without touching disk.
func (s *Store) RingSnapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.ring))
	copy(out, s.ring)
	return out
}

// Flush syncs the open file handle to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return &shellerr.HistoryError{Op: "flush", Err: err}
	}
	return nil
}

// Close closes the underlying file handle. It does not sync it first;
// Flush does that.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Diff renders a unified diff between two history entries' commands, for
// the `history -d N1 N2` debug listing (SPEC_FULL.md §4.1).
func Diff(a, b Entry) (string, error) {
	var sb strings.Builder
	err := diff.Text(
		fmt.Sprintf("#%d", a.TimestampSeconds),
		fmt.Sprintf("#%d", b.TimestampSeconds),
		strings.NewReader(a.Command),
		strings.NewReader(b.Command),
		&sb,
	)
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
