// Package state holds the process-wide shell state: environment, aliases,
// background jobs, and exit bookkeeping. It is owned exclusively by the REPL
// for the shell's lifetime; signal handlers never touch it directly (see
// internal/signals), only atomic flags the REPL drains at safe points.
package state

import (
	"fmt"
	"regexp"
	"sync"
)

var (
	envNameRe   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*|[0-9]+)$`)
	aliasNameRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)
)

// ValidEnvName reports whether name is a legal environment variable name:
// the usual shell identifier shape, or purely numeric (script positional
// arguments $0..$N).
func ValidEnvName(name string) bool {
	return name != "" && envNameRe.MatchString(name)
}

// ValidAliasName reports whether name is a legal alias name.
func ValidAliasName(name string) bool {
	return name != "" && aliasNameRe.MatchString(name)
}

// JobStatus is the lifecycle state of a background job.
type JobStatus int

const (
	JobRunning JobStatus = iota
	JobStopped
	JobDone
)

func (s JobStatus) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobStopped:
		return "stopped"
	case JobDone:
		return "done"
	default:
		return "unknown"
	}
}

// Job is one entry in the job table.
type Job struct {
	ID      uint32
	PID     int
	Command string
	Status  JobStatus
}

// ShellConfig is produced by an external loader (flag/env/file layering) and
// is immutable after load. It is out of scope for this core, but the core
// needs a concrete type to receive it into.
type ShellConfig struct {
	PromptTemplate  string
	Interactive     bool
	HistoryFile     string // optional
	HistorySize     int
	RCFile          string // optional
	Plugins         []string
	WarnOnBadPerms  bool // surface a warning instead of silently correcting history file perms
	NoColor         bool
}

// DefaultConfig returns sane defaults used when no external loader is wired.
func DefaultConfig() ShellConfig {
	return ShellConfig{
		PromptTemplate: "$ ",
		Interactive:    true,
		HistorySize:    1000,
		WarnOnBadPerms: true,
	}
}

// ShellState is the process-wide shell state described in spec.md §3. The
// REPL goroutine owns env/alias/config mutation; the job table is also
// written from each background job's own wait goroutine (internal/exec),
// which calls MarkDone once its child has actually exited. mu defends that
// cross-goroutine access; signal handlers themselves still touch only
// atomic flags, never this struct.
type ShellState struct {
	mu sync.Mutex

	env     map[string]string
	aliases map[string]string
	jobs    []*Job
	nextJob uint32

	ExitCode   int
	ShouldExit bool
	Config     ShellConfig
}

// New creates a ShellState seeded from the process environment.
func New(cfg ShellConfig, environ []string) *ShellState {
	s := &ShellState{
		env:     make(map[string]string, len(environ)),
		aliases: make(map[string]string),
		Config:  cfg,
	}
	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				s.env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return s
}

// Getenv returns the value of name, or "" if unset.
func (s *ShellState) Getenv(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env[name]
}

// LookupEnv is like Getenv but also reports whether name is set.
func (s *ShellState) LookupEnv(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.env[name]
	return v, ok
}

// Setenv validates name and stores value. It returns an error for an
// invalid name; the caller (export/setenv builtin) turns that into a
// non-zero status.
func (s *ShellState) Setenv(name, value string) error {
	if !ValidEnvName(name) {
		return fmt.Errorf("invalid variable name: %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env[name] = value
	return nil
}

// Unsetenv removes name from the environment. Unsetting an unset name is a
// no-op, not an error.
func (s *ShellState) Unsetenv(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.env, name)
}

// Environ returns a copy of the environment in "NAME=VALUE" form, suitable
// for exec.Cmd.Env.
func (s *ShellState) Environ() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.env))
	for k, v := range s.env {
		out = append(out, k+"="+v)
	}
	return out
}

// EnvMap returns a copy of the environment map, used by the expander.
func (s *ShellState) EnvMap() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.env))
	for k, v := range s.env {
		out[k] = v
	}
	return out
}

// Alias returns the expansion string for name, and whether it exists.
func (s *ShellState) Alias(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.aliases[name]
	return v, ok
}

// SetAlias validates name and records its expansion.
func (s *ShellState) SetAlias(name, expansion string) error {
	if !ValidAliasName(name) {
		return fmt.Errorf("invalid alias name: %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[name] = expansion
	return nil
}

// Unalias removes an alias. It reports whether the alias existed.
func (s *ShellState) Unalias(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[name]; !ok {
		return false
	}
	delete(s.aliases, name)
	return true
}

// Aliases returns a copy of all aliases, sorted for display by the caller.
func (s *ShellState) Aliases() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

// AddJob allocates a strictly-increasing job ID and records a new running
// background job.
func (s *ShellState) AddJob(pid int, command string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextJob++
	j := &Job{ID: s.nextJob, PID: pid, Command: command, Status: JobRunning}
	s.jobs = append(s.jobs, j)
	return j
}

// Jobs returns the current job table in insertion order.
func (s *ShellState) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// MarkDone marks the job with the given pid as done, if present. It reports
// whether a matching job was found.
func (s *ShellState) MarkDone(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.PID == pid && j.Status != JobDone {
			j.Status = JobDone
			return true
		}
	}
	return false
}

// Reap removes done jobs that have been explicitly acknowledged (e.g. by a
// subsequent `jobs` listing). The core never removes a job automatically;
// callers decide when acknowledgement happens.
func (s *ShellState) Reap(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.jobs {
		if j.ID == id && j.Status == JobDone {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return
		}
	}
}

// JobByID looks up a job by its ID.
func (s *ShellState) JobByID(id uint32) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return nil, false
}
