// Package builtin implements the fixed set of in-process commands resolved
// before fork/exec, per spec.md §4.3. Each builtin receives the shell
// state, its expanded argv, and the stage's stdin bytes, and returns a
// status plus captured output — mirroring the WithCommand registration
// pattern grounded on wzshiming-vsh's shell API.
package builtin

import "github.com/ghostkellz/gshell/internal/state"

// Result is a builtin's return shape: status plus fully-materialized
// output bytes. Builtins that conceptually stream still buffer, because
// downstream pipeline stages require fully-materialized stdin (spec.md §9
// design notes).
type Result struct {
	Status int
	Output []byte
}

// Func is the signature every builtin handler implements.
type Func func(s *state.ShellState, argv []string, stdin []byte) Result

// Registry is a name -> handler lookup table.
type Registry struct {
	handlers map[string]Func
}

// NewRegistry builds a registry with the required core builtins already
// registered (spec.md §4.3). Additional namespaced builtins (net-*) are
// registered separately by an external collaborator via Register.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Func)}
	r.Register("cd", builtinCd)
	r.Register("pwd", builtinPwd)
	r.Register("echo", builtinEcho)
	r.Register("export", builtinExport)
	r.Register("unset", builtinUnset)
	r.Register("alias", builtinAlias)
	r.Register("unalias", builtinUnalias)
	r.Register("exit", builtinExit)
	r.Register("jobs", builtinJobs)
	r.Register("fg", builtinFg)
	r.Register("bg", builtinBg)
	r.Register("help", builtinHelp)
	// "source" and "history" are registered by the caller (internal/repl):
	// source needs to recursively invoke the same parse+execute path the
	// REPL uses (an import cycle from this package), and history needs a
	// bound *history.Store instance. Both are still required core
	// builtins per spec.md §4.3; they are simply wired in one layer up.
	return r
}

// Register adds or replaces the handler for name.
func (r *Registry) Register(name string, fn Func) {
	r.handlers[name] = fn
}

// Lookup returns the handler for name, if any.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.handlers[name]
	return fn, ok
}

// Names returns the registered builtin names in no particular order.
// `help` prints its own fixed list and does not call it.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}
