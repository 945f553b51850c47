// Package signals implements the atomic-flag signal layer described in
// spec.md §4.7: SIGINT and SIGTSTP set flags for the REPL loop to drain
// at well-defined points rather than running handler logic on the
// signal-delivery goroutine, and SIGCHLD sets a flag the REPL drains (the
// children themselves are reaped by internal/exec's wait goroutines).
package signals

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Layer owns the signal channel and the flags set by its dispatch loop.
// Zero value is not usable; construct with New.
type Layer struct {
	ch   chan os.Signal
	stop func()

	interrupted atomic.Bool
	suspended   atomic.Bool
	childExited atomic.Bool

	onChild func()
}

// New installs handlers for SIGINT, SIGTSTP, and SIGCHLD and starts the
// dispatch goroutine. SIGQUIT is set to ignore for the duration of the
// REPL per spec.md §4.7. onChild, if non-nil, is invoked (not necessarily
// synchronously with delivery) each time a SIGCHLD arrives; pass the job
// reaper here.
func New(onChild func()) *Layer {
	l := &Layer{
		ch:      make(chan os.Signal, 8),
		onChild: onChild,
	}
	signal.Notify(l.ch, syscall.SIGINT, syscall.SIGTSTP, syscall.SIGCHLD)
	signal.Ignore(syscall.SIGQUIT)
	l.stop = func() {
		signal.Stop(l.ch)
		signal.Reset(syscall.SIGQUIT)
	}

	go l.dispatch()
	return l
}

func (l *Layer) dispatch() {
	for sig := range l.ch {
		switch sig {
		case syscall.SIGINT:
			l.interrupted.Store(true)
		case syscall.SIGTSTP:
			l.suspended.Store(true)
		case syscall.SIGCHLD:
			l.childExited.Store(true)
			if l.onChild != nil {
				l.onChild()
			}
		}
	}
}

// TakeInterrupted reports and clears whether a SIGINT arrived since the
// last call. The REPL loop drains this at the top of each iteration. The
// line editor does not consult it: in raw mode Ctrl-C reaches the editor
// as a byte, which it turns into OperationAborted itself.
func (l *Layer) TakeInterrupted() bool {
	return l.interrupted.Swap(false)
}

// TakeSuspended reports and clears whether a SIGTSTP arrived. gshell
// does not implement job-control suspension (Open Question decision,
// DESIGN.md): this is notice-only, surfaced to the REPL so it can print
// a message, never changing shell foreground state.
func (l *Layer) TakeSuspended() bool {
	return l.suspended.Swap(false)
}

// TakeChildExited reports and clears whether any SIGCHLD arrived since
// the last call, regardless of onChild.
func (l *Layer) TakeChildExited() bool {
	return l.childExited.Swap(false)
}

// Close stops signal delivery to this layer's channel. It does not
// restore default dispositions; use RestoreDefaults around external
// command spawn for that.
func (l *Layer) Close() {
	l.stop()
}

// RestoreDefaults resets SIGINT, SIGTSTP and SIGCHLD to their default
// dispositions for the duration of fn, then reinstalls this layer's
// handling. A forked child started while fn runs inherits the restored
// (default) dispositions, per spec.md §4.7 and grounded on mvdan-sh's
// cmd/gosh/main.go use of signal.NotifyContext scoped to the run.
func (l *Layer) RestoreDefaults(fn func()) {
	signal.Reset(syscall.SIGINT, syscall.SIGTSTP, syscall.SIGCHLD)
	defer signal.Notify(l.ch, syscall.SIGINT, syscall.SIGTSTP, syscall.SIGCHLD)
	fn()
}
