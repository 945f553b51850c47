package builtin

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ghostkellz/gshell/internal/state"
)

func line(s string) []byte { return []byte(s + "\n") }

func builtinCd(s *state.ShellState, argv []string, _ []byte) Result {
	target := s.Getenv("HOME")
	if len(argv) > 1 {
		target = argv[1]
	}
	if target == "" {
		return Result{Status: 1, Output: line("cd: HOME not set")}
	}
	if err := os.Chdir(target); err != nil {
		return Result{Status: 1, Output: line("cd: " + err.Error())}
	}
	return Result{Status: 0}
}

func builtinPwd(_ *state.ShellState, _ []string, _ []byte) Result {
	wd, err := os.Getwd()
	if err != nil {
		return Result{Status: 1, Output: line("pwd: " + err.Error())}
	}
	return Result{Status: 0, Output: line(wd)}
}

func builtinEcho(_ *state.ShellState, argv []string, _ []byte) Result {
	return Result{Status: 0, Output: line(strings.Join(argv[1:], " "))}
}

func builtinExport(s *state.ShellState, argv []string, _ []byte) Result {
	if len(argv) < 2 {
		return Result{Status: 1, Output: line("export: usage: export NAME[=VALUE]")}
	}
	status := 0
	var out strings.Builder
	for _, spec := range argv[1:] {
		name, value, hasEq := strings.Cut(spec, "=")
		if !hasEq {
			if !state.ValidEnvName(name) {
				out.WriteString(fmt.Sprintf("export: invalid name: %q\n", name))
				status = 1
				continue
			}
			if v, ok := s.LookupEnv(name); ok {
				value = v
			}
		}
		if err := s.Setenv(name, value); err != nil {
			out.WriteString("export: " + err.Error() + "\n")
			status = 1
		}
	}
	return Result{Status: status, Output: []byte(out.String())}
}

func builtinUnset(s *state.ShellState, argv []string, _ []byte) Result {
	for _, name := range argv[1:] {
		s.Unsetenv(name)
	}
	return Result{Status: 0}
}

func builtinAlias(s *state.ShellState, argv []string, _ []byte) Result {
	if len(argv) == 1 {
		aliases := s.Aliases()
		names := make([]string, 0, len(aliases))
		for n := range aliases {
			names = append(names, n)
		}
		sort.Strings(names)
		var out strings.Builder
		for _, n := range names {
			fmt.Fprintf(&out, "alias %s='%s'\n", n, aliases[n])
		}
		return Result{Status: 0, Output: []byte(out.String())}
	}
	status := 0
	var out strings.Builder
	for _, spec := range argv[1:] {
		name, expansion, hasEq := strings.Cut(spec, "=")
		if !hasEq {
			if v, ok := s.Alias(name); ok {
				fmt.Fprintf(&out, "alias %s='%s'\n", name, v)
			} else {
				fmt.Fprintf(&out, "alias: %s: not found\n", name)
				status = 1
			}
			continue
		}
		expansion = strings.Trim(expansion, "'\"")
		if err := s.SetAlias(name, expansion); err != nil {
			out.WriteString("alias: " + err.Error() + "\n")
			status = 1
		}
	}
	return Result{Status: status, Output: []byte(out.String())}
}

func builtinUnalias(s *state.ShellState, argv []string, _ []byte) Result {
	if len(argv) < 2 {
		return Result{Status: 1, Output: line("unalias: usage: unalias NAME")}
	}
	status := 0
	for _, name := range argv[1:] {
		if !s.Unalias(name) {
			status = 1
		}
	}
	return Result{Status: status}
}

func builtinExit(s *state.ShellState, argv []string, _ []byte) Result {
	code := s.ExitCode
	if len(argv) > 1 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			code = n
		}
	}
	s.ShouldExit = true
	s.ExitCode = code
	return Result{Status: code}
}

func builtinJobs(s *state.ShellState, argv []string, _ []byte) Result {
	long := len(argv) > 1 && (argv[1] == "-l" || argv[1] == "--long")
	var out strings.Builder
	for _, j := range s.Jobs() {
		if long {
			fmt.Fprintf(&out, "[%d] %d %s %s\n", j.ID, j.PID, j.Status, j.Command)
		} else {
			fmt.Fprintf(&out, "[%d] %s %s\n", j.ID, j.Status, j.Command)
		}
	}
	return Result{Status: 0, Output: []byte(out.String())}
}

func jobArg(s *state.ShellState, argv []string) (*state.Job, error) {
	if len(argv) < 2 {
		jobs := s.Jobs()
		if len(jobs) == 0 {
			return nil, fmt.Errorf("no current job")
		}
		return jobs[len(jobs)-1], nil
	}
	spec := strings.TrimPrefix(argv[1], "%")
	id, err := strconv.Atoi(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid job spec: %s", argv[1])
	}
	j, ok := s.JobByID(uint32(id))
	if !ok {
		return nil, fmt.Errorf("no such job: %s", argv[1])
	}
	return j, nil
}

// builtinFg and builtinBg are notice-only in this core: genuine job-control
// process-group foregrounding/continuing is out of scope (spec.md §1
// Non-goals). They report the job's state without mutating it.
func builtinFg(s *state.ShellState, argv []string, _ []byte) Result {
	j, err := jobArg(s, argv)
	if err != nil {
		return Result{Status: 1, Output: line("fg: " + err.Error())}
	}
	return Result{Status: 0, Output: line(fmt.Sprintf("[%d] %s (job control unsupported in this core)", j.ID, j.Command))}
}

func builtinBg(s *state.ShellState, argv []string, _ []byte) Result {
	j, err := jobArg(s, argv)
	if err != nil {
		return Result{Status: 1, Output: line("bg: " + err.Error())}
	}
	return Result{Status: 0, Output: line(fmt.Sprintf("[%d] %s &", j.ID, j.Command))}
}

func builtinHelp(_ *state.ShellState, _ []string, _ []byte) Result {
	names := []string{"cd", "pwd", "echo", "export", "unset", "alias", "unalias", "exit", "jobs", "fg", "bg", "history", "source", "help"}
	sort.Strings(names)
	return Result{Status: 0, Output: []byte("builtins: " + strings.Join(names, " ") + "\n")}
}
