package repl

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/ghostkellz/gshell/internal/parser"
	"github.com/ghostkellz/gshell/internal/shellerr"
)

// RunCommand implements command mode (`-c <cmd>`): parse and execute
// exactly once, returning the clamped status, per spec.md §4.9/§6.
func (d *Driver) RunCommand(cmd string) int {
	p, err := parser.Parse(cmd)
	if err != nil {
		d.printParseError(err)
		return 2
	}
	res := d.Executor.Run(context.Background(), p)
	d.printOutput(res.CapturedOutput)
	return shellerr.ClampExitCode(res.Status)
}

// scriptExt is the embedded-scripting file extension dispatched to the
// script host rather than the line-at-a-time parse+execute path.
const scriptExt = ".lua"

// RunScript implements spec.md §4.9's script mode: a `.lua`-suffixed
// path dispatches to the script host with $0..$N set in env; any other
// path is read line-by-line through the same parse+execute path the
// REPL uses, skipping blank and `#` lines, stopping when ShouldExit.
func (d *Driver) RunScript(path string, args []string) int {
	d.State.Setenv("0", path)
	for i, a := range args {
		d.State.Setenv(strconv.Itoa(i+1), a)
	}

	if strings.HasSuffix(path, scriptExt) {
		if d.Script == nil {
			return 1
		}
		if err := d.Script.RunFile(path); err != nil {
			d.Logger.Warnw("script execution failed", "path", path, "error", err)
			return 1
		}
		return shellerr.ClampExitCode(d.State.ExitCode)
	}

	f, err := os.Open(path)
	if err != nil {
		d.Logger.Warnw("script not found", "path", path, "error", err)
		return 1
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.runLine(line)
		if d.State.ShouldExit {
			break
		}
	}
	return shellerr.ClampExitCode(d.State.ExitCode)
}
