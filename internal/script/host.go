// Package script implements the sandboxed embedded scripting runtime from
// spec.md §4.8: it runs the rc file once at REPL start and any enabled
// plugin scripts, exposing a fixed host API backed by ShellState.
package script

import (
	"context"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/ghostkellz/gshell/internal/shellerr"
	"github.com/ghostkellz/gshell/internal/state"
)

const (
	defaultTimeout = 5 * time.Second
	// registryMaxSlots approximates spec.md's 50 MiB memory ceiling: gopher-lua
	// has no byte-granular allocator hook, so the registry's maximum slot
	// count is the nearest lever the library exposes.
	registryMaxSlots = 1 << 20
)

// Runner parses and executes a full pipeline string, returning whether it
// exited zero. It is supplied by internal/repl, which owns the parser and
// executor; the script host never imports them directly, to keep a script
// invocation's blast radius to the host API table alone.
type Runner func(cmdString string) bool

// Host binds one embedded Lua runtime to a ShellState for the duration of
// script invocations (rc file, plugins). One Host may run many scripts in
// sequence; each gets a fresh *lua.LState.
type Host struct {
	State    *state.ShellState
	Run      Runner
	Timeout  time.Duration
	Plugins  map[string]string // name -> script path, currently enabled
	AssetDir string            // {assets}/plugins/<name>/plugin.lua search root
	UserDir  string            // {user}/plugins/<name>/plugin.lua search root
}

// New builds a Host. A zero Timeout becomes spec.md's 5s default.
func New(s *state.ShellState, run Runner, assetDir, userDir string) *Host {
	return &Host{
		State:    s,
		Run:      run,
		Timeout:  defaultTimeout,
		Plugins:  make(map[string]string),
		AssetDir: assetDir,
		UserDir:  userDir,
	}
}

// RunFile executes a script file once under the memory/time ceiling. It
// never returns a shell-fatal error: callers log a *shellerr.ScriptError
// and continue, per spec.md §4.8.
func (h *Host) RunFile(path string) error {
	return h.runWith(path, func(L *lua.LState) error { return L.DoFile(path) })
}

// RunString executes source directly under the same ceilings as RunFile;
// name labels any error. enable_plugin always goes through RunFile.
func (h *Host) RunString(source, name string) error {
	return h.runWith(name, func(L *lua.LState) error { return L.DoString(source) })
}

func (h *Host) runWith(name string, exec func(*lua.LState) error) error {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	L := lua.NewState(lua.Options{
		RegistryMaxSize:     registryMaxSlots,
		IncludeGoStackTrace: false,
	})
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	L.SetContext(ctx)

	h.registerAPI(L)

	if err := exec(L); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &shellerr.ScriptError{Kind: shellerr.Timeout, File: name, Err: err}
		}
		return &shellerr.ScriptError{Kind: shellerr.Execution, File: name, Err: err}
	}
	return nil
}

// registerAPI installs the fixed host function table (spec.md §4.8) as
// Lua globals. A failure inside a host function (missing file, invalid
// name, failed command) returns nil/false rather than raising. Arguments
// are read with L.CheckString/L.CheckInt, so an argument of the wrong type
// raises a Lua argument error instead of returning nil/false.
func (h *Host) registerAPI(L *lua.LState) {
	reg := func(name string, fn lua.LGFunction) { L.SetGlobal(name, L.NewFunction(fn)) }

	reg("getenv", h.luaGetenv)
	reg("setenv", h.luaSetenv)
	reg("alias", h.luaAlias)
	reg("unalias", h.luaUnalias)
	reg("exec", h.luaExec)
	reg("cd", h.luaCd)
	reg("get_cwd", h.luaGetCwd)
	reg("get_user", h.luaGetUser)
	reg("get_hostname", h.luaGetHostname)
	reg("path_exists", h.luaPathExists)
	reg("is_file", h.luaIsFile)
	reg("is_dir", h.luaIsDir)
	reg("read_file", h.luaReadFile)
	reg("write_file", h.luaWriteFile)
	reg("list_files", h.luaListFiles)
	reg("list_dirs", h.luaListDirs)
	reg("command_exists", h.luaCommandExists)
	reg("set_history_size", h.luaSetHistorySize)
	reg("set_history_file", h.luaSetHistoryFile)
	reg("enable_plugin", h.luaEnablePlugin)
	reg("disable_plugin", h.luaDisablePlugin)
	reg("plugin_loaded", h.luaPluginLoaded)
	reg("git_branch", h.luaGitBranch)
	reg("git_dirty", h.luaGitDirty)
	reg("in_git_repo", h.luaInGitRepo)
	reg("git_ahead_behind", h.luaGitAheadBehind)
}

func (h *Host) luaGetenv(L *lua.LState) int {
	name := L.CheckString(1)
	v, ok := h.State.LookupEnv(name)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

func (h *Host) luaSetenv(L *lua.LState) int {
	name := L.CheckString(1)
	val := L.CheckString(2)
	if err := h.State.Setenv(name, val); err != nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) luaAlias(L *lua.LState) int {
	name := L.CheckString(1)
	cmd := L.CheckString(2)
	if err := h.State.SetAlias(name, cmd); err != nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) luaUnalias(L *lua.LState) int {
	name := L.CheckString(1)
	h.State.Unalias(name)
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) luaExec(L *lua.LState) int {
	cmdString := L.CheckString(1)
	if h.Run == nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(h.Run(cmdString)))
	return 1
}

func (h *Host) luaCd(L *lua.LState) int {
	path := L.CheckString(1)
	if err := os.Chdir(path); err != nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) luaGetCwd(L *lua.LState) int {
	wd, err := os.Getwd()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(wd))
	return 1
}

func (h *Host) luaGetUser(L *lua.LState) int {
	u, err := user.Current()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(u.Username))
	return 1
}

func (h *Host) luaGetHostname(L *lua.LState) int {
	name, err := os.Hostname()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(name))
	return 1
}

func (h *Host) luaPathExists(L *lua.LState) int {
	path := L.CheckString(1)
	_, err := os.Stat(path)
	L.Push(lua.LBool(err == nil))
	return 1
}

func (h *Host) luaIsFile(L *lua.LState) int {
	path := L.CheckString(1)
	info, err := os.Stat(path)
	L.Push(lua.LBool(err == nil && !info.IsDir()))
	return 1
}

func (h *Host) luaIsDir(L *lua.LState) int {
	path := L.CheckString(1)
	info, err := os.Stat(path)
	L.Push(lua.LBool(err == nil && info.IsDir()))
	return 1
}

func (h *Host) luaReadFile(L *lua.LState) int {
	path := L.CheckString(1)
	data, err := os.ReadFile(path)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(data))
	return 1
}

func (h *Host) luaWriteFile(L *lua.LState) int {
	path := L.CheckString(1)
	data := L.CheckString(2)
	if err := renameio.WriteFile(path, []byte(data), 0o600); err != nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) luaListFiles(L *lua.LState) int {
	return h.listDirEntries(L, func(e os.DirEntry) bool { return !e.IsDir() })
}

func (h *Host) luaListDirs(L *lua.LState) int {
	return h.listDirEntries(L, func(e os.DirEntry) bool { return e.IsDir() })
}

func (h *Host) listDirEntries(L *lua.LState, keep func(os.DirEntry) bool) int {
	path := L.CheckString(1)
	entries, err := os.ReadDir(path)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	tbl := L.NewTable()
	for _, e := range entries {
		if keep(e) {
			tbl.Append(lua.LString(e.Name()))
		}
	}
	L.Push(tbl)
	return 1
}

func (h *Host) luaCommandExists(L *lua.LState) int {
	name := L.CheckString(1)
	_, err := exec.LookPath(name)
	L.Push(lua.LBool(err == nil))
	return 1
}

func (h *Host) luaSetHistorySize(L *lua.LState) int {
	n := L.CheckInt(1)
	if n <= 0 {
		L.Push(lua.LFalse)
		return 1
	}
	h.State.Config.HistorySize = n
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) luaSetHistoryFile(L *lua.LState) int {
	path := L.CheckString(1)
	h.State.Config.HistoryFile = path
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) pluginPath(name string) (string, bool) {
	for _, root := range []string{h.UserDir, h.AssetDir} {
		if root == "" {
			continue
		}
		for _, ext := range []string{"lua"} {
			p := filepath.Join(root, "plugins", name, "plugin."+ext)
			if _, err := os.Stat(p); err == nil {
				return p, true
			}
		}
	}
	return "", false
}

func (h *Host) luaEnablePlugin(L *lua.LState) int {
	name := L.CheckString(1)
	var path string
	if L.GetTop() >= 2 && L.Get(2) != lua.LNil {
		path = L.CheckString(2)
	} else {
		p, ok := h.pluginPath(name)
		if !ok {
			L.Push(lua.LFalse)
			return 1
		}
		path = p
	}
	if err := h.RunFile(path); err != nil {
		L.Push(lua.LFalse)
		return 1
	}
	h.Plugins[name] = path
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) luaDisablePlugin(L *lua.LState) int {
	name := L.CheckString(1)
	delete(h.Plugins, name)
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) luaPluginLoaded(L *lua.LState) int {
	name := L.CheckString(1)
	_, ok := h.Plugins[name]
	L.Push(lua.LBool(ok))
	return 1
}

// gitOutput runs git with args in the current directory, returning trimmed
// stdout and whether it succeeded. Never surfaces an error to the script,
// per spec.md §4.8's "report nil/false on failure" rule.
func gitOutput(args ...string) (string, bool) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

func (h *Host) luaGitBranch(L *lua.LState) int {
	out, ok := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(out))
	return 1
}

func (h *Host) luaGitDirty(L *lua.LState) int {
	out, ok := gitOutput("status", "--porcelain")
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(out != ""))
	return 1
}

func (h *Host) luaInGitRepo(L *lua.LState) int {
	_, ok := gitOutput("rev-parse", "--is-inside-work-tree")
	L.Push(lua.LBool(ok))
	return 1
}

func (h *Host) luaGitAheadBehind(L *lua.LState) int {
	out, ok := gitOutput("rev-list", "--left-right", "--count", "HEAD...@{u}")
	if !ok {
		L.Push(lua.LNil)
		L.Push(lua.LNil)
		return 2
	}
	parts := strings.Fields(out)
	if len(parts) != 2 {
		L.Push(lua.LNil)
		L.Push(lua.LNil)
		return 2
	}
	ahead, err1 := strconv.Atoi(parts[0])
	behind, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		L.Push(lua.LNil)
		L.Push(lua.LNil)
		return 2
	}
	L.Push(lua.LNumber(ahead))
	L.Push(lua.LNumber(behind))
	return 2
}
