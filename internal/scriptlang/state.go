package scriptlang

import lua "github.com/yuin/gopher-lua"

// Mode selects which capability set is installed before evaluation.
type Mode int

const (
	// ModeMetadata installs only the pipeline-definition surface. No I/O
	// capability is available; any attempt to use one of the names in
	// forbiddenModules raises a SandboxViolation.
	ModeMetadata Mode = iota
	// ModeExecution installs the pipeline-definition surface plus every
	// supplied host-bridge Module.
	ModeExecution
)

// forbiddenModules is the closed set of host-bridge globals the metadata
// sandbox must never expose (spec §4.1, §4.3).
var forbiddenModules = []string{"log", "input", "output", "env", "process", "container"}

// NewState builds a fresh Lua VM for one evaluation. Only the base, string,
// table, and math standard libraries are opened — io, os, debug, channel,
// and coroutine are never available to a pipeline script, in either
// sandbox, since the host-bridge modules of §4.3 are the only sanctioned
// I/O surface.
func NewState(mode Mode, modules ...Module) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenString(L)
	lua.OpenTable(L)
	lua.OpenMath(L)

	installPipelineGlobal(L)

	switch mode {
	case ModeMetadata:
		installSandboxGuards(L)
	case ModeExecution:
		for _, m := range modules {
			m.Install(L)
		}
	}

	return L
}

// installSandboxGuards installs a proxy for every forbidden module name so
// that indexing or calling it raises a typed SandboxViolation instead of a
// generic "attempt to index a nil value" error.
func installSandboxGuards(L *lua.LState) {
	for _, name := range forbiddenModules {
		name := name
		proxy := L.NewTable()
		mt := L.NewTable()
		guard := L.NewFunction(func(L *lua.LState) int {
			L.RaiseError("sandbox violation: module %q is not available in the metadata sandbox", name)
			return 0
		})
		L.SetField(mt, "__index", guard)
		L.SetField(mt, "__call", guard)
		L.SetMetatable(proxy, mt)
		L.SetGlobal(name, proxy)
	}
}
