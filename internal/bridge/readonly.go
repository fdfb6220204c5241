package bridge

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/SolracHQ/rivet/internal/bridge/kvstore"
)

// InputModule installs the "input" global: a read-only view over
// job.parameters (spec §4.3).
type InputModule struct {
	Store *kvstore.ReadOnly
}

func (m *InputModule) Name() string { return "input" }
func (m *InputModule) Install(L *lua.LState) {
	installReadOnly(L, "input", m.Store)
}

// EnvModule installs the "env" global: a read-only view over the runner-
// supplied subset of environment exposed to the job (spec §4.3). This is
// NOT the process's own environment — the runner decides what's visible.
type EnvModule struct {
	Store *kvstore.ReadOnly
}

func (m *EnvModule) Name() string { return "env" }
func (m *EnvModule) Install(L *lua.LState) {
	installReadOnly(L, "env", m.Store)
}

// installReadOnly installs get/require/has/all/keys over a ReadOnly store
// under the given global name. input and env share this shape exactly
// (spec §6).
func installReadOnly(L *lua.LState, global string, store *kvstore.ReadOnly) {
	tbl := L.NewTable()

	L.SetField(tbl, "get", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if v, ok := store.Get(name); ok {
			L.Push(lua.LString(v))
			return 1
		}
		if L.GetTop() >= 2 {
			L.Push(L.Get(2))
			return 1
		}
		L.Push(lua.LNil)
		return 1
	}))

	L.SetField(tbl, "require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		v, ok := store.Get(name)
		if !ok {
			L.RaiseError("%s.require: %q is not set", global, name)
			return 0
		}
		L.Push(lua.LString(v))
		return 1
	}))

	L.SetField(tbl, "has", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(store.Has(L.CheckString(1))))
		return 1
	}))

	L.SetField(tbl, "all", L.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		for k, v := range store.All() {
			L.SetField(out, k, lua.LString(v))
		}
		L.Push(out)
		return 1
	}))

	L.SetField(tbl, "keys", L.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		for _, k := range store.Keys() {
			out.Append(lua.LString(k))
		}
		L.Push(out)
		return 1
	}))

	L.SetGlobal(global, tbl)
}
