package bridge

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/SolracHQ/rivet/internal/bridge/kvstore"
)

// OutputModule installs the "output" global: the per-job, per-stage
// inter-stage channel whose final map becomes JobResult.Outputs (spec
// §4.3).
type OutputModule struct {
	Store *kvstore.ReadWrite
}

func (m *OutputModule) Name() string { return "output" }

func (m *OutputModule) Install(L *lua.LState) {
	tbl := L.NewTable()

	L.SetField(tbl, "set", L.NewFunction(func(L *lua.LState) int {
		m.Store.Set(L.CheckString(1), L.CheckString(2))
		return 0
	}))

	L.SetField(tbl, "get", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if v, ok := m.Store.Get(name); ok {
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
		v, ok := m.Store.Get(name)
		if !ok {
			L.RaiseError("output.require: %q is not set", name)
			return 0
		}
		L.Push(lua.LString(v))
		return 1
	}))

	L.SetField(tbl, "has", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(m.Store.Has(L.CheckString(1))))
		return 1
	}))

	L.SetField(tbl, "all", L.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		for k, v := range m.Store.All() {
			L.SetField(out, k, lua.LString(v))
		}
		L.Push(out)
		return 1
	}))

	L.SetField(tbl, "keys", L.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		for _, k := range m.Store.Keys() {
			out.Append(lua.LString(k))
		}
		L.Push(out)
		return 1
	}))

	L.SetField(tbl, "clear", L.NewFunction(func(L *lua.LState) int {
		m.Store.Clear(L.CheckString(1))
		return 0
	}))

	L.SetField(tbl, "clear_all", L.NewFunction(func(L *lua.LState) int {
		m.Store.ClearAll()
		return 0
	}))

	L.SetGlobal("output", tbl)
}
