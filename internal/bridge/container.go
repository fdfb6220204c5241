package bridge

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/SolracHQ/rivet/internal/containerstack"
)

// ContainerModule installs the "container" global: container.with(image, fn)
// pushes a new execution context, invokes fn, and pops on every exit path
// (spec §4.2, §8 scenario 5 — nested container.with calls).
type ContainerModule struct {
	Stack *containerstack.Stack
}

func (m *ContainerModule) Name() string { return "container" }

func (m *ContainerModule) Install(L *lua.LState) {
	tbl := L.NewTable()

	L.SetField(tbl, "with", L.NewFunction(func(L *lua.LState) int {
		image := L.CheckString(1)
		if image == "" {
			L.RaiseError("container.with: %v", errMissingImage)
			return 0
		}
		fn := L.CheckFunction(2)

		ctx := context.Background()
		if c := L.Context(); c != nil {
			ctx = c
		}

		callErr := m.Stack.WithContainer(ctx, image, func(context.Context) error {
			L.Push(fn)
			return L.PCall(0, 0, nil)
		})
		if callErr != nil {
			L.RaiseError("container.with(%s): %v", image, callErr)
		}
		return 0
	}))

	L.SetField(tbl, "depth", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.Stack.Depth()))
		return 1
	}))

	L.SetField(tbl, "current_image", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(m.Stack.Top().Image))
		return 1
	}))

	L.SetGlobal("container", tbl)
}
