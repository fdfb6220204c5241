package scriptlang

import lua "github.com/yuin/gopher-lua"

// InvokeCondition calls a stage's condition function (a zero-argument call
// per spec §4.1) and reports its truthiness. A nil or false Lua value is
// falsy; everything else, including zero and the empty string, is truthy
// (Lua's own truthiness rule — only nil and false are falsy).
func InvokeCondition(L *lua.LState, handle any) (bool, error) {
	fn, ok := handle.(*lua.LFunction)
	if !ok || fn == nil {
		return true, nil
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return false, translateLuaError(err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// InvokeBody calls a stage's body function (zero-argument) and returns any
// script-level error the caller should wrap as a StageError.
func InvokeBody(L *lua.LState, handle any) error {
	fn, ok := handle.(*lua.LFunction)
	if !ok || fn == nil {
		return nil
	}
	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		return translateLuaError(err)
	}
	return nil
}
