package bridge_test

import (
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/bridge"
	"github.com/SolracHQ/rivet/internal/bridge/kvstore"
)

func newLuaState(t *testing.T) *lua.LState {
	t.Helper()
	L := lua.NewState()
	t.Cleanup(L.Close)
	return L
}

func TestInputModule_GetReturnsValueOrFallback(t *testing.T) {
	L := newLuaState(t)
	m := &bridge.InputModule{Store: kvstore.NewReadOnly(map[string]string{"environment": "staging"})}
	m.Install(L)

	require.NoError(t, L.DoString(`
		assert(input.get("environment") == "staging")
		assert(input.get("missing", "fallback") == "fallback")
		assert(input.get("missing") == nil)
		assert(input.has("environment") == true)
		assert(input.has("missing") == false)
	`))
}

func TestInputModule_RequireRaisesOnMissingKey(t *testing.T) {
	L := newLuaState(t)
	m := &bridge.InputModule{Store: kvstore.NewReadOnly(nil)}
	m.Install(L)

	err := L.DoString(`input.require("environment")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment")
}

func TestEnvModule_IsIndependentFromInput(t *testing.T) {
	L := newLuaState(t)
	(&bridge.InputModule{Store: kvstore.NewReadOnly(map[string]string{"k": "input-value"})}).Install(L)
	(&bridge.EnvModule{Store: kvstore.NewReadOnly(map[string]string{"k": "env-value"})}).Install(L)

	require.NoError(t, L.DoString(`
		assert(input.get("k") == "input-value")
		assert(env.get("k") == "env-value")
	`))
}

func TestReadOnlyModule_AllAndKeysExposeEveryEntry(t *testing.T) {
	L := newLuaState(t)
	m := &bridge.EnvModule{Store: kvstore.NewReadOnly(map[string]string{"a": "1", "b": "2"})}
	m.Install(L)

	require.NoError(t, L.DoString(`
		local all = env.all()
		assert(all.a == "1" and all.b == "2")
		local keys = env.keys()
		assert(#keys == 2)
	`))
}
