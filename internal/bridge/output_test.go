package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/bridge"
	"github.com/SolracHQ/rivet/internal/bridge/kvstore"
)

func TestOutputModule_SetGetPersistsAcrossCalls(t *testing.T) {
	L := newLuaState(t)
	store := kvstore.NewReadWrite()
	(&bridge.OutputModule{Store: store}).Install(L)

	require.NoError(t, L.DoString(`
		output.set("artifact", "build-123")
		assert(output.get("artifact") == "build-123")
	`))

	v, ok := store.Get("artifact")
	assert.True(t, ok)
	assert.Equal(t, "build-123", v)
}

func TestOutputModule_RequireRaisesWhenUnset(t *testing.T) {
	L := newLuaState(t)
	(&bridge.OutputModule{Store: kvstore.NewReadWrite()}).Install(L)

	err := L.DoString(`output.require("artifact")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact")
}

func TestOutputModule_ClearAndClearAll(t *testing.T) {
	L := newLuaState(t)
	store := kvstore.NewReadWrite()
	(&bridge.OutputModule{Store: store}).Install(L)

	require.NoError(t, L.DoString(`
		output.set("a", "1")
		output.set("b", "2")
		output.clear("a")
	`))
	assert.False(t, store.Has("a"))
	assert.True(t, store.Has("b"))

	require.NoError(t, L.DoString(`output.clear_all()`))
	assert.Empty(t, store.All())
}
