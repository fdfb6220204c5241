package bridge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/bridge"
	"github.com/SolracHQ/rivet/internal/containerstack"
	"github.com/SolracHQ/rivet/internal/containerstack/faketest"
)

func newTestStack(t *testing.T) (*containerstack.Stack, *faketest.Engine) {
	t.Helper()
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", t.TempDir(), "/workspace", "alpine:latest")
	require.NoError(t, err)
	return stack, engine
}

func TestContainerModule_WithPushesRunsAndPopsAroundBody(t *testing.T) {
	L := newLuaState(t)
	stack, _ := newTestStack(t)
	(&bridge.ContainerModule{Stack: stack}).Install(L)

	require.NoError(t, L.DoString(`
		assert(container.depth() == 1)
		container.with("golang:1.24", function()
			assert(container.depth() == 2)
			assert(container.current_image() == "golang:1.24")
		end)
		assert(container.depth() == 1)
		assert(container.current_image() == "alpine:latest")
	`))
}

func TestContainerModule_PanicInBodyPopsAndRaisesLuaError(t *testing.T) {
	L := newLuaState(t)
	stack, _ := newTestStack(t)
	(&bridge.ContainerModule{Stack: stack}).Install(L)

	err := L.DoString(`container.with("golang:1.24", function() error("stage exploded") end)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage exploded")
	assert.Equal(t, 1, stack.Depth())
}

func TestContainerModule_MissingImageRaisesLuaError(t *testing.T) {
	L := newLuaState(t)
	stack, _ := newTestStack(t)
	(&bridge.ContainerModule{Stack: stack}).Install(L)

	err := L.DoString(`container.with("", function() end)`)
	require.Error(t, err)
}
