package containerstack_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/containerstack"
	"github.com/SolracHQ/rivet/internal/containerstack/containerdriver"
	"github.com/SolracHQ/rivet/internal/containerstack/faketest"
)

func TestNew_PushesDefaultContext(t *testing.T) {
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	assert.Equal(t, 1, stack.Depth())
	assert.Equal(t, "default:latest", stack.Top().Image)
	assert.Len(t, engine.Live(), 1)
}

func TestWithContainer_PushesExecutesPopsOnSuccess(t *testing.T) {
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	var depthDuring int
	var imageDuring string
	err = stack.WithContainer(context.Background(), "builder:1.0", func(ctx context.Context) error {
		depthDuring = stack.Depth()
		imageDuring = stack.Top().Image
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, depthDuring)
	assert.Equal(t, "builder:1.0", imageDuring)
	assert.Equal(t, 1, stack.Depth())
	assert.Equal(t, "default:latest", stack.Top().Image)
}

func TestWithContainer_PopsOnError(t *testing.T) {
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	wantErr := errors.New("stage failed")
	err = stack.WithContainer(context.Background(), "builder:1.0", func(ctx context.Context) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, stack.Depth())
}

func TestWithContainer_PopsOnPanic(t *testing.T) {
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	err = stack.WithContainer(context.Background(), "builder:1.0", func(ctx context.Context) error {
		panic("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, stack.Depth())
}

func TestWithContainer_NestedDepth(t *testing.T) {
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	err = stack.WithContainer(context.Background(), "outer:1.0", func(ctx context.Context) error {
		assert.Equal(t, 2, stack.Depth())
		return stack.WithContainer(ctx, "inner:1.0", func(ctx context.Context) error {
			assert.Equal(t, 3, stack.Depth())
			return nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, stack.Depth())
}

func TestWithContainer_PushFailureLeavesStackUnchanged(t *testing.T) {
	engine := faketest.New()
	engine.FailStart["broken:1.0"] = errors.New("no such image")
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	err = stack.WithContainer(context.Background(), "broken:1.0", func(ctx context.Context) error {
		t.Fatal("body should not run when push fails")
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 1, stack.Depth())
}

func TestExec_OmittedCwdDefaultsToWorkspaceMount(t *testing.T) {
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	_, err = stack.Exec(context.Background(), containerdriver.ExecRequest{Cmd: "go"})
	require.NoError(t, err)

	require.Len(t, engine.Calls(), 1)
	assert.Equal(t, "/workspace", engine.Calls()[0].Cwd)
}

func TestExec_ExplicitCwdIsNotOverridden(t *testing.T) {
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	_, err = stack.Exec(context.Background(), containerdriver.ExecRequest{Cmd: "go", Cwd: "/workspace/sub"})
	require.NoError(t, err)

	require.Len(t, engine.Calls(), 1)
	assert.Equal(t, "/workspace/sub", engine.Calls()[0].Cwd)
}

func TestDestroyAll_PopsEveryRemainingContext(t *testing.T) {
	engine := faketest.New()
	stack, err := containerstack.New(context.Background(), engine, "job-1", "/tmp/ws", "/workspace", "default:latest")
	require.NoError(t, err)

	stack.DestroyAll(context.Background())
	assert.Equal(t, 0, stack.Depth())
	assert.Empty(t, engine.Live())
}
