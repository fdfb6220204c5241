package bridge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/bridge"
	"github.com/SolracHQ/rivet/internal/bridge/logsink"
	"github.com/SolracHQ/rivet/internal/containerstack/containerdriver"
	"github.com/SolracHQ/rivet/internal/model"
)

func TestProcessModule_RunReturnsExitCodeAndOutput(t *testing.T) {
	L := newLuaState(t)
	stack, engine := newTestStack(t)
	out := "built ok"
	engine.ExecFunc = func(h containerdriver.Handle, req containerdriver.ExecRequest) (containerdriver.ExecResult, error) {
		return containerdriver.ExecResult{ExitCode: 0, Stdout: &out}, nil
	}
	(&bridge.ProcessModule{Stack: stack}).Install(L)

	require.NoError(t, L.DoString(`
		local result = process.run({ cmd = "go", args = { "build", "./..." } })
		assert(result.exit_code == 0)
		assert(result.stdout == "built ok")
	`))

	require.Len(t, engine.Calls(), 1)
	assert.Equal(t, "go", engine.Calls()[0].Cmd)
	assert.Equal(t, []string{"build", "./..."}, engine.Calls()[0].Args)
}

func TestProcessModule_OmittedCwdDefaultsToWorkspaceMount(t *testing.T) {
	L := newLuaState(t)
	stack, engine := newTestStack(t)
	(&bridge.ProcessModule{Stack: stack}).Install(L)

	require.NoError(t, L.DoString(`process.run({ cmd = "go", args = { "build" } })`))

	require.Len(t, engine.Calls(), 1)
	assert.Equal(t, "/workspace", engine.Calls()[0].Cwd)
}

func TestProcessModule_ExplicitCwdIsPassedThrough(t *testing.T) {
	L := newLuaState(t)
	stack, engine := newTestStack(t)
	(&bridge.ProcessModule{Stack: stack}).Install(L)

	require.NoError(t, L.DoString(`process.run({ cmd = "go", cwd = "/workspace/sub" })`))

	require.Len(t, engine.Calls(), 1)
	assert.Equal(t, "/workspace/sub", engine.Calls()[0].Cwd)
}

func TestProcessModule_MissingCmdRaisesLuaError(t *testing.T) {
	L := newLuaState(t)
	stack, _ := newTestStack(t)
	(&bridge.ProcessModule{Stack: stack}).Install(L)

	err := L.DoString(`process.run({ args = { "build" } })`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cmd")
}

func TestProcessModule_UnknownConfigKeyRaisesLuaError(t *testing.T) {
	L := newLuaState(t)
	stack, _ := newTestStack(t)
	(&bridge.ProcessModule{Stack: stack}).Install(L)

	err := L.DoString(`process.run({ cmd = "go", bogus = true })`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestProcessModule_RunsInsideCurrentContainerContext(t *testing.T) {
	L := newLuaState(t)
	stack, engine := newTestStack(t)
	(&bridge.ContainerModule{Stack: stack}).Install(L)
	(&bridge.ProcessModule{Stack: stack}).Install(L)

	require.NoError(t, L.DoString(`
		container.with("golang:1.24", function()
			process.run({ cmd = "go", args = { "test" } })
		end)
	`))

	require.Len(t, engine.Calls(), 1)
	assert.Equal(t, "golang:1.24", engine.Calls()[0].Image)
}

func TestProcessModule_UncapturedStreamsForwardToLogSinkAtConfiguredLevels(t *testing.T) {
	L := newLuaState(t)
	stack, engine := newTestStack(t)
	var entries []recordedLine
	sink := logsink.Func(func(level model.LogLevel, msg string, _ time.Time) {
		entries = append(entries, recordedLine{level, msg})
	})
	engine.ExecFunc = func(h containerdriver.Handle, req containerdriver.ExecRequest) (containerdriver.ExecResult, error) {
		require.NotNil(t, req.OnStdoutLine)
		require.NotNil(t, req.OnStderrLine)
		req.OnStdoutLine("building")
		req.OnStderrLine("deprecation notice")
		return containerdriver.ExecResult{ExitCode: 0}, nil
	}
	(&bridge.ProcessModule{Stack: stack, Sink: sink}).Install(L)

	require.NoError(t, L.DoString(`
		local result = process.run({ cmd = "go", args = { "build" }, stderr_level = "error" })
		assert(result.stdout == nil)
		assert(result.stderr == nil)
	`))

	require.Len(t, entries, 2)
	assert.Equal(t, model.LogInfo, entries[0].level)
	assert.Equal(t, "building", entries[0].msg)
	assert.Equal(t, model.LogError, entries[1].level)
	assert.Equal(t, "deprecation notice", entries[1].msg)
}

func TestProcessModule_CapturedStreamsSkipLogForwarding(t *testing.T) {
	L := newLuaState(t)
	stack, engine := newTestStack(t)
	sink := logsink.Func(func(model.LogLevel, string, time.Time) {
		t.Fatal("captured stream must not be forwarded to the log sink")
	})
	out := "built ok"
	engine.ExecFunc = func(h containerdriver.Handle, req containerdriver.ExecRequest) (containerdriver.ExecResult, error) {
		require.Nil(t, req.OnStdoutLine)
		return containerdriver.ExecResult{ExitCode: 0, Stdout: &out}, nil
	}
	(&bridge.ProcessModule{Stack: stack, Sink: sink}).Install(L)

	require.NoError(t, L.DoString(`
		local result = process.run({ cmd = "go", capture_stdout = true })
		assert(result.stdout == "built ok")
	`))
}
