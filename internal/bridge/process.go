package bridge

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/SolracHQ/rivet/internal/bridge/logsink"
	"github.com/SolracHQ/rivet/internal/containerstack"
	"github.com/SolracHQ/rivet/internal/containerstack/containerdriver"
	"github.com/SolracHQ/rivet/internal/model"
)

// ProcessModule installs the "process" global: process.run(config), which
// execs a command inside the container currently on top of the stack (spec
// §4.2, §4.3). Sink is the stream-discipline target: unless a stream is
// explicitly captured, its lines are forwarded to the log buffer at
// stdout_level/stderr_level (default info/warning) instead of being
// returned in the result (spec §4.2 "Stream discipline").
type ProcessModule struct {
	Stack *containerstack.Stack
	Sink  logsink.Sink
}

func (m *ProcessModule) Name() string { return "process" }

func (m *ProcessModule) Install(L *lua.LState) {
	tbl := L.NewTable()

	L.SetField(tbl, "run", L.NewFunction(func(L *lua.LState) int {
		cfg := L.CheckTable(1)
		req, stdoutLevel, stderrLevel, err := decodeExecRequest(L, cfg)
		if err != nil {
			L.RaiseError("process.run: %v", err)
			return 0
		}

		if !req.CaptureStdout {
			req.OnStdoutLine = func(line string) { m.Sink.Write(stdoutLevel, line, time.Now()) }
		}
		if !req.CaptureStderr {
			req.OnStderrLine = func(line string) { m.Sink.Write(stderrLevel, line, time.Now()) }
		}

		result, err := m.Stack.Exec(m.execContext(L), req)
		if err != nil {
			L.RaiseError("process.run: %v", err)
			return 0
		}

		out := L.NewTable()
		L.SetField(out, "exit_code", lua.LNumber(result.ExitCode))
		if result.Stdout != nil {
			L.SetField(out, "stdout", lua.LString(*result.Stdout))
		}
		if result.Stderr != nil {
			L.SetField(out, "stderr", lua.LString(*result.Stderr))
		}
		L.Push(out)
		return 1
	}))

	L.SetGlobal("process", tbl)
}

// execContext returns the Go context carried by the Lua state, falling back
// to Background when the evaluator was started without one.
func (m *ProcessModule) execContext(L *lua.LState) context.Context {
	if c := L.Context(); c != nil {
		return c
	}
	return context.Background()
}

// decodeExecRequest validates the process.run config table against its
// known keys (spec §4.3 "reject unrecognized configuration keys") and
// returns the decoded request plus the stdout/stderr log levels to use
// when the corresponding stream is not captured.
func decodeExecRequest(L *lua.LState, cfg *lua.LTable) (containerdriver.ExecRequest, model.LogLevel, model.LogLevel, error) {
	allowed := map[string]bool{
		"cmd": true, "args": true, "cwd": true, "stdin": true,
		"capture_stdout": true, "capture_stderr": true,
		"stdout_level": true, "stderr_level": true,
	}
	var unknown []string
	cfg.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			if !allowed[string(ks)] {
				unknown = append(unknown, string(ks))
			}
		}
	})
	if len(unknown) > 0 {
		return containerdriver.ExecRequest{}, "", "", &unknownKeysError{keys: unknown}
	}

	var req containerdriver.ExecRequest
	if cmd, ok := cfg.RawGetString("cmd").(lua.LString); ok {
		req.Cmd = string(cmd)
	} else {
		return containerdriver.ExecRequest{}, "", "", errMissingCmd
	}
	if argsV, ok := cfg.RawGetString("args").(*lua.LTable); ok {
		argsV.ForEach(func(_, v lua.LValue) {
			req.Args = append(req.Args, v.String())
		})
	}
	if cwd, ok := cfg.RawGetString("cwd").(lua.LString); ok {
		req.Cwd = string(cwd)
	}
	if stdin, ok := cfg.RawGetString("stdin").(lua.LString); ok {
		req.Stdin = string(stdin)
	}
	if cs, ok := cfg.RawGetString("capture_stdout").(lua.LBool); ok {
		req.CaptureStdout = bool(cs)
	}
	if cs, ok := cfg.RawGetString("capture_stderr").(lua.LBool); ok {
		req.CaptureStderr = bool(cs)
	}

	stdoutLevel, err := logLevelOrDefault(cfg, "stdout_level", model.LogInfo)
	if err != nil {
		return containerdriver.ExecRequest{}, "", "", err
	}
	stderrLevel, err := logLevelOrDefault(cfg, "stderr_level", model.LogWarning)
	if err != nil {
		return containerdriver.ExecRequest{}, "", "", err
	}

	return req, stdoutLevel, stderrLevel, nil
}

// logLevelOrDefault reads a log-level config key, falling back to def when
// absent, and rejects any value outside the closed level set.
func logLevelOrDefault(cfg *lua.LTable, key string, def model.LogLevel) (model.LogLevel, error) {
	v, ok := cfg.RawGetString(key).(lua.LString)
	if !ok {
		return def, nil
	}
	switch level := model.LogLevel(string(v)); level {
	case model.LogDebug, model.LogInfo, model.LogWarning, model.LogError:
		return level, nil
	default:
		return "", &unknownKeysError{keys: []string{key + "=" + string(v)}}
	}
}
