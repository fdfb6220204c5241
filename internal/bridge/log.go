// Package bridge implements the host-bridge modules of spec §4.3: the
// capability surface installed into the execution sandbox. Each module is a
// small Go type satisfying scriptlang.Module, the same
// Register(*Registry)-shaped contract the teacher uses for its own modules
// (internal/registry/handlers.go in burstgridgo), retargeted at a Lua state.
package bridge

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/SolracHQ/rivet/internal/bridge/logsink"
	"github.com/SolracHQ/rivet/internal/model"
)

// LogModule installs the "log" global: debug|info|warning|error(msg).
type LogModule struct {
	Sink logsink.Sink
}

func (m *LogModule) Name() string { return "log" }

func (m *LogModule) Install(L *lua.LState) {
	tbl := L.NewTable()
	for level, name := range map[model.LogLevel]string{
		model.LogDebug:   "debug",
		model.LogInfo:    "info",
		model.LogWarning: "warning",
		model.LogError:   "error",
	} {
		level := level
		L.SetField(tbl, name, L.NewFunction(func(L *lua.LState) int {
			msg := L.CheckString(1)
			m.Sink.Write(level, msg, time.Now())
			return 0
		}))
	}
	L.SetGlobal("log", tbl)
}
