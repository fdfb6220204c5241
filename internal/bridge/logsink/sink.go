// Package logsink defines the polymorphic log delivery capability the "log"
// bridge module is parameterized over (spec §4.3): the runner's bounded
// buffer, the CLI's stdout/stderr writer, or nothing at all in the
// orchestrator's metadata sandbox (which never installs "log" in the first
// place).
package logsink

import (
	"time"

	"github.com/SolracHQ/rivet/internal/model"
)

// Sink accepts one log line at a time. Implementations must be safe for
// concurrent use: a job's stages run sequentially, but a sink may also be
// shared with the runner's own diagnostic logging.
type Sink interface {
	Write(level model.LogLevel, msg string, ts time.Time)
}

// Func adapts a plain function to the Sink interface.
type Func func(level model.LogLevel, msg string, ts time.Time)

func (f Func) Write(level model.LogLevel, msg string, ts time.Time) { f(level, msg, ts) }
