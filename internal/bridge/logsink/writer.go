package logsink

import (
	"fmt"
	"io"
	"time"

	"github.com/SolracHQ/rivet/internal/model"
)

// WriterSink writes each line to an io.Writer, the CLI's delivery mechanism
// (spec §4.3: "In the CLI, the sink writes to standard streams").
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(level model.LogLevel, msg string, ts time.Time) {
	fmt.Fprintf(s.W, "%s [%s] %s\n", ts.Format(time.RFC3339), level, msg)
}
