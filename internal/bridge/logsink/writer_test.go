package logsink_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SolracHQ/rivet/internal/bridge/logsink"
	"github.com/SolracHQ/rivet/internal/model"
)

func TestWriterSink_FormatsLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := logsink.WriterSink{W: &buf}

	ts := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	sink.Write(model.LogInfo, "deploy started", ts)

	out := buf.String()
	assert.Contains(t, out, "[info]")
	assert.Contains(t, out, "deploy started")
	assert.Contains(t, out, "2026-08-03T12:00:00Z")
}

func TestFunc_AdaptsPlainFunctionToSink(t *testing.T) {
	var got string
	var gotLevel model.LogLevel
	sink := logsink.Func(func(level model.LogLevel, msg string, _ time.Time) {
		gotLevel = level
		got = msg
	})

	var asInterface logsink.Sink = sink
	asInterface.Write(model.LogError, "boom", time.Now())

	assert.Equal(t, model.LogError, gotLevel)
	assert.Equal(t, "boom", got)
}
