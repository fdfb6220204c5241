package bridge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/bridge"
	"github.com/SolracHQ/rivet/internal/bridge/logsink"
	"github.com/SolracHQ/rivet/internal/model"
)

type recordedLine struct {
	level model.LogLevel
	msg   string
}

func TestLogModule_EachLevelWritesToSink(t *testing.T) {
	L := newLuaState(t)

	var lines []recordedLine
	sink := logsink.Func(func(level model.LogLevel, msg string, _ time.Time) {
		lines = append(lines, recordedLine{level, msg})
	})
	(&bridge.LogModule{Sink: sink}).Install(L)

	require.NoError(t, L.DoString(`
		log.debug("d")
		log.info("i")
		log.warning("w")
		log.error("e")
	`))

	require.Len(t, lines, 4)
	byLevel := map[model.LogLevel]string{}
	for _, l := range lines {
		byLevel[l.level] = l.msg
	}
	assert.Equal(t, "d", byLevel[model.LogDebug])
	assert.Equal(t, "i", byLevel[model.LogInfo])
	assert.Equal(t, "w", byLevel[model.LogWarning])
	assert.Equal(t, "e", byLevel[model.LogError])
}
