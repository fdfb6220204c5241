package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SolracHQ/rivet/internal/model"
)

func TestAssignBatchID_SharesOneIDAcrossEntriesMissingOne(t *testing.T) {
	buf := []model.LogEntry{
		{Message: "one", Timestamp: time.Now()},
		{Message: "two", Timestamp: time.Now()},
	}
	assignBatchID(buf)

	assert.NotEmpty(t, buf[0].BatchID)
	assert.Equal(t, buf[0].BatchID, buf[1].BatchID)
}

func TestAssignBatchID_LeavesAlreadyAssignedEntriesUntouched(t *testing.T) {
	buf := []model.LogEntry{
		{Message: "retry-me", Timestamp: time.Now(), BatchID: "batch-from-failed-attempt"},
		{Message: "brand-new", Timestamp: time.Now()},
	}
	assignBatchID(buf)

	assert.Equal(t, "batch-from-failed-attempt", buf[0].BatchID)
	assert.NotEmpty(t, buf[1].BatchID)
	assert.NotEqual(t, buf[0].BatchID, buf[1].BatchID)
}

func TestAssignBatchID_RepeatedCallsOnSameBufKeepTheSameID(t *testing.T) {
	buf := []model.LogEntry{
		{Message: "one", Timestamp: time.Now()},
	}
	assignBatchID(buf)
	first := buf[0].BatchID

	assignBatchID(buf) // simulates a retry of the same unsent buffer
	assert.Equal(t, first, buf[0].BatchID)
}
