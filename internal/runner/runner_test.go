package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/containerstack/faketest"
	"github.com/SolracHQ/rivet/internal/orchestrator"
	"github.com/SolracHQ/rivet/internal/rivetconfig"
	"github.com/SolracHQ/rivet/internal/runner"
	"github.com/SolracHQ/rivet/internal/runnerclient"
	"github.com/SolracHQ/rivet/internal/store"
)

const stagePipeline = `
return pipeline.define{
  name = "two-stage",
  stages = {
    { name = "build", container = "golang:1.24", body = function()
        output.set("artifact", "built")
      end },
    { name = "skip-me", container = "never:pulled", condition = function() return false end, body = function()
        error("should never run")
      end },
  },
}
`

func startTestOrchestrator(t *testing.T) *httptest.Server {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := store.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := orchestrator.New(st, time.Minute, time.Minute)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, baseURL, path string, body any) map[string]any {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// TestRunner_ExecutesOneJobEndToEnd drives a full register -> poll -> claim
// -> execute -> complete cycle against a real orchestrator (spec §4.4, §8):
// the "skip-me" stage's container must never be pushed, since its condition
// is false.
func TestRunner_ExecutesOneJobEndToEnd(t *testing.T) {
	ts := startTestOrchestrator(t)

	created := postJSON(t, ts.URL, "/api/pipeline/create", map[string]string{
		"name": "two-stage", "source": stagePipeline,
	})
	pipelineID := created["id"].(string)

	postJSON(t, ts.URL, "/api/pipeline/launch", map[string]any{
		"pipeline_id": pipelineID,
		"parameters":  map[string]string{},
	})

	client := runnerclient.New(ts.URL, time.Second)
	defer client.Close()

	engine := faketest.New()
	cfg := rivetconfig.RunnerConfig{
		DefaultContainerImage: "alpine:latest",
		LogSendInterval:       20 * time.Millisecond,
		LogBatchMax:           10,
		HeartbeatInterval:     50 * time.Millisecond,
		HeartbeatMaxBackoff:   time.Second,
		MaxParallelJobs:       1,
		WorkspaceRoot:         t.TempDir(),
	}

	w := runner.New(uuid.NewString(), nil, cfg, client, engine)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/jobs/pipeline/" + pipelineID)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var jobs []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil || len(jobs) == 0 {
			return false
		}
		return jobs[0]["status"] == "Succeeded"
	}, 2*time.Second, 20*time.Millisecond, "job should reach Succeeded")

	cancel()
	<-done

	for _, call := range engine.Calls() {
		assert.NotEqual(t, "never:pulled", call.Image, "skipped stage's container must never be exec'd into")
	}
	for _, h := range engine.History() {
		assert.NotEqual(t, "never:pulled", h.Image, "skipped stage's container must never be started")
	}
}
