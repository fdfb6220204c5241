package orchestrator_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolracHQ/rivet/internal/orchestrator"
	"github.com/SolracHQ/rivet/internal/store"
)

const samplePipeline = `
return pipeline.define{
  name = "build-and-deploy",
  inputs = {
    environment = { type = "string", required = true },
  },
  stages = {
    { name = "build", body = function() end },
  },
}
`

func newTestServer(t *testing.T) *httptest.Server {
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

func postJSON(t *testing.T, ts *httptest.Server, path string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	resp, err := http.Post(ts.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestCreatePipeline_ThenGet(t *testing.T) {
	ts := newTestServer(t)

	var created map[string]any
	resp := postJSON(t, ts, "/api/pipeline/create", map[string]string{
		"name": "build-and-deploy", "source": samplePipeline,
	}, &created)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	getResp, err := http.Get(ts.URL + "/api/pipeline/" + id)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	var fetched map[string]any
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&fetched))
	assert.Equal(t, "build-and-deploy", fetched["name"])
}

func TestCreatePipeline_InvalidScriptReturns422(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/pipeline/create", map[string]string{
		"name": "broken", "source": `return pipeline.define{ name = "x" }`, // no stages
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestLaunchJob_ValidatesParametersAndCreatesPendingJob(t *testing.T) {
	ts := newTestServer(t)

	var created map[string]any
	postJSON(t, ts, "/api/pipeline/create", map[string]string{
		"name": "build-and-deploy", "source": samplePipeline,
	}, &created)
	pipelineID := created["id"].(string)

	var job map[string]any
	resp := postJSON(t, ts, "/api/pipeline/launch", map[string]any{
		"pipeline_id": pipelineID,
		"parameters":  map[string]string{"environment": "staging"},
	}, &job)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Pending", job["status"])
}

func TestLaunchJob_MissingRequiredParameterReturns422(t *testing.T) {
	ts := newTestServer(t)

	var created map[string]any
	postJSON(t, ts, "/api/pipeline/create", map[string]string{
		"name": "build-and-deploy", "source": samplePipeline,
	}, &created)
	pipelineID := created["id"].(string)

	resp := postJSON(t, ts, "/api/pipeline/launch", map[string]any{
		"pipeline_id": pipelineID,
		"parameters":  map[string]string{},
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestClaimJob_SecondClaimConflicts(t *testing.T) {
	ts := newTestServer(t)

	var created map[string]any
	postJSON(t, ts, "/api/pipeline/create", map[string]string{
		"name": "build-and-deploy", "source": samplePipeline,
	}, &created)
	pipelineID := created["id"].(string)

	var job map[string]any
	postJSON(t, ts, "/api/pipeline/launch", map[string]any{
		"pipeline_id": pipelineID,
		"parameters":  map[string]string{"environment": "staging"},
	}, &job)
	jobID := job["id"].(string)

	claimResp := postJSON(t, ts, fmt.Sprintf("/api/jobs/%s/claim", jobID), map[string]string{"runner_id": "runner-a"}, nil)
	require.Equal(t, http.StatusOK, claimResp.StatusCode)

	secondResp := postJSON(t, ts, fmt.Sprintf("/api/jobs/%s/claim", jobID), map[string]string{"runner_id": "runner-b"}, nil)
	assert.Equal(t, http.StatusConflict, secondResp.StatusCode)
}

func TestGetPipeline_UnknownIDReturns404(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/pipeline/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
