package rivetcli

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
)

// PipelineClient wraps the CLI-facing Pipelines API of spec §6
// (create/launch/list/get/delete), the same resty.dev/v3 client idiom
// runnerclient.Client uses for the runner-facing job API.
type PipelineClient struct {
	http *resty.Client
}

func NewPipelineClient(baseURL string) *PipelineClient {
	return &PipelineClient{http: resty.New().SetBaseURL(baseURL).SetTimeout(30 * time.Second)}
}

func (c *PipelineClient) Close() error { return c.http.Close() }

func apiErr(resp *resty.Response) error {
	return &ExitError{Code: 1, Message: fmt.Sprintf("%s: %s", resp.Status(), string(resp.Bytes()))}
}

type PipelineDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

type PipelineSummaryDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type JobDTO struct {
	ID             string            `json:"id"`
	PipelineID     string            `json:"pipeline_id"`
	PipelineSource string            `json:"pipeline_source,omitempty"`
	Parameters     map[string]string `json:"parameters"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CreatePipeline implements POST /api/pipeline/create.
func (c *PipelineClient) CreatePipeline(ctx context.Context, name, source string) (*PipelineDTO, error) {
	var out PipelineDTO
	resp, err := c.http.R().SetContext(ctx).
		SetBody(map[string]string{"name": name, "source": source}).
		SetResult(&out).
		Post("/api/pipeline/create")
	if err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &out, nil
}

// LaunchJob implements POST /api/pipeline/launch.
func (c *PipelineClient) LaunchJob(ctx context.Context, pipelineIDOrName string, byName bool, parameters map[string]string) (*JobDTO, error) {
	body := map[string]any{"parameters": parameters}
	if byName {
		body["name"] = pipelineIDOrName
	} else {
		body["pipeline_id"] = pipelineIDOrName
	}

	var out JobDTO
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&out).Post("/api/pipeline/launch")
	if err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &out, nil
}

// ListPipelines implements GET /api/pipeline/list.
func (c *PipelineClient) ListPipelines(ctx context.Context) ([]PipelineSummaryDTO, error) {
	var out []PipelineSummaryDTO
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/pipeline/list")
	if err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return out, nil
}

// GetPipeline implements GET /api/pipeline/{id}.
func (c *PipelineClient) GetPipeline(ctx context.Context, id string) (*PipelineDTO, error) {
	var out PipelineDTO
	resp, err := c.http.R().SetContext(ctx).SetPathParam("id", id).SetResult(&out).Get("/api/pipeline/{id}")
	if err != nil {
		return nil, &ExitError{Code: 1, Message: err.Error()}
	}
	if resp.IsError() {
		return nil, apiErr(resp)
	}
	return &out, nil
}

// DeletePipeline implements DELETE /api/pipeline/{id}.
func (c *PipelineClient) DeletePipeline(ctx context.Context, id string) error {
	resp, err := c.http.R().SetContext(ctx).SetPathParam("id", id).Delete("/api/pipeline/{id}")
	if err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	if resp.IsError() {
		return apiErr(resp)
	}
	return nil
}
