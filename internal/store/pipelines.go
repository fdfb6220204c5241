package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
)

// CreatePipeline inserts a new, immutable pipeline row. The caller is
// responsible for having already run the metadata sandbox over source and
// validated it (spec §4.5 Create pipeline) — Store only enforces the name
// uniqueness invariant (spec §3).
func (s *Store) CreatePipeline(ctx context.Context, name, description, source string) (*model.Pipeline, error) {
	p := &model.Pipeline{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipelines (id, name, description, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Source, formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &rierr.Conflict{Reason: fmt.Sprintf("pipeline name %q already exists", name)}
		}
		return nil, fmt.Errorf("store: create pipeline: %w", err)
	}
	return p, nil
}

// GetPipeline fetches a pipeline by ID.
func (s *Store) GetPipeline(ctx context.Context, id string) (*model.Pipeline, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, source, created_at FROM pipelines WHERE id = ?`, id)
	p, err := scanPipeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &rierr.NotFound{Kind: "pipeline", ID: id}
	}
	return p, err
}

// GetPipelineByName fetches a pipeline by its unique name.
func (s *Store) GetPipelineByName(ctx context.Context, name string) (*model.Pipeline, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, source, created_at FROM pipelines WHERE name = ?`, name)
	p, err := scanPipeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &rierr.NotFound{Kind: "pipeline", ID: name}
	}
	return p, err
}

// ListPipelines returns every stored pipeline, oldest first.
func (s *Store) ListPipelines(ctx context.Context) ([]*model.Pipeline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, source, created_at FROM pipelines ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list pipelines: %w", err)
	}
	defer rows.Close()

	var out []*model.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePipeline removes a pipeline by ID. Jobs already launched against it
// keep their denormalized pipeline_source and are unaffected (spec §3:
// "Job.pipeline_source: denormalized copy ... so re-runs are deterministic").
func (s *Store) DeletePipeline(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete pipeline: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &rierr.NotFound{Kind: "pipeline", ID: id}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPipeline(row rowScanner) (*model.Pipeline, error) {
	var p model.Pipeline
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Source, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan pipeline: %w", err)
	}
	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
