package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
)

// RegisterRunner upserts a runner's id and advertised tags (spec §4.5,
// §6 POST /api/runners/register). Re-registration with the same id is
// allowed — a restarted runner keeps its identity.
func (s *Store) RegisterRunner(ctx context.Context, id string, tags model.TagSet) (*model.Runner, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runners (id, tags_json, last_heartbeat) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET tags_json = excluded.tags_json, last_heartbeat = excluded.last_heartbeat`,
		id, marshalJSON(tags), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("store: register runner: %w", err)
	}
	return &model.Runner{ID: id, Tags: tags, LastHeartbeat: now}, nil
}

// Heartbeat bumps a runner's last_heartbeat to now (spec §4.5, §6 POST
// /api/runners/{id}/heartbeat).
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runners SET last_heartbeat = ? WHERE id = ?`, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("store: heartbeat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &rierr.NotFound{Kind: "runner", ID: id}
	}
	return nil
}

// GetRunner fetches a runner by id.
func (s *Store) GetRunner(ctx context.Context, id string) (*model.Runner, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, tags_json, last_heartbeat FROM runners WHERE id = ?`, id)

	var r model.Runner
	var tagsJSON, lastHeartbeat string
	err := row.Scan(&r.ID, &tagsJSON, &lastHeartbeat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &rierr.NotFound{Kind: "runner", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan runner: %w", err)
	}
	r.Tags, err = unmarshalJSON[model.TagSet](tagsJSON)
	if err != nil {
		return nil, err
	}
	r.LastHeartbeat, err = parseTime(lastHeartbeat)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
