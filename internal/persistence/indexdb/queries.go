package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// RunSummary joins a run with its result, if it has one.
type RunSummary struct {
	RunID       string
	InputPath   string
	Mode        string
	Actors      int
	StartedAt   time.Time
	Rounds      uint64
	Product     string
	Inspections []uint64
	Snapshots   int
}

// Runs lists the most recent runs first. Pending writes are committed before
// the query runs.
func (s *Index) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT r.run_id, r.input_path, r.mode, r.actors, r.started_at,
			COALESCE(res.rounds, 0), COALESCE(res.product, ''), COALESCE(res.inspections, '[]'),
			(SELECT COUNT(*) FROM snapshots sn WHERE sn.run_id = r.run_id)
		FROM runs r
		LEFT JOIN results res ON res.run_id = r.run_id
		ORDER BY r.started_at DESC, r.run_id
		LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs          RunSummary
			started     string
			rounds      int64
			inspections string
		)
		if err := rows.Scan(&rs.RunID, &rs.InputPath, &rs.Mode, &rs.Actors, &started,
			&rounds, &rs.Product, &inspections, &rs.Snapshots); err != nil {
			return nil, err
		}
		rs.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rs.Rounds = uint64(rounds)
		_ = json.Unmarshal([]byte(inspections), &rs.Inspections)
		out = append(out, rs)
	}
	return out, rows.Err()
}

// RoundDigest returns the digest recorded for a round, if any.
func (s *Index) RoundDigest(ctx context.Context, runID string, round uint64) (string, bool, error) {
	if s == nil {
		return "", false, nil
	}
	if err := s.Flush(ctx); err != nil {
		return "", false, err
	}
	var digest string
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT digest FROM rounds WHERE run_id = ? AND round = ?`),
		runID, int64(round)).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}
