package store

import (
	"context"
	"fmt"

	"github.com/roach88/lambdaq/internal/ir"
)

// QueryRecord is one entry of the query log.
type QueryRecord struct {
	RunID    string
	QueryKey string
	Entity   string
	Text     string

	// Params are the encoded parameter bindings, in ordinal order.
	Params ir.IRArray

	// Residual is the number of clauses left for in-process evaluation.
	Residual int

	Seq int64
}

// WriteQuery appends a query to the log. A repeated run id is a no-op.
func (s *Store) WriteQuery(ctx context.Context, q QueryRecord) error {
	params, err := marshalParams(q.Params)
	if err != nil {
		return fmt.Errorf("write query %s: %w", q.RunID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queries
		(run_id, query_key, entity, text, params, residual, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM queries))
		ON CONFLICT(run_id) DO NOTHING
	`,
		q.RunID,
		q.QueryKey,
		q.Entity,
		q.Text,
		params,
		q.Residual,
	)
	if err != nil {
		return fmt.Errorf("write query %s: %w", q.RunID, err)
	}
	return nil
}

// ListQueries returns the most recent limit entries of the log, oldest
// first. A limit <= 0 returns the whole log.
func (s *Store) ListQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, query_key, entity, text, params, residual, seq
		FROM (
			SELECT * FROM queries
			ORDER BY seq DESC, run_id COLLATE BINARY DESC
			LIMIT ?
		)
		ORDER BY seq ASC, run_id COLLATE BINARY ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	records := []QueryRecord{}
	for rows.Next() {
		var (
			q      QueryRecord
			params string
		)
		if err := rows.Scan(&q.RunID, &q.QueryKey, &q.Entity, &q.Text, &params, &q.Residual, &q.Seq); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		q.Params, err = unmarshalParams(params)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.RunID, err)
		}
		records = append(records, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return records, nil
}
