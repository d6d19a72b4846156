// Package store persists analysis reports to PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-socialgraph/pkg/report"
)

// ErrRunExists is returned when a report with the same run ID was already saved.
var ErrRunExists = errors.New("analysis run already stored")

// DefaultMaxConns is the pool size used when the caller does not set one
const DefaultMaxConns int32 = 25

// Run summarises one stored analysis run
type Run struct {
	ID          string
	GeneratedAt time.Time
	Nodes       int
	Edges       int
	TopN        int
	Modularity  float64
	Communities int
}

// Store handles report persistence using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the connection and applies the schema.
// maxConns <= 0 uses DefaultMaxConns.
func New(ctx context.Context, databaseURL string, maxConns int32) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	config.MaxConns = maxConns
	config.MinConns = min(5, maxConns)
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// SaveReport writes the run header, every ranking entry and every community
// member in a single transaction.
func (s *Store) SaveReport(ctx context.Context, r *report.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tag, err := tx.Exec(ctx, insertRunSQL,
		r.RunID,
		r.GeneratedAt,
		r.Graph.Nodes,
		r.Graph.Edges,
		r.TopN,
		r.BridgingUndefined,
		nullString(r.CommunityMethod),
		r.Modularity,
		len(r.Communities),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, r.RunID)
	}

	if rows := rankingRows(r); len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"node_rankings"}, rankingColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy rankings: %w", err)
		}
	}

	if rows := communityRows(r); len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"community_members"}, communityColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy community members: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, generated_at, nodes, edges, top_n, modularity, communities
		FROM analysis_runs
		ORDER BY generated_at DESC, id
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID,
			&run.GeneratedAt,
			&run.Nodes,
			&run.Edges,
			&run.TopN,
			&run.Modularity,
			&run.Communities,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// TopNodes returns the stored ranking of metric for a run, best first
func (s *Store) TopNodes(ctx context.Context, runID, metric string) ([]report.Entry, error) {
	query := `
		SELECT node_id, label, score, defined
		FROM node_rankings
		WHERE run_id = $1 AND metric = $2
		ORDER BY rank
	`

	rows, err := s.pool.Query(ctx, query, runID, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.Entry, error) {
		var e report.Entry
		err := row.Scan(&e.NodeID, &e.Label, &e.Score, &e.Defined)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read rankings: %w", err)
	}
	return entries, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
