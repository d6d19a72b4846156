package store

import (
	"context"

	"github.com/dd0wney/cluso-socialgraph/pkg/report"
)

const insertRunSQL = `
	INSERT INTO analysis_runs (id, generated_at, nodes, edges, top_n, bridging_undefined, community_method, modularity, communities)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING
`

var (
	rankingColumns   = []string{"run_id", "metric", "rank", "node_id", "label", "score", "defined"}
	communityColumns = []string{"run_id", "community_id", "rank", "node_id", "label", "degree_centrality"}
)

// migrate creates the tables if they don't exist
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		generated_at TIMESTAMPTZ NOT NULL,
		nodes INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		top_n INTEGER NOT NULL,
		bridging_undefined INTEGER NOT NULL DEFAULT 0,
		community_method TEXT,
		modularity DOUBLE PRECISION NOT NULL DEFAULT 0,
		communities INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS node_rankings (
		run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
		metric TEXT NOT NULL,
		rank INTEGER NOT NULL,
		node_id BIGINT NOT NULL,
		label TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		defined BOOLEAN NOT NULL,
		PRIMARY KEY (run_id, metric, rank)
	);

	CREATE TABLE IF NOT EXISTS community_members (
		run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
		community_id INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		node_id BIGINT NOT NULL,
		label TEXT NOT NULL,
		degree_centrality DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, community_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_analysis_runs_generated_at ON analysis_runs(generated_at);
	CREATE INDEX IF NOT EXISTS idx_node_rankings_node_id ON node_rankings(node_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// rankingRows flattens every ranking into node_rankings rows. Ranks start at 1.
func rankingRows(r *report.Report) [][]any {
	var rows [][]any
	for _, ranking := range r.Rankings {
		for i, e := range ranking.Entries {
			rows = append(rows, []any{r.RunID, ranking.Metric, i + 1, e.NodeID, e.Label, e.Score, e.Defined})
		}
	}
	return rows
}

// communityRows flattens the per-community top members
func communityRows(r *report.Report) [][]any {
	var rows [][]any
	for _, c := range r.Communities {
		for i, e := range c.Top {
			rows = append(rows, []any{r.RunID, c.ID, i + 1, e.NodeID, e.Label, e.Score})
		}
	}
	return rows
}
