package dataset

import (
	"context"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
	"github.com/dd0wney/cluso-socialgraph/pkg/logging"
	"github.com/dd0wney/cluso-socialgraph/pkg/metrics"
)

// Table names used in logs and metrics
const (
	TableEdges = "edges"
	TableNodes = "nodes"
)

// Tables locates the two input tables. Nodes may be empty when the edge
// table alone defines the graph.
type Tables struct {
	Edges       string
	Nodes       string
	EdgeColumns EdgeColumns
	NodeColumns NodeColumns
}

// LoadStats describes what LoadGraph read and kept
type LoadStats struct {
	EdgeRows      int              `json:"edge_rows"`
	NodeRows      int              `json:"node_rows"`
	LabelledNodes int              `json:"labelled_nodes"`
	Graph         graph.BuildStats `json:"graph"`
}

// LoadGraph reads the edge table, then the node table, into an immutable
// graph. Node rows add isolated nodes and labels; they never remove edges.
// Self-loops and repeated edges are dropped, counted and logged.
func LoadGraph(ctx context.Context, opener *Opener, tables Tables, logger logging.Logger, reg *metrics.Registry) (*graph.Graph, LoadStats, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("dataset"))

	b := graph.NewBuilder()
	var stats LoadStats

	timer := logging.StartTimer(logger, "edge table loaded", logging.Path(tables.Edges))
	err := readTable(ctx, opener, tables.Edges, func(rc io.ReadCloser) error {
		return ReadEdges(rc, tables.EdgeColumns, func(source, target int64) error {
			stats.EdgeRows++
			b.AddEdge(source, target)
			return nil
		})
	})
	if err != nil {
		timer.EndError(err)
		return nil, stats, fmt.Errorf("edge table %s: %w", tables.Edges, err)
	}
	timer.End()

	if tables.Nodes != "" {
		timer = logging.StartTimer(logger, "node table loaded", logging.Path(tables.Nodes))
		err := readTable(ctx, opener, tables.Nodes, func(rc io.ReadCloser) error {
			return ReadNodes(rc, tables.NodeColumns, func(n Node) error {
				stats.NodeRows++
				if n.HasLabel {
					b.SetLabel(n.ID, n.Label)
					stats.LabelledNodes++
				} else {
					b.AddNode(n.ID)
				}
				return nil
			})
		})
		if err != nil {
			timer.EndError(err)
			return nil, stats, fmt.Errorf("node table %s: %w", tables.Nodes, err)
		}
		timer.End()
	}

	g := b.Build()
	stats.Graph = b.Stats()

	if stats.Graph.SelfLoops > 0 {
		logger.Warn("dropped self-loop edges", logging.Count(stats.Graph.SelfLoops))
	}
	if stats.Graph.DuplicateEdges > 0 {
		logger.Debug("collapsed repeated edges", logging.Count(stats.Graph.DuplicateEdges))
	}
	logger.Info("graph loaded",
		logging.Int("nodes", g.NodeCount()),
		logging.Int("edges", g.EdgeCount()),
		logging.Int("labelled_nodes", stats.LabelledNodes),
	)

	reg.RecordInputRows(TableEdges, stats.EdgeRows)
	reg.RecordInputRows(TableNodes, stats.NodeRows)
	reg.RecordSkippedRows(TableEdges, "self_loop", stats.Graph.SelfLoops)
	reg.RecordSkippedRows(TableEdges, "duplicate", stats.Graph.DuplicateEdges)
	reg.SetGraphSize(g.NodeCount(), g.EdgeCount())

	return g, stats, nil
}

func readTable(ctx context.Context, opener *Opener, location string, fn func(io.ReadCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rc, err := opener.Open(ctx, location)
	if err != nil {
		return err
	}
	defer rc.Close()
	return fn(rc)
}
