// Package api serves an analysis report over GraphQL.
package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-socialgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-socialgraph/pkg/report"
	"github.com/dd0wney/cluso-socialgraph/pkg/store"
	"github.com/dd0wney/cluso-socialgraph/pkg/validation"
)

// ErrNoReport is returned by resolvers before a report is loaded.
var ErrNoReport = errors.New("no report loaded")

// DefaultTopLimit is used when a top query omits its limit
const DefaultTopLimit = 10

// ReportHolder holds the report being served. It can be swapped while
// queries are running.
type ReportHolder struct {
	p atomic.Pointer[report.Report]
}

// NewReportHolder returns a holder serving r, which may be nil
func NewReportHolder(r *report.Report) *ReportHolder {
	h := &ReportHolder{}
	h.Store(r)
	return h
}

// Load returns the current report or nil
func (h *ReportHolder) Load() *report.Report {
	return h.p.Load()
}

// Store replaces the current report
func (h *ReportHolder) Store(r *report.Report) {
	h.p.Store(r)
}

// RunID returns the current run ID, or "" when nothing is loaded
func (h *ReportHolder) RunID() string {
	if r := h.Load(); r != nil {
		return r.RunID
	}
	return ""
}

// RunLister lists stored runs. It is satisfied by *store.Store.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

var entryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RankedNode",
	Fields: graphql.Fields{
		"id":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"label":   &graphql.Field{Type: graphql.String},
		"score":   &graphql.Field{Type: graphql.Float},
		"defined": &graphql.Field{Type: graphql.Boolean},
	},
})

var communityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Community",
	Fields: graphql.Fields{
		"id":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"size":    &graphql.Field{Type: graphql.Int},
		"density": &graphql.Field{Type: graphql.Float},
		"top":     &graphql.Field{Type: graphql.NewList(entryType)},
	},
})

var scoreType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Score",
	Fields: graphql.Fields{
		"metric": &graphql.Field{Type: graphql.String},
		"value":  &graphql.Field{Type: graphql.Float},
	},
})

var nodeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Node",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"label":           &graphql.Field{Type: graphql.String},
		"degree":          &graphql.Field{Type: graphql.Int},
		"community":       &graphql.Field{Type: graphql.Int},
		"bridgingDefined": &graphql.Field{Type: graphql.Boolean},
		"scores":          &graphql.Field{Type: graphql.NewList(scoreType)},
	},
})

var runType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Run",
	Fields: graphql.Fields{
		"id":                &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"generatedAt":       &graphql.Field{Type: graphql.String},
		"nodes":             &graphql.Field{Type: graphql.Int},
		"edges":             &graphql.Field{Type: graphql.Int},
		"topN":              &graphql.Field{Type: graphql.Int},
		"metrics":           &graphql.Field{Type: graphql.NewList(graphql.String)},
		"bridgingUndefined": &graphql.Field{Type: graphql.Int},
		"communityMethod":   &graphql.Field{Type: graphql.String},
		"modularity":        &graphql.Field{Type: graphql.Float},
		"communities":       &graphql.Field{Type: graphql.Int},
	},
})

// NewSchema builds the query schema over the holder's report. runs may be
// nil, in which case the runs field reports an error.
func NewSchema(holder *ReportHolder, runs RunLister) (graphql.Schema, error) {
	r := &resolver{holder: holder, runs: runs}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"run": &graphql.Field{
				Type:    runType,
				Resolve: r.run,
			},
			"metrics": &graphql.Field{
				Type:    graphql.NewList(graphql.String),
				Resolve: r.metrics,
			},
			"top": &graphql.Field{
				Type: graphql.NewList(entryType),
				Args: graphql.FieldConfigArgument{
					"metric": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: DefaultTopLimit},
				},
				Resolve: r.top,
			},
			"communities": &graphql.Field{
				Type: graphql.NewList(communityType),
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.communities,
			},
			"node": &graphql.Field{
				Type: nodeType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.node,
			},
			"runs": &graphql.Field{
				Type: graphql.NewList(runType),
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: DefaultTopLimit},
				},
				Resolve: r.storedRuns,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

type resolver struct {
	holder *ReportHolder
	runs   RunLister
}

func (r *resolver) report() (*report.Report, error) {
	rep := r.holder.Load()
	if rep == nil {
		return nil, ErrNoReport
	}
	return rep, nil
}

func (r *resolver) run(p graphql.ResolveParams) (any, error) {
	rep, err := r.report()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":                rep.RunID,
		"generatedAt":       rep.GeneratedAt.Format(time.RFC3339),
		"nodes":             rep.Graph.Nodes,
		"edges":             rep.Graph.Edges,
		"topN":              rep.TopN,
		"metrics":           rep.Metrics(),
		"bridgingUndefined": rep.BridgingUndefined,
		"communityMethod":   rep.CommunityMethod,
		"modularity":        rep.Modularity,
		"communities":       len(rep.Communities),
	}, nil
}

func (r *resolver) metrics(p graphql.ResolveParams) (any, error) {
	rep, err := r.report()
	if err != nil {
		return nil, err
	}
	return rep.Metrics(), nil
}

func (r *resolver) top(p graphql.ResolveParams) (any, error) {
	req := &validation.TopRequest{
		Metric: p.Args["metric"].(string),
		Limit:  DefaultTopLimit,
	}
	if limit, ok := p.Args["limit"].(int); ok {
		req.Limit = limit
	}
	if err := validation.ValidateTopRequest(req); err != nil {
		return nil, err
	}

	rep, err := r.report()
	if err != nil {
		return nil, err
	}

	entries, err := topEntries(rep, req.Metric, req.Limit)
	if err != nil {
		return nil, err
	}
	return entryMaps(entries), nil
}

// topEntries serves from the stored ranking when it is long enough and
// re-ranks the per-node scores otherwise.
func topEntries(rep *report.Report, metric string, limit int) ([]report.Entry, error) {
	ranking, rankErr := rep.Ranking(metric)
	if rankErr == nil && (len(ranking.Entries) >= limit || len(rep.Nodes) == 0) {
		return ranking.Entries[:min(limit, len(ranking.Entries))], nil
	}

	if len(rep.Nodes) == 0 {
		return nil, rankErr
	}

	scores := make(map[int64]float64, len(rep.Nodes))
	for _, n := range rep.Nodes {
		if v, ok := n.Scores[metric]; ok {
			scores[n.NodeID] = v
		}
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: %q", report.ErrUnknownMetric, metric)
	}

	ranked := algorithms.TopN(scores, limit)
	entries := make([]report.Entry, len(ranked))
	for i, rn := range ranked {
		n, _ := rep.Node(rn.NodeID)
		entries[i] = report.Entry{
			NodeID:  rn.NodeID,
			Label:   n.Label,
			Score:   rn.Score,
			Defined: metric != "bridging" || n.BridgingDefined,
		}
	}
	return entries, nil
}

func (r *resolver) communities(p graphql.ResolveParams) (any, error) {
	rep, err := r.report()
	if err != nil {
		return nil, err
	}

	communities := rep.Communities
	if limit, ok := p.Args["limit"].(int); ok {
		if limit < 0 {
			return nil, fmt.Errorf("limit must be non-negative, got %d", limit)
		}
		communities = communities[:min(limit, len(communities))]
	}

	out := make([]map[string]any, len(communities))
	for i, c := range communities {
		out[i] = map[string]any{
			"id":      c.ID,
			"size":    c.Size,
			"density": c.Density,
			"top":     entryMaps(c.Top),
		}
	}
	return out, nil
}

func (r *resolver) node(p graphql.ResolveParams) (any, error) {
	rep, err := r.report()
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(p.Args["id"].(string), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid node id %q", p.Args["id"])
	}

	n, ok := rep.Node(id)
	if !ok {
		return nil, nil
	}

	scores := make([]map[string]any, 0, len(n.Scores))
	for _, metric := range validation.MetricNames {
		if v, ok := n.Scores[metric]; ok {
			scores = append(scores, map[string]any{"metric": metric, "value": v})
		}
	}

	return map[string]any{
		"id":              strconv.FormatInt(n.NodeID, 10),
		"label":           n.Label,
		"degree":          n.Degree,
		"community":       n.Community,
		"bridgingDefined": n.BridgingDefined,
		"scores":          scores,
	}, nil
}

func (r *resolver) storedRuns(p graphql.ResolveParams) (any, error) {
	if r.runs == nil {
		return nil, errors.New("run history is not configured")
	}

	limit := p.Args["limit"].(int)
	if limit < 1 || limit > validation.MaxTopLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d", validation.MaxTopLimit)
	}

	runs, err := r.runs.ListRuns(p.Context, limit)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, len(runs))
	for i, run := range runs {
		out[i] = map[string]any{
			"id":          run.ID,
			"generatedAt": run.GeneratedAt.Format(time.RFC3339),
			"nodes":       run.Nodes,
			"edges":       run.Edges,
			"topN":        run.TopN,
			"modularity":  run.Modularity,
			"communities": run.Communities,
		}
	}
	return out, nil
}

func entryMaps(entries []report.Entry) []map[string]any {
	out := make([]map[string]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{
			"id":      strconv.FormatInt(e.NodeID, 10),
			"label":   e.Label,
			"score":   e.Score,
			"defined": e.Defined,
		}
	}
	return out
}
