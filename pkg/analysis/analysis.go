// Package analysis runs the configured centrality metrics and community
// detection over a loaded graph and assembles the report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-socialgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
	"github.com/dd0wney/cluso-socialgraph/pkg/logging"
	"github.com/dd0wney/cluso-socialgraph/pkg/metrics"
	"github.com/dd0wney/cluso-socialgraph/pkg/parallel"
)

// Metric names
const (
	MetricDegree      = "degree"
	MetricBetweenness = "betweenness"
	MetricEigenvector = "eigenvector"
	MetricBridging    = "bridging"
	MetricCloseness   = "closeness"
	MetricPageRank    = "pagerank"
)

// Stage names used in logs and metrics that are not metric names
const (
	StageCommunities = "communities"
	StageRun         = "run"
)

// AllMetrics lists every supported metric in report order
var AllMetrics = []string{MetricDegree, MetricBetweenness, MetricEigenvector, MetricBridging, MetricCloseness, MetricPageRank}

// ErrUnknownMetric is returned when Options names an unsupported metric.
var ErrUnknownMetric = errors.New("unknown metric")

// Options selects what Run computes
type Options struct {
	Metrics                  []string
	TopN                     int
	Workers                  int // <= 0 uses GOMAXPROCS
	ExcludeUndefinedBridging bool
	Eigenvector              algorithms.EigenvectorOptions
	PageRank                 algorithms.PageRankOptions
	Community                *algorithms.CommunityOptions // nil skips community detection
	CommunityTopMembers      int
}

// DefaultOptions mirrors the classic report: four metrics, top 10, Louvain
func DefaultOptions() Options {
	community := algorithms.DefaultCommunityOptions()
	return Options{
		Metrics:             []string{MetricDegree, MetricBetweenness, MetricEigenvector, MetricBridging},
		TopN:                10,
		Eigenvector:         algorithms.DefaultEigenvectorOptions(),
		PageRank:            algorithms.DefaultPageRankOptions(),
		Community:           &community,
		CommunityTopMembers: 10,
	}
}

// Deps carries the collaborators of a run. Both fields may be nil.
type Deps struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Result holds everything a run computed
type Result struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	Graph       *graph.Graph
	Stats       graph.BuildStats // loaders may replace it with their own counts
	Metrics     []string
	Scores      map[string]map[int64]float64
	Bridging    map[int64]algorithms.BridgingScore
	Communities *algorithms.CommunityResult

	opts Options
}

type runner struct {
	ctx     context.Context
	g       *graph.Graph
	opts    Options
	logger  logging.Logger
	metrics *metrics.Registry
	result  *Result
}

// Run computes the selected metrics, then communities. Betweenness is
// computed whenever bridging is requested, and degree whenever communities
// are, since the report ranks community members by degree centrality.
func Run(ctx context.Context, g *graph.Graph, opts Options, deps Deps) (*Result, error) {
	for _, m := range opts.Metrics {
		if !slices.Contains(AllMetrics, m) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Graph:     g,
		Stats:     graph.BuildStats{Nodes: g.NodeCount(), Edges: g.EdgeCount()},
		Metrics:   slices.Clone(opts.Metrics),
		Scores:    make(map[string]map[int64]float64),
		opts:      opts,
	}
	r := &runner{
		ctx:     ctx,
		g:       g,
		opts:    opts,
		logger:  logger.With(logging.Component("analysis"), logging.RunID(result.RunID)),
		metrics: deps.Metrics,
		result:  result,
	}

	r.logger.Info("analysis started",
		logging.Int("nodes", g.NodeCount()),
		logging.Int("edges", g.EdgeCount()),
		logging.Any("metrics", opts.Metrics),
		logging.Int("workers", parallel.DefaultWorkers(opts.Workers)),
	)

	if err := r.run(); err != nil {
		r.metrics.RecordRun(metrics.StatusError)
		r.logger.Error("analysis failed", logging.Error(err))
		return nil, err
	}

	result.Duration = time.Since(result.StartedAt)
	r.metrics.RecordRun(metrics.StatusSuccess)
	r.metrics.RecordStage(StageRun, result.Duration)
	r.logger.Info("analysis finished", logging.Latency(result.Duration))
	return result, nil
}

func (r *runner) needs(metric string) bool {
	if slices.Contains(r.opts.Metrics, metric) {
		return true
	}
	switch metric {
	case MetricBetweenness:
		return slices.Contains(r.opts.Metrics, MetricBridging)
	case MetricDegree:
		return r.opts.Community != nil
	}
	return false
}

func (r *runner) run() error {
	steps := []struct {
		metric string
		fn     func() error
	}{
		{MetricDegree, r.degree},
		{MetricBetweenness, r.betweenness},
		{MetricEigenvector, r.eigenvector},
		{MetricBridging, r.bridging},
		{MetricCloseness, r.closeness},
		{MetricPageRank, r.pagerank},
	}

	for _, step := range steps {
		if !r.needs(step.metric) {
			continue
		}
		if err := r.stage(step.metric, step.fn); err != nil {
			return fmt.Errorf("%s centrality: %w", step.metric, err)
		}
	}

	if r.opts.Community != nil {
		if err := r.stage(StageCommunities, r.communities); err != nil {
			return fmt.Errorf("community detection: %w", err)
		}
	}
	return nil
}

// stage times fn, logging and recording it under name
func (r *runner) stage(name string, fn func() error) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}

	timer := logging.StartTimer(r.logger, "stage finished", logging.Stage(name))
	err := fn()

	var elapsed time.Duration
	if err != nil {
		elapsed = timer.EndError(err)
	} else {
		elapsed = timer.End()
	}
	r.metrics.RecordStage(name, elapsed)
	return err
}

func (r *runner) degree() error {
	r.result.Scores[MetricDegree] = algorithms.DegreeCentrality(r.g)
	return nil
}

func (r *runner) betweenness() error {
	r.result.Scores[MetricBetweenness] = algorithms.BetweennessCentrality(r.g)
	return nil
}

func (r *runner) eigenvector() error {
	scores, err := algorithms.EigenvectorCentrality(r.g, r.opts.Eigenvector)
	if err != nil {
		return err
	}
	r.result.Scores[MetricEigenvector] = scores
	return nil
}

func (r *runner) bridging() error {
	coefficients, err := algorithms.BridgingCoefficientParallel(r.ctx, r.g, r.opts.Workers)
	if err != nil {
		return err
	}
	scores, err := algorithms.CombineBridging(coefficients, r.result.Scores[MetricBetweenness])
	if err != nil {
		return err
	}

	undefined := algorithms.CountUndefined(scores)
	if undefined > 0 {
		r.logger.Warn("bridging coefficient undefined for some nodes",
			logging.Count(undefined),
			logging.Bool("excluded_from_ranking", r.opts.ExcludeUndefinedBridging),
		)
	}
	r.metrics.SetBridgingUndefined(undefined)

	r.result.Bridging = scores
	r.result.Scores[MetricBridging] = algorithms.BridgingValues(scores)
	return nil
}

func (r *runner) closeness() error {
	scores, err := algorithms.ClosenessCentrality(r.ctx, r.g, r.opts.Workers)
	if err != nil {
		return err
	}
	r.result.Scores[MetricCloseness] = scores
	return nil
}

func (r *runner) pagerank() error {
	pr := algorithms.PageRank(r.g, r.opts.PageRank)
	if !pr.Converged {
		r.logger.Warn("pagerank did not converge", logging.Int("iterations", pr.Iterations))
	}
	r.result.Scores[MetricPageRank] = pr.Scores
	return nil
}

func (r *runner) communities() error {
	result, err := algorithms.DetectCommunities(r.g, *r.opts.Community)
	if err != nil {
		return err
	}
	r.logger.Info("communities detected",
		logging.String("method", result.Method),
		logging.Count(len(result.Communities)),
		logging.Float64("modularity", result.Modularity),
	)
	r.metrics.SetCommunities(len(result.Communities), result.Modularity)
	r.result.Communities = result
	return nil
}
