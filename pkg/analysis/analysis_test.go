package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-socialgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
	"github.com/dd0wney/cluso-socialgraph/pkg/metrics"
)

// bridgedCliques is two triangles joined by the edge 3-4, plus the
// isolated node 9
func bridgedCliques() *graph.Graph {
	return graph.FromEdges([][2]int64{
		{1, 2}, {1, 3}, {2, 3},
		{4, 5}, {4, 6}, {5, 6},
		{3, 4},
	}, 9)
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestRun_DefaultMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	res, err := Run(context.Background(), bridgedCliques(), DefaultOptions(), Deps{Metrics: reg})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	for _, m := range []string{MetricDegree, MetricBetweenness, MetricEigenvector, MetricBridging} {
		assert.Len(t, res.Scores[m], 7, m)
	}
	assert.NotContains(t, res.Scores, MetricCloseness)

	// 3 and 4 carry every shortest path between the triangles
	top := algorithms.TopN(res.Scores[MetricBetweenness], 2)
	assert.ElementsMatch(t, []int64{3, 4}, []int64{top[0].NodeID, top[1].NodeID})

	// Isolated: zero betweenness times the undefined coefficient scores 0.
	assert.False(t, res.Bridging[9].Defined())
	assert.Equal(t, 0.0, res.Scores[MetricBridging][9])

	require.NotNil(t, res.Communities)
	assert.Equal(t, algorithms.MethodLouvain, res.Communities.Method)

	assert.Equal(t, 1.0, metricValue(t, reg.AnalysisRunsTotal.WithLabelValues(metrics.StatusSuccess)))
	assert.Equal(t, 1.0, metricValue(t, reg.BridgingUndefinedNodes))
}

func TestRun_BridgingImpliesBetweenness(t *testing.T) {
	opts := Options{Metrics: []string{MetricBridging}, TopN: 3}
	res, err := Run(context.Background(), bridgedCliques(), opts, Deps{})
	require.NoError(t, err)

	assert.Contains(t, res.Scores, MetricBetweenness)
	assert.NotContains(t, res.Scores, MetricDegree)
	assert.Nil(t, res.Communities)

	for id, score := range res.Bridging {
		assert.Equal(t, score.Betweenness*score.Coefficient.Float64(), score.Score, "node %d", id)
	}

	// only the requested metric is reported
	rep := res.Report(3, false)
	assert.Equal(t, []string{MetricBridging}, rep.Metrics())
}

func TestRun_UnknownMetric(t *testing.T) {
	_, err := Run(context.Background(), bridgedCliques(), Options{Metrics: []string{"harmonic"}}, Deps{})
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := metrics.NewRegistry()
	_, err := Run(ctx, bridgedCliques(), DefaultOptions(), Deps{Metrics: reg})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1.0, metricValue(t, reg.AnalysisRunsTotal.WithLabelValues(metrics.StatusError)))
}

func TestRun_AllMetrics(t *testing.T) {
	opts := DefaultOptions()
	opts.Metrics = AllMetrics
	opts.Community = nil

	res, err := Run(context.Background(), bridgedCliques(), opts, Deps{})
	require.NoError(t, err)
	for _, m := range AllMetrics {
		assert.Contains(t, res.Scores, m)
	}
}

func TestResult_Report(t *testing.T) {
	opts := DefaultOptions()
	opts.CommunityTopMembers = 2

	res, err := Run(context.Background(), bridgedCliques(), opts, Deps{})
	require.NoError(t, err)

	rep := res.Report(3, true)
	assert.Equal(t, res.RunID, rep.RunID)
	assert.Equal(t, 3, rep.TopN)
	assert.Equal(t, 7, rep.Graph.Nodes)
	assert.Equal(t, 7, rep.Graph.Edges)
	assert.Equal(t, 1, rep.BridgingUndefined)

	assert.Equal(t, []string{MetricDegree, MetricBetweenness, MetricEigenvector, MetricBridging}, rep.Metrics())
	for _, ranking := range rep.Rankings {
		assert.Len(t, ranking.Entries, 3, ranking.Metric)
	}

	degree, err := rep.Ranking(MetricDegree)
	require.NoError(t, err)
	assert.Equal(t, int64(3), degree.Entries[0].NodeID)
	assert.Equal(t, "3", degree.Entries[0].Label)

	require.NotEmpty(t, rep.Communities)
	for _, c := range rep.Communities {
		assert.LessOrEqual(t, len(c.Top), 2)
	}

	require.Len(t, rep.Nodes, 7)
	isolated, ok := rep.Node(9)
	require.True(t, ok)
	assert.False(t, isolated.BridgingDefined)
	assert.Equal(t, 0, isolated.Degree)
	assert.Equal(t, 0.0, isolated.Scores[MetricBridging])
	assert.GreaterOrEqual(t, isolated.Community, 0)
}

func TestResult_ReportExcludesUndefinedBridging(t *testing.T) {
	opts := Options{Metrics: []string{MetricBridging}, ExcludeUndefinedBridging: true}

	res, err := Run(context.Background(), bridgedCliques(), opts, Deps{})
	require.NoError(t, err)

	rep := res.Report(10, false)
	bridging, err := rep.Ranking(MetricBridging)
	require.NoError(t, err)
	assert.Len(t, bridging.Entries, 6)
	for _, e := range bridging.Entries {
		assert.True(t, e.Defined)
		assert.NotEqual(t, int64(9), e.NodeID)
	}
	assert.Nil(t, rep.Nodes)
}

func TestResult_ReportWithoutCommunities(t *testing.T) {
	opts := Options{Metrics: []string{MetricDegree}}
	res, err := Run(context.Background(), bridgedCliques(), opts, Deps{})
	require.NoError(t, err)

	rep := res.Report(2, true)
	assert.Empty(t, rep.Communities)
	for _, n := range rep.Nodes {
		assert.Equal(t, -1, n.Community)
	}
}
