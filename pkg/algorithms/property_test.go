package algorithms

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
)

// graphFromEnds pairs consecutive values into edges over a small ID space
func graphFromEnds(ends []int) *graph.Graph {
	b := graph.NewBuilder()
	for i := 0; i+1 < len(ends); i += 2 {
		b.AddEdge(int64(ends[i]), int64(ends[i+1]))
	}
	if len(ends)%2 == 1 {
		b.AddNode(int64(ends[len(ends)-1]))
	}
	return b.Build()
}

// TestBridgingInvariants checks the bridging definitions hold on arbitrary graphs
func TestBridgingInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("coefficient is defined exactly for nodes with neighbours", prop.ForAll(
		func(ends []int) bool {
			g := graphFromEnds(ends)
			for id, c := range BridgingCoefficient(g) {
				if c.Defined != (g.Degree(id) > 0) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.Property("coefficient is the reciprocal of neighbour inverse degrees", prop.ForAll(
		func(ends []int) bool {
			g := graphFromEnds(ends)
			for id, c := range BridgingCoefficient(g) {
				if !c.Defined {
					continue
				}
				sum := 0.0
				for _, n := range g.Neighbors(id) {
					sum += 1 / float64(g.Degree(n))
				}
				if math.Abs(c.Value-1/sum) > 1e-12 || c.Value <= 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.Property("bridging centrality is betweenness times coefficient", prop.ForAll(
		func(ends []int) bool {
			g := graphFromEnds(ends)
			betweenness := BetweennessCentrality(g)
			scores, err := BridgingCentrality(g, betweenness)
			if err != nil || len(scores) != g.NodeCount() {
				return false
			}
			for id, s := range scores {
				if s.Score != betweenness[id]*s.Coefficient.Float64() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.Property("betweenness is normalised to [0, 1]", prop.ForAll(
		func(ends []int) bool {
			for _, b := range BetweennessCentrality(graphFromEnds(ends)) {
				if b < 0 || b > 1+1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.TestingRun(t)
}
