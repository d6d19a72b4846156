package algorithms

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/graph/community"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
)

// ErrUnknownCommunityMethod is returned for an unsupported detection method.
var ErrUnknownCommunityMethod = errors.New("unknown community detection method")

// CommunityOptions configures DetectCommunities
type CommunityOptions struct {
	Method        string
	Resolution    float64
	Seed          uint64
	MaxIterations int // label propagation only
}

// DefaultCommunityOptions returns Louvain at resolution 1 with seed 1
func DefaultCommunityOptions() CommunityOptions {
	return CommunityOptions{
		Method:        MethodLouvain,
		Resolution:    1.0,
		Seed:          1,
		MaxIterations: 100,
	}
}

// DetectCommunities dispatches to the configured detection method.
func DetectCommunities(g *graph.Graph, opts CommunityOptions) (*CommunityResult, error) {
	switch opts.Method {
	case MethodLouvain, "":
		return Louvain(g, opts.Resolution, opts.Seed), nil
	case MethodLabelPropagation:
		return LabelPropagation(g, opts.MaxIterations, opts.Seed), nil
	case MethodComponents:
		return ConnectedComponents(g), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommunityMethod, opts.Method)
	}
}

// Louvain partitions g by modularity optimisation using gonum's multi-level
// Louvain implementation. The same seed always yields the same partition.
func Louvain(g *graph.Graph, resolution float64, seed uint64) *CommunityResult {
	if g.EdgeCount() == 0 {
		groups := make([][]int64, 0, g.NodeCount())
		for _, id := range g.Nodes() {
			groups = append(groups, []int64{id})
		}
		return newCommunityResult(g, MethodLouvain, groups, resolution)
	}

	reduced := community.Modularize(g.Undirected(), resolution, rand.NewPCG(seed, seed))

	communities := reduced.Communities()
	groups := make([][]int64, len(communities))
	for i, members := range communities {
		ids := make([]int64, len(members))
		for j, n := range members {
			ids[j] = n.ID()
		}
		groups[i] = ids
	}
	return newCommunityResult(g, MethodLouvain, groups, resolution)
}

// groupBy turns a node -> label assignment into label groups, in ascending label order.
func groupBy(nodes []int64, labelOf func(int64) int) [][]int64 {
	byLabel := make(map[int][]int64)
	for _, id := range nodes {
		label := labelOf(id)
		byLabel[label] = append(byLabel[label], id)
	}

	labels := make([]int, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	groups := make([][]int64, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, byLabel[label])
	}
	return groups
}
