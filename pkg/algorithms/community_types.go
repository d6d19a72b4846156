package algorithms

import (
	"cmp"
	"slices"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
)

// Community methods accepted by DetectCommunities
const (
	MethodLouvain          = "louvain"
	MethodLabelPropagation = "label_propagation"
	MethodComponents       = "components"
)

// Community represents a detected community
type Community struct {
	ID      int     `json:"id"`
	Nodes   []int64 `json:"nodes"`
	Size    int     `json:"size"`
	Density float64 `json:"density"` // Edge density within community
}

// CommunityResult contains detected communities
type CommunityResult struct {
	Method        string        `json:"method"`
	Communities   []*Community  `json:"communities"`
	Modularity    float64       `json:"modularity"`
	NodeCommunity map[int64]int `json:"-"`
}

// newCommunityResult normalises raw groups into a CommunityResult: members
// sorted ascending, communities ordered by size (largest first) then by
// smallest member, IDs assigned in that order. Modularity uses resolution.
func newCommunityResult(g *graph.Graph, method string, groups [][]int64, resolution float64) *CommunityResult {
	normalised := make([][]int64, 0, len(groups))
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		members := slices.Clone(group)
		slices.Sort(members)
		normalised = append(normalised, members)
	}

	slices.SortFunc(normalised, func(a, b []int64) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a[0], b[0])
	})

	result := &CommunityResult{
		Method:        method,
		Communities:   make([]*Community, 0, len(normalised)),
		NodeCommunity: make(map[int64]int, g.NodeCount()),
	}

	for id, members := range normalised {
		for _, nodeID := range members {
			result.NodeCommunity[nodeID] = id
		}
		result.Communities = append(result.Communities, &Community{
			ID:      id,
			Nodes:   members,
			Size:    len(members),
			Density: density(g, members),
		})
	}

	result.Modularity = modularity(g, normalised, resolution)
	return result
}

// density is internal edges over possible edges; 0 for fewer than two members.
func density(g *graph.Graph, members []int64) float64 {
	k := len(members)
	if k < 2 {
		return 0.0
	}

	inside := make(map[int64]struct{}, k)
	for _, id := range members {
		inside[id] = struct{}{}
	}

	internal := 0
	for _, id := range members {
		for _, neighbor := range g.Neighbors(id) {
			if _, ok := inside[neighbor]; ok && neighbor > id {
				internal++
			}
		}
	}
	return float64(internal) / float64(k*(k-1)/2)
}

// modularity scores a partition with gonum's Q. Graphs without edges score 0.
func modularity(g *graph.Graph, groups [][]int64, resolution float64) float64 {
	if g.EdgeCount() == 0 {
		return 0.0
	}

	communities := make([][]gonum.Node, len(groups))
	for i, members := range groups {
		nodes := make([]gonum.Node, len(members))
		for j, id := range members {
			nodes[j] = simple.Node(id)
		}
		communities[i] = nodes
	}
	return community.Q(g.Undirected(), communities, resolution)
}
