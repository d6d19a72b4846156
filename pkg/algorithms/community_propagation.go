package algorithms

import (
	"math/rand/v2"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
)

// LabelPropagation performs label propagation for community detection.
// Fast, scalable algorithm for large graphs. Nodes are visited in a seeded
// random order and ties go to the smallest label, so runs are reproducible.
func LabelPropagation(g *graph.Graph, maxIterations int, seed uint64) *CommunityResult {
	nodes := g.Nodes()

	// Initialize: each node in its own community
	labels := make(map[int64]int, len(nodes))
	for i, nodeID := range nodes {
		labels[nodeID] = i
	}

	order := make([]int64, len(nodes))
	copy(order, nodes)
	rng := rand.New(rand.NewPCG(seed, seed))

	for iter := 0; iter < maxIterations; iter++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		changed := false

		for _, nodeID := range order {
			neighbors := g.Neighbors(nodeID)
			if len(neighbors) == 0 {
				continue
			}

			labelCount := make(map[int]int, len(neighbors))
			for _, neighbor := range neighbors {
				labelCount[labels[neighbor]]++
			}

			maxCount := 0
			maxLabel := labels[nodeID]
			for label, count := range labelCount {
				if count > maxCount || (count == maxCount && label < maxLabel) {
					maxCount = count
					maxLabel = label
				}
			}

			// Keep the current label when it is among the most frequent
			if labelCount[labels[nodeID]] == maxCount {
				continue
			}

			labels[nodeID] = maxLabel
			changed = true
		}

		if !changed {
			break
		}
	}

	groups := groupBy(nodes, func(id int64) int { return labels[id] })
	return newCommunityResult(g, MethodLabelPropagation, groups, 1.0)
}
