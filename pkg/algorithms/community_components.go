package algorithms

import "github.com/dd0wney/cluso-socialgraph/pkg/graph"

// ConnectedComponents finds all connected components in the graph
func ConnectedComponents(g *graph.Graph) *CommunityResult {
	nodes := g.Nodes()
	component := make(map[int64]int, len(nodes))
	next := 0

	for _, start := range nodes {
		if _, seen := component[start]; seen {
			continue
		}

		component[start] = next
		queue := []int64{start}
		for len(queue) > 0 {
			nodeID := queue[0]
			queue = queue[1:]

			for _, neighbor := range g.Neighbors(nodeID) {
				if _, seen := component[neighbor]; !seen {
					component[neighbor] = next
					queue = append(queue, neighbor)
				}
			}
		}
		next++
	}

	groups := groupBy(nodes, func(id int64) int { return component[id] })
	return newCommunityResult(g, MethodComponents, groups, 1.0)
}
