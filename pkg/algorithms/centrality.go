package algorithms

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/graph/network"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
	"github.com/dd0wney/cluso-socialgraph/pkg/parallel"
)

// ErrEmptyGraph is returned by algorithms that are meaningless without nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// DegreeCentrality computes degree / (n-1) for every node.
func DegreeCentrality(g Adjacency) map[int64]float64 {
	nodes := g.Nodes()
	degree := make(map[int64]float64, len(nodes))

	for _, id := range nodes {
		if len(nodes) > 1 {
			degree[id] = float64(g.Degree(id)) / float64(len(nodes)-1)
		} else {
			degree[id] = 0.0
		}
	}
	return degree
}

// BetweennessCentrality computes normalised betweenness for every node using
// gonum's Brandes implementation. Each unordered pair is counted from both
// endpoints, so dividing by (n-1)(n-2) yields scores in [0, 1]. Nodes on no
// shortest path get an explicit zero.
func BetweennessCentrality(g *graph.Graph) map[int64]float64 {
	nodes := g.Nodes()
	raw := network.Betweenness(g.Undirected())

	n := len(nodes)
	norm := 1.0
	if n > 2 {
		norm = 1.0 / float64((n-1)*(n-2))
	}

	betweenness := make(map[int64]float64, n)
	for _, id := range nodes {
		betweenness[id] = raw[id] * norm
	}
	return betweenness
}

// ClosenessCentrality computes Wasserman-Faust closeness for every node:
// (r / Σd) * (r / (n-1)) where r is the number of nodes reachable from the
// node and Σd the sum of their distances. One BFS per source runs on the
// worker pool.
func ClosenessCentrality(ctx context.Context, g Adjacency, workers int) (map[int64]float64, error) {
	nodes := g.Nodes()
	index := make(map[int64]int, len(nodes))
	for i, id := range nodes {
		index[id] = i
	}

	results := make([]float64, len(nodes))
	err := parallel.ForEach(ctx, nodes, workers, func(source int64) error {
		results[index[source]] = closenessFrom(g, source, index)
		return nil
	})
	if err != nil {
		return nil, err
	}

	closeness := make(map[int64]float64, len(nodes))
	for i, id := range nodes {
		closeness[id] = results[i]
	}
	return closeness, nil
}

func closenessFrom(g Adjacency, source int64, index map[int64]int) float64 {
	n := len(index)
	if n <= 1 {
		return 0.0
	}

	distance := make([]int, n)
	for i := range distance {
		distance[i] = -1
	}
	distance[index[source]] = 0

	queue := []int64{source}
	totalDistance := 0
	reachable := 0

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		dv := distance[index[v]]

		for _, w := range g.Neighbors(v) {
			wi := index[w]
			if distance[wi] < 0 {
				distance[wi] = dv + 1
				totalDistance += dv + 1
				reachable++
				queue = append(queue, w)
			}
		}
	}

	if totalDistance == 0 {
		return 0.0
	}
	r := float64(reachable)
	return (r / float64(totalDistance)) * (r / float64(n-1))
}
