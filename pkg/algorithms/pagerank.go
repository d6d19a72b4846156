package algorithms

import "math"

// PageRankOptions configures PageRank
type PageRankOptions struct {
	DampingFactor float64 // Usually 0.85
	MaxIterations int
	Tolerance     float64 // Convergence threshold on the largest per-node change
}

// DefaultPageRankOptions returns default PageRank configuration
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// PageRankResult contains PageRank scores for all nodes
type PageRankResult struct {
	Scores     map[int64]float64
	Iterations int
	Converged  bool
}

// PageRank computes PageRank over the undirected graph, treating every edge as
// a pair of directed links. Isolated nodes spread their mass uniformly.
func PageRank(g Adjacency, opts PageRankOptions) *PageRankResult {
	nodes := g.Nodes()
	n := len(nodes)
	if n == 0 {
		return &PageRankResult{
			Scores:    make(map[int64]float64),
			Converged: true,
		}
	}

	index := make(map[int64]int, n)
	for i, id := range nodes {
		index[id] = i
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}
	newScores := make([]float64, n)

	converged := false
	iterations := 0

	for iterations < opts.MaxIterations {
		iterations++

		dangling := 0.0
		for i, id := range nodes {
			if g.Degree(id) == 0 {
				dangling += scores[i]
			}
		}
		base := (1.0-opts.DampingFactor)/float64(n) + opts.DampingFactor*dangling/float64(n)

		for i, id := range nodes {
			newScore := base
			for _, neighbor := range g.Neighbors(id) {
				if deg := g.Degree(neighbor); deg > 0 {
					newScore += opts.DampingFactor * scores[index[neighbor]] / float64(deg)
				}
			}
			newScores[i] = newScore
		}

		maxDiff := 0.0
		for i := range scores {
			maxDiff = math.Max(maxDiff, math.Abs(newScores[i]-scores[i]))
		}

		scores, newScores = newScores, scores
		if maxDiff < opts.Tolerance {
			converged = true
			break
		}
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}

	result := make(map[int64]float64, n)
	for i, id := range nodes {
		if sum > 0 {
			result[id] = scores[i] / sum
		} else {
			result[id] = scores[i]
		}
	}

	return &PageRankResult{
		Scores:     result,
		Iterations: iterations,
		Converged:  converged,
	}
}
