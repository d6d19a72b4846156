package algorithms

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrNotConverged is returned when an iterative method exhausts its iterations.
var ErrNotConverged = errors.New("power iteration did not converge")

// EigenvectorOptions configures EigenvectorCentrality
type EigenvectorOptions struct {
	MaxIterations int
	Tolerance     float64 // per-node L1 tolerance
}

// DefaultEigenvectorOptions returns 100 iterations at 1e-6 tolerance
func DefaultEigenvectorOptions() EigenvectorOptions {
	return EigenvectorOptions{
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// EigenvectorCentrality computes eigenvector centrality by power iteration on
// A+I starting from the uniform vector. The vector is L2-normalised after each
// step; iteration stops once the L1 change drops below n*Tolerance.
func EigenvectorCentrality(g Adjacency, opts EigenvectorOptions) (map[int64]float64, error) {
	nodes := g.Nodes()
	n := len(nodes)
	if n == 0 {
		return nil, ErrEmptyGraph
	}

	index := make(map[int64]int, n)
	for i, id := range nodes {
		index[id] = i
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1.0 / float64(n)
	}
	next := make([]float64, n)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		// Starting from x rather than zero iterates with A+I, which keeps
		// bipartite graphs from oscillating.
		copy(next, x)
		for i, id := range nodes {
			for _, neighbor := range g.Neighbors(id) {
				next[index[neighbor]] += x[i]
			}
		}

		norm := floats.Norm(next, 2)
		if norm == 0 {
			norm = 1
		}
		for i := range next {
			next[i] /= norm
		}

		if floats.Distance(next, x, 1) < float64(n)*opts.Tolerance {
			scores := make(map[int64]float64, n)
			for i, id := range nodes {
				scores[id] = next[i]
			}
			return scores, nil
		}
		x, next = next, x
	}

	return nil, fmt.Errorf("%w after %d iterations", ErrNotConverged, opts.MaxIterations)
}
