// Package algorithms computes centrality metrics, bridging centrality and
// community structure over an undirected social graph.
package algorithms

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dd0wney/cluso-socialgraph/pkg/parallel"
)

// Adjacency is the read-only view of an undirected graph that the per-node
// metrics need. Neighbors must return a stable order for a given graph.
type Adjacency interface {
	Nodes() []int64
	Neighbors(id int64) []int64
	Degree(id int64) int
}

// UndefinedCoefficient is the numeric value historically used for a node
// whose bridging coefficient cannot be computed.
const UndefinedCoefficient = -1.0

// ErrMissingBetweenness is returned when the betweenness map lacks a node of the graph.
var ErrMissingBetweenness = errors.New("betweenness score missing for node")

// Coefficient is a node's bridging coefficient. Defined is false for nodes
// with no neighbour of non-zero degree.
type Coefficient struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// Float64 returns the coefficient, or UndefinedCoefficient when it is undefined.
func (c Coefficient) Float64() float64 {
	if !c.Defined {
		return UndefinedCoefficient
	}
	return c.Value
}

// BridgingScore combines a node's betweenness with its bridging coefficient.
// Score is always Betweenness * Coefficient.Float64(); for undefined
// coefficients it is therefore zero or negative and not a measured quantity.
type BridgingScore struct {
	Betweenness float64     `json:"betweenness"`
	Coefficient Coefficient `json:"coefficient"`
	Score       float64     `json:"score"`
}

// Defined reports whether the score rests on a defined coefficient.
func (s BridgingScore) Defined() bool {
	return s.Coefficient.Defined
}

// bridgingCoefficient is the reciprocal of the sum of the reciprocal degrees
// of id's neighbours. Neighbours of degree zero are skipped.
func bridgingCoefficient(g Adjacency, id int64) Coefficient {
	sum := 0.0
	for _, neighbor := range g.Neighbors(id) {
		if deg := g.Degree(neighbor); deg != 0 {
			sum += 1 / float64(deg)
		}
	}
	if sum == 0 {
		return Coefficient{}
	}
	return Coefficient{Value: 1 / sum, Defined: true}
}

// BridgingCoefficient computes the bridging coefficient of every node.
func BridgingCoefficient(g Adjacency) map[int64]Coefficient {
	nodes := g.Nodes()
	coefficients := make(map[int64]Coefficient, len(nodes))
	for _, id := range nodes {
		coefficients[id] = bridgingCoefficient(g, id)
	}
	return coefficients
}

// BridgingCoefficientParallel is BridgingCoefficient spread over workers.
// The result is identical to the sequential form.
func BridgingCoefficientParallel(ctx context.Context, g Adjacency, workers int) (map[int64]Coefficient, error) {
	nodes := g.Nodes()
	index := make(map[int64]int, len(nodes))
	for i, id := range nodes {
		index[id] = i
	}

	// Each worker writes only its own slots, so no locking is needed.
	results := make([]Coefficient, len(nodes))
	err := parallel.ForEach(ctx, nodes, workers, func(id int64) error {
		results[index[id]] = bridgingCoefficient(g, id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	coefficients := make(map[int64]Coefficient, len(nodes))
	for i, id := range nodes {
		coefficients[id] = results[i]
	}
	return coefficients, nil
}

// BridgingCentrality computes betweenness × bridging coefficient for every
// node of g. betweenness must hold an entry for every node.
func BridgingCentrality(g Adjacency, betweenness map[int64]float64) (map[int64]BridgingScore, error) {
	return CombineBridging(BridgingCoefficient(g), betweenness)
}

// CombineBridging multiplies precomputed coefficients by betweenness.
func CombineBridging(coefficients map[int64]Coefficient, betweenness map[int64]float64) (map[int64]BridgingScore, error) {
	scores := make(map[int64]BridgingScore, len(coefficients))
	for _, id := range slices.Sorted(maps.Keys(coefficients)) {
		b, ok := betweenness[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrMissingBetweenness, id)
		}
		c := coefficients[id]
		scores[id] = BridgingScore{
			Betweenness: b,
			Coefficient: c,
			Score:       b * c.Float64(),
		}
	}
	return scores, nil
}

// BridgingValues flattens scores to their numeric values.
func BridgingValues(scores map[int64]BridgingScore) map[int64]float64 {
	values := make(map[int64]float64, len(scores))
	for id, s := range scores {
		values[id] = s.Score
	}
	return values
}

// CountUndefined returns how many scores rest on an undefined coefficient.
func CountUndefined(scores map[int64]BridgingScore) int {
	n := 0
	for _, s := range scores {
		if !s.Defined() {
			n++
		}
	}
	return n
}
