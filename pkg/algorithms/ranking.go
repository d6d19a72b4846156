package algorithms

import (
	"cmp"
	"container/heap"
	"slices"

	"golang.org/x/exp/constraints"
)

// Number is any score type that can be ranked
type Number interface {
	constraints.Integer | constraints.Float
}

// RankedNode represents a node with its rank score
type RankedNode struct {
	NodeID  int64   `json:"node_id"`
	Score   float64 `json:"score"`
	Defined bool    `json:"defined"`
}

// outranks orders by score descending, then node ID ascending
func outranks(a, b RankedNode) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.NodeID < b.NodeID
}

// rankedNodeHeap is a min-heap whose root is the weakest of the current top N.
// Time complexity of a top-N scan: O(n log k)
type rankedNodeHeap []RankedNode

func (h rankedNodeHeap) Len() int           { return len(h) }
func (h rankedNodeHeap) Less(i, j int) bool { return outranks(h[j], h[i]) }
func (h rankedNodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *rankedNodeHeap) Push(x any) {
	*h = append(*h, x.(RankedNode))
}

func (h *rankedNodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// topNodes keeps the n best candidates and returns them best first
func topNodes(candidates func(yield func(RankedNode)), n int) []RankedNode {
	if n <= 0 {
		return nil
	}

	h := make(rankedNodeHeap, 0, n)
	heap.Init(&h)

	candidates(func(rn RankedNode) {
		if h.Len() < n {
			heap.Push(&h, rn)
		} else if outranks(rn, h[0]) {
			heap.Pop(&h)
			heap.Push(&h, rn)
		}
	})

	result := make([]RankedNode, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(RankedNode)
	}
	return result
}

// TopN returns the n highest-scoring nodes, best first. Equal scores are
// ordered by ascending node ID so the output is deterministic.
func TopN[V Number](scores map[int64]V, n int) []RankedNode {
	return topNodes(func(yield func(RankedNode)) {
		for id, score := range scores {
			yield(RankedNode{NodeID: id, Score: float64(score), Defined: true})
		}
	}, n)
}

// TopBridging ranks bridging scores. Scores resting on an undefined
// coefficient keep their numeric value in the ordering and are flagged with
// Defined=false, unless excludeUndefined drops them altogether.
func TopBridging(scores map[int64]BridgingScore, n int, excludeUndefined bool) []RankedNode {
	return topNodes(func(yield func(RankedNode)) {
		for id, s := range scores {
			if excludeUndefined && !s.Defined() {
				continue
			}
			yield(RankedNode{NodeID: id, Score: s.Score, Defined: s.Defined()})
		}
	}, n)
}

// RankMembers orders members by score descending, then by node ID.
// Members without a score rank as zero.
func RankMembers(members []int64, scores map[int64]float64) []RankedNode {
	ranked := make([]RankedNode, len(members))
	for i, id := range members {
		ranked[i] = RankedNode{NodeID: id, Score: scores[id], Defined: true}
	}
	slices.SortFunc(ranked, func(a, b RankedNode) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.NodeID, b.NodeID)
	})
	return ranked
}
