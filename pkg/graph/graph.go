// Package graph holds the immutable undirected social graph the analysis runs on.
//
// Nodes are int64 account identifiers. The graph is simple: repeated edges
// collapse into one and self-loops are dropped while building. Once Build is
// called the result is read-only, so the centrality and bridging calculations
// can share it across goroutines without locking.
package graph

import (
	"slices"
	"strconv"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is a read-only snapshot of an undirected simple graph
type Graph struct {
	g      *simple.UndirectedGraph
	nodes  []int64
	adj    map[int64][]int64
	labels map[int64]string
	edges  int
}

// Nodes returns all node IDs in ascending order. Callers must not modify the slice.
func (g *Graph) Nodes() []int64 {
	return g.nodes
}

// Neighbors returns the neighbours of id in ascending order, or nil for an unknown node.
// Callers must not modify the slice.
func (g *Graph) Neighbors(id int64) []int64 {
	return g.adj[id]
}

// Degree returns the number of edges incident to id
func (g *Graph) Degree(id int64) int {
	return len(g.adj[id])
}

// HasNode reports whether id is part of the graph
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.adj[id]
	return ok
}

// HasEdge reports whether u and v are adjacent
func (g *Graph) HasEdge(u, v int64) bool {
	return g.g.HasEdgeBetween(u, v)
}

// Label returns the display label of id, falling back to its decimal form
func (g *Graph) Label(id int64) string {
	if label, ok := g.labels[id]; ok && label != "" {
		return label
	}
	return strconv.FormatInt(id, 10)
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Undirected exposes the underlying gonum graph for library algorithms
// (betweenness, modularity). It must be treated as read-only.
func (g *Graph) Undirected() gonum.Undirected {
	return g.g
}

// Index returns a dense position for every node, matching the order of Nodes.
func (g *Graph) Index() map[int64]int {
	index := make(map[int64]int, len(g.nodes))
	for i, id := range g.nodes {
		index[id] = i
	}
	return index
}

func newGraph(ug *simple.UndirectedGraph, labels map[int64]string, edges int) *Graph {
	nodes := make([]int64, 0, ug.Nodes().Len())
	adj := make(map[int64][]int64, ug.Nodes().Len())

	it := ug.Nodes()
	for it.Next() {
		id := it.Node().ID()
		nodes = append(nodes, id)

		from := ug.From(id)
		neighbors := make([]int64, 0, from.Len())
		for from.Next() {
			neighbors = append(neighbors, from.Node().ID())
		}
		slices.Sort(neighbors)
		adj[id] = neighbors
	}
	slices.Sort(nodes)

	return &Graph{
		g:      ug,
		nodes:  nodes,
		adj:    adj,
		labels: labels,
		edges:  edges,
	}
}
