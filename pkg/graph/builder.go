package graph

import (
	"maps"

	"gonum.org/v1/gonum/graph/simple"
)

// BuildStats counts what the builder accepted and what it collapsed
type BuildStats struct {
	Nodes          int `json:"nodes"`
	Edges          int `json:"edges"`
	SelfLoops      int `json:"self_loops"`
	DuplicateEdges int `json:"duplicate_edges"`
}

// Builder accumulates nodes and edges before freezing them into a Graph.
// A Builder is not safe for concurrent use.
type Builder struct {
	g      *simple.UndirectedGraph
	labels map[int64]string
	stats  BuildStats
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{
		g:      simple.NewUndirectedGraph(),
		labels: make(map[int64]string),
	}
}

// AddNode adds id if it is not already present
func (b *Builder) AddNode(id int64) {
	if b.g.Node(id) == nil {
		b.g.AddNode(simple.Node(id))
		b.stats.Nodes++
	}
}

// SetLabel records a display label for id, adding the node if needed
func (b *Builder) SetLabel(id int64, label string) {
	b.AddNode(id)
	b.labels[id] = label
}

// AddEdge adds the undirected edge u-v. It returns false when the edge is a
// self-loop or already present; both are counted in Stats.
func (b *Builder) AddEdge(u, v int64) bool {
	if u == v {
		b.AddNode(u)
		b.stats.SelfLoops++
		return false
	}

	b.AddNode(u)
	b.AddNode(v)

	if b.g.HasEdgeBetween(u, v) {
		b.stats.DuplicateEdges++
		return false
	}

	b.g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
	b.stats.Edges++
	return true
}

// Stats returns the counts accumulated so far
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Build freezes the builder's content into a Graph. The builder may keep
// being used afterwards; later additions do not affect the returned Graph.
func (b *Builder) Build() *Graph {
	snapshot := simple.NewUndirectedGraph()
	nodes := b.g.Nodes()
	for nodes.Next() {
		snapshot.AddNode(nodes.Node())
	}
	edges := b.g.Edges()
	for edges.Next() {
		snapshot.SetEdge(edges.Edge())
	}
	return newGraph(snapshot, maps.Clone(b.labels), b.stats.Edges)
}

// FromEdges is a convenience constructor used by tests and small tools
func FromEdges(edges [][2]int64, isolated ...int64) *Graph {
	b := NewBuilder()
	for _, e := range edges {
		b.AddEdge(e[0], e[1])
	}
	for _, id := range isolated {
		b.AddNode(id)
	}
	return b.Build()
}
