package algorithms

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
)

// twoCliques builds two 4-cliques {0..3} and {4..7}, optionally joined by 3-4
func twoCliques(bridged bool) *graph.Graph {
	var edges [][2]int64
	for _, offset := range []int64{0, 4} {
		for u := int64(0); u < 4; u++ {
			for v := u + 1; v < 4; v++ {
				edges = append(edges, [2]int64{offset + u, offset + v})
			}
		}
	}
	if bridged {
		edges = append(edges, [2]int64{3, 4})
	}
	return graph.FromEdges(edges)
}

func assertPartition(t *testing.T, g *graph.Graph, result *CommunityResult) {
	t.Helper()

	seen := make(map[int64]bool)
	for i, c := range result.Communities {
		if c.ID != i {
			t.Errorf("community at position %d has ID %d", i, c.ID)
		}
		if c.Size != len(c.Nodes) {
			t.Errorf("community %d size %d but %d nodes", c.ID, c.Size, len(c.Nodes))
		}
		for _, id := range c.Nodes {
			if seen[id] {
				t.Errorf("node %d assigned twice", id)
			}
			seen[id] = true
			if result.NodeCommunity[id] != c.ID {
				t.Errorf("NodeCommunity[%d] = %d, want %d", id, result.NodeCommunity[id], c.ID)
			}
		}
	}
	if len(seen) != g.NodeCount() {
		t.Errorf("partition covers %d of %d nodes", len(seen), g.NodeCount())
	}
}

func TestLouvain_TwoCliques(t *testing.T) {
	g := twoCliques(true)
	result := Louvain(g, 1.0, 1)
	assertPartition(t, g, result)

	if len(result.Communities) != 2 {
		t.Fatalf("expected 2 communities, got %d", len(result.Communities))
	}
	if !reflect.DeepEqual(result.Communities[0].Nodes, []int64{0, 1, 2, 3}) {
		t.Errorf("first community = %v", result.Communities[0].Nodes)
	}
	if !reflect.DeepEqual(result.Communities[1].Nodes, []int64{4, 5, 6, 7}) {
		t.Errorf("second community = %v", result.Communities[1].Nodes)
	}
	if result.Communities[0].Density != 1.0 {
		t.Errorf("clique density = %v, want 1", result.Communities[0].Density)
	}
	if result.Modularity <= 0.3 {
		t.Errorf("modularity = %v, expected a clear split", result.Modularity)
	}
}

func TestLouvain_SameSeedSamePartition(t *testing.T) {
	g := randomGraph(5, 120, 300)

	first := Louvain(g, 1.0, 99)
	second := Louvain(g, 1.0, 99)

	if !reflect.DeepEqual(first.NodeCommunity, second.NodeCommunity) {
		t.Error("Louvain is not reproducible for a fixed seed")
	}
	assertPartition(t, g, first)
}

func TestLouvain_NoEdges(t *testing.T) {
	g := graph.FromEdges(nil, 3, 1, 2)
	result := Louvain(g, 1.0, 1)

	if len(result.Communities) != 3 {
		t.Fatalf("expected singleton communities, got %d", len(result.Communities))
	}
	if result.Modularity != 0 {
		t.Errorf("modularity = %v, want 0", result.Modularity)
	}
	assertPartition(t, g, result)
}

func TestLabelPropagation_DisconnectedCliques(t *testing.T) {
	g := twoCliques(false)
	result := LabelPropagation(g, 100, 7)
	assertPartition(t, g, result)

	if len(result.Communities) != 2 {
		t.Fatalf("expected 2 communities, got %d", len(result.Communities))
	}
	if result.Method != MethodLabelPropagation {
		t.Errorf("method = %q", result.Method)
	}
}

func TestLabelPropagation_Deterministic(t *testing.T) {
	g := twoCliques(true)
	first := LabelPropagation(g, 100, 3)
	second := LabelPropagation(g, 100, 3)

	if !reflect.DeepEqual(first.NodeCommunity, second.NodeCommunity) {
		t.Error("label propagation is not reproducible for a fixed seed")
	}
}

func TestConnectedComponents(t *testing.T) {
	g := pathGraph()
	result := ConnectedComponents(g)
	assertPartition(t, g, result)

	if len(result.Communities) != 2 {
		t.Fatalf("expected 2 components, got %d", len(result.Communities))
	}
	if !reflect.DeepEqual(result.Communities[0].Nodes, []int64{1, 2, 3}) {
		t.Errorf("largest component = %v", result.Communities[0].Nodes)
	}
	if !reflect.DeepEqual(result.Communities[1].Nodes, []int64{4}) {
		t.Errorf("isolated component = %v", result.Communities[1].Nodes)
	}
	if result.Communities[1].Density != 0 {
		t.Errorf("singleton density = %v, want 0", result.Communities[1].Density)
	}
}

func TestDetectCommunities(t *testing.T) {
	g := twoCliques(true)

	for _, method := range []string{MethodLouvain, MethodLabelPropagation, MethodComponents} {
		t.Run(method, func(t *testing.T) {
			opts := DefaultCommunityOptions()
			opts.Method = method
			result, err := DetectCommunities(g, opts)
			if err != nil {
				t.Fatalf("DetectCommunities failed: %v", err)
			}
			if result.Method != method {
				t.Errorf("method = %q, want %q", result.Method, method)
			}
			assertPartition(t, g, result)
		})
	}

	_, err := DetectCommunities(g, CommunityOptions{Method: "spectral"})
	if !errors.Is(err, ErrUnknownCommunityMethod) {
		t.Errorf("expected ErrUnknownCommunityMethod, got %v", err)
	}
}
