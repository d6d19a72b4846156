package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
)

func sampleReport() *Report {
	return &Report{
		RunID:       "7b0c7f0e-5a2e-4d7e-9d55-3f1d8a1e2b44",
		GeneratedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		Graph:       graph.BuildStats{Nodes: 4, Edges: 2, SelfLoops: 1},
		TopN:        2,
		Rankings: []Ranking{
			{Metric: "degree", Entries: []Entry{
				{NodeID: 2, Label: "bob", Score: 0.67, Defined: true},
				{NodeID: 1, Label: "alice", Score: 0.33, Defined: true},
			}},
			{Metric: "bridging", Entries: []Entry{
				{NodeID: 2, Label: "bob", Score: 0.5, Defined: true},
				{NodeID: 4, Label: "dave", Score: 0, Defined: false},
			}},
		},
		BridgingUndefined: 1,
		CommunityMethod:   "louvain",
		CommunityTopN:     2,
		Modularity:        0.25,
		Communities: []CommunitySummary{
			{ID: 0, Size: 3, Density: 0.67, Top: []Entry{{NodeID: 2, Label: "bob", Defined: true}, {NodeID: 1, Label: "alice", Defined: true}}},
			{ID: 1, Size: 1, Top: []Entry{{NodeID: 4, Label: "dave", Defined: true}}},
		},
		Nodes: []NodeScores{
			{NodeID: 1, Label: "alice", Degree: 1, Scores: map[string]float64{"degree": 0.33}},
			{NodeID: 2, Label: "bob", Degree: 2, Community: 0, Scores: map[string]float64{"degree": 0.67}},
			{NodeID: 4, Label: "dave", Community: 1, Scores: map[string]float64{"degree": 0}},
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"# Top 2 users by degree centrality:",
		"[2, 1]",
		"['bob', 'alice']",
		"# Top 2 users by bridging centrality:",
		"[2, 4]",
		"1 of these bridging scores rest on an undefined coefficient: [4]",
		"Community 0 top 2 users by degree centrality: ['bob', 'alice']",
		"Community 1 top 2 users by degree centrality: ['dave']",
		"modularity 0.2500",
		"dropped 1 self-loops",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteText_NoCommunities(t *testing.T) {
	r := sampleReport()
	r.CommunityMethod = ""
	r.Communities = nil

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	assert.NotContains(t, buf.String(), "Community")
}

func TestWrite_Formats(t *testing.T) {
	r := sampleReport()

	var jsonOut bytes.Buffer
	require.NoError(t, Write(&jsonOut, r, FormatJSON))
	var decoded Report
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Equal(t, r.Rankings, decoded.Rankings)

	var yamlOut bytes.Buffer
	require.NoError(t, Write(&yamlOut, r, FormatYAML))
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &generic))
	assert.Equal(t, "louvain", generic["community_method"])
	assert.Contains(t, yamlOut.String(), "metric: bridging")

	err := Write(&bytes.Buffer{}, r, "xml")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestReport_Lookups(t *testing.T) {
	r := sampleReport()

	rk, err := r.Ranking("bridging")
	require.NoError(t, err)
	assert.Len(t, rk.Entries, 2)

	_, err = r.Ranking("closeness")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	assert.Equal(t, []string{"degree", "bridging"}, r.Metrics())

	n, ok := r.Node(2)
	require.True(t, ok)
	assert.Equal(t, "bob", n.Label)
	_, ok = r.Node(3)
	assert.False(t, ok)

	slim := r.WithoutNodes()
	assert.Nil(t, slim.Nodes)
	assert.Len(t, r.Nodes, 3, "original must keep its nodes")
}

func TestSnapshot_RoundTrip(t *testing.T) {
	r := sampleReport()
	path := filepath.Join(t.TempDir(), "run.snap")

	require.NoError(t, WriteSnapshot(path, r))
	back, err := ReadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, r.RunID, back.RunID)
	assert.True(t, r.GeneratedAt.Equal(back.GeneratedAt))
	assert.Equal(t, r.Nodes, back.Nodes)
	assert.Equal(t, r.Communities, back.Communities)
}

func TestSnapshot_Corruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, sampleReport()))
	good := buf.Bytes()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 9; return b }},
		{"flipped payload byte", func(b []byte) []byte { b[12] ^= 0xFF; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-3] }},
		{"empty", func([]byte) []byte { return nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(bytes.Clone(good))
			_, err := DecodeSnapshot(bytes.NewReader(data))
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.snap"))
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "open snapshot"))
}
