// Package report renders analysis results as text, JSON or YAML and
// persists them as compressed snapshots.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dd0wney/cluso-socialgraph/pkg/graph"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// ErrUnknownMetric is returned when a report has no ranking for a metric.
var ErrUnknownMetric = errors.New("no ranking for metric")

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Entry is one ranked node
type Entry struct {
	NodeID  int64   `json:"node_id" yaml:"node_id"`
	Label   string  `json:"label" yaml:"label"`
	Score   float64 `json:"score" yaml:"score"`
	Defined bool    `json:"defined" yaml:"defined"`
}

// Ranking is the top of one centrality metric, best first
type Ranking struct {
	Metric  string  `json:"metric" yaml:"metric"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// CommunitySummary lists a community's highest-degree members
type CommunitySummary struct {
	ID      int     `json:"id" yaml:"id"`
	Size    int     `json:"size" yaml:"size"`
	Density float64 `json:"density" yaml:"density"`
	Top     []Entry `json:"top" yaml:"top"`
}

// NodeScores holds every computed value for one node
type NodeScores struct {
	NodeID          int64              `json:"node_id" yaml:"node_id"`
	Label           string             `json:"label" yaml:"label"`
	Degree          int                `json:"degree" yaml:"degree"`
	Community       int                `json:"community" yaml:"community"`
	BridgingDefined bool               `json:"bridging_defined" yaml:"bridging_defined"`
	Scores          map[string]float64 `json:"scores" yaml:"scores"`
}

// Report is the serialisable outcome of one analysis run
type Report struct {
	RunID             string             `json:"run_id" yaml:"run_id"`
	GeneratedAt       time.Time          `json:"generated_at" yaml:"generated_at"`
	Graph             graph.BuildStats   `json:"graph" yaml:"graph"`
	TopN              int                `json:"top_n" yaml:"top_n"`
	Rankings          []Ranking          `json:"rankings" yaml:"rankings"`
	BridgingUndefined int                `json:"bridging_undefined" yaml:"bridging_undefined"`
	CommunityMethod   string             `json:"community_method,omitempty" yaml:"community_method,omitempty"`
	Modularity        float64            `json:"modularity" yaml:"modularity"`
	CommunityTopN     int                `json:"community_top_n,omitempty" yaml:"community_top_n,omitempty"`
	Communities       []CommunitySummary `json:"communities,omitempty" yaml:"communities,omitempty"`
	Nodes             []NodeScores       `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// Ranking returns the ranking for metric
func (r *Report) Ranking(metric string) (Ranking, error) {
	for _, rk := range r.Rankings {
		if rk.Metric == metric {
			return rk, nil
		}
	}
	return Ranking{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
}

// Metrics lists the ranked metrics in report order
func (r *Report) Metrics() []string {
	names := make([]string, len(r.Rankings))
	for i, rk := range r.Rankings {
		names[i] = rk.Metric
	}
	return names
}

// Node returns the per-node scores of id, if the report carries them
func (r *Report) Node(id int64) (NodeScores, bool) {
	i, ok := slices.BinarySearchFunc(r.Nodes, id, func(n NodeScores, id int64) int {
		return cmp.Compare(n.NodeID, id)
	})
	if !ok {
		return NodeScores{}, false
	}
	return r.Nodes[i], true
}

// WithoutNodes returns a shallow copy without per-node scores
func (r *Report) WithoutNodes() *Report {
	c := *r
	c.Nodes = nil
	return &c
}
