package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Write renders r in the given format
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteJSON writes r as indented JSON
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteYAML writes r as YAML
func WriteYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// WriteText writes the human-readable summary: for each metric the top node
// IDs and then their labels, followed by the top members of each community.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Social graph analysis " + r.RunID))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Graph: %d nodes, %d edges", r.Graph.Nodes, r.Graph.Edges)
	if r.Graph.SelfLoops > 0 || r.Graph.DuplicateEdges > 0 {
		fmt.Fprintf(&b, " (dropped %d self-loops, %d repeated edges)", r.Graph.SelfLoops, r.Graph.DuplicateEdges)
	}
	b.WriteString("\n\n")

	for _, rk := range r.Rankings {
		fmt.Fprintf(&b, "%s %s\n", rankingHeading(r.TopN, rk.Metric), idList(rk.Entries))
	}
	for _, rk := range r.Rankings {
		fmt.Fprintf(&b, "%s %s\n", rankingHeading(r.TopN, rk.Metric), labelList(rk.Entries))
	}

	for _, rk := range r.Rankings {
		if rk.Metric != "bridging" {
			continue
		}
		var undefined []Entry
		for _, e := range rk.Entries {
			if !e.Defined {
				undefined = append(undefined, e)
			}
		}
		if len(undefined) > 0 {
			b.WriteString(noteStyle.Render(fmt.Sprintf(
				"# %d of these bridging scores rest on an undefined coefficient: %s",
				len(undefined), idList(undefined))))
			b.WriteByte('\n')
		}
	}
	if r.BridgingUndefined > 0 {
		b.WriteString(noteStyle.Render(fmt.Sprintf("# %d nodes have an undefined bridging coefficient", r.BridgingUndefined)))
		b.WriteByte('\n')
	}

	if r.CommunityMethod != "" {
		b.WriteByte('\n')
		b.WriteString(headingStyle.Render(fmt.Sprintf("Communities (%s): %d, modularity %.4f",
			r.CommunityMethod, len(r.Communities), r.Modularity)))
		b.WriteByte('\n')
		for _, c := range r.Communities {
			fmt.Fprintf(&b, "Community %d top %d users by degree centrality: %s\n", c.ID, r.CommunityTopN, labelList(c.Top))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func rankingHeading(n int, metric string) string {
	return headingStyle.Render(fmt.Sprintf("# Top %d users by %s centrality:", n, metric))
}

func idList(entries []Entry) string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = strconv.FormatInt(e.NodeID, 10)
	}
	return "[" + strings.Join(ids, ", ") + "]"
}

func labelList(entries []Entry) string {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = "'" + e.Label + "'"
	}
	return "[" + strings.Join(labels, ", ") + "]"
}
