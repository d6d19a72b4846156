package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-socialgraph/pkg/metrics"
	"github.com/dd0wney/cluso-socialgraph/pkg/report"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse rankings and communities interactively",
	Long: `Open a terminal browser over a report: one tab per ranking plus the
detected communities. Reads --snapshot, or analyses the configured inputs.`,
	Example: `  socialgraph tui --snapshot run.snap`,
	PreRunE: bindFlags(map[string]string{
		"serve.snapshot": "snapshot",
		"input.edges":    "edges",
		"input.nodes":    "nodes",
	}),
	RunE: runTUI,
}

func init() {
	f := tuiCmd.Flags()
	f.String("snapshot", "", "snapshot written by analyze --snapshot")
	f.String("edges", "", "edge table analysed when no snapshot is given")
	f.String("nodes", "", "node table analysed when no snapshot is given")

	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Logs would corrupt the alternate screen, so only errors are shown.
	cfg.LogLevel = "error"
	logger := newLogger(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := loadServedReport(ctx, cmd, cfg, logger, metrics.NewRegistry())
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(newBrowser(rep), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab", "right", "l"),
		key.WithHelp("tab", "next tab"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab", "left", "h"),
		key.WithHelp("shift+tab", "prev tab"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.ShiftTab, k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab},
		{k.Up, k.Down},
		{k.Quit},
	}
}

// tab is one page of the browser. Overview has no table.
type tab struct {
	title string
	table *table.Model
}

type browser struct {
	report  *report.Report
	tabs    []tab
	current int
	help    help.Model
	keys    keyMap
	width   int
	height  int
}

func newBrowser(rep *report.Report) browser {
	tabs := []tab{{title: "Overview"}}
	for _, r := range rep.Rankings {
		t := rankingTable(r)
		tabs = append(tabs, tab{title: r.Metric, table: &t})
	}
	if len(rep.Communities) > 0 {
		t := communityTable(rep.Communities)
		tabs = append(tabs, tab{title: "communities", table: &t})
	}

	return browser{
		report: rep,
		tabs:   tabs,
		help:   help.New(),
		keys:   keys,
	}
}

func newTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 15)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func rankingTable(r report.Ranking) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "ID", Width: 14},
		{Title: "Label", Width: 24},
		{Title: "Score", Width: 14},
	}
	rows := make([]table.Row, 0, len(r.Entries))
	for i, e := range r.Entries {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			strconv.FormatInt(e.NodeID, 10),
			e.Label,
			formatScore(e),
		})
	}
	return newTable(columns, rows)
}

func communityTable(communities []report.CommunitySummary) table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Size", Width: 8},
		{Title: "Density", Width: 10},
		{Title: "Top members", Width: 48},
	}
	rows := make([]table.Row, 0, len(communities))
	for _, c := range communities {
		names := make([]string, 0, len(c.Top))
		for _, e := range c.Top {
			names = append(names, entryName(e))
		}
		rows = append(rows, table.Row{
			strconv.Itoa(c.ID),
			strconv.Itoa(c.Size),
			strconv.FormatFloat(c.Density, 'f', 4, 64),
			strings.Join(names, ", "),
		})
	}
	return newTable(columns, rows)
}

func formatScore(e report.Entry) string {
	if !e.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(e.Score, 'g', 6, 64)
}

func entryName(e report.Entry) string {
	if e.Label != "" {
		return e.Label
	}
	return strconv.FormatInt(e.NodeID, 10)
}

func (m browser) Init() tea.Cmd {
	return nil
}

func (m browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.current = (m.current + 1) % len(m.tabs)
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.current = (m.current - 1 + len(m.tabs)) % len(m.tabs)
			return m, nil
		}
	}

	if t := m.tabs[m.current].table; t != nil {
		var cmd tea.Cmd
		*t, cmd = t.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m browser) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("socialgraph"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	current := m.tabs[m.current]
	if current.table == nil {
		s.WriteString(m.renderOverview())
	} else {
		var body strings.Builder
		body.WriteString(headerStyle.Render(current.title))
		body.WriteString("\n\n")
		body.WriteString(current.table.View())
		s.WriteString(contentStyle.Render(body.String()))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m browser) renderTabs() string {
	rendered := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		if i == m.current {
			rendered = append(rendered, activeTabStyle.Render(t.title))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(t.title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m browser) renderOverview() string {
	r := m.report

	run := fmt.Sprintf(`Run
Id:         %s
Generated:  %s
Top N:      %d`,
		r.RunID,
		r.GeneratedAt.Format("2006-01-02 15:04:05"),
		r.TopN,
	)

	graph := fmt.Sprintf(`Graph
Nodes:       %d
Edges:       %d
Self loops:  %d
Duplicates:  %d
Undefined bridging: %d`,
		r.Graph.Nodes,
		r.Graph.Edges,
		r.Graph.SelfLoops,
		r.Graph.DuplicateEdges,
		r.BridgingUndefined,
	)

	boxes := []string{statsBoxStyle.Render(run), statsBoxStyle.Render(graph)}
	if len(r.Communities) > 0 {
		communities := fmt.Sprintf(`Communities
Method:      %s
Count:       %d
Modularity:  %.4f`,
			r.CommunityMethod,
			len(r.Communities),
			r.Modularity,
		)
		boxes = append(boxes, statsBoxStyle.Render(communities))
	}
	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
}
