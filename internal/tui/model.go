// Package tui implements an interactive terminal browser over a memdb
// store: a scrollable table of episodes with a detail line for the
// selected row's reward, user id and trajectory step count. Metadata
// and the individual steps are not shown.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agentmem/agentmemdb/pkg/memdb"
)

// Model is the bubbletea model for the episode browser.
type Model struct {
	episodes []memdb.Episode
	table    table.Model
	styles   Styles
	showHelp bool
	quitting bool
	storeLabel string
}

// NewModel builds a browser over episodes, sorted newest-first when a
// timestamp is present. storeLabel is shown in the header (typically the
// store's path).
func NewModel(episodes []memdb.Episode, storeLabel string, noColor bool) Model {
	sorted := make([]memdb.Episode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := timestampOf(sorted[i]), timestampOf(sorted[j])
		return ti > tj
	})

	columns := []table.Column{
		{Title: "Task", Width: 24},
		{Title: "Reward", Width: 8},
		{Title: "Tags", Width: 20},
		{Title: "Source", Width: 12},
		{Title: "ID", Width: 36},
	}

	rows := make([]table.Row, 0, len(sorted))
	for _, ep := range sorted {
		rows = append(rows, table.Row{
			ep.TaskID,
			fmt.Sprintf("%.3f", ep.Reward),
			strings.Join(ep.Tags, ","),
			sourceOf(ep),
			ep.ID.String(),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 20)),
	)

	styles := GetStyles(noColor)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.Bold(true)
	ts.Selected = styles.Selected
	t.SetStyles(ts)

	return Model{
		episodes:   sorted,
		table:      t,
		styles:     styles,
		storeLabel: storeLabel,
	}
}

func timestampOf(ep memdb.Episode) int64 {
	if ep.Timestamp == nil {
		return 0
	}
	return *ep.Timestamp
}

func sourceOf(ep memdb.Episode) string {
	if ep.Source == nil {
		return ""
	}
	return *ep.Source
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render(fmt.Sprintf("agentmemdb — %s (%d episodes)", m.storeLabel, len(m.episodes))))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	if selected := m.selectedEpisode(); selected != nil {
		b.WriteString(m.renderDetail(*selected))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(m.styles.Help.Render("↑/↓ navigate · ? toggle help · q quit"))
	} else {
		b.WriteString(m.styles.Dim.Render("press ? for help"))
	}

	return b.String()
}

func (m Model) selectedEpisode() *memdb.Episode {
	row := m.table.Cursor()
	if row < 0 || row >= len(m.episodes) {
		return nil
	}
	return &m.episodes[row]
}

func (m Model) renderDetail(ep memdb.Episode) string {
	var b strings.Builder
	b.WriteString(m.styles.Reward.Render(fmt.Sprintf("reward: %.4f", ep.Reward)))
	if ep.UserID != nil {
		b.WriteString(m.styles.Dim.Render(fmt.Sprintf("  user: %s", *ep.UserID)))
	}
	if len(ep.Steps) > 0 {
		b.WriteString(fmt.Sprintf("  steps: %d", len(ep.Steps)))
	}
	return b.String()
}
