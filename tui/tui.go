// Package tui provides an interactive terminal review of a scan report.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/luinbytes/media-dedupe/dedupe"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2)

	itemStyle = lipgloss.NewStyle().PaddingLeft(4)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	uncheckedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// Item is one file of a group as shown in the review.
type Item struct {
	Path     string
	Role     string // keep, moved, planned, not moved, seed, similar
	Detail   string
	Selected bool
}

// Group is an exact or near-duplicate group from a report.
type Group struct {
	Kind  string // exact or near
	ID    string // digest or fingerprint
	Size  int64
	Items []Item
}

// keyMap defines keybindings for the TUI
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Next      key.Binding
	Prev      key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Details   key.Binding
	Errors    key.Binding
	Confirm   key.Binding
	Quit      key.Binding
	Help      key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Next: key.NewBinding(
		key.WithKeys("right", "l", "n"),
		key.WithHelp("→/n", "next group"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h", "b"),
		key.WithHelp("←/b", "previous group"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("space", " "),
		key.WithHelp("space", "toggle selection"),
	),
	ToggleAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "toggle all"),
	),
	Details: key.NewBinding(
		key.WithKeys("p", "tab"),
		key.WithHelp("p/tab", "toggle details"),
	),
	Errors: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "toggle errors"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "finish and print selection"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
}

// ShortHelp returns keybindings to be shown in the mini help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Next, k.Prev},
		{k.Toggle, k.ToggleAll, k.Confirm},
		{k.Details, k.Errors, k.Help, k.Quit},
	}
}

// Model is the TUI state. The review never touches the filesystem; files
// the user selects are handed back by Selected once the program exits.
type Model struct {
	report      *dedupe.Report
	groups      []Group
	current     int
	cursor      int
	showHelp    bool
	showDetails bool
	showErrors  bool
	confirmed   bool
	quitting    bool
	width       int
	height      int
	keys        keyMap
	help        help.Model
	statusMsg   string
}

// New creates a review model for report.
func New(report *dedupe.Report) Model {
	return Model{
		report: report,
		groups: Groups(report),
		keys:   keys,
		help:   help.New(),
	}
}

// Groups flattens the exact and near groups of a report into review pages.
func Groups(report *dedupe.Report) []Group {
	dest := make(map[string]string, len(report.Moved))
	for _, m := range report.Moved {
		dest[m.Source] = m.Destination
	}
	planned := make(map[string]string, len(report.Planned))
	for _, m := range report.Planned {
		planned[m.Source] = m.Destination
	}

	var groups []Group
	for _, g := range report.Exact {
		group := Group{Kind: "exact", ID: g.Digest, Size: g.Size}
		for i, path := range g.Paths {
			item := Item{Path: path}
			switch {
			case i == 0:
				item.Role = "keep"
			case dest[path] != "":
				item.Role = "moved"
				item.Detail = dest[path]
			case planned[path] != "":
				item.Role = "planned"
				item.Detail = planned[path]
			default:
				item.Role = "not moved"
			}
			group.Items = append(group.Items, item)
		}
		groups = append(groups, group)
	}

	for _, g := range report.Near {
		group := Group{Kind: "near", ID: g.Fingerprint}
		for i, path := range g.Paths {
			item := Item{Path: path, Role: "similar"}
			if i == 0 {
				item.Role = "seed"
			}
			if i < len(g.Distances) {
				d := g.Distances[i]
				item.Detail = fmt.Sprintf("distance %d, %.0f%% similar", d, dedupe.Similarity(d))
			}
			group.Items = append(group.Items, item)
		}
		groups = append(groups, group)
	}
	return groups
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and user input
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp

		case key.Matches(msg, m.keys.Details):
			m.showDetails = !m.showDetails

		case key.Matches(msg, m.keys.Errors):
			m.showErrors = !m.showErrors

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, m.keys.Down):
			if m.current < len(m.groups) && m.cursor < len(m.groups[m.current].Items)-1 {
				m.cursor++
			}

		case key.Matches(msg, m.keys.Next):
			if m.current < len(m.groups)-1 {
				m.current++
				m.cursor = 0
				m.updateStatus()
			}

		case key.Matches(msg, m.keys.Prev):
			if m.current > 0 {
				m.current--
				m.cursor = 0
				m.updateStatus()
			}

		case key.Matches(msg, m.keys.Toggle):
			if m.current < len(m.groups) {
				m.groups = cloneGroups(m.groups)
				item := &m.groups[m.current].Items[m.cursor]
				item.Selected = !item.Selected
				m.updateStatus()
			}

		case key.Matches(msg, m.keys.ToggleAll):
			if m.current < len(m.groups) {
				m.groups = cloneGroups(m.groups)
				items := m.groups[m.current].Items
				allSelected := true
				for i := range items {
					if !items[i].Selected {
						allSelected = false
						break
					}
				}
				for i := range items {
					items[i].Selected = !allSelected
				}
				m.updateStatus()
			}

		case key.Matches(msg, m.keys.Confirm):
			m.confirmed = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// cloneGroups copies the item slices so an updated model never shares
// selection state with the one it came from.
func cloneGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].Items = append([]Item(nil), g.Items...)
	}
	return out
}

func (m *Model) updateStatus() {
	if m.current >= len(m.groups) {
		return
	}
	selected := 0
	for _, it := range m.groups[m.current].Items {
		if it.Selected {
			selected++
		}
	}
	m.statusMsg = fmt.Sprintf("Selected: %d/%d", selected, len(m.groups[m.current].Items))
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.confirmed {
		return m.renderConfirmation()
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(" Media Dedupe Review "))
	s.WriteString("\n")
	s.WriteString(infoStyle.Render(m.summaryLine()))
	s.WriteString("\n\n")

	switch {
	case m.showErrors:
		s.WriteString(m.renderErrors())
	case len(m.groups) == 0:
		s.WriteString("No duplicates found!\n")
	default:
		s.WriteString(m.renderGroup(m.groups[m.current]))
	}

	if m.statusMsg != "" {
		s.WriteString(infoStyle.Render(m.statusMsg))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.showHelp {
		s.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		s.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return s.String()
}

func (m Model) summaryLine() string {
	r := m.report
	mode := "moved"
	moved := r.Summary.Moved
	if r.DryRun {
		mode = "planned"
		moved = r.Summary.Planned
	}
	return fmt.Sprintf("%s | %d files | %d exact, %d near groups | %d %s | %d errors | %s reclaimable",
		r.Root, r.TotalFiles, r.Summary.ExactGroups, r.Summary.NearGroups,
		moved, mode, r.Summary.Errors, humanize.IBytes(uint64(r.Summary.ReclaimableBytes)))
}

func (m Model) renderGroup(group Group) string {
	var s strings.Builder

	s.WriteString(headerStyle.Render(fmt.Sprintf("Group %d/%d", m.current+1, len(m.groups))))
	s.WriteString("\n")
	if group.Kind == "exact" {
		s.WriteString(infoStyle.Render(fmt.Sprintf("Exact match | Size: %s", humanize.IBytes(uint64(group.Size)))))
	} else {
		s.WriteString(infoStyle.Render(fmt.Sprintf("Visually similar | %s threshold %d", m.report.Algorithm, m.report.Threshold)))
	}
	s.WriteString("\n\n")

	for i, item := range group.Items {
		if item.Selected {
			s.WriteString(checkedStyle.Render("[✓] "))
		} else {
			s.WriteString(uncheckedStyle.Render("[ ] "))
		}

		name := filepath.Base(item.Path)
		if i == m.cursor {
			s.WriteString(selectedItemStyle.Render("> " + name))
		} else {
			s.WriteString(itemStyle.Render(name))
		}
		s.WriteString(infoStyle.Render(" (" + item.Role + ")"))
		s.WriteString("\n")
	}

	if m.showDetails && m.cursor < len(group.Items) {
		item := group.Items[m.cursor]
		lines := []string{
			"path:  " + item.Path,
			group.Kind + ": " + group.ID,
		}
		if item.Detail != "" {
			lines = append(lines, item.Role+": "+item.Detail)
		}
		s.WriteString("\n")
		s.WriteString(detailStyle.Render(strings.Join(lines, "\n")))
		s.WriteString("\n")
	}
	return s.String()
}

func (m Model) renderErrors() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Errors (%d)", len(m.report.Errors))))
	s.WriteString("\n\n")
	if len(m.report.Errors) == 0 {
		s.WriteString("No errors.\n")
		return s.String()
	}
	for _, e := range m.report.Errors {
		s.WriteString(errorStyle.Render(fmt.Sprintf("  %-11s", e.Stage)))
		s.WriteString(" " + e.Path + "\n")
		s.WriteString(infoStyle.Render("              " + e.Message))
		s.WriteString("\n")
	}
	return s.String()
}

func (m Model) renderConfirmation() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(" Selection "))
	s.WriteString("\n\n")

	selected := m.Selected()
	if len(selected) == 0 {
		s.WriteString("No files selected.\n")
		return s.String()
	}
	s.WriteString(fmt.Sprintf("%d files selected:\n\n", len(selected)))
	for i, path := range selected {
		if i >= 10 {
			s.WriteString(fmt.Sprintf("... and %d more\n", len(selected)-10))
			break
		}
		s.WriteString(fmt.Sprintf("  • %s\n", path))
	}
	return s.String()
}

// Selected returns the selected paths in group order. It is empty unless
// the review was finished with enter.
func (m Model) Selected() []string {
	if !m.confirmed {
		return nil
	}
	var paths []string
	for _, g := range m.groups {
		for _, it := range g.Items {
			if it.Selected {
				paths = append(paths, it.Path)
			}
		}
	}
	return paths
}

// Run starts the review and returns the paths the user selected.
func Run(report *dedupe.Report) ([]string, error) {
	p := tea.NewProgram(New(report), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}
	return m.(Model).Selected(), nil
}
