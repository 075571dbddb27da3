// Package tui provides a Bubble Tea TUI for browsing captured debug logs.
package tui

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Active tab: bright, underlined
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// Inactive tab: muted
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	idStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabEntries tabID = iota
	tabInstruments
	tabSummary
	tabCount
)

var tabNames = [tabCount]string{"Entries", "Instruments", "Summary"}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the log viewer.
type Model struct {
	entries  []map[string]any
	filename string

	activeTab   tabID
	viewports   [tabCount]viewport.Model
	width       int
	height      int
	ready       bool
	entryCursor int
	expanded    map[int]bool
}

// New creates a viewer model for the given parsed log entries.
func New(entries []map[string]any, filename string) Model {
	return Model{
		entries:  entries,
		filename: filepath.Base(filename),
		expanded: make(map[int]bool),
	}
}

// Run starts the viewer and blocks until the user quits.
func Run(entries []map[string]any, filename string) error {
	_, err := tea.NewProgram(New(entries, filename), tea.WithAltScreen()).Run()
	return err
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "up", "k":
			if m.activeTab == tabEntries && m.entryCursor > 0 {
				m.entryCursor--
				m.rebuildEntriesViewport()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabEntries && m.entryCursor < len(m.entries)-1 {
				m.entryCursor++
				m.rebuildEntriesViewport()
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabEntries && len(m.entries) > 0 {
				if m.expanded[m.entryCursor] {
					delete(m.expanded, m.entryCursor)
				} else {
					m.expanded[m.entryCursor] = true
				}
				m.rebuildEntriesViewport()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  probekit  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-3 jump  q quit"
	if m.activeTab == tabEntries {
		hint = "  ←/→ tab  ↑/↓ select  enter expand  q quit"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuildEntriesViewport() {
	m.viewports[tabEntries].SetContent(m.renderTab(tabEntries))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabEntries:
		return m.renderEntries()
	case tabInstruments:
		return m.renderInstruments()
	case tabSummary:
		return m.renderSummary()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func (m *Model) renderEntries() string {
	if len(m.entries) == 0 {
		return heading("Entries") + dimStyle.Render("  No log entries.") + "\n"
	}

	var b strings.Builder
	b.WriteString(heading("Entries"))
	for i, e := range m.entries {
		row := fmt.Sprintf("  %s  %s  %s",
			timeStyle.Render(formatMillis(e["receivedAt"])),
			idStyle.Render(str(e["id"])),
			locationStyle.Render(str(e["location"])))
		if i == m.entryCursor {
			row = selectedRowStyle.Render(row)
		}
		b.WriteString(row + "\n")

		if m.expanded[i] {
			if data, ok := e["data"].(map[string]any); ok && len(data) > 0 {
				for _, k := range sortedKeys(data) {
					b.WriteString(fmt.Sprintf("      %s %s\n",
						labelStyle.Render(k+" ="), renderValue(data[k])))
				}
			} else {
				b.WriteString(dimStyle.Render("      (no captured data)") + "\n")
			}
			b.WriteString(fmt.Sprintf("      %s %s\n",
				labelStyle.Render("fired at"), formatMillis(e["timestamp"])))
		}
	}
	return b.String()
}

func (m *Model) renderInstruments() string {
	// Group entries by instrument id so a removed instrument's history is
	// still visible.
	counts := make(map[string]int)
	locations := make(map[string]string)
	var order []string
	for _, e := range m.entries {
		id := str(e["id"])
		if counts[id] == 0 {
			order = append(order, id)
			locations[id] = str(e["location"])
		}
		counts[id]++
	}

	var b strings.Builder
	b.WriteString(heading("Instruments seen"))
	if len(order) == 0 {
		b.WriteString(dimStyle.Render("  No instruments fired.") + "\n")
		return b.String()
	}
	for _, id := range order {
		b.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			idStyle.Render(id),
			locationStyle.Render(locations[id]),
			dimStyle.Render(fmt.Sprintf("(%d entries)", counts[id]))))
	}
	return b.String()
}

func (m *Model) renderSummary() string {
	var b strings.Builder
	b.WriteString(heading("Summary"))
	b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("Log file: "), m.filename))
	b.WriteString(fmt.Sprintf("  %s %d\n", labelStyle.Render("Entries:  "), len(m.entries)))
	if len(m.entries) > 0 {
		b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("First:    "), formatMillis(m.entries[0]["receivedAt"])))
		b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("Last:     "), formatMillis(m.entries[len(m.entries)-1]["receivedAt"])))
	}
	return b.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// formatMillis renders a unix-millisecond value (JSON numbers arrive as
// float64) as local wall-clock time.
func formatMillis(v any) string {
	f, ok := v.(float64)
	if !ok {
		return "??:??:??"
	}
	return time.UnixMilli(int64(f)).Format("15:04:05.000")
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func renderValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
