// Package tui provides the Bubble Tea dashboard for live entity watches.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/polyxo/gridctl/internal/watch"
)

// frameInterval is the fixed redraw rate of the dashboard (10 fps). Each
// frame re-snapshots the watch group; all remote traffic happens on the
// group's listener goroutines, never here.
const frameInterval = 100 * time.Millisecond

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("15")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("213")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	statusCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	timeCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("78"))

	durationCellStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("178"))

	ongoingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	helpBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// MetadataFunc renders the metadata panel rows for one entity record.
type MetadataFunc[E any] func(e E) [][2]string

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the dashboard over one watch group: a tab strip with one tab per
// watched entity, the selected entity's status timeline and metadata, and a
// help bar.
type Model[E any] struct {
	group    *watch.Group[E]
	title    string
	metadata MetadataFunc[E]

	snaps  []watch.Snapshot[E]
	tab    int
	width  int
	height int
	ready  bool
	vp     viewport.Model

	// err carries the first listener failure out of the render loop.
	err error
}

// New builds a dashboard model for the given group. metadata supplies the
// per-kind metadata rows.
func New[E any](group *watch.Group[E], title string, metadata MetadataFunc[E]) Model[E] {
	m := Model[E]{group: group, title: title, metadata: metadata}
	m.refreshSnapshots()
	return m
}

// Err returns the listener failure that terminated the dashboard, if any.
func (m Model[E]) Err() error { return m.err }

// ── Bubble Tea interface ───────────────

func (m Model[E]) Init() tea.Cmd { return tick() }

func (m Model[E]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			if n := len(m.snaps); n > 0 {
				m.tab = (m.tab - 1 + n) % n
				m.rebuildContent()
			}
			return m, nil
		case "right", "l", "tab":
			if n := len(m.snaps); n > 0 {
				m.tab = (m.tab + 1) % n
				m.rebuildContent()
			}
			return m, nil
		}
		// Everything else (scroll keys) goes to the viewport.
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd

	case tickMsg:
		// Listener failures surface here, once per frame, and end the
		// session with the terminal state intact.
		select {
		case err := <-m.group.Errors():
			m.err = err
			return m, tea.Quit
		default:
		}
		m.refreshSnapshots()
		m.rebuildContent()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		// title(1) + tabs(1) + help(1) fixed rows
		vpHeight := m.height - 3
		if vpHeight < 1 {
			vpHeight = 1
		}
		m.vp = viewport.New(m.width, vpHeight)
		m.rebuildContent()
		return m, nil
	}
	return m, nil
}

func (m Model[E]) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  gridctl watch  " + m.title + "  session " + m.group.SessionID())

	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(m.renderTabs())

	help := helpBarStyle.Width(m.width).Render("←/h prev tab  →/l next tab  ↑/↓ scroll  esc/q quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, m.vp.View(), help)
}

// ── Snapshot management ───────────────────────────────────────────────────────

// refreshSnapshots re-pulls the group's watch view. The selected tab index is
// preserved across swaps; when the list shrinks the index wraps via modulo so
// no out-of-range tab is ever rendered.
func (m *Model[E]) refreshSnapshots() {
	watches := m.group.WatchesView()
	snaps := make([]watch.Snapshot[E], len(watches))
	for i, w := range watches {
		snaps[i] = w.Snapshot()
	}
	m.snaps = snaps
	if len(m.snaps) == 0 {
		m.tab = 0
	} else {
		m.tab %= len(m.snaps)
	}
}

func (m *Model[E]) rebuildContent() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderContent())
}

// ── Rendering ─────────────────────────────────────────────────────────────────

func (m *Model[E]) renderTabs() string {
	if len(m.snaps) == 0 {
		return dimStyle.Render(" (no watches) ")
	}
	parts := make([]string, 0, len(m.snaps))
	for i, s := range m.snaps {
		label := fmt.Sprintf(" %s..:%s ", shortID(s.ID), s.Status)
		if i == m.tab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model[E]) renderContent() string {
	if len(m.snaps) == 0 {
		return panelStyle.Render(dimStyle.Render("Nothing to watch yet.."))
	}
	s := m.snaps[m.tab]
	timeline := m.renderTimeline(s)
	metadata := m.renderMetadata(s)
	return lipgloss.JoinHorizontal(lipgloss.Top, timeline, metadata)
}

// renderTimeline shows every interval the entity went through, chronologically
// sorted, with open intervals marked as ongoing.
func (m *Model[E]) renderTimeline(s watch.Snapshot[E]) string {
	var sb strings.Builder
	sb.WriteString(panelTitleStyle.Render("Live Status Tracking") + "\n")
	sb.WriteString(labelStyle.Render(fmt.Sprintf("%-14s %-10s %s", "Status", "Start", "Duration")) + "\n")

	now := time.Now()
	for _, iv := range s.Timeline {
		dur := iv.Duration(now).Round(time.Second).String()
		if iv.Open() {
			dur = ongoingStyle.Render(dur + " (ongoing)")
		} else {
			dur = durationCellStyle.Render(dur)
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n",
			statusCellStyle.Render(fmt.Sprintf("%-14s", iv.Label)),
			timeCellStyle.Render(iv.Start.Format("15:04:05")),
			dur,
		))
	}
	if len(s.Timeline) == 0 {
		sb.WriteString(dimStyle.Render("(no transitions observed)") + "\n")
	}
	return panelStyle.Render(sb.String())
}

func (m *Model[E]) renderMetadata(s watch.Snapshot[E]) string {
	var sb strings.Builder
	sb.WriteString(panelTitleStyle.Render("Metadata") + "\n")
	sb.WriteString(labelStyle.Render("ID") + "  " + s.ID + "\n")
	if !s.HasData {
		sb.WriteString(dimStyle.Render("Data not yet retrieved") + "\n")
		return panelStyle.Render(sb.String())
	}
	for _, row := range m.metadata(s.Data) {
		sb.WriteString(labelStyle.Render(row[0]) + "  " + row[1] + "\n")
	}
	return panelStyle.Render(sb.String())
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Run drives the dashboard until the user exits or a listener fails. The alt
// screen guarantees the terminal is restored on every exit path.
func Run[E any](group *watch.Group[E], title string, metadata MetadataFunc[E]) error {
	p := tea.NewProgram(New(group, title, metadata), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model[E]); ok && m.Err() != nil {
		return fmt.Errorf("watch session ended: %w", m.Err())
	}
	return nil
}
