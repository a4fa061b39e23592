package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/polyxo/gridctl/internal/api"
)

// flashWindow is how long a status panel stays highlighted after its count
// changes.
const flashWindow = 500 * time.Millisecond

// countColumns is the number of status panels per grid row.
const countColumns = 4

// statusColors maps task status labels to their panel accent color.
var statusColors = map[string]lipgloss.Color{
	"CREATING":   lipgloss.Color("245"),
	"SUBMITTED":  lipgloss.Color("33"),
	"DISPATCHED": lipgloss.Color("39"),
	"PROCESSING": lipgloss.Color("178"),
	"PROCESSED":  lipgloss.Color("114"),
	"COMPLETED":  lipgloss.Color("82"),
	"CANCELLING": lipgloss.Color("208"),
	"CANCELLED":  lipgloss.Color("196"),
	"ERROR":      lipgloss.Color("196"),
	"TIMEOUT":    lipgloss.Color("196"),
	"RETRIED":    lipgloss.Color("213"),
}

var flashPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.ThickBorder()).
	Padding(0, 1)

// sessionStats is one poll of the watched session: its record plus the task
// count per status label.
type sessionStats struct {
	session api.Session
	counts  map[string]int
	err     error
}

type sessionPollMsg struct{}

// SessionModel is a polling dashboard over a single session: a header with
// the session record, a completed-tasks summary, and a grid of per-status
// task counts that briefly flash when they change. Unlike the watch group
// dashboard it has no event subscription; every interval it re-fetches the
// session and its counts.
type SessionModel struct {
	client    *api.Client
	sessionID string
	interval  time.Duration

	session    api.Session
	counts     map[string]int
	lastChange map[string]time.Time
	fetched    bool

	width  int
	height int
	ready  bool

	err error
}

// NewSession builds a dashboard model polling the given session.
func NewSession(client *api.Client, sessionID string, interval time.Duration) SessionModel {
	if interval <= 0 {
		interval = time.Second
	}
	return SessionModel{
		client:     client,
		sessionID:  sessionID,
		interval:   interval,
		lastChange: make(map[string]time.Time),
	}
}

// Err returns the poll failure that terminated the dashboard, if any.
func (m SessionModel) Err() error { return m.err }

func (m SessionModel) Init() tea.Cmd { return m.fetch }

// fetch runs on the Bubble Tea command goroutine; Update itself never blocks
// on the network.
func (m SessionModel) fetch() tea.Msg {
	ctx, cancel := api.WithTimeout(context.Background())
	defer cancel()

	session, err := m.client.GetSession(ctx, m.sessionID)
	if err != nil {
		return sessionStats{err: fmt.Errorf("fetching session %s: %w", m.sessionID, err)}
	}
	counts, err := m.client.CountTasksByStatus(ctx, m.sessionID)
	if err != nil {
		return sessionStats{err: fmt.Errorf("counting tasks of session %s: %w", m.sessionID, err)}
	}
	return sessionStats{session: session, counts: counts}
}

func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case sessionStats:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		now := time.Now()
		for label, count := range msg.counts {
			if m.counts[label] != count {
				m.lastChange[label] = now
			}
		}
		for label, prev := range m.counts {
			if prev != 0 && msg.counts[label] == 0 {
				m.lastChange[label] = now
			}
		}
		m.session = msg.session
		m.counts = msg.counts
		m.fetched = true
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return sessionPollMsg{} })

	case sessionPollMsg:
		return m, m.fetch

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil
	}
	return m, nil
}

func (m SessionModel) View() string {
	if !m.ready || !m.fetched {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  gridctl session watch  " + m.sessionID)
	header := lipgloss.JoinHorizontal(lipgloss.Top, m.renderHeader(), m.renderSummary())
	help := helpBarStyle.Width(m.width).Render("esc/q quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, header, m.renderCounts(), help)
}

func (m SessionModel) renderHeader() string {
	statusStyle := ongoingStyle
	if m.session.Status != api.SessionStatusRunning {
		statusStyle = durationCellStyle
	}
	var sb strings.Builder
	sb.WriteString(labelStyle.Render("Session ID") + "  " + m.session.ID + "\n")
	sb.WriteString(labelStyle.Render("Created at") + "  " + m.session.CreatedAt.Local().Format("2006-01-02 15:04:05") + "\n")
	sb.WriteString(labelStyle.Render("Status") + "      " + statusStyle.Render(m.session.Status.String()))
	return panelStyle.Render(sb.String())
}

func (m SessionModel) renderSummary() string {
	total := 0
	for _, c := range m.counts {
		total += c
	}
	text := fmt.Sprintf("Completed: %d/%d", m.counts["COMPLETED"], total)
	return panelStyle.Render(panelTitleStyle.Render(text))
}

// renderCounts draws one panel per task status, every status every frame so
// the grid never jumps around as counts appear.
func (m SessionModel) renderCounts() string {
	total := 0
	for _, c := range m.counts {
		total += c
	}

	labels := api.TaskStatusLabels()
	// Counts for labels this client's enumeration does not know yet.
	var extra []string
	known := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		known[l] = struct{}{}
	}
	for label := range m.counts {
		if _, ok := known[label]; !ok {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	labels = append(labels, extra...)

	now := time.Now()
	var rows []string
	var row []string
	for _, label := range labels {
		row = append(row, m.renderCountPanel(label, total, now))
		if len(row) == countColumns {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m SessionModel) renderCountPanel(label string, total int, now time.Time) string {
	count := m.counts[label]
	percentage := 0.0
	if total > 0 {
		percentage = float64(count) / float64(total) * 100
	}

	color, ok := statusColors[label]
	if !ok {
		color = lipgloss.Color("255")
	}
	style := panelStyle
	if changed, ok := m.lastChange[label]; ok && now.Sub(changed) < flashWindow {
		style = flashPanelStyle
	}

	body := lipgloss.NewStyle().Foreground(color).Bold(true).Render(label) +
		fmt.Sprintf("\nCount: %d\n%.2f%%", count, percentage)
	return style.BorderForeground(color).Render(body)
}

// RunSession drives the session dashboard until the user exits or a poll
// fails.
func RunSession(client *api.Client, sessionID string, interval time.Duration) error {
	p := tea.NewProgram(NewSession(client, sessionID, interval), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(SessionModel); ok && m.Err() != nil {
		return fmt.Errorf("session watch ended: %w", m.Err())
	}
	return nil
}
