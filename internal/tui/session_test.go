package tui_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/polyxo/gridctl/internal/api"
	"github.com/polyxo/gridctl/internal/tui"
)

// sessionServer fakes the two endpoints the session dashboard polls, with
// counts adjustable between polls.
type sessionServer struct {
	mu     sync.Mutex
	counts map[string]int
}

func (s *sessionServer) setCounts(counts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = counts
}

func (s *sessionServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/sessions/sess-a":
			json.NewEncoder(w).Encode(api.Session{
				ID:        "sess-a",
				Status:    api.SessionStatusRunning,
				CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			})
		case "/api/v1/sessions/sess-a/task-counts":
			s.mu.Lock()
			counts := s.counts
			s.mu.Unlock()
			json.NewEncoder(w).Encode(counts)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}
}

func newSessionModel(t *testing.T, srv *sessionServer) tui.SessionModel {
	t.Helper()
	server := httptest.NewServer(srv.handler(t))
	t.Cleanup(server.Close)
	m := tui.NewSession(api.NewClient(server.URL), "sess-a", time.Minute)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(tui.SessionModel)
}

// pollOnce runs one fetch cycle synchronously: the fetch command, then the
// resulting message through Update.
func pollOnce(t *testing.T, m tui.SessionModel) (tui.SessionModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(m.Init()())
	return next.(tui.SessionModel), cmd
}

func TestSessionDashboardRendersCounts(t *testing.T) {
	srv := &sessionServer{counts: map[string]int{"PROCESSING": 4, "COMPLETED": 16}}
	m := newSessionModel(t, srv)

	if got := m.View(); got != "Loading…" {
		t.Errorf("View before first poll = %q", got)
	}

	m, cmd := pollOnce(t, m)
	if cmd == nil {
		t.Error("no follow-up poll scheduled")
	}

	view := m.View()
	for _, want := range []string{
		"gridctl session watch", "sess-a", "RUNNING",
		"Completed: 16/20", "PROCESSING", "Count: 4", "20.00%", "80.00%",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestSessionDashboardFlashesChangedCounts(t *testing.T) {
	srv := &sessionServer{counts: map[string]int{}}
	m := newSessionModel(t, srv)

	m, _ = pollOnce(t, m)
	if strings.Contains(m.View(), "┏") {
		t.Fatal("a panel flashes although nothing changed")
	}

	srv.setCounts(map[string]int{"PROCESSING": 2})
	m, _ = pollOnce(t, m)
	view := m.View()
	if !strings.Contains(view, "Count: 2") {
		t.Error("View missing the updated count")
	}
	if !strings.Contains(view, "┏") {
		t.Error("changed count did not flash")
	}
}

func TestSessionDashboardQuitKeys(t *testing.T) {
	srv := &sessionServer{counts: map[string]int{}}
	m := newSessionModel(t, srv)

	for _, msg := range []tea.KeyMsg{key("q"), key("esc"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("key %q produced no command", msg.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q did not quit", msg.String())
		}
	}
}

func TestSessionDashboardPollFailureQuits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(http.NotFound))
	t.Cleanup(server.Close)
	m := tui.NewSession(api.NewClient(server.URL), "ghost", time.Minute)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(tui.SessionModel)

	m, cmd := pollOnce(t, m)
	if cmd == nil {
		t.Fatal("poll failure produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("poll failure did not quit the dashboard")
	}
	if !errors.Is(m.Err(), api.ErrNotFound) {
		t.Errorf("Err = %v, want wrapped ErrNotFound", m.Err())
	}
}
