package tui_test

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"pgregory.net/rapid"

	"github.com/polyxo/gridctl/internal/api"
	"github.com/polyxo/gridctl/internal/tui"
	"github.com/polyxo/gridctl/internal/watch"
)

// stubOps serves a fixed task set and event streams that stay silent until
// cancelled, enough to drive the model without a cluster.
type stubOps struct {
	tasks map[string]api.Task
}

type stubStream struct{ ctx context.Context }

func (s stubStream) Recv() (api.Event, error) {
	<-s.ctx.Done()
	return api.Event{}, s.ctx.Err()
}

func (s stubStream) Close() error { return nil }

func (o stubOps) Labels() []string { return api.TaskStatusLabels() }

func (o stubOps) ID(t api.Task) string          { return t.ID }
func (o stubOps) SessionOf(t api.Task) string   { return t.SessionID }
func (o stubOps) StatusLabel(t api.Task) string { return t.Status.String() }

func (o stubOps) Get(_ context.Context, id string) (api.Task, error) {
	t, ok := o.tasks[id]
	if !ok {
		return api.Task{}, api.ErrNotFound
	}
	return t, nil
}

func (o stubOps) List(context.Context, api.ListQuery) (int, []api.Task, error) {
	return 0, nil, nil
}

func (o stubOps) Subscribe(ctx context.Context, _ string, _ []api.EventType, _ string) (api.EventStream, error) {
	return stubStream{ctx: ctx}, nil
}

func (o stubOps) StatusEvents() []api.EventType  { return []api.EventType{api.EventTaskStatusUpdate} }
func (o stubOps) CreatedEvents() []api.EventType { return []api.EventType{api.EventNewTask} }

func (o stubOps) EventEntityID(ev api.Event) string    { return ev.TaskID }
func (o stubOps) EventStatusLabel(ev api.Event) string { return ev.TaskStatus.String() }

func (o stubOps) RefreshOnStatus() bool { return false }

// Long ids so only the selected tab's metadata panel contains one in full; the
// tab strip truncates them.
var testIDs = []string{"alpha-task-0001", "bravo-task-0002", "charlie-task-0003"}

func newTestModel(t *testing.T, ids []string) tui.Model[api.Task] {
	t.Helper()
	ops := stubOps{tasks: make(map[string]api.Task)}
	for _, id := range ids {
		ops.tasks[id] = api.Task{ID: id, SessionID: "sess-a", Status: api.TaskStatusProcessing}
	}
	cfg := watch.Config{EntityIDs: ids}
	if len(ids) == 0 {
		cfg.SessionID = "sess-a"
		cfg.Filter = "status=running"
	}
	g, err := watch.NewGroup[api.Task](context.Background(), ops, cfg)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		g.Close(ctx)
	})

	m := tui.New(g, "tasks", func(task api.Task) [][2]string {
		return [][2]string{{"Session ID", task.SessionID}}
	})
	return resize(t, m, 120, 40)
}

func resize(t *testing.T, m tui.Model[api.Task], w, h int) tui.Model[api.Task] {
	t.Helper()
	return apply(t, m, tea.WindowSizeMsg{Width: w, Height: h})
}

func key(k string) tea.KeyMsg {
	switch k {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func apply(t *testing.T, m tui.Model[api.Task], msg tea.Msg) tui.Model[api.Task] {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(tui.Model[api.Task])
	if !ok {
		t.Fatalf("Update returned %T, want tui.Model", next)
	}
	return out
}

// selectedID reports which watch the metadata panel currently shows.
func selectedID(t *testing.T, m tui.Model[api.Task], ids []string) string {
	t.Helper()
	view := m.View()
	var found string
	for _, id := range ids {
		if strings.Contains(view, id) {
			if found != "" {
				t.Fatalf("view shows both %s and %s", found, id)
			}
			found = id
		}
	}
	if found == "" {
		t.Fatal("view shows no watch id")
	}
	return found
}

func TestModelShowsFirstWatchInitially(t *testing.T) {
	m := newTestModel(t, testIDs)
	if got := selectedID(t, m, testIDs); got != testIDs[0] {
		t.Errorf("initial selection = %s, want %s", got, testIDs[0])
	}
}

func TestModelNavigationMovesSelection(t *testing.T) {
	m := newTestModel(t, testIDs)

	m = apply(t, m, key("right"))
	if got := selectedID(t, m, testIDs); got != testIDs[1] {
		t.Errorf("after right: selection = %s, want %s", got, testIDs[1])
	}
	m = apply(t, m, key("l"))
	if got := selectedID(t, m, testIDs); got != testIDs[2] {
		t.Errorf("after l: selection = %s, want %s", got, testIDs[2])
	}
	m = apply(t, m, key("h"))
	if got := selectedID(t, m, testIDs); got != testIDs[1] {
		t.Errorf("after h: selection = %s, want %s", got, testIDs[1])
	}
}

func TestModelNavigationWrapsAround(t *testing.T) {
	m := newTestModel(t, testIDs)

	// Left from the first tab lands on the last.
	m = apply(t, m, key("left"))
	if got := selectedID(t, m, testIDs); got != testIDs[2] {
		t.Errorf("after left from first: selection = %s, want %s", got, testIDs[2])
	}
	// Right from the last wraps back to the first.
	m = apply(t, m, key("right"))
	if got := selectedID(t, m, testIDs); got != testIDs[0] {
		t.Errorf("after right from last: selection = %s, want %s", got, testIDs[0])
	}
}

// Property: any sequence of navigation keys keeps the selection valid, and a
// full cycle of N same-direction presses over N tabs returns to the start.
func TestModelNavigationCycleProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := newTestModel(t, testIDs)
		dir := rapid.SampledFrom([]string{"left", "right"}).Draw(rt, "dir")
		offset := rapid.IntRange(0, 7).Draw(rt, "offset")

		for i := 0; i < offset; i++ {
			m = apply(t, m, key(dir))
		}
		start := selectedID(t, m, testIDs)
		for i := 0; i < len(testIDs); i++ {
			m = apply(t, m, key(dir))
		}
		if got := selectedID(t, m, testIDs); got != start {
			rt.Fatalf("full %s cycle moved selection from %s to %s", dir, start, got)
		}
	})
}

func TestModelNavigationOnEmptyGroup(t *testing.T) {
	m := newTestModel(t, nil)

	// Must not panic or divide by zero.
	m = apply(t, m, key("right"))
	m = apply(t, m, key("left"))

	if view := m.View(); !strings.Contains(view, "no watches") {
		t.Errorf("empty group view missing placeholder:\n%s", view)
	}
}

func TestModelQuitKeys(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		m := newTestModel(t, testIDs)
		_, cmd := m.Update(key(k))
		if cmd == nil {
			t.Fatalf("key %q returned no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q did not quit", k)
		}
	}
}
