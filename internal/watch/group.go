package watch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/polyxo/gridctl/internal/api"
)

// errorBuffer bounds the group error channel. The render loop drains it once
// per frame; one pending error is enough to trigger shutdown.
const errorBuffer = 16

// ErrNotInteractive is returned when session-id resolution would need to
// prompt but no prompt capability was supplied.
var ErrNotInteractive = errors.New("no session id could be determined and the terminal is not interactive")

// ConfigError is a fatal misconfiguration detected before any listener
// starts.
type ConfigError struct{ Reason string }

func (e *ConfigError) Error() string { return "watch configuration error: " + e.Reason }

// Config selects which entities a group watches.
//
// Exactly one of EntityIDs and Filter should be set; the command layer
// enforces the mutual exclusion before construction. Prompt is consulted only
// when population finds nothing and no session id is known, always before
// listeners start.
type Config struct {
	SessionID     string
	Filter        string
	EntityIDs     []string
	Limit         int
	SortBy        string
	SortDirection api.SortDirection
	Prompt        func(message string) (string, error)
}

// Group owns the watches for a set of entities sharing one session, keeps
// them updated from background event listeners, and hands ordered snapshots
// to the display layer.
type Group[E any] struct {
	ops EntityOps[E]
	cfg Config

	mu      sync.Mutex
	watches map[string]*Watch[E]
	order   []string

	sessionID string
	errs      chan error
	listeners []*Listener

	// listenCtx scopes the listeners and every round trip their handlers
	// make; Close cancels it so no refresh outlives the group.
	listenCtx context.Context
	cancelAll context.CancelFunc
}

// NewGroup populates a watch group and starts its event listeners. All
// population round trips happen synchronously here; once NewGroup returns the
// caller only ever reads snapshots. Population and session-resolution errors
// are fatal and no listener is left running.
func NewGroup[E any](ctx context.Context, ops EntityOps[E], cfg Config) (*Group[E], error) {
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}
	g := &Group[E]{
		ops:     ops,
		cfg:     cfg,
		watches: make(map[string]*Watch[E]),
		errs:    make(chan error, errorBuffer),
	}

	if err := g.populate(ctx); err != nil {
		return nil, err
	}
	if err := g.resolveSession(); err != nil {
		return nil, err
	}
	g.startListeners(ctx)
	return g, nil
}

// populate fills the watch map, either from explicit ids (one refresh round
// trip each, sequential) or from a single filtered list page of at most Limit
// entities.
func (g *Group[E]) populate(ctx context.Context) error {
	if len(g.cfg.EntityIDs) > 0 {
		for _, id := range g.cfg.EntityIDs {
			w := NewWatch(g.ops, id)
			if err := w.Refresh(ctx); err != nil {
				// An unknown explicit id is a user mistake; surface it
				// before the dashboard starts rather than watching a ghost.
				return fmt.Errorf("populating watch for %q: %w", id, err)
			}
			g.insert(w)
		}
		return nil
	}

	total, entities, err := g.ops.List(ctx, api.ListQuery{
		Filter:        g.cfg.Filter,
		SessionID:     g.cfg.SessionID,
		Page:          0,
		PageSize:      g.cfg.Limit,
		SortBy:        g.cfg.SortBy,
		SortDirection: g.cfg.SortDirection,
	})
	if err != nil {
		return fmt.Errorf("listing entities to watch: %w", err)
	}

	if total == 0 && g.cfg.SessionID == "" {
		id, err := g.prompt("Nothing matches your filter yet. Enter a session id to watch; matching entities will be added as they appear")
		if err != nil {
			return err
		}
		g.cfg.SessionID = id
	}

	for _, e := range entities {
		w := NewWatch(g.ops, g.ops.ID(e))
		w.SetData(e)
		g.insert(w)
	}
	return nil
}

// resolveSession pins down the single session id the listeners subscribe to:
// the explicit one when given, otherwise the unique id among populated
// watches. Watches spanning several sessions are a fatal configuration error.
func (g *Group[E]) resolveSession() error {
	if g.cfg.SessionID != "" {
		g.sessionID = g.cfg.SessionID
		return nil
	}

	seen := make(map[string]struct{})
	g.mu.Lock()
	for _, w := range g.watches {
		if id := w.SessionID(); id != "" {
			seen[id] = struct{}{}
		}
	}
	g.mu.Unlock()

	switch len(seen) {
	case 0:
		id, err := g.prompt("No session id could be derived from the watched entities. Enter one")
		if err != nil {
			return err
		}
		g.sessionID = id
		return nil
	case 1:
		for id := range seen {
			g.sessionID = id
		}
		return nil
	default:
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return &ConfigError{Reason: fmt.Sprintf(
			"watched entities span multiple sessions (%s); add a session id constraint or pass --session-id",
			strings.Join(ids, ", "))}
	}
}

func (g *Group[E]) prompt(message string) (string, error) {
	if g.cfg.Prompt == nil {
		return "", ErrNotInteractive
	}
	id, err := g.cfg.Prompt(message)
	if err != nil {
		return "", fmt.Errorf("reading session id: %w", err)
	}
	if id == "" {
		return "", &ConfigError{Reason: "empty session id"}
	}
	return id, nil
}

// startListeners wires the background listeners: one for status updates, one
// more for metadata refresh when the entity kind wants it, and an autofill
// listener when watching by filter.
func (g *Group[E]) startListeners(ctx context.Context) {
	g.listenCtx, g.cancelAll = context.WithCancel(context.WithoutCancel(ctx))
	ctx = g.listenCtx

	g.listeners = append(g.listeners, NewListener(
		g.ops.Subscribe, g.sessionID, g.ops.StatusEvents(), "",
		[]Handler{g.updateWatchStatus}, g.errs,
	))
	if g.ops.RefreshOnStatus() {
		// Separate listener so a slow refresh round trip never delays the
		// cheap status bookkeeping.
		g.listeners = append(g.listeners, NewListener(
			g.ops.Subscribe, g.sessionID, g.ops.StatusEvents(), "",
			[]Handler{g.refreshWatchData}, g.errs,
		))
	}
	if g.cfg.Filter != "" && len(g.cfg.EntityIDs) == 0 {
		g.listeners = append(g.listeners, NewListener(
			g.ops.Subscribe, g.sessionID, g.ops.CreatedEvents(), g.cfg.Filter,
			[]Handler{g.autofill}, g.errs,
		))
	}

	for _, l := range g.listeners {
		l.Start(ctx)
	}
}

// updateWatchStatus records a pushed status transition on the matching watch.
// Events for ids outside the group are expected (the entity may be beyond the
// watch limit) and ignored.
func (g *Group[E]) updateWatchStatus(_ string, ev api.Event) (bool, error) {
	if w, ok := g.lookup(g.ops.EventEntityID(ev)); ok {
		w.SetStatus(g.ops.EventStatusLabel(ev), time.Now())
	}
	return false, nil
}

// refreshWatchData re-fetches an entity's metadata when its status changes so
// the dashboard's metadata panel stays current.
func (g *Group[E]) refreshWatchData(_ string, ev api.Event) (bool, error) {
	w, ok := g.lookup(g.ops.EventEntityID(ev))
	if !ok {
		return false, nil
	}
	ctx, cancel := api.WithTimeout(g.listenCtx)
	defer cancel()
	if err := w.Refresh(ctx); err != nil {
		// Drop the event; the next status change retries the fetch.
		return false, err
	}
	return false, nil
}

// autofill adds a newly created matching entity while the group is below its
// limit, so a filter-driven dashboard grows to fill up as work appears.
func (g *Group[E]) autofill(_ string, ev api.Event) (bool, error) {
	id := g.ops.EventEntityID(ev)

	g.mu.Lock()
	_, exists := g.watches[id]
	full := len(g.watches) >= g.cfg.Limit
	g.mu.Unlock()
	if exists || full {
		return false, nil
	}

	// Refresh before insertion: readers must never see a watch without data
	// that a listing or refresh would have given it.
	w := NewWatch(g.ops, id)
	ctx, cancel := api.WithTimeout(g.listenCtx)
	defer cancel()
	if err := w.Refresh(ctx); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.watches[id]; exists || len(g.watches) >= g.cfg.Limit {
		return false, nil
	}
	g.watches[id] = w
	g.order = append(g.order, id)
	return false, nil
}

func (g *Group[E]) insert(w *Watch[E]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.watches[w.ID()]; exists {
		return
	}
	g.watches[w.ID()] = w
	g.order = append(g.order, w.ID())
}

func (g *Group[E]) lookup(id string) (*Watch[E], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := g.watches[id]
	return w, ok
}

// SessionID returns the resolved session id. Never empty after NewGroup.
func (g *Group[E]) SessionID() string { return g.sessionID }

// WatchesView returns the current watches in insertion order. The slice is a
// snapshot; the watches themselves stay live and callers read them through
// Watch.Snapshot.
func (g *Group[E]) WatchesView() []*Watch[E] {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Watch[E], 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.watches[id])
	}
	return out
}

// Errors exposes listener failures. The render loop polls it every frame and
// shuts down on the first error.
func (g *Group[E]) Errors() <-chan error { return g.errs }

// Close cancels all listeners and waits for them to stop, bounded by ctx.
func (g *Group[E]) Close(ctx context.Context) error {
	if g.cancelAll != nil {
		g.cancelAll()
	}
	var firstErr error
	for _, l := range g.listeners {
		if err := l.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
