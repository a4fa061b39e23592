package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polyxo/gridctl/internal/api"
)

// EntityOps is the capability set a Group needs for one watchable entity
// kind. Two concrete variants exist: TaskOps and ResultOps.
type EntityOps[E any] interface {
	// Labels enumerates the entity kind's status labels.
	Labels() []string

	// ID, SessionOf and StatusLabel read the corresponding fields of an
	// entity record.
	ID(e E) string
	SessionOf(e E) string
	StatusLabel(e E) string

	// Get fetches the latest representation of an entity.
	// List returns one page of entities plus the total match count.
	Get(ctx context.Context, id string) (E, error)
	List(ctx context.Context, q api.ListQuery) (int, []E, error)

	// Subscribe opens the filtered event stream listeners consume.
	Subscribe(ctx context.Context, sessionID string, types []api.EventType, filter string) (api.EventStream, error)

	// StatusEvents and CreatedEvents are the event types carrying status
	// transitions and entity creations for this kind. EventEntityID and
	// EventStatusLabel read the matching payload fields.
	StatusEvents() []api.EventType
	CreatedEvents() []api.EventType
	EventEntityID(ev api.Event) string
	EventStatusLabel(ev api.Event) string

	// RefreshOnStatus reports whether a status event should also trigger a
	// full metadata refresh round trip.
	RefreshOnStatus() bool
}

// Watch tracks the cached data and status history of one remote entity.
// Listener goroutines mutate it while the render loop reads it; all field
// access goes through the watch's mutex and readers take Snapshot copies.
type Watch[E any] struct {
	id  string
	ops EntityOps[E]

	mu      sync.Mutex
	data    E
	hasData bool
	tracker *Tracker
}

// NewWatch creates a watch for the entity with the given id. Data stays
// absent until the first SetData or Refresh.
func NewWatch[E any](ops EntityOps[E], id string) *Watch[E] {
	return &Watch[E]{
		id:      id,
		ops:     ops,
		tracker: NewTracker(ops.Labels()),
	}
}

// ID returns the watched entity's id. Immutable after construction.
func (w *Watch[E]) ID() string { return w.id }

// SetData replaces the cached entity record and records the status it
// reports. Bulk population uses this to seed watches without a round trip.
func (w *Watch[E]) SetData(e E) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = e
	w.hasData = true
	w.tracker.SetCurrent(w.ops.StatusLabel(e), time.Now())
}

// SetStatus records a status transition pushed by an event, without touching
// the cached data.
func (w *Watch[E]) SetStatus(label string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracker.SetCurrent(label, at)
}

// Refresh fetches the latest representation of the entity and records its
// status. Remote failures propagate to the caller.
func (w *Watch[E]) Refresh(ctx context.Context) error {
	e, err := w.ops.Get(ctx, w.id)
	if err != nil {
		return fmt.Errorf("refreshing %s: %w", w.id, err)
	}
	w.SetData(e)
	return nil
}

// Status returns the current status label, or "" before the first update.
func (w *Watch[E]) Status() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tracker.Current()
}

// SessionID returns the session id of the cached data, or "" while data is
// absent.
func (w *Watch[E]) SessionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasData {
		return ""
	}
	return w.ops.SessionOf(w.data)
}

// Snapshot is an immutable view of a watch, safe to render while listeners
// keep mutating the watch.
type Snapshot[E any] struct {
	ID       string
	Data     E
	HasData  bool
	Status   string
	Timeline []Interval
}

// Snapshot copies the watch state under its lock.
func (w *Watch[E]) Snapshot() Snapshot[E] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot[E]{
		ID:       w.id,
		Data:     w.data,
		HasData:  w.hasData,
		Status:   w.tracker.Current(),
		Timeline: w.tracker.Timeline(),
	}
}
