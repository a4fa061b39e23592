// Package watch tracks the status-transition history of remote cluster
// entities and keeps it updated from server-pushed events.
package watch

import (
	"sort"
	"time"
)

// Interval is one contiguous period an entity held a given status. A zero End
// means the interval is still open.
type Interval struct {
	Label string
	Start time.Time
	End   time.Time
}

// Open reports whether the interval has not been closed yet.
func (iv Interval) Open() bool { return iv.End.IsZero() }

// Duration is the length of the interval, measured against now while open.
func (iv Interval) Duration(now time.Time) time.Duration {
	if iv.Open() {
		return now.Sub(iv.Start)
	}
	return iv.End.Sub(iv.Start)
}

// Tracker is a per-entity append-only log of status intervals, one sequence
// per status label. It is a plain data structure; callers serialize access
// (Watch holds the lock).
type Tracker struct {
	labels    []string
	intervals map[string][]Interval
	current   string
}

// NewTracker creates a tracker with one empty interval sequence per label of
// the entity's status enumeration.
func NewTracker(labels []string) *Tracker {
	t := &Tracker{
		labels:    make([]string, len(labels)),
		intervals: make(map[string][]Interval, len(labels)),
	}
	copy(t.labels, labels)
	for _, l := range labels {
		t.intervals[l] = nil
	}
	return t
}

// Current returns the most recently recorded status label, or "" before the
// first SetCurrent call.
func (t *Tracker) Current() string { return t.current }

// SetCurrent records a status transition observed at the given time.
//
// Setting the already-current label again is a no-op once an interval for it
// exists, so redelivered events leave the tracker unchanged. Otherwise a new
// open interval is appended for the label and the open interval of every
// other label is closed at the same instant, preserving the invariant that at
// most one interval is open across the whole tracker.
func (t *Tracker) SetCurrent(label string, at time.Time) {
	if t.current == label && len(t.intervals[label]) > 0 {
		return
	}
	if _, known := t.intervals[label]; !known {
		// Status values newer than this client's enumeration still get
		// tracked rather than dropped.
		t.labels = append(t.labels, label)
	}
	t.current = label
	t.intervals[label] = append(t.intervals[label], Interval{Label: label, Start: at})

	for _, other := range t.labels {
		if other == label {
			continue
		}
		seq := t.intervals[other]
		if n := len(seq); n > 0 && seq[n-1].Open() {
			seq[n-1].End = at
		}
	}
}

// Intervals returns a copy of the recorded intervals for one label.
func (t *Tracker) Intervals(label string) []Interval {
	seq := t.intervals[label]
	out := make([]Interval, len(seq))
	copy(out, seq)
	return out
}

// Timeline returns a copy of every recorded interval, chronologically sorted
// by start time.
func (t *Tracker) Timeline() []Interval {
	var out []Interval
	for _, label := range t.labels {
		out = append(out, t.intervals[label]...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
