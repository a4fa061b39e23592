package watch_test

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/polyxo/gridctl/internal/watch"
)

var testLabels = []string{"CREATING", "PROCESSING", "COMPLETED"}

func at(sec int) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}

func TestTrackerStartsEmpty(t *testing.T) {
	tr := watch.NewTracker(testLabels)
	if got := tr.Current(); got != "" {
		t.Errorf("Current on fresh tracker = %q, want empty", got)
	}
	for _, label := range testLabels {
		if seq := tr.Intervals(label); len(seq) != 0 {
			t.Errorf("Intervals(%q) on fresh tracker has %d entries, want 0", label, len(seq))
		}
	}
}

func TestTrackerFirstTransitionOpensInterval(t *testing.T) {
	tr := watch.NewTracker(testLabels)
	tr.SetCurrent("CREATING", at(0))

	if got := tr.Current(); got != "CREATING" {
		t.Fatalf("Current = %q, want CREATING", got)
	}
	seq := tr.Intervals("CREATING")
	if len(seq) != 1 {
		t.Fatalf("CREATING has %d intervals, want 1", len(seq))
	}
	if !seq[0].Start.Equal(at(0)) {
		t.Errorf("Start = %v, want %v", seq[0].Start, at(0))
	}
	if !seq[0].Open() {
		t.Errorf("first interval should be open, got End = %v", seq[0].End)
	}
}

// Setting the already-current status again must not append a new interval, so
// redelivered events leave the tracker unchanged.
func TestTrackerIdempotentStatusSet(t *testing.T) {
	tr := watch.NewTracker(testLabels)
	tr.SetCurrent("CREATING", at(0))
	tr.SetCurrent("CREATING", at(3))
	tr.SetCurrent("CREATING", at(7))

	seq := tr.Intervals("CREATING")
	if len(seq) != 1 {
		t.Fatalf("CREATING has %d intervals after duplicate sets, want 1", len(seq))
	}
	if !seq[0].Start.Equal(at(0)) {
		t.Errorf("Start moved to %v, want %v", seq[0].Start, at(0))
	}
	if !seq[0].Open() {
		t.Errorf("interval closed by duplicate set: End = %v", seq[0].End)
	}
}

// A full lifecycle: CREATING at t=0, PROCESSING at t=5, COMPLETED at t=12.
func TestTrackerTransitionTimeline(t *testing.T) {
	tr := watch.NewTracker(testLabels)
	tr.SetCurrent("CREATING", at(0))
	tr.SetCurrent("PROCESSING", at(5))
	tr.SetCurrent("COMPLETED", at(12))

	checks := []struct {
		label      string
		start, end int
		open       bool
	}{
		{"CREATING", 0, 5, false},
		{"PROCESSING", 5, 12, false},
		{"COMPLETED", 12, 0, true},
	}
	for _, c := range checks {
		seq := tr.Intervals(c.label)
		if len(seq) != 1 {
			t.Fatalf("%s has %d intervals, want 1", c.label, len(seq))
		}
		iv := seq[0]
		if !iv.Start.Equal(at(c.start)) {
			t.Errorf("%s start = %v, want %v", c.label, iv.Start, at(c.start))
		}
		if c.open {
			if !iv.Open() {
				t.Errorf("%s should still be open, got End = %v", c.label, iv.End)
			}
		} else if !iv.End.Equal(at(c.end)) {
			t.Errorf("%s end = %v, want %v", c.label, iv.End, at(c.end))
		}
	}

	if got := tr.Current(); got != "COMPLETED" {
		t.Errorf("Current = %q, want COMPLETED", got)
	}
}

func TestTrackerRevisitedStatusAppendsInterval(t *testing.T) {
	tr := watch.NewTracker(testLabels)
	tr.SetCurrent("CREATING", at(0))
	tr.SetCurrent("PROCESSING", at(5))
	tr.SetCurrent("CREATING", at(9)) // retried task goes back

	seq := tr.Intervals("CREATING")
	if len(seq) != 2 {
		t.Fatalf("CREATING has %d intervals after revisit, want 2", len(seq))
	}
	if !seq[0].End.Equal(at(5)) {
		t.Errorf("first CREATING interval end = %v, want %v", seq[0].End, at(5))
	}
	if !seq[1].Open() {
		t.Errorf("revisited CREATING interval should be open")
	}
}

func TestTrackerUnknownLabelIsTracked(t *testing.T) {
	tr := watch.NewTracker(testLabels)
	tr.SetCurrent("QUARANTINED", at(1))
	if got := tr.Current(); got != "QUARANTINED" {
		t.Errorf("Current = %q, want QUARANTINED", got)
	}
	if seq := tr.Intervals("QUARANTINED"); len(seq) != 1 {
		t.Errorf("unknown label has %d intervals, want 1", len(seq))
	}
}

func TestTrackerTimelineSortedByStart(t *testing.T) {
	tr := watch.NewTracker(testLabels)
	tr.SetCurrent("CREATING", at(0))
	tr.SetCurrent("PROCESSING", at(5))
	tr.SetCurrent("CREATING", at(9))
	tr.SetCurrent("COMPLETED", at(20))

	timeline := tr.Timeline()
	if len(timeline) != 4 {
		t.Fatalf("timeline has %d intervals, want 4", len(timeline))
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].Start.Before(timeline[i-1].Start) {
			t.Errorf("timeline out of order at %d: %v before %v", i, timeline[i].Start, timeline[i-1].Start)
		}
	}
}

// Property: after any sequence of transitions with non-decreasing timestamps,
// at most one interval is open across all labels, closed intervals never end
// before they start, and the open interval (if any) belongs to the current
// status.
func TestTrackerSingleOpenIntervalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := watch.NewTracker(testLabels)
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		clock := 0
		for i := 0; i < steps; i++ {
			label := rapid.SampledFrom(testLabels).Draw(t, "label")
			clock += rapid.IntRange(0, 10).Draw(t, "advance")
			tr.SetCurrent(label, at(clock))
		}

		open := 0
		for _, label := range testLabels {
			seq := tr.Intervals(label)
			for j, iv := range seq {
				if iv.Open() {
					open++
					if j != len(seq)-1 {
						t.Fatalf("%s interval %d is open but not last", label, j)
					}
					if label != tr.Current() {
						t.Fatalf("open interval belongs to %s, current is %s", label, tr.Current())
					}
				} else if iv.End.Before(iv.Start) {
					t.Fatalf("%s interval %d ends %v before start %v", label, j, iv.End, iv.Start)
				}
			}
		}
		if open > 1 {
			t.Fatalf("%d open intervals, want at most 1", open)
		}
	})
}
