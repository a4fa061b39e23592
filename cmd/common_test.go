package cmd

import (
	"context"
	"errors"
	"testing"
	"time"
)

// pagedList fakes a paginated endpoint over a fixed item set.
func pagedList(items []string) func(ctx context.Context, page, pageSize int) (int, []string, error) {
	return func(_ context.Context, page, pageSize int) (int, []string, error) {
		start := page * pageSize
		if start > len(items) {
			return len(items), nil, nil
		}
		end := start + pageSize
		if end > len(items) {
			end = len(items)
		}
		return len(items), items[start:end], nil
	}
}

func TestListAllPagesFetchesEverything(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	got, err := listAllPages(context.Background(), -1, 2, pagedList(items))
	if err != nil {
		t.Fatalf("listAllPages: %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("got %d items, want %d", len(got), len(items))
	}
	for i, want := range items {
		if got[i] != want {
			t.Errorf("item %d = %q, want %q", i, got[i], want)
		}
	}
}

func TestListAllPagesSinglePage(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	got, err := listAllPages(context.Background(), 1, 2, pagedList(items))
	if err != nil {
		t.Fatalf("listAllPages: %v", err)
	}
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Errorf("page 1 = %v, want [c d]", got)
	}
}

func TestListAllPagesEmpty(t *testing.T) {
	got, err := listAllPages(context.Background(), -1, 10, pagedList(nil))
	if err != nil {
		t.Fatalf("listAllPages: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want nothing", got)
	}
}

func TestListAllPagesStopsOnError(t *testing.T) {
	listErr := errors.New("boom")
	calls := 0
	_, err := listAllPages(context.Background(), -1, 2,
		func(context.Context, int, int) (int, []string, error) {
			calls++
			if calls == 2 {
				return 0, nil, listErr
			}
			return 10, []string{"a", "b"}, nil
		})
	if !errors.Is(err, listErr) {
		t.Fatalf("error = %v, want %v", err, listErr)
	}
	if calls != 2 {
		t.Errorf("list called %d times, want 2", calls)
	}
}

// A server whose reported total never reconciles with what it returns (items
// deleted between pages, say) must not keep the walk spinning.
func TestListAllPagesStopsOnEmptyPage(t *testing.T) {
	calls := 0
	got, err := listAllPages(context.Background(), -1, 2,
		func(context.Context, int, int) (int, []string, error) {
			calls++
			if calls == 1 {
				return 10, []string{"a", "b"}, nil
			}
			return 10, nil, nil
		})
	if err != nil {
		t.Fatalf("listAllPages: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d items, want 2", len(got))
	}
	if calls != 2 {
		t.Errorf("list called %d times, want 2", calls)
	}
}

func TestFmtTime(t *testing.T) {
	if got := fmtTime(time.Time{}); got != "-" {
		t.Errorf("fmtTime(zero) = %q, want -", got)
	}
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	if got := fmtTime(ts); got != "2026-03-14 09:26:53" {
		t.Errorf("fmtTime = %q", got)
	}
	if got := fmtTimePtr(nil); got != "-" {
		t.Errorf("fmtTimePtr(nil) = %q, want -", got)
	}
	if got := fmtTimePtr(&ts); got != "2026-03-14 09:26:53" {
		t.Errorf("fmtTimePtr = %q", got)
	}
}
