package cmd

import (
	"context"
	"fmt"
	"os"
	"time"
)

// listAllPages drives a paginated list call: a non-negative page fetches just
// that page, -1 keeps fetching until the reported total is reached.
func listAllPages[T any](ctx context.Context, page, pageSize int, list func(ctx context.Context, page, pageSize int) (int, []T, error)) ([]T, error) {
	curr := 0
	if page > 0 {
		curr = page
	}
	var out []T
	for {
		total, items, err := list(ctx, curr, pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		// An empty page ends the walk even when the reported total says
		// otherwise; entities deleted mid-walk must not loop us forever.
		if page >= 0 || len(items) == 0 || len(out) >= total {
			return out, nil
		}
		curr++
	}
}

// closeGroup shuts a watch group's listeners down with a bounded wait,
// reporting stragglers instead of hanging the exit path.
func closeGroup(close func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return fmtTime(*t)
}
