package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"StockNotifier/internal/model"
)

// Fetcher retrieves the daily close history of one ticker.
type Fetcher interface {
	FetchCloses(ctx context.Context, symbol string) (*model.Series, error)
	Name() string
}

// DefaultRange is the lookback requested when none is configured.
const DefaultRange = "2y"

// lookbackStart converts a range such as "2y", "6mo", "3mo" or "5d" into the
// start of the window ending at now.
func lookbackStart(now time.Time, rng string) (time.Time, error) {
	rng = strings.ToLower(strings.TrimSpace(rng))
	if rng == "" {
		rng = DefaultRange
	}
	units := []struct {
		suffix string
		apply  func(n int) time.Time
	}{
		{"mo", func(n int) time.Time { return now.AddDate(0, -n, 0) }},
		{"wk", func(n int) time.Time { return now.AddDate(0, 0, -7*n) }},
		{"y", func(n int) time.Time { return now.AddDate(-n, 0, 0) }},
		{"d", func(n int) time.Time { return now.AddDate(0, 0, -n) }},
	}
	for _, u := range units {
		if !strings.HasSuffix(rng, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(rng, u.suffix))
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("invalid range %q", rng)
		}
		return u.apply(n), nil
	}
	return time.Time{}, fmt.Errorf("invalid range %q", rng)
}
