package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockNotifier/internal/model"
)

type countingFetchErrors struct{ n atomic.Int32 }

func (c *countingFetchErrors) FetchError() { c.n.Add(1) }

func TestCollectAll_SkipsFailures(t *testing.T) {
	m := &MockFetcher{
		Price:  100,
		Closes: map[string][]float64{"AAPL": {1, 2, 3}, "EMPTY": {}},
		Errors: map[string]error{"BAD": errors.New("boom")},
	}
	errs := &countingFetchErrors{}
	c := NewCollector(m, 2, time.Second, zerolog.Nop())
	c.Errors = errs

	got := c.CollectAll(context.Background(), []string{"AAPL", "MSFT", "BAD", "EMPTY"})
	require.Len(t, got, 2)
	assert.Equal(t, []float64{1, 2, 3}, got["AAPL"].Closes())
	assert.Len(t, got["MSFT"].Closes(), 250)
	assert.NotContains(t, got, "BAD")
	assert.NotContains(t, got, "EMPTY")
	assert.Equal(t, int32(2), errs.n.Load())

	calls := m.Calls()
	sort.Strings(calls)
	assert.Equal(t, []string{"AAPL", "BAD", "EMPTY", "MSFT"}, calls)
}

type slowFetcher struct {
	inFlight, peak atomic.Int32
}

func (s *slowFetcher) Name() string { return "slow" }

func (s *slowFetcher) FetchCloses(ctx context.Context, symbol string) (*model.Series, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(10 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return SeriesFromCloses(symbol, []float64{1}, time.Now()), nil
}

func TestCollectAll_BoundedConcurrency(t *testing.T) {
	f := &slowFetcher{}
	c := NewCollector(f, 3, time.Second, zerolog.Nop())

	symbols := make([]string, 12)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%d", i)
	}
	got := c.CollectAll(context.Background(), symbols)
	assert.Len(t, got, 12)
	assert.LessOrEqual(t, f.peak.Load(), int32(3))
}

func TestCollectAll_Timeout(t *testing.T) {
	f := &slowFetcher{}
	c := NewCollector(f, 1, time.Millisecond, zerolog.Nop())
	got := c.CollectAll(context.Background(), []string{"A"})
	assert.Empty(t, got)
}

const chartFixture = `{"chart":{"result":[{"timestamp":[1700000000,1700086400,1700172800,1700259200],
"indicators":{"quote":[{"close":[10.5,null,11.25,12.0]}]}}],"error":null}}`

func TestYahooFetcher_FetchCloses(t *testing.T) {
	var path, query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, query = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte(chartFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", "1y")
	f.BaseURL = srv.URL

	series, err := f.FetchCloses(context.Background(), "SPX")
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/^GSPC", path)
	assert.Contains(t, query, "interval=1d")
	assert.Contains(t, query, "range=1y")
	assert.Equal(t, "SPX", series.Symbol)
	assert.Equal(t, []float64{10.5, 11.25, 12.0}, series.Closes())
	last, ok := series.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(1700259200), last.Time.Unix())
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"status", http.StatusNotFound, `nope`, "status 404"},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, "No data found"},
		{"empty", http.StatusOK, `{"chart":{"result":[],"error":null}}`, "no data returned"},
		{"all null", http.StatusOK, `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[{"close":[null]}]}}]}}`, "no closes"},
		{"bad json", http.StatusOK, `{`, "yahoo decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewYahooFetcher("", "")
			f.BaseURL = srv.URL
			_, err := f.FetchCloses(context.Background(), "ZZZ")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLookbackStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		rng  string
		want time.Time
	}{
		{"2y", time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"6mo", time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC)},
		{"2wk", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"5d", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := lookbackStart(now, tt.rng)
		require.NoError(t, err, tt.rng)
		assert.Equal(t, tt.want, got, tt.rng)
	}

	for _, bad := range []string{"max", "0y", "xmo", "-1d"} {
		_, err := lookbackStart(now, bad)
		assert.Error(t, err, bad)
	}
}

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher("yahoo", "", "", "2y")
	require.NoError(t, err)
	assert.Equal(t, "yahoo", f.Name())

	_, err = NewFetcher("polygon", "", "", "2y")
	assert.Error(t, err)

	f, err = NewFetcher("polygon", "key", "", "1y")
	require.NoError(t, err)
	assert.Equal(t, "polygon", f.Name())

	_, err = NewFetcher("bloomberg", "", "", "")
	assert.Error(t, err)
}
