package collector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"StockNotifier/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64
	Closes map[string][]float64
	Errors map[string]error

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCloses(_ context.Context, symbol string) (*model.Series, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	closes, ok := m.Closes[symbol]
	if !ok {
		closes = generateMockCloses(m.Price, 250)
	}
	return SeriesFromCloses(symbol, closes, time.Now()), nil
}

// Calls returns the symbols requested so far.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func generateMockCloses(basePrice float64, count int) []float64 {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = basePrice * (1 + float64(i-count/2)*0.001)
	}
	return closes
}

// SeriesFromCloses builds a daily series ending at end.
func SeriesFromCloses(symbol string, closes []float64, end time.Time) *model.Series {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Time: end.AddDate(0, 0, -(len(closes) - 1 - i)), Close: c}
	}
	return &model.Series{Symbol: symbol, Bars: bars, FetchedAt: end}
}

// NewFetcher builds the Fetcher for a data source provider.
func NewFetcher(provider, apiKey, proxyURL, rng string) (Fetcher, error) {
	switch provider {
	case "", "yahoo":
		return NewYahooFetcher(proxyURL, rng), nil
	case "polygon":
		return NewPolygonFetcher(apiKey, rng)
	case "mock":
		return &MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown data source provider %q", provider)
	}
}

// FetchErrorCounter is notified of every ticker that could not be fetched.
type FetchErrorCounter interface {
	FetchError()
}

// Collector fetches many tickers concurrently for one evaluation pass.
type Collector struct {
	Fetcher     Fetcher
	Concurrency int
	Timeout     time.Duration
	Logger      zerolog.Logger
	Errors      FetchErrorCounter
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, concurrency int, timeout time.Duration, logger zerolog.Logger) *Collector {
	return &Collector{Fetcher: fetcher, Concurrency: concurrency, Timeout: timeout, Logger: logger}
}

// CollectAll fetches every symbol. Tickers that fail or return no usable
// closes are logged and left out of the result.
func (c *Collector) CollectAll(ctx context.Context, symbols []string) map[string]*model.Series {
	start := time.Now()
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed atomic.Int64
	out := make(map[string]*model.Series, len(symbols))

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			series, err := c.fetch(ctx, symbol)
			if err != nil {
				c.Logger.Warn().Err(err).Str("ticker", symbol).Str("source", c.Fetcher.Name()).Msg("failed to fetch ticker, skipping")
				failed.Add(1)
				if c.Errors != nil {
					c.Errors.FetchError()
				}
				return
			}

			mu.Lock()
			out[symbol] = series
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()

	c.Logger.Info().
		Int("tickers", len(symbols)).
		Int("fetched", len(out)).
		Int64("errors", failed.Load()).
		Dur("duration", time.Since(start)).
		Msg("fetch cycle complete")
	return out
}

func (c *Collector) fetch(ctx context.Context, symbol string) (*model.Series, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	series, err := c.Fetcher.FetchCloses(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, fmt.Errorf("no usable closes for %s", symbol)
	}
	return series, nil
}
