package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"StockNotifier/internal/model"
)

// PolygonFetcher implements Fetcher using Polygon.io daily aggregates.
type PolygonFetcher struct {
	client *polygon.Client
	Range  string
	now    func() time.Time
}

// NewPolygonFetcher creates a fetcher authenticated with apiKey.
func NewPolygonFetcher(apiKey, rng string) (*PolygonFetcher, error) {
	if apiKey == "" {
		return nil, errors.New("polygon: api key is required")
	}
	if _, err := lookbackStart(time.Now(), rng); err != nil {
		return nil, fmt.Errorf("polygon: %w", err)
	}
	return &PolygonFetcher{
		client: polygon.New(apiKey),
		Range:  rng,
		now:    time.Now,
	}, nil
}

func (f *PolygonFetcher) Name() string { return "polygon" }

// FetchCloses lists day aggregates for symbol over the configured range.
func (f *PolygonFetcher) FetchCloses(ctx context.Context, symbol string) (*model.Series, error) {
	end := f.now()
	start, err := lookbackStart(end, f.Range)
	if err != nil {
		return nil, fmt.Errorf("polygon: %w", err)
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := f.client.ListAggs(ctx, params)
	bars := make([]model.Bar, 0, 512)
	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, model.Bar{Time: time.Time(agg.Timestamp).UTC(), Close: agg.Close})
	}
	if iter.Err() != nil {
		return nil, fmt.Errorf("polygon aggregates for %s: %w", symbol, iter.Err())
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("polygon: no data returned for %s", symbol)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return &model.Series{Symbol: symbol, Bars: bars, FetchedAt: end}, nil
}
