package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockNotifier/internal/collector"
	"StockNotifier/internal/model"
)

func newTestScheduler(load RulesLoader) (*Scheduler, *fakeNotifier) {
	fetcher := &collector.MockFetcher{Closes: map[string][]float64{"DOWN": series(20, 100, -1)}}
	n := &fakeNotifier{}
	col := collector.NewCollector(fetcher, 1, time.Second, zerolog.Nop())
	a := NewAnalyzer(col, n, nil, nil, zerolog.Nop())
	return NewScheduler(context.Background(), a, load, RunOptions{}, zerolog.Nop()), n
}

func TestScheduler_RunNowLoadsRulesEachTime(t *testing.T) {
	calls := 0
	s, n := newTestScheduler(func() (*model.RulesConfig, error) {
		calls++
		r := testRules()
		r.Tickers = []string{"DOWN"}
		return r, nil
	})

	for i := 0; i < 2; i++ {
		report, err := s.RunNow()
		require.NoError(t, err)
		assert.Equal(t, 2, report.Matches())
	}
	assert.Equal(t, 2, calls)
	assert.Len(t, n.messages, 2)
}

func TestScheduler_LoadError(t *testing.T) {
	s, _ := newTestScheduler(func() (*model.RulesConfig, error) {
		return nil, errors.New("parse rules: bad json")
	})
	_, err := s.RunNow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load rules")
}

func TestScheduler_Register(t *testing.T) {
	s, _ := newTestScheduler(func() (*model.RulesConfig, error) { return testRules(), nil })
	assert.Error(t, s.Register("not a schedule"))
	require.NoError(t, s.Register("0 30 16 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
}

func TestScheduler_TickRunsAnalysis(t *testing.T) {
	s, _ := newTestScheduler(func() (*model.RulesConfig, error) {
		r := testRules()
		r.Tickers = []string{"DOWN"}
		return r, nil
	})
	done := make(chan *Report, 4)
	s.OnReport = func(r *Report, err error) {
		if err == nil {
			done <- r
		}
	}
	require.NoError(t, s.Register("* * * * * *"))
	s.Start()
	defer s.Stop()

	select {
	case r := <-done:
		assert.NotEmpty(t, r.RunID)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled analysis did not run")
	}
}
