package model

import (
	"math"
	"time"
)

// Bar is a single daily close observation.
type Bar struct {
	Time  time.Time
	Close float64
}

// Series holds the close history of one ticker for a single evaluation pass.
// Bars are in strictly increasing time order.
type Series struct {
	Symbol    string
	Bars      []Bar
	FetchedAt time.Time
}

// Closes returns the close prices in chronological order, dropping
// non-finite observations.
func (s *Series) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, 0, len(s.Bars))
	for _, b := range s.Bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		closes = append(closes, b.Close)
	}
	return closes
}

// Empty reports whether the series has no usable observations.
func (s *Series) Empty() bool {
	return len(s.Closes()) == 0
}

// Latest returns the most recent bar.
func (s *Series) Latest() (Bar, bool) {
	if s == nil || len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
