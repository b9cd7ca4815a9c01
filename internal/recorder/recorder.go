// Package recorder keeps a history of analysis passes and the matches they
// produced. Indicator series are never persisted.
package recorder

import "time"

// Notification outcomes stored with each run.
const (
	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifySkipped = "skipped"
	NotifyDryRun  = "dry_run"
	NotifyNone    = "none"
)

// RunRecord summarises one analysis pass.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Tickers      int // tickers configured
	Fetched      int // tickers with usable data
	Groups       int
	Matches      int
	NotifyStatus string
	NotifyError  string
}

// MatchRecord is one ticker that triggered one group during a run.
type MatchRecord struct {
	RunID       string
	At          time.Time
	Group       string
	Ticker      string
	Price       float64
	Description string
}

// MatchQuery filters RecentMatches. Empty fields match everything.
type MatchQuery struct {
	Limit  int
	Ticker string
	Group  string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordRun(run *RunRecord, matches []MatchRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
	RecentMatches(q MatchQuery) ([]MatchRecord, error)
	Close() error
}
