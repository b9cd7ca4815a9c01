package model

import "fmt"

// Stats column labels.
const (
	StatTicker = "Ticker"
	StatPrice  = "Price"
	StatRSI    = "RSI"
	StatRCI    = "RCI"
)

// EMALabel is the stats column for an EMA of the given period.
func EMALabel(period int) string {
	return fmt.Sprintf("EMA(%d)", period)
}

// EMADistanceLabel is the stats column for the percent distance from an EMA.
func EMADistanceLabel(period int) string {
	return fmt.Sprintf("EMA(%d) Dist%%", period)
}

// Stats maps a column label to the latest rounded value.
type Stats map[string]float64

// Result is the outcome of evaluating one group against one ticker.
type Result struct {
	Triggered   bool
	Description string
	Stats       Stats
}

// Row is one line of the alert table.
type Row struct {
	Ticker string
	Stats  Stats
}

// GroupResult collects the rows that triggered under one group name.
type GroupResult struct {
	Name         string
	Rows         []Row
	Descriptions []string
}
