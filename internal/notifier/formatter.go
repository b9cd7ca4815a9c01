package notifier

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"StockNotifier/internal/model"
)

const (
	// NoMatches is the table text for an empty match list.
	NoMatches = "No matches found."
	// AlertHeader opens every alert message.
	AlertHeader = "**Stock Alerts Triggered**"
	// DiscordMessageLimit is the maximum content length of one webhook message.
	DiscordMessageLimit = 2000

	missingCell = "-"
	codeFence   = "```"
)

// TableColumns returns the column order for rows: Ticker, Price, RSI and RCI
// when any row has them, then every EMA column in lexical order.
func TableColumns(rows []model.Row) []string {
	keys := make(map[string]struct{})
	for _, r := range rows {
		for k := range r.Stats {
			keys[k] = struct{}{}
		}
	}
	headers := []string{model.StatTicker, model.StatPrice}
	for _, k := range []string{model.StatRSI, model.StatRCI} {
		if _, ok := keys[k]; ok {
			headers = append(headers, k)
		}
	}
	var emaCols []string
	for k := range keys {
		if strings.Contains(k, "EMA") {
			emaCols = append(emaCols, k)
		}
	}
	sort.Strings(emaCols)
	return append(headers, emaCols...)
}

// FormatTable renders rows as a monospaced ASCII table inside a code fence.
func FormatTable(rows []model.Row) string {
	if len(rows) == 0 {
		return NoMatches
	}
	return codeFence + "\n" + strings.Join(tableLines(rows), "\n") + "\n" + codeFence
}

func tableLines(rows []model.Row) []string {
	headers := TableColumns(rows)
	cells := make([][]string, len(rows))
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(headers))
		for i, h := range headers {
			cells[r][i] = cellText(row, h)
			widths[i] = max(widths[i], utf8.RuneCountInString(cells[r][i]))
		}
	}

	sep := separator(widths)
	lines := make([]string, 0, len(rows)+4)
	lines = append(lines, sep, formatRow(headers, widths), sep)
	for _, c := range cells {
		lines = append(lines, formatRow(c, widths))
	}
	return append(lines, sep)
}

func cellText(row model.Row, header string) string {
	if header == model.StatTicker {
		return row.Ticker
	}
	v, ok := row.Stats[header]
	if !ok {
		return missingCell
	}
	return formatNumber(v)
}

// formatNumber prints the shortest representation that round-trips, always
// with a fractional part.
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = c + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c))
	}
	return "| " + strings.Join(padded, " | ") + " |"
}

func separator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

// FormatGroupBlock renders one group's heading followed by its table.
func FormatGroupBlock(g model.GroupResult) string {
	return "**" + g.Name + "**:\n" + FormatTable(g.Rows)
}

// FormatAlertMessage assembles the full alert text for every group that has
// at least one row. It returns "" when nothing triggered.
func FormatAlertMessage(groups []model.GroupResult) string {
	var blocks []string
	for _, g := range groups {
		if len(g.Rows) == 0 {
			continue
		}
		blocks = append(blocks, FormatGroupBlock(g))
	}
	if len(blocks) == 0 {
		return ""
	}
	return AlertHeader + "\n\n" + strings.Join(blocks, "\n\n")
}

// FormatAlertMessages is FormatAlertMessage split into messages of at most
// limit runes. Whole group blocks are packed greedily. A block too large for
// one message is cut between table rows and each part repeats the heading
// and column header.
func FormatAlertMessages(groups []model.GroupResult, limit int) []string {
	if limit <= 0 {
		limit = DiscordMessageLimit
	}
	blockLimit := limit - runeLen(AlertHeader) - 2
	var blocks []string
	for _, g := range groups {
		if len(g.Rows) == 0 {
			continue
		}
		block := FormatGroupBlock(g)
		if runeLen(block) <= blockLimit {
			blocks = append(blocks, block)
			continue
		}
		blocks = append(blocks, splitGroupBlock(g, blockLimit)...)
	}
	if len(blocks) == 0 {
		return nil
	}

	var messages []string
	current := AlertHeader
	for _, b := range blocks {
		candidate := current + "\n\n" + b
		if runeLen(candidate) <= limit {
			current = candidate
			continue
		}
		messages = append(messages, current)
		current = b
	}
	messages = append(messages, current)

	var out []string
	for _, m := range messages {
		out = append(out, SplitMessage(m, limit)...)
	}
	return out
}

func splitGroupBlock(g model.GroupResult, limit int) []string {
	lines := tableLines(g.Rows)
	head := lines[:3]
	body := lines[3 : len(lines)-1]
	sep := lines[len(lines)-1]

	prefix := "**" + g.Name + "**:\n" + codeFence + "\n" + strings.Join(head, "\n")
	suffix := "\n" + sep + "\n" + codeFence

	var parts []string
	var rows []string
	flush := func() {
		if len(rows) == 0 {
			return
		}
		parts = append(parts, prefix+"\n"+strings.Join(rows, "\n")+suffix)
		rows = nil
	}
	for _, line := range body {
		next := append(rows, line)
		if len(rows) > 0 && runeLen(prefix+"\n"+strings.Join(next, "\n")+suffix) > limit {
			flush()
			next = []string{line}
		}
		rows = next
	}
	flush()
	return parts
}

// SplitMessage cuts text into pieces of at most limit runes, preferring
// line boundaries. Lines longer than limit are hard-cut.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = DiscordMessageLimit
	}
	if runeLen(text) <= limit {
		return []string{text}
	}

	var out []string
	var chunk []string
	size := 0
	flush := func() {
		if chunk != nil {
			out = append(out, strings.Join(chunk, "\n"))
		}
		chunk, size = nil, 0
	}
	for _, line := range strings.Split(text, "\n") {
		for runeLen(line) > limit {
			flush()
			r := []rune(line)
			out = append(out, string(r[:limit]))
			line = string(r[limit:])
		}
		ln := runeLen(line)
		if chunk != nil && size+1+ln > limit {
			flush()
		}
		if chunk != nil {
			size++
		}
		chunk = append(chunk, line)
		size += ln
	}
	flush()
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
