// Package transform canonicalizes normalized tables into consistent time
// series: timestamp parsing and sorting, duplicate removal, and gap filling
// at the settlement-period frequency.
package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/normalize"
)

// timeLayouts are tried in order when parsing timestamp values. Elexon
// returns RFC3339 for most endpoints and bare dates for daily series.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DetectTimeColumn returns the first column whose name contains "time" or
// "date", matching how upstream endpoints label their timestamps
// (startTime, settlementDate, publishTime, ...).
func DetectTimeColumn(t normalize.Table) (string, bool) {
	for _, c := range t.Columns {
		lower := strings.ToLower(c)
		if strings.Contains(lower, "time") || strings.Contains(lower, "date") {
			return c, true
		}
	}
	return "", false
}

// ParseTime parses a single cell from a time column.
func ParseTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp value %v is not a string", v)
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// SortByTime returns a copy of the table with rows ordered by the given
// time column and its values rewritten as RFC3339 UTC.
func SortByTime(t normalize.Table, timeCol string) (normalize.Table, error) {
	type keyed struct {
		ts  time.Time
		row normalize.Record
	}

	keyedRows := make([]keyed, 0, len(t.Rows))
	for _, row := range t.Rows {
		ts, err := ParseTime(row[timeCol])
		if err != nil {
			return normalize.Table{}, fmt.Errorf("column %s: %w", timeCol, err)
		}
		clone := make(normalize.Record, len(row))
		for k, v := range row {
			clone[k] = v
		}
		clone[timeCol] = ts.Format(time.RFC3339)
		keyedRows = append(keyedRows, keyed{ts: ts, row: clone})
	}

	sort.SliceStable(keyedRows, func(i, j int) bool {
		return keyedRows[i].ts.Before(keyedRows[j].ts)
	})

	out := normalize.Table{Columns: append([]string(nil), t.Columns...), Rows: make([]normalize.Record, len(keyedRows))}
	for i, kr := range keyedRows {
		out.Rows[i] = kr.row
	}
	return out, nil
}

// DropDuplicateTimes removes rows whose timestamp was already seen, keeping
// the first occurrence. Assumes the table is already time-canonicalized.
func DropDuplicateTimes(t normalize.Table, timeCol string) normalize.Table {
	seen := make(map[string]struct{}, len(t.Rows))
	out := normalize.Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		key, _ := row[timeCol].(string)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// FillGaps reindexes the table at a fixed frequency between its first and
// last timestamps, inserting rows with nil values for missing intervals.
// Rows must already be sorted and deduplicated on the time column.
func FillGaps(t normalize.Table, timeCol string, freq time.Duration) (normalize.Table, error) {
	if len(t.Rows) == 0 || freq <= 0 {
		return t, nil
	}

	byTime := make(map[string]normalize.Record, len(t.Rows))
	for _, row := range t.Rows {
		key, _ := row[timeCol].(string)
		byTime[key] = row
	}

	first, err := ParseTime(t.Rows[0][timeCol])
	if err != nil {
		return normalize.Table{}, err
	}
	last, err := ParseTime(t.Rows[len(t.Rows)-1][timeCol])
	if err != nil {
		return normalize.Table{}, err
	}

	out := normalize.Table{Columns: append([]string(nil), t.Columns...)}
	for ts := first; !ts.After(last); ts = ts.Add(freq) {
		key := ts.Format(time.RFC3339)
		if row, ok := byTime[key]; ok {
			out.Rows = append(out.Rows, row)
			continue
		}
		filler := make(normalize.Record, len(t.Columns))
		for _, c := range t.Columns {
			filler[c] = nil
		}
		filler[timeCol] = key
		out.Rows = append(out.Rows, filler)
	}
	return out, nil
}

// Canonicalize applies the full pipeline: time column detection, sort,
// duplicate drop and settlement-period gap fill. Tables without a
// recognizable time column pass through unchanged.
func Canonicalize(t normalize.Table, freq time.Duration) (normalize.Table, error) {
	timeCol, ok := DetectTimeColumn(t)
	if !ok {
		return t, nil
	}

	sorted, err := SortByTime(t, timeCol)
	if err != nil {
		return normalize.Table{}, err
	}
	deduped := DropDuplicateTimes(sorted, timeCol)
	return FillGaps(deduped, timeCol, freq)
}
