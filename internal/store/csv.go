package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/varunrout/energy-market-tracker/internal/market"
	"github.com/varunrout/energy-market-tracker/internal/normalize"
	"github.com/varunrout/energy-market-tracker/internal/transform"
)

// CSVStore writes date-stamped CSV files under a base directory and merges
// new pulls into the day's existing file, deduplicating on the time column.
type CSVStore struct {
	dir string
}

// NewCSVStore creates the store, creating the directory if needed.
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &CSVStore{dir: dir}, nil
}

// SaveTable merges table into <dir>/<name>_<yyyymmdd>.csv. Empty tables are
// a no-op.
func (s *CSVStore) SaveTable(_ context.Context, name string, table normalize.Table) (string, error) {
	if table.Empty() {
		log.Debug().Str("dataset", name).Msg("table is empty, nothing to save")
		return "", nil
	}

	stamp := time.Now().UTC().Format("20060102")
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", name, stamp))

	merged := table
	if existing, err := ReadTable(path); err == nil {
		merged = mergeTables(existing, table)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read existing %s: %w", path, err)
	}

	if err := writeTable(path, merged); err != nil {
		return "", err
	}

	log.Info().Str("path", path).Int("rows", len(merged.Rows)).Msg("table saved")
	return path, nil
}

// SavePrices stores a price series as a three-column table.
func (s *CSVStore) SavePrices(ctx context.Context, series market.PriceSeries) (int, error) {
	if series.Empty() {
		return 0, nil
	}

	table := normalize.Table{Columns: []string{"time", "price", "source"}}
	for _, p := range series.Points {
		table.Rows = append(table.Rows, normalize.Record{
			"time":   p.Time.UTC().Format(time.RFC3339),
			"price":  strconv.FormatFloat(p.Price, 'f', -1, 64),
			"source": series.Source,
		})
	}

	if _, err := s.SaveTable(ctx, "prices", table); err != nil {
		return 0, err
	}
	return len(series.Points), nil
}

// PricesBetween scans all stored price files for points in [from, to).
func (s *CSVStore) PricesBetween(_ context.Context, from, to time.Time) ([]market.PricePoint, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "prices_*.csv"))
	if err != nil {
		return nil, err
	}

	seen := make(map[time.Time]struct{})
	var points []market.PricePoint
	for _, path := range paths {
		table, err := ReadTable(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for _, row := range table.Rows {
			ts, err := transform.ParseTime(row["time"])
			if err != nil {
				continue
			}
			if ts.Before(from) || !ts.Before(to) {
				continue
			}
			if _, dup := seen[ts]; dup {
				continue
			}
			seen[ts] = struct{}{}

			price, err := strconv.ParseFloat(fmt.Sprintf("%v", row["price"]), 64)
			if err != nil {
				continue
			}
			points = append(points, market.PricePoint{Time: ts, Price: price})
		}
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

// ReadTable loads a CSV file written by this store. All cells come back as
// strings; empty cells become nil.
func ReadTable(path string) (normalize.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return normalize.Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return normalize.Table{}, fmt.Errorf("csv parse: %w", err)
	}
	if len(records) == 0 {
		return normalize.Table{}, nil
	}

	table := normalize.Table{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make(normalize.Record, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(rec) && rec[i] != "" {
				row[col] = rec[i]
			} else {
				row[col] = nil
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// writeTable writes to a temp file first and renames into place so readers
// never observe a half-written file.
func writeTable(path string, table normalize.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(table.Columns); err != nil {
		tmp.Close()
		return err
	}
	for _, row := range table.Rows {
		rec := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			rec[i] = formatCell(row[col])
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// mergeTables appends incoming rows onto existing ones, keeping existing
// rows when timestamps collide and unioning columns.
func mergeTables(existing, incoming normalize.Table) normalize.Table {
	timeCol, ok := transform.DetectTimeColumn(incoming)
	if !ok {
		out := existing
		out.Columns = unionColumns(existing.Columns, incoming.Columns)
		out.Rows = append(out.Rows, stringifyRows(incoming.Rows)...)
		return out
	}

	out := normalize.Table{Columns: unionColumns(existing.Columns, incoming.Columns)}
	seen := make(map[string]struct{})
	for _, row := range existing.Rows {
		key := fmt.Sprintf("%v", row[timeCol])
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	for _, row := range stringifyRows(incoming.Rows) {
		key := fmt.Sprintf("%v", row[timeCol])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func unionColumns(a, b []string) []string {
	out := append([]string(nil), a...)
	seen := make(map[string]struct{}, len(a))
	for _, c := range a {
		seen[c] = struct{}{}
	}
	for _, c := range b {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func stringifyRows(rows []normalize.Record) []normalize.Record {
	out := make([]normalize.Record, len(rows))
	for i, row := range rows {
		clone := make(normalize.Record, len(row))
		for k, v := range row {
			if v == nil {
				clone[k] = nil
			} else {
				clone[k] = formatCell(v)
			}
		}
		out[i] = clone
	}
	return out
}

func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case json.Number:
		return c.String()
	case bool:
		return strconv.FormatBool(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", c)
	}
}
