package market

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// seriesDateLayouts are tried in order when parsing series dates.
var seriesDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// LoadOptions directs how a tabular series file is read.
type LoadOptions struct {
	// Name labels the series in logs and errors. Defaults to the value column.
	Name string

	// DateColumn is the header of the date column. Defaults to "date".
	DateColumn string

	// ValueColumn is the header of the value column. Rate files commonly
	// carry several quoting bases side by side; this selects one. When empty,
	// a two-column file uses its non-date column and wider files error.
	ValueColumn string
}

func (o LoadOptions) normalized() LoadOptions {
	if o.DateColumn == "" {
		o.DateColumn = "date"
	}
	if o.Name == "" {
		if o.ValueColumn != "" {
			o.Name = o.ValueColumn
		} else {
			o.Name = "series"
		}
	}
	return o
}

// LoadSeriesCSV reads a dated series from a CSV file with a header row.
func LoadSeriesCSV(path string, opts LoadOptions) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	s, err := ReadSeriesCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadSeriesCSV reads a dated series from CSV data. The first row must be a
// header naming the date and value columns; malformed data rows are errors.
func ReadSeriesCSV(r io.Reader, opts LoadOptions) (*Series, error) {
	opts = opts.normalized()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("series %s: need a header row and at least one data row", opts.Name)
	}

	dateIdx, valueIdx, err := seriesColumns(rows[0], opts)
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankSeriesRow(row) {
			continue
		}
		if dateIdx >= len(row) || valueIdx >= len(row) {
			return nil, fmt.Errorf("series %s row %d: too few columns", opts.Name, i+2)
		}

		date, err := parseSeriesDate(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("series %s row %d: %w", opts.Name, i+2, err)
		}
		value, err := parseSeriesValue(row[valueIdx])
		if err != nil {
			return nil, fmt.Errorf("series %s row %d: %w", opts.Name, i+2, err)
		}
		points = append(points, Point{Date: date, Value: value})
	}

	return NewSeries(opts.Name, points)
}

// seriesColumns resolves the date and value column indexes from the header.
func seriesColumns(header []string, opts LoadOptions) (int, int, error) {
	dateIdx, valueIdx := -1, -1
	for j, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case name == strings.ToLower(opts.DateColumn):
			dateIdx = j
		case opts.ValueColumn != "" && name == strings.ToLower(opts.ValueColumn):
			valueIdx = j
		}
	}
	if dateIdx < 0 {
		return 0, 0, fmt.Errorf("series %s: date column %q not found", opts.Name, opts.DateColumn)
	}

	if opts.ValueColumn == "" {
		if len(header) != 2 {
			return 0, 0, fmt.Errorf("series %s: %d columns present, a value column must be named", opts.Name, len(header))
		}
		valueIdx = 1 - dateIdx
	}
	if valueIdx < 0 {
		return 0, 0, fmt.Errorf("series %s: value column %q not found", opts.Name, opts.ValueColumn)
	}
	return dateIdx, valueIdx, nil
}

// LoadSeriesJSON reads a dated series from a JSON array of date/value pairs.
func LoadSeriesJSON(path, name string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	s, err := ReadSeriesJSON(f, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadSeriesJSON decodes a series from JSON: [{"date": "2024-03-15", "value": 0.0525}, ...].
func ReadSeriesJSON(r io.Reader, name string) (*Series, error) {
	var raw []struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode series json: %w", err)
	}

	points := make([]Point, 0, len(raw))
	for i, p := range raw {
		date, err := parseSeriesDate(p.Date)
		if err != nil {
			return nil, fmt.Errorf("series %s entry %d: %w", name, i, err)
		}
		points = append(points, Point{Date: date, Value: p.Value})
	}
	return NewSeries(name, points)
}

func parseSeriesDate(cell string) (time.Time, error) {
	v := strings.TrimSpace(cell)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range seriesDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", v)
}

func parseSeriesValue(cell string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if v == "" {
		return 0, fmt.Errorf("empty value")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable value %q", cell)
	}
	return f, nil
}

func isBlankSeriesRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
