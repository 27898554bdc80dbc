package quotes

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// headerScanLimit bounds how deep into a file the header row is searched for.
// Vendor exports often carry a few banner rows above the real header.
const headerScanLimit = 10

// defaultDateLayouts are tried in order when parsing date cells.
var defaultDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseOptions controls tabular quote ingestion.
type ParseOptions struct {
	// Mapping resolves input headers to canonical fields. Nil means headers
	// must already use canonical names.
	Mapping ColumnMapping
	// ValuationDate is stamped on every parsed quote.
	ValuationDate time.Time
	// DateLayouts overrides the default date formats tried per cell.
	DateLayouts []string
	// Strict turns malformed data rows into errors instead of skips.
	Strict bool
	// Sheet selects the worksheet for XLSX input. Empty means the first sheet.
	Sheet string

	Logger *slog.Logger
}

func (o *ParseOptions) normalize() error {
	if o.ValuationDate.IsZero() {
		return fmt.Errorf("valuation date is required")
	}
	if o.Mapping == nil {
		o.Mapping = ColumnMapping{}
	}
	if err := o.Mapping.Validate(); err != nil {
		return fmt.Errorf("validate column mapping: %w", err)
	}
	if len(o.DateLayouts) == 0 {
		o.DateLayouts = defaultDateLayouts
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return nil
}

// ParseResult carries the parsed quotes plus ingestion diagnostics.
type ParseResult struct {
	Quotes      []Quote
	HeaderRow   int
	RowsRead    int
	RowsSkipped int
	// SkipReasons holds the first few row-level parse errors for diagnostics.
	SkipReasons []string
}

// maxSkipReasons caps how many row errors are retained on the result.
const maxSkipReasons = 20

// ParseCSVFile reads an option quote table from a CSV file.
func ParseCSVFile(path string, opts ParseOptions) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes file: %w", err)
	}
	defer f.Close()
	res, err := ParseCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return res, nil
}

// ParseCSV reads an option quote table from CSV data. The header row is
// detected by scanning for a row whose cells resolve, through the column
// mapping, to every required canonical field.
func ParseCSV(r io.Reader, opts ParseOptions) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, record)
	}
	return parseRows(rows, opts)
}

// ParseXLSXFile reads an option quote table from an Excel workbook.
func ParseXLSXFile(path string, opts ParseOptions) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	res, err := parseRows(rows, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return res, nil
}

// parseRows is the shared row pipeline behind the CSV and XLSX readers.
func parseRows(rows [][]string, opts ParseOptions) (*ParseResult, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("input is empty")
	}

	headerRow, columnMap, err := findHeader(rows, opts.Mapping)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("quote header detected",
		slog.Int("header_row", headerRow),
		slog.Int("mapped_columns", len(columnMap)))

	result := &ParseResult{HeaderRow: headerRow}

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		result.RowsRead++

		q, err := parseQuoteRow(row, columnMap, opts)
		if err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			result.RowsSkipped++
			if len(result.SkipReasons) < maxSkipReasons {
				result.SkipReasons = append(result.SkipReasons, fmt.Sprintf("row %d: %v", i+1, err))
			}
			continue
		}
		result.Quotes = append(result.Quotes, q)
	}

	if result.RowsSkipped > 0 {
		opts.Logger.Warn("skipped malformed quote rows",
			slog.Int("skipped", result.RowsSkipped),
			slog.Int("parsed", len(result.Quotes)))
	}
	if len(result.Quotes) == 0 {
		return nil, fmt.Errorf("no parseable quote rows (read %d, skipped %d)",
			result.RowsRead, result.RowsSkipped)
	}
	return result, nil
}

// findHeader locates the header row and builds the canonical-field -> column
// index map. A row qualifies when every required field resolves through the
// mapping.
func findHeader(rows [][]string, mapping ColumnMapping) (int, map[string]int, error) {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}

	for i := 0; i < limit; i++ {
		columnMap := make(map[string]int)
		for j, header := range rows[i] {
			if field, ok := mapping.Canonical(header); ok {
				if _, dup := columnMap[field]; !dup {
					columnMap[field] = j
				}
			}
		}

		missing := missingRequired(columnMap)
		if len(missing) == 0 {
			return i, columnMap, nil
		}
	}

	// Report against the first row so the error names what was actually seen.
	columnMap := make(map[string]int)
	for j, header := range rows[0] {
		if field, ok := mapping.Canonical(header); ok {
			columnMap[field] = j
		}
	}
	return 0, nil, fmt.Errorf("no header row found: missing required columns %s",
		strings.Join(missingRequired(columnMap), ", "))
}

func missingRequired(columnMap map[string]int) []string {
	var missing []string
	for _, field := range requiredFields {
		if _, ok := columnMap[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseQuoteRow converts one data row into a Quote using the column map.
func parseQuoteRow(row []string, columnMap map[string]int, opts ParseOptions) (Quote, error) {
	cell := func(field string) (string, bool) {
		idx, ok := columnMap[field]
		if !ok || idx >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[idx])
		return v, v != ""
	}

	parseDecimal := func(field string) (decimal.Decimal, error) {
		v, ok := cell(field)
		if !ok {
			return decimal.Decimal{}, fmt.Errorf("missing %s", field)
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse %s %q: %w", field, v, err)
		}
		return d, nil
	}

	parseDate := func(field string) (time.Time, error) {
		v, ok := cell(field)
		if !ok {
			return time.Time{}, fmt.Errorf("missing %s", field)
		}
		for _, layout := range opts.DateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("parse %s %q: no layout matched", field, v)
	}

	parseOptionalFloat := func(field string) (*float64, error) {
		v, ok := cell(field)
		if !ok {
			return nil, nil
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", field, v, err)
		}
		f, _ := d.Float64()
		return &f, nil
	}

	q := Quote{ValuationDate: opts.ValuationDate}

	expiration, err := parseDate(FieldExpirationDate)
	if err != nil {
		return Quote{}, err
	}
	q.ExpirationDate = expiration

	if _, ok := columnMap[FieldQuoteDate]; ok {
		if qd, err := parseDate(FieldQuoteDate); err == nil {
			q.QuoteDate = qd
		}
	}

	if q.Strike, err = parseDecimal(FieldStrike); err != nil {
		return Quote{}, err
	}
	if q.OptionPrice, err = parseDecimal(FieldOptionPrice); err != nil {
		return Quote{}, err
	}

	typeCell, ok := cell(FieldOptionType)
	if !ok {
		return Quote{}, fmt.Errorf("missing %s", FieldOptionType)
	}
	if q.OptionType, err = ParseOptionType(typeCell); err != nil {
		return Quote{}, err
	}

	if q.UnderlyingLevel, err = parseOptionalFloat(FieldUnderlyingLevel); err != nil {
		return Quote{}, err
	}
	if q.DividendYield, err = parseOptionalFloat(FieldDividendYield); err != nil {
		return Quote{}, err
	}
	if q.RiskFreeRate, err = parseOptionalFloat(FieldRiskFreeRate); err != nil {
		return Quote{}, err
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}
	return q, nil
}
