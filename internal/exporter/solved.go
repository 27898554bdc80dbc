package exporter

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"volgrid/internal/config"
	"volgrid/internal/quotes"
	"volgrid/internal/volatility"
)

// utf8BOM marks exported files as UTF-8 for Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SolvedQuoteExporter handles solved-quote table generation. The layout is
// the quote columns plus the resolved market inputs and the solve outcome,
// and ReadSolvedQuotes parses it back for downstream grid building.
type SolvedQuoteExporter struct {
	csvWriter *CSVWriter
}

// NewSolvedQuoteExporter creates a new solved-quote exporter
func NewSolvedQuoteExporter(paths *config.Paths) *SolvedQuoteExporter {
	return &SolvedQuoteExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportSolvedQuotes writes all solved quotes to a single CSV file
func (e *SolvedQuoteExporter) ExportSolvedQuotes(solved []volatility.SolvedQuote, outputPath string) error {
	// Sort by expiration, strike, and side for deterministic output
	sort.Slice(solved, func(i, j int) bool {
		qi, qj := solved[i].Quote, solved[j].Quote
		if !qi.ExpirationDate.Equal(qj.ExpirationDate) {
			return qi.ExpirationDate.Before(qj.ExpirationDate)
		}
		if !qi.Strike.Equal(qj.Strike) {
			return qi.Strike.LessThan(qj.Strike)
		}
		return qi.OptionType < qj.OptionType
	})

	// Convert all rows to CSV format
	var csvRecords [][]string
	for _, sq := range solved {
		csvRecords = append(csvRecords, e.solvedToCSVRow(sq))
	}

	return e.csvWriter.WriteSimpleCSV(outputPath, e.getHeaders(), csvRecords)
}

// ExportSolvedQuotesStreaming writes solved quotes through a stream writer,
// for batches too large to buffer as string records
func (e *SolvedQuoteExporter) ExportSolvedQuotesStreaming(solved []volatility.SolvedQuote, outputPath string) error {
	stream, err := e.csvWriter.CreateStreamWriter(outputPath, e.getHeaders())
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	for _, sq := range solved {
		if err := stream.WriteRecord(e.solvedToCSVRow(sq)); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}

	return nil
}

// getHeaders returns the CSV headers for solved quotes
func (e *SolvedQuoteExporter) getHeaders() []string {
	return []string{
		"quote_date", "expiration_date", "strike", "option_price", "option_type",
		"spot", "dividend_yield", "risk_free_rate", "tau",
		"implied_vol", "iterations", "failure_kind", "failure_detail",
	}
}

// solvedToCSVRow converts a solved quote to a CSV row
func (e *SolvedQuoteExporter) solvedToCSVRow(sq volatility.SolvedQuote) []string {
	quoteDate := ""
	if !sq.Quote.QuoteDate.IsZero() {
		quoteDate = formatDate(sq.Quote.QuoteDate)
	}
	return []string{
		quoteDate,
		formatDate(sq.Quote.ExpirationDate),
		sq.Quote.Strike.String(),
		sq.Quote.OptionPrice.String(),
		sq.Quote.OptionType.String(),
		formatFloat(sq.Spot),
		formatFloat(sq.DividendYield),
		formatFloat(sq.RiskFreeRate),
		formatFloat(sq.Tau),
		formatVol(sq.ImpliedVol),
		formatInt(sq.Iterations),
		string(sq.FailureKind),
		sq.FailureDetail,
	}
}

// ReadSolvedQuotes parses a solved-quote CSV written by this exporter. The
// valuation date is run state rather than a column, so the caller supplies it.
func ReadSolvedQuotes(path string, valuation time.Time) ([]volatility.SolvedQuote, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open solved quotes: %w", err)
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(3)
	}

	reader := csv.NewReader(br)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range []string{"expiration_date", "strike", "option_price", "option_type", "spot", "dividend_yield", "risk_free_rate", "tau", "implied_vol"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("solved quotes file is missing column %q", name)
		}
	}
	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var solved []volatility.SolvedQuote
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		sq, err := parseSolvedRecord(record, field, valuation)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		solved = append(solved, sq)
	}

	return solved, nil
}

// parseSolvedRecord converts one CSV record back into a SolvedQuote.
func parseSolvedRecord(record []string, field func([]string, string) string, valuation time.Time) (volatility.SolvedQuote, error) {
	var sq volatility.SolvedQuote

	expiration, err := time.Parse("2006-01-02", field(record, "expiration_date"))
	if err != nil {
		return sq, fmt.Errorf("bad expiration_date: %w", err)
	}
	strike, err := decimal.NewFromString(field(record, "strike"))
	if err != nil {
		return sq, fmt.Errorf("bad strike: %w", err)
	}
	price, err := decimal.NewFromString(field(record, "option_price"))
	if err != nil {
		return sq, fmt.Errorf("bad option_price: %w", err)
	}
	optionType, err := quotes.ParseOptionType(field(record, "option_type"))
	if err != nil {
		return sq, err
	}

	sq.Quote = quotes.Quote{
		ValuationDate:  valuation,
		ExpirationDate: expiration,
		Strike:         strike,
		OptionPrice:    price,
		OptionType:     optionType,
	}
	if raw := field(record, "quote_date"); raw != "" {
		quoteDate, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return sq, fmt.Errorf("bad quote_date: %w", err)
		}
		sq.Quote.QuoteDate = quoteDate
	}

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"spot", &sq.Spot},
		{"dividend_yield", &sq.DividendYield},
		{"risk_free_rate", &sq.RiskFreeRate},
		{"tau", &sq.Tau},
	} {
		v, err := strconv.ParseFloat(field(record, f.name), 64)
		if err != nil {
			return sq, fmt.Errorf("bad %s: %w", f.name, err)
		}
		*f.dst = v
	}

	if raw := field(record, "implied_vol"); raw != "" {
		vol, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return sq, fmt.Errorf("bad implied_vol: %w", err)
		}
		sq.ImpliedVol = &vol
	}
	if raw := field(record, "iterations"); raw != "" {
		iters, err := strconv.Atoi(raw)
		if err != nil {
			return sq, fmt.Errorf("bad iterations: %w", err)
		}
		sq.Iterations = iters
	}
	sq.FailureKind = volatility.FailureKind(field(record, "failure_kind"))
	sq.FailureDetail = field(record, "failure_detail")

	return sq, nil
}
