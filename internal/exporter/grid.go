package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"volgrid/internal/config"
	"volgrid/internal/volatility"
)

// Sheet names of the grid workbook.
const (
	gridSheetName    = "Volatility Grid"
	summarySheetName = "Summary"
)

// GridExporter handles volatility grid exports. The CSV layout matches the
// pivoted table downstream tools expect: the first column holds expiration
// dates, the header row holds strikes, and empty cells stay empty.
type GridExporter struct {
	csvWriter *CSVWriter
}

// NewGridExporter creates a new grid exporter
func NewGridExporter(paths *config.Paths) *GridExporter {
	return &GridExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportGridCSV writes the grid as a pivoted CSV table
func (g *GridExporter) ExportGridCSV(grid *volatility.Grid, outputPath string) error {
	if grid == nil {
		return fmt.Errorf("no grid to export")
	}

	var csvRecords [][]string
	for i, expiration := range grid.Expirations {
		row := make([]string, 0, len(grid.Strikes)+1)
		row = append(row, formatDate(expiration))
		for j := range grid.Strikes {
			row = append(row, formatVol(grid.Cells[i][j].Vol))
		}
		csvRecords = append(csvRecords, row)
	}

	return g.csvWriter.WriteSimpleCSV(outputPath, g.getHeaders(grid), csvRecords)
}

// ExportGridWorkbook writes the grid and its summary as an XLSX workbook
func (g *GridExporter) ExportGridWorkbook(grid *volatility.Grid, outputPath string) error {
	if grid == nil {
		return fmt.Errorf("no grid to export")
	}

	fullPath := g.csvWriter.resolvePath(outputPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), gridSheetName)

	if err := g.writeGridSheet(f, grid); err != nil {
		return err
	}
	if err := g.writeSummarySheet(f, grid); err != nil {
		return err
	}

	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// writeGridSheet fills the grid sheet with the pivoted volatility table.
func (g *GridExporter) writeGridSheet(f *excelize.File, grid *volatility.Grid) error {
	f.SetCellValue(gridSheetName, "A1", "expiration")
	for j, strike := range grid.Strikes {
		col, err := excelize.ColumnNumberToName(j + 2)
		if err != nil {
			return fmt.Errorf("failed to name column %d: %w", j+2, err)
		}
		f.SetCellValue(gridSheetName, col+"1", strike)
	}

	for i, expiration := range grid.Expirations {
		rowNum := i + 2
		f.SetCellValue(gridSheetName, fmt.Sprintf("A%d", rowNum), formatDate(expiration))
		for j := range grid.Strikes {
			vol, ok := grid.Vol(i, j)
			if !ok {
				continue // missing cells stay blank
			}
			col, err := excelize.ColumnNumberToName(j + 2)
			if err != nil {
				return fmt.Errorf("failed to name column %d: %w", j+2, err)
			}
			f.SetCellValue(gridSheetName, fmt.Sprintf("%s%d", col, rowNum), vol)
		}
	}
	return nil
}

// writeSummarySheet fills the summary sheet with the build report and the
// level statistics from the grid insights.
func (g *GridExporter) writeSummarySheet(f *excelize.File, grid *volatility.Grid) error {
	if _, err := f.NewSheet(summarySheetName); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	ins := volatility.Insights(grid)

	prunedLabels := make([]string, 0, len(grid.Report.PrunedStrikes))
	for _, strike := range grid.Report.PrunedStrikes {
		prunedLabels = append(prunedLabels, formatFloat(strike))
	}

	rows := []struct {
		label string
		value interface{}
	}{
		{"Valuation Date", formatDate(grid.ValuationDate)},
		{"Expirations", ins.Expirations},
		{"Strikes", ins.Strikes},
		{"Quotes In", grid.Report.QuotesIn},
		{"Quotes Used", grid.Report.QuotesUsed},
		{"Min Observations", grid.Report.MinObservations},
		{"Pruned Strikes", strings.Join(prunedLabels, ", ")},
		{"Observed Cells", ins.Observed},
		{"Interpolated Cells", ins.Interpolated},
		{"Missing Cells", ins.Missing},
		{"Min Vol", ins.MinVol},
		{"Max Vol", ins.MaxVol},
		{"Mean Vol", ins.MeanVol},
		{"Vol Std Dev", ins.StdDev},
	}

	for i, row := range rows {
		rowNum := i + 1
		f.SetCellValue(summarySheetName, fmt.Sprintf("A%d", rowNum), row.label)
		f.SetCellValue(summarySheetName, fmt.Sprintf("B%d", rowNum), row.value)
	}
	return nil
}

// getHeaders returns the CSV header row: the index name then strike labels
func (g *GridExporter) getHeaders(grid *volatility.Grid) []string {
	headers := make([]string, 0, len(grid.Strikes)+1)
	headers = append(headers, "expiration")
	for _, strike := range grid.Strikes {
		headers = append(headers, formatFloat(strike))
	}
	return headers
}
