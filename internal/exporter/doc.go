// Package exporter writes the solver and grid outputs to disk.
//
// This package contains four main components:
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// and UTF-8 BOM for Excel compatibility. Relative paths resolve into the
// configured output directory.
//
// SolvedQuoteExporter: Writes the solved-quote table (quote columns plus
// resolved spot, dividend yield, rate, tau, and the solve outcome) and parses
// it back with ReadSolvedQuotes for standalone grid building.
//
// GridExporter: Writes the volatility grid as a pivoted CSV (expiration rows,
// strike columns) and as an XLSX workbook with a summary sheet.
//
// MeshExporter: Streams dense surface mesh samples as long-format CSV.
//
// Example usage:
//
//	paths, _ := config.GetPaths()
//
//	solvedExporter := exporter.NewSolvedQuoteExporter(paths)
//	err := solvedExporter.ExportSolvedQuotes(solved, paths.GetSolvedQuotesCSVPath(valuation))
//
//	gridExporter := exporter.NewGridExporter(paths)
//	err = gridExporter.ExportGridCSV(grid, paths.GetGridCSVPath(valuation))
//	err = gridExporter.ExportGridWorkbook(grid, paths.GetGridWorkbookPath(valuation))
package exporter
