// Package quotes handles ingestion of option quote tables from vendor files.
//
// This package contains three main components:
//
// Parser: Reads CSV and XLSX exports into Quote values. Vendor exports
// rarely agree on column names or layout, so the parser scans the first few
// rows for a header it can resolve through a ColumnMapping, tolerates
// banner rows above the header, and skips malformed data rows with a
// per-row reason instead of failing the whole file. Strict mode turns
// those skips into errors.
//
// ColumnMapping: Translates vendor column headers to the canonical field
// names the rest of the system uses (expiration_date, strike, option_price,
// option_type, and friends). Mappings are flat YAML files so a new vendor
// format needs configuration, not code.
//
// Discovery: Finds quote files in a directory by extension and modification
// time, so batch runs can pick up the latest export without naming it.
//
// Example usage:
//
//	mapping, err := quotes.LoadColumnMapping("mappings/vendor.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := quotes.ParseCSVFile("chain.csv", quotes.ParseOptions{
//	    Mapping:       mapping,
//	    ValuationDate: valuationDate,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// result.Quotes is ready for the volatility calculator
package quotes
