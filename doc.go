// Package xlsxflat provides a fluent API for converting XLSX worksheets
// into delimiter-separated text. The worksheet XML is parsed as a
// stream, but the row emitter keeps every parsed row of the sheet in
// memory until it renders the output, so a worksheet's cells are held
// in memory in full during extraction.
//
// Basic usage:
//
//	text, warnings, err := xlsxflat.Open("report.xlsx").Text()
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", xlsxflat.FormatWarnings(warnings))
//	}
//
// With options:
//
//	text, _, err := xlsxflat.Open("report.xlsx").
//	    Sheet("Q3 Actuals").
//	    Delimiter('\t').
//	    IncludeHiddenRows(true).
//	    Text()
//
// For advanced use cases, the lower-level zipio, opc, workbook, styles,
// sharedstrings, sheetstream, and rowtext packages are also available.
package xlsxflat
