package xlsxflat

import (
	"fmt"

	"github.com/arvonova/xlsxflat/config"
	"github.com/arvonova/xlsxflat/opc"
	"github.com/arvonova/xlsxflat/rowtext"
	"github.com/arvonova/xlsxflat/sharedstrings"
	"github.com/arvonova/xlsxflat/sheetstream"
	"github.com/arvonova/xlsxflat/styles"
	"github.com/arvonova/xlsxflat/workbook"
	"github.com/arvonova/xlsxflat/zipio"
)

// Extractor provides a fluent interface for configuring and running an
// XLSX-to-text extraction. Each configuration method returns a new
// Extractor instance, so a base configuration can be reused safely
// across multiple terminal calls.
type Extractor struct {
	filename string
	options  extractOptions

	archive      *zipio.Reader
	pkg          *opc.Package
	wb           *workbook.Workbook
	stylesReg    *styles.Registry
	sharedStrs   *sharedstrings.Provider
	opened       bool
	ownsResources bool

	err error
}

// Open opens an XLSX file and returns an Extractor for fluent
// configuration. The underlying Zip archive and parsed parts are not
// touched until a terminal operation (Text, AllSheets, Sheets) runs.
//
// Example:
//
//	text, warnings, err := xlsxflat.Open("report.xlsx").Text()
func Open(filename string) *Extractor {
	return &Extractor{
		filename: filename,
		options:  defaultOptions(),
	}
}

// OpenWithConfig opens an XLSX file with an Extractor pre-configured
// from an operator-facing config.Config (for example loaded via
// config.LoadConfig), overriding Open's built-in defaults.
func OpenWithConfig(filename string, cfg *config.Config) *Extractor {
	e := Open(filename)
	e.options.limits = zipio.Limits{
		MaxEntries:           cfg.MaxEntries,
		MaxEntrySize:         cfg.MaxEntrySize,
		MaxTotalUncompressed: cfg.MaxTotalUncompressed,
	}
	e.options.sharedStringsMode = parseSharedStringsMode(cfg.SharedStringsMode)
	e.options.sharedStringsThreshold = cfg.SharedStringsThreshold
	e.options.maxStringLength = cfg.MaxStringLength
	e.options.flattenRichText = cfg.FlattenRichText
	if len(cfg.Delimiter) > 0 {
		e.options.row.Delimiter = cfg.Delimiter[0]
	}
	if cfg.Newline == "CRLF" {
		e.options.row.Newline = rowtext.CRLF
	} else {
		e.options.row.Newline = rowtext.LF
	}
	e.options.row.BOM = cfg.BOM
	e.options.row.IncludeHiddenRows = cfg.IncludeHiddenRows
	e.options.row.IncludeHiddenColumns = cfg.IncludeHiddenColumns
	return e
}

func parseSharedStringsMode(mode string) sharedstrings.Mode {
	switch mode {
	case "memory":
		return sharedstrings.InMemory
	case "external":
		return sharedstrings.External
	default:
		return sharedstrings.Auto
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustText wraps a call to Text() or AllSheets() and panics if the
// error is non-nil, discarding warnings.
func MustText[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// clone creates a shallow copy of the Extractor with a deep copy of
// options, preserving immutability across the configuration chain.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		filename: e.filename,
		options:  e.options.clone(),
		err:      e.err,
	}
}

// Sheet selects a worksheet by name for the next terminal operation.
func (e *Extractor) Sheet(name string) *Extractor {
	newExt := e.clone()
	newExt.options.sheetName = name
	newExt.options.sheetByName = true
	return newExt
}

// SheetIndex selects a worksheet by its zero-based position in the
// workbook's declared sheet order. -1 (the default) selects the first
// sheet.
func (e *Extractor) SheetIndex(i int) *Extractor {
	newExt := e.clone()
	newExt.options.sheetIndex = i
	newExt.options.sheetByName = false
	return newExt
}

// Delimiter sets the field delimiter used by Text/AllSheets.
func (e *Extractor) Delimiter(b byte) *Extractor {
	newExt := e.clone()
	newExt.options.row.Delimiter = b
	return newExt
}

// Newline selects LF or CRLF line endings.
func (e *Extractor) Newline(n rowtext.Newline) *Extractor {
	newExt := e.clone()
	newExt.options.row.Newline = n
	return newExt
}

// BOM configures whether a UTF-8 byte-order mark is prepended.
func (e *Extractor) BOM(on bool) *Extractor {
	newExt := e.clone()
	newExt.options.row.BOM = on
	return newExt
}

// IncludeHiddenRows configures whether rows marked hidden are emitted.
func (e *Extractor) IncludeHiddenRows(on bool) *Extractor {
	newExt := e.clone()
	newExt.options.row.IncludeHiddenRows = on
	return newExt
}

// IncludeHiddenColumns configures whether columns marked hidden are
// emitted.
func (e *Extractor) IncludeHiddenColumns(on bool) *Extractor {
	newExt := e.clone()
	newExt.options.row.IncludeHiddenColumns = on
	return newExt
}

// Merged selects the merged-cell propagation policy.
func (e *Extractor) Merged(policy rowtext.MergedPolicy) *Extractor {
	newExt := e.clone()
	newExt.options.row.Merged = policy
	return newExt
}

// Limits overrides the Zip container's security limits.
func (e *Extractor) Limits(limits zipio.Limits) *Extractor {
	newExt := e.clone()
	newExt.options.limits = limits
	return newExt
}

// SharedStrings overrides the shared-strings storage mode and the
// Auto-mode in-memory/external threshold (in bytes).
func (e *Extractor) SharedStrings(mode sharedstrings.Mode, threshold int64) *Extractor {
	newExt := e.clone()
	newExt.options.sharedStringsMode = mode
	newExt.options.sharedStringsThreshold = threshold
	return newExt
}

// ensureOpen opens the archive and parses the workbook, styles, and
// shared-strings parts once, matching the open-then-reuse order of the
// source's readSheetToCsv/readMultipleSheets.
func (e *Extractor) ensureOpen() ([]Warning, error) {
	if e.opened {
		return nil, nil
	}
	if e.filename == "" {
		return nil, fmt.Errorf("xlsxflat: no filename specified")
	}

	archive, err := zipio.Open(e.filename, e.options.limits)
	if err != nil {
		return nil, fmt.Errorf("opening zip container: %w", err)
	}

	pkg, err := opc.Open(archive)
	if err != nil {
		archive.Close()
		return nil, fmt.Errorf("resolving OPC package: %w", err)
	}

	wb, err := workbook.Open(pkg)
	if err != nil {
		archive.Close()
		return nil, fmt.Errorf("parsing workbook: %w", err)
	}

	var warnings []Warning

	stylesReg, err := openStyles(pkg)
	if err != nil {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("styles part unavailable, numeric cells will not be classified as dates: %v", err)})
		stylesReg = styles.Empty()
	}

	sharedStrs, err := openSharedStrings(pkg, e.options.sharedStringsConfig())
	if err != nil {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("shared-strings part unavailable, shared-string cells will render empty: %v", err)})
		sharedStrs = sharedstrings.Empty()
	}

	e.archive = archive
	e.pkg = pkg
	e.wb = wb
	e.stylesReg = stylesReg
	e.sharedStrs = sharedStrs
	e.opened = true
	e.ownsResources = true
	return warnings, nil
}

// openStyles reads the styles part from its conventional location,
// xl/styles.xml; neither the content-types table nor the workbook
// relationships are consulted to locate it.
func openStyles(pkg *opc.Package) (*styles.Registry, error) {
	return styles.Parse(pkg, "xl/styles.xml")
}

func openSharedStrings(pkg *opc.Package, cfg sharedstrings.Config) (*sharedstrings.Provider, error) {
	return sharedstrings.Parse(pkg, "xl/sharedStrings.xml", cfg)
}

// Close releases the underlying Zip archive, if open. Safe to call
// multiple times.
func (e *Extractor) Close() error {
	if e.ownsResources && e.archive != nil {
		err := e.archive.Close()
		e.archive = nil
		e.ownsResources = false
		e.opened = false
		return err
	}
	return nil
}

// resolveSheet applies sheet-selector precedence: a name selector wins
// when set; otherwise the index selector is used, with -1 meaning the
// first declared sheet.
func (e *Extractor) resolveSheet() (workbook.SheetInfo, error) {
	if len(e.wb.Sheets()) == 0 {
		return workbook.SheetInfo{}, &NoSheetsError{}
	}

	if e.options.sheetByName {
		s, err := e.wb.Find(e.options.sheetName)
		if err != nil {
			return workbook.SheetInfo{}, &SheetNotFoundError{Name: e.options.sheetName, ByName: true}
		}
		return s, nil
	}

	s, err := e.wb.FindIndex(e.options.sheetIndex)
	if err != nil {
		return workbook.SheetInfo{}, &SheetNotFoundError{Index: e.options.sheetIndex}
	}
	return s, nil
}

// renderSheet streams one worksheet part into delimiter text using a
// rowtext.Emitter, collecting any warnings emitted along the way.
func (e *Extractor) renderSheet(sheet workbook.SheetInfo) (string, []Warning, error) {
	data, err := e.pkg.Archive().Read(sheet.Target)
	if err != nil {
		return "", nil, fmt.Errorf("reading sheet %q: %w", sheet.Name, err)
	}

	emitter := rowtext.NewEmitter(e.options.row, e.wb.DateEpoch(), e.sharedStrs, e.stylesReg)
	if err := sheetstream.ParseSheet(data, emitter); err != nil {
		return "", nil, fmt.Errorf("parsing sheet %q: %w", sheet.Name, err)
	}

	warnings := make([]Warning, 0, len(emitter.Warnings()))
	for _, msg := range emitter.Warnings() {
		warnings = append(warnings, Warning{Sheet: sheet.Name, Message: msg})
	}
	return emitter.Result(), warnings, nil
}

// Text extracts and returns the delimiter-separated text content of
// the configured sheet. This is a terminal operation that closes the
// underlying Zip archive.
//
// Example:
//
//	text, warnings, err := xlsxflat.Open("report.xlsx").Text()
func (e *Extractor) Text() (string, []Warning, error) {
	if e.err != nil {
		return "", nil, e.err
	}

	openWarnings, err := e.ensureOpen()
	if err != nil {
		return "", nil, err
	}
	defer e.Close()

	sheet, err := e.resolveSheet()
	if err != nil {
		return "", openWarnings, err
	}

	text, rowWarnings, err := e.renderSheet(sheet)
	if err != nil {
		return "", openWarnings, err
	}

	return text, append(openWarnings, rowWarnings...), nil
}

// AllSheets extracts every visible sheet in the workbook, keyed by
// sheet name, reusing a single parsed workbook, styles registry, and
// shared-strings pool across all of them. Sheets hidden or very-hidden
// in the workbook are skipped, matching the original facade's separate
// getVisibleSheets listing step. This is a terminal operation that
// closes the underlying Zip archive.
func (e *Extractor) AllSheets() (map[string]string, []Warning, error) {
	if e.err != nil {
		return nil, nil, e.err
	}

	openWarnings, err := e.ensureOpen()
	if err != nil {
		return nil, nil, err
	}
	defer e.Close()

	var sheets []workbook.SheetInfo
	for _, s := range e.wb.Sheets() {
		if s.Visibility == workbook.Visible {
			sheets = append(sheets, s)
		}
	}
	if len(sheets) == 0 {
		return nil, openWarnings, &NoSheetsError{}
	}

	results := make(map[string]string, len(sheets))
	warnings := openWarnings
	for _, sheet := range sheets {
		text, rowWarnings, err := e.renderSheet(sheet)
		if err != nil {
			return nil, warnings, err
		}
		results[sheet.Name] = text
		warnings = append(warnings, rowWarnings...)
	}

	return results, warnings, nil
}

// Sheets lists the workbook's declared sheets without parsing any
// worksheet content: a lightweight operation suitable for populating
// a sheet picker before committing to a full extraction.
func (e *Extractor) Sheets() ([]workbook.SheetInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.filename == "" {
		return nil, fmt.Errorf("xlsxflat: no filename specified")
	}

	archive, err := zipio.Open(e.filename, e.options.limits)
	if err != nil {
		return nil, fmt.Errorf("opening zip container: %w", err)
	}
	defer archive.Close()

	pkg, err := opc.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("resolving OPC package: %w", err)
	}

	wb, err := workbook.Open(pkg)
	if err != nil {
		return nil, fmt.Errorf("parsing workbook: %w", err)
	}

	return wb.Sheets(), nil
}
