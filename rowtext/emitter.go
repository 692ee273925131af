// Package rowtext implements the RowEmitter: it consumes worksheet row
// and metadata events and renders them into delimiter-separated text,
// resolving shared strings, classifying dates, propagating merged-cell
// values, and applying the configured escaping and post-processing
// rules.
package rowtext

import (
	"strings"

	"github.com/arvonova/xlsxflat/sharedstrings"
	"github.com/arvonova/xlsxflat/sheetstream"
	"github.com/arvonova/xlsxflat/styles"
	"github.com/arvonova/xlsxflat/workbook"
)

// Newline selects the end-of-record sequence.
type Newline int

const (
	LF Newline = iota
	CRLF
)

// MergedPolicy controls whether an absent cell inside a merged range
// inherits the top-left cell's rendered value.
type MergedPolicy int

const (
	MergedNone MergedPolicy = iota
	MergedPropagate
)

// Config holds the RowEmitter's enumerated rendering options.
type Config struct {
	Delimiter            byte
	Newline              Newline
	BOM                  bool
	IncludeHiddenRows    bool
	IncludeHiddenColumns bool
	Merged               MergedPolicy
}

// DefaultConfig returns the conventional CSV defaults: comma
// delimiter, LF newlines, no BOM, hidden rows/columns excluded,
// merged=None.
func DefaultConfig() Config {
	return Config{
		Delimiter: ',',
		Newline:   LF,
		Merged:    MergedNone,
	}
}

// Emitter accumulates worksheet rows and renders them to delimiter
// text on Result. It implements sheetstream.Handler.
type Emitter struct {
	cfg           Config
	epoch         workbook.DateEpoch
	sharedStrings *sharedstrings.Provider
	styles        *styles.Registry

	rows          []sheetstream.Row
	hiddenColumns map[int]bool
	mergedRanges  []sheetstream.MergedRange
	warnings      []string
}

// NewEmitter constructs an Emitter borrowing the given shared-strings
// provider and styles registry for the duration of the sheet session;
// both must outlive the Emitter.
func NewEmitter(cfg Config, epoch workbook.DateEpoch, ss *sharedstrings.Provider, st *styles.Registry) *Emitter {
	return &Emitter{
		cfg:           cfg,
		epoch:         epoch,
		sharedStrings: ss,
		styles:        st,
		hiddenColumns: make(map[int]bool),
	}
}

// OnRow buffers the row for rendering at Result time, so every row of
// the sheet is held in memory until then. Buffering full
// rows (rather than just the output buffer) is necessary because
// mergeCells commonly appears after sheetData in worksheet XML, so
// merge ranges are not known until streaming completes.
func (e *Emitter) OnRow(r sheetstream.Row) {
	e.rows = append(e.rows, r)
}

// OnWorksheetMetadata records the latest column/merge metadata,
// treating each delivery as authoritative.
func (e *Emitter) OnWorksheetMetadata(m sheetstream.Metadata) {
	hidden := make(map[int]bool)
	for _, c := range m.Columns {
		if c.Hidden {
			hidden[c.Column] = true
		}
	}
	e.hiddenColumns = hidden
	e.mergedRanges = m.MergedRanges
}

// OnError records a non-fatal parse warning.
func (e *Emitter) OnError(message string) {
	e.warnings = append(e.warnings, message)
}

// Warnings returns the non-fatal messages accumulated during streaming.
func (e *Emitter) Warnings() []string { return e.warnings }

// Result renders all buffered rows into the final text, applying
// merged-cell propagation, CRLF conversion, and BOM insertion.
func (e *Emitter) Result() string {
	cellToRange := make(map[sheetstream.Coord]string)
	topLeftByRef := make(map[string]sheetstream.Coord)
	for _, mr := range e.mergedRanges {
		ref := canonicalRangeRef(mr)
		topLeftByRef[ref] = mr.TopLeft
		for r := mr.TopLeft.Row; r <= mr.BottomRight.Row; r++ {
			for c := mr.TopLeft.Column; c <= mr.BottomRight.Column; c++ {
				cellToRange[sheetstream.Coord{Row: r, Column: c}] = ref
			}
		}
	}

	topLeftCache := make(map[string]string)

	var body strings.Builder
	for _, row := range e.rows {
		if row.Hidden && !e.cfg.IncludeHiddenRows {
			continue
		}
		body.WriteString(e.renderRow(row, cellToRange, topLeftByRef, topLeftCache))
		body.WriteByte('\n')
	}

	out := body.String()
	if e.cfg.Newline == CRLF {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	if e.cfg.BOM {
		out = "\uFEFF" + out
	}
	return out
}

func (e *Emitter) renderRow(
	row sheetstream.Row,
	cellToRange map[sheetstream.Coord]string,
	topLeftByRef map[string]sheetstream.Coord,
	topLeftCache map[string]string,
) string {
	if len(row.Cells) == 0 {
		return ""
	}

	maxCol := 0
	for _, c := range row.Cells {
		if c.Coord.Column > maxCol {
			maxCol = c.Coord.Column
		}
	}
	// A merged range anchored on or spanning this row extends maxCol
	// even when its non-top-left cells carry no explicit <c> element,
	// so the range's trailing fields still get a position to render
	// into (empty, or the propagated value).
	for _, mr := range e.mergedRanges {
		if row.Number >= mr.TopLeft.Row && row.Number <= mr.BottomRight.Row && mr.BottomRight.Column > maxCol {
			maxCol = mr.BottomRight.Column
		}
	}

	var fields []string
	cellIdx := 0
	for col := 1; col <= maxCol; col++ {
		if e.hiddenColumns[col] && !e.cfg.IncludeHiddenColumns {
			if cellIdx < len(row.Cells) && row.Cells[cellIdx].Coord.Column == col {
				cellIdx++
			}
			continue
		}

		var text string
		if cellIdx < len(row.Cells) && row.Cells[cellIdx].Coord.Column == col {
			cell := row.Cells[cellIdx]
			text = e.renderCellValue(cell)
			cellIdx++

			if ref, ok := cellToRange[cell.Coord]; ok {
				if _, cached := topLeftCache[ref]; !cached && topLeftByRef[ref] == cell.Coord {
					topLeftCache[ref] = text
				}
			}
		} else if e.cfg.Merged == MergedPropagate {
			coord := sheetstream.Coord{Row: row.Number, Column: col}
			if ref, ok := cellToRange[coord]; ok {
				if cached, found := topLeftCache[ref]; found {
					text = cached
				}
			}
		}

		fields = append(fields, escapeField(text, e.cfg.Delimiter))
	}

	return strings.Join(fields, string(e.cfg.Delimiter))
}

// canonicalRangeRef renders a merged range's canonical textual form,
// used as the merge-cache key.
func canonicalRangeRef(mr sheetstream.MergedRange) string {
	return sheetstream.RenderCoord(mr.TopLeft) + ":" + sheetstream.RenderCoord(mr.BottomRight)
}

func (e *Emitter) renderCellValue(cell sheetstream.Cell) string {
	v := cell.Value
	switch v.Kind {
	case sheetstream.KindEmpty:
		return ""
	case sheetstream.KindBoolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case sheetstream.KindError:
		if v.Text == "" {
			return "#N/A"
		}
		return v.Text
	case sheetstream.KindInlineString, sheetstream.KindString, sheetstream.KindUnknown:
		return v.Text
	case sheetstream.KindSharedString:
		if e.sharedStrings == nil {
			return ""
		}
		return e.sharedStrings.TryGet(v.SharedIndex)
	case sheetstream.KindNumber:
		if e.styles != nil && e.styles.IsDateTimeStyle(cell.Style) {
			return renderDateSerial(v.Number, e.epoch)
		}
		return renderNumber(v.Number)
	default:
		return ""
	}
}

// escapeField applies RFC-4180-like quoting: a field containing the
// delimiter, a double quote, LF, or CR is wrapped in quotes with every
// embedded quote doubled.
func escapeField(s string, delimiter byte) string {
	needsQuote := strings.IndexByte(s, delimiter) >= 0 ||
		strings.ContainsRune(s, '"') ||
		strings.ContainsAny(s, "\n\r")
	if !needsQuote {
		return s
	}
	escaped := strings.ReplaceAll(s, `"`, `""`)
	return `"` + escaped + `"`
}
