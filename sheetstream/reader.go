// Package sheetstream implements the worksheet pull parser: it streams a
// worksheet part's XML and delivers row and metadata events to a
// Handler without ever materializing the whole sheet in memory.
package sheetstream

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
)

// ValueKind tags a cell's decoded value.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindBoolean
	KindNumber
	KindSharedString
	KindInlineString
	KindString
	KindError
	KindUnknown
)

// CellValue is a tagged union of a cell's decoded content. Only the
// field matching Kind is meaningful.
type CellValue struct {
	Kind        ValueKind
	Bool        bool
	Number      float64
	SharedIndex int
	Text        string // InlineString, String, Error
}

// Cell is one parsed worksheet cell.
type Cell struct {
	Coord Coord
	Value CellValue
	Style int
}

// Row is one parsed worksheet row; Cells are in document order with
// strictly increasing column.
type Row struct {
	Number int
	Hidden bool
	Cells  []Cell
}

// ColumnDescriptor describes one worksheet column, expanded from a
// cols/col [min,max] range.
type ColumnDescriptor struct {
	Column   int
	Hidden   bool
	Width    float64
	HasWidth bool
}

// MergedRange is a rectangular block of merged cells.
type MergedRange struct {
	TopLeft     Coord
	BottomRight Coord
}

// Metadata is the latest snapshot of structural (non-row) worksheet
// state; the handler must treat the most recent delivery as
// authoritative.
type Metadata struct {
	MergedRanges []MergedRange
	Columns      []ColumnDescriptor
}

// Handler receives pull-parser events.
type Handler interface {
	OnRow(Row)
	OnWorksheetMetadata(Metadata)
	OnError(message string)
}

const maxSpanHint = 16384

// ParseSheet streams the worksheet XML in data, delivering events to h.
func ParseSheet(data []byte, h Handler) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	meta := Metadata{}

	for {
		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			h.OnError(err.Error())
			return &ParseError{Location: "worksheet", Err: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "row":
			row, err := parseRow(decoder, start)
			if err != nil {
				h.OnError(err.Error())
				return &ParseError{Location: "row", Err: err}
			}
			h.OnRow(row)
		case "cols":
			cols, err := parseCols(decoder)
			if err != nil {
				h.OnError(err.Error())
				continue
			}
			meta.Columns = append(meta.Columns, cols...)
			h.OnWorksheetMetadata(meta)
		case "mergeCells":
			ranges, err := parseMergeCells(decoder)
			if err != nil {
				h.OnError(err.Error())
				continue
			}
			meta.MergedRanges = append(meta.MergedRanges, ranges...)
			h.OnWorksheetMetadata(meta)
		}
	}

	h.OnWorksheetMetadata(meta)
	return nil
}

func attrValue(attrs []xml.Attr, local string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func parseRow(decoder *xml.Decoder, start xml.StartElement) (Row, error) {
	row := Row{Number: 1}
	if v, ok := attrValue(start.Attr, "r"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			row.Number = n
		}
	}
	if v, ok := attrValue(start.Attr, "hidden"); ok {
		row.Hidden = v == "1" || v == "true"
	}
	if v, ok := attrValue(start.Attr, "spans"); ok {
		if hint := spanCapacityHint(v); hint > 0 {
			row.Cells = make([]Cell, 0, hint)
		}
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			return Row{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "c" {
				cell, err := parseCell(decoder, t)
				if err != nil {
					return Row{}, err
				}
				row.Cells = append(row.Cells, cell)
			} else {
				if err := decoder.Skip(); err != nil {
					return Row{}, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "row" {
				return row, nil
			}
		}
	}
}

// spanCapacityHint parses a spans="first:last" attribute into a capacity
// hint, capped at 16384 to avoid over-allocating on a corrupt attribute.
func spanCapacityHint(spans string) int {
	var first, last int
	n, err := parseSpan(spans, &first, &last)
	if err != nil || n != 2 {
		return 0
	}
	hint := last - first + 1
	if hint < 0 {
		return 0
	}
	if hint > maxSpanHint {
		return maxSpanHint
	}
	return hint
}

func parseSpan(spans string, first, last *int) (int, error) {
	for i := 0; i < len(spans); i++ {
		if spans[i] == ':' {
			f, err1 := strconv.Atoi(spans[:i])
			l, err2 := strconv.Atoi(spans[i+1:])
			if err1 != nil || err2 != nil {
				return 0, err1
			}
			*first, *last = f, l
			return 2, nil
		}
	}
	return 0, nil
}

func parseCell(decoder *xml.Decoder, start xml.StartElement) (Cell, error) {
	cell := Cell{}
	typeAttr := "n"

	if v, ok := attrValue(start.Attr, "r"); ok {
		if c, err := ParseCoord(v); err == nil {
			cell.Coord = c
		}
	}
	if v, ok := attrValue(start.Attr, "t"); ok {
		typeAttr = v
	}
	if v, ok := attrValue(start.Attr, "s"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cell.Style = n
		}
	}

	var rawValue string
	var hasValue bool
	var inlineText string
	var hasInline bool

	for {
		tok, err := decoder.Token()
		if err != nil {
			return Cell{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "v":
				var vText string
				for {
					vt, err := decoder.Token()
					if err != nil {
						return Cell{}, err
					}
					if cd, ok := vt.(xml.CharData); ok {
						vText += string(cd)
						continue
					}
					if end, ok := vt.(xml.EndElement); ok && end.Name.Local == "v" {
						break
					}
				}
				rawValue = vText
				hasValue = true
			case "is":
				inlineText, err = parseInlineString(decoder)
				if err != nil {
					return Cell{}, err
				}
				hasInline = true
			default:
				if err := decoder.Skip(); err != nil {
					return Cell{}, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "c" {
				cell.Value = decodeCellValue(typeAttr, rawValue, hasValue, inlineText, hasInline)
				return cell, nil
			}
		}
	}
}

// decodeCellValue decodes a cell's t attribute and value content into a
// CellValue. An is child overrides any t attribute.
func decodeCellValue(typeAttr, rawValue string, hasValue bool, inlineText string, hasInline bool) CellValue {
	if hasInline {
		return CellValue{Kind: KindInlineString, Text: inlineText}
	}
	if !hasValue {
		return CellValue{Kind: KindEmpty}
	}

	switch typeAttr {
	case "b":
		return CellValue{Kind: KindBoolean, Bool: rawValue == "1"}
	case "n", "":
		n, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return CellValue{Kind: KindEmpty}
		}
		return CellValue{Kind: KindNumber, Number: n}
	case "s":
		idx, err := strconv.Atoi(rawValue)
		if err != nil || idx < 0 {
			return CellValue{Kind: KindEmpty}
		}
		return CellValue{Kind: KindSharedString, SharedIndex: idx}
	case "str":
		return CellValue{Kind: KindString, Text: rawValue}
	case "e":
		return CellValue{Kind: KindError, Text: rawValue}
	case "inlineStr":
		return CellValue{Kind: KindInlineString, Text: rawValue}
	default:
		return CellValue{Kind: KindUnknown, Text: rawValue}
	}
}

// parseInlineString accumulates the character data of every t element
// inside an is element (one or more t children, possibly wrapped in r
// runs), flattening rich-text runs the same way shared strings does.
func parseInlineString(decoder *xml.Decoder) (string, error) {
	var text string
	depth := 1
	inT := 0
	for depth > 0 {
		tok, err := decoder.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "t" {
				inT++
			}
		case xml.CharData:
			if inT > 0 {
				text += string(t)
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" && inT > 0 {
				inT--
			}
		}
	}
	return text, nil
}

func parseCols(decoder *xml.Decoder) ([]ColumnDescriptor, error) {
	var out []ColumnDescriptor
	for {
		tok, err := decoder.Token()
		if err != nil {
			return out, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "col" {
				out = append(out, expandColDescriptor(t)...)
			} else {
				decoder.Skip()
			}
		case xml.EndElement:
			if t.Name.Local == "cols" {
				return out, nil
			}
		}
	}
}

func expandColDescriptor(start xml.StartElement) []ColumnDescriptor {
	min, max := 0, 0
	hidden := false
	width := 0.0
	hasWidth := false

	if v, ok := attrValue(start.Attr, "min"); ok {
		min, _ = strconv.Atoi(v)
	}
	if v, ok := attrValue(start.Attr, "max"); ok {
		max, _ = strconv.Atoi(v)
	}
	if v, ok := attrValue(start.Attr, "hidden"); ok {
		hidden = v == "1" || v == "true"
	}
	if v, ok := attrValue(start.Attr, "width"); ok {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			width = w
			hasWidth = true
		}
	}
	if min == 0 || max == 0 || max < min {
		return nil
	}

	out := make([]ColumnDescriptor, 0, max-min+1)
	for c := min; c <= max; c++ {
		out = append(out, ColumnDescriptor{Column: c, Hidden: hidden, Width: width, HasWidth: hasWidth})
	}
	return out
}

func parseMergeCells(decoder *xml.Decoder) ([]MergedRange, error) {
	var out []MergedRange
	for {
		tok, err := decoder.Token()
		if err != nil {
			return out, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "mergeCell" {
				if v, ok := attrValue(t.Attr, "ref"); ok {
					if mr, err := parseMergeRef(v); err == nil {
						out = append(out, mr)
					}
				}
				decoder.Skip()
			} else {
				decoder.Skip()
			}
		case xml.EndElement:
			if t.Name.Local == "mergeCells" {
				return out, nil
			}
		}
	}
}

func parseMergeRef(ref string) (MergedRange, error) {
	i := indexByte(ref, ':')
	if i < 0 {
		return MergedRange{}, &InvalidMergedRangeError{Ref: ref}
	}
	topLeft, err := ParseCoord(ref[:i])
	if err != nil {
		return MergedRange{}, err
	}
	bottomRight, err := ParseCoord(ref[i+1:])
	if err != nil {
		return MergedRange{}, err
	}
	if bottomRight.Row < topLeft.Row || bottomRight.Column < topLeft.Column {
		return MergedRange{}, &InvalidMergedRangeError{Ref: ref}
	}
	return MergedRange{TopLeft: topLeft, BottomRight: bottomRight}, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
