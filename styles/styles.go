// Package styles parses the xl/styles.xml part and classifies number
// formats so the row emitter can tell a date-valued cell from a plain
// number.
package styles

import (
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/arvonova/xlsxflat/opc"
)

// Classification is the coarse bucket a number-format code falls into.
type Classification int

const (
	General Classification = iota
	Integer
	Decimal
	Percentage
	Currency
	Scientific
	Fraction
	Date
	Time
	DateTime
	Text
	Custom
)

// NumberFormat pairs a numFmtId with its format code and classification.
type NumberFormat struct {
	ID             int
	Code           string
	Classification Classification
}

// StyleEntry is one row of the cellXfs table.
type StyleEntry struct {
	NumFmtID    int
	FontID      int
	FillID      int
	BorderID    int
	IsDateTime  bool
}

type stylesXML struct {
	XMLName xml.Name    `xml:"styleSheet"`
	NumFmts *numFmtsXML `xml:"numFmts"`
	CellXfs *cellXfsXML `xml:"cellXfs"`
}

type numFmtsXML struct {
	NumFmt []numFmtXML `xml:"numFmt"`
}

type numFmtXML struct {
	NumFmtID   int    `xml:"numFmtId,attr"`
	FormatCode string `xml:"formatCode,attr"`
}

type cellXfsXML struct {
	Xf []xfXML `xml:"xf"`
}

type xfXML struct {
	NumFmtID int `xml:"numFmtId,attr"`
	FontID   int `xml:"fontId,attr"`
	FillID   int `xml:"fillId,attr"`
	BorderID int `xml:"borderId,attr"`
}

// Registry holds the parsed number-format table and the cellXfs-derived
// style list, with isDateTime precomputed per style index.
type Registry struct {
	formats map[int]NumberFormat
	styles  []StyleEntry
}

// Empty returns a registry with no custom formats and no styles, used
// when the styles part is absent or fails to parse — every numeric
// cell then renders as a plain number.
func Empty() *Registry {
	return &Registry{formats: builtinFormatTable()}
}

// Parse reads and decodes the styles part at the package path
// stylesPart, used as given.
func Parse(pkg *opc.Package, stylesPart string) (*Registry, error) {
	data, err := pkg.Archive().Read(stylesPart)
	if err != nil {
		return nil, err
	}

	var sx stylesXML
	if err := xml.Unmarshal(data, &sx); err != nil {
		return nil, &InvalidXMLError{Part: stylesPart, Err: err}
	}

	r := &Registry{formats: builtinFormatTable()}
	if sx.NumFmts != nil {
		for _, nf := range sx.NumFmts.NumFmt {
			r.formats[nf.NumFmtID] = NumberFormat{
				ID:             nf.NumFmtID,
				Code:           nf.FormatCode,
				Classification: Classify(nf.FormatCode),
			}
		}
	}

	if sx.CellXfs != nil {
		for _, xf := range sx.CellXfs.Xf {
			nf, known := r.formats[xf.NumFmtID]
			isDateTime := known && (nf.Classification == Date || nf.Classification == Time || nf.Classification == DateTime)
			r.styles = append(r.styles, StyleEntry{
				NumFmtID:   xf.NumFmtID,
				FontID:     xf.FontID,
				FillID:     xf.FillID,
				BorderID:   xf.BorderID,
				IsDateTime: isDateTime,
			})
		}
	}

	return r, nil
}

func builtinFormatTable() map[int]NumberFormat {
	table := make(map[int]NumberFormat, len(builtinNumFmts))
	for id, code := range builtinNumFmts {
		table[id] = NumberFormat{ID: id, Code: code, Classification: Classify(code)}
	}
	return table
}

// CellStyle returns the style entry at index i, or the zero-value (General,
// not date-time) when i is out of range.
func (r *Registry) CellStyle(i int) StyleEntry {
	if i < 0 || i >= len(r.styles) {
		return StyleEntry{}
	}
	return r.styles[i]
}

// NumberFormat returns the classified number format for a numFmtId,
// falling back to an unclassified General entry when unknown.
func (r *Registry) NumberFormat(id int) NumberFormat {
	if nf, ok := r.formats[id]; ok {
		return nf
	}
	return NumberFormat{ID: id, Code: "General", Classification: General}
}

// IsDateTimeStyle reports whether the style at index i classifies as a
// date, time, or datetime value. Monotone across repeated queries since
// the table is read-only after Parse.
func (r *Registry) IsDateTimeStyle(i int) bool {
	return r.CellStyle(i).IsDateTime
}

// scientificPattern matches an exponent marker: e/E immediately followed
// by a sign.
var scientificPattern = regexp.MustCompile(`[eE][+-]`)

// dRunPattern matches a run of day tokens.
var dRunPattern = regexp.MustCompile(`d+`)

// monthRunPattern matches a run of uppercase month tokens.
var monthRunPattern = regexp.MustCompile(`M+`)

// minuteRunPattern matches a run of lowercase minute tokens.
var minuteRunPattern = regexp.MustCompile(`m+`)

// Classify applies a precedence-ordered classification of a number
// format code into General/Integer/Decimal/Percentage/Currency/
// Scientific/Fraction/Date/Time/DateTime/Text/Custom. The literal "AM/PM" token is stripped before
// scanning for month tokens so its M does not count as a month
// indicator.
func Classify(code string) Classification {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || trimmed == "General" {
		return General
	}
	if strings.Contains(code, "%") {
		return Percentage
	}
	if strings.Contains(code, "$") || strings.ContainsRune(code, '¤') || strings.Contains(code, "[Currency]") {
		return Currency
	}
	if scientificPattern.MatchString(code) {
		return Scientific
	}
	if strings.Contains(code, "@") {
		return Text
	}

	withoutAMPM := strings.ReplaceAll(code, "AM/PM", "")
	withoutAMPM = strings.ReplaceAll(withoutAMPM, "am/pm", "")

	hasDate := strings.ContainsAny(code, "yY") ||
		dRunPattern.MatchString(code) ||
		monthRunPattern.MatchString(withoutAMPM)

	hasH := strings.ContainsAny(code, "hH")
	hasS := strings.ContainsAny(code, "sS")
	hasMinute := minuteRunPattern.MatchString(code) && (hasH || hasS)
	hasTime := hasH || hasS || hasMinute

	switch {
	case hasDate && hasTime:
		return DateTime
	case hasDate:
		return Date
	case hasTime:
		return Time
	}

	if strings.Contains(code, "/") {
		return Fraction
	}
	if strings.Contains(code, ".") {
		return Decimal
	}
	if strings.ContainsAny(code, "0#") {
		return Integer
	}
	return Custom
}
