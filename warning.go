package xlsxflat

import "strings"

// Warning is a non-fatal condition encountered while extracting a
// sheet: a degraded optional part (styles or shared strings) or a
// malformed cols/mergeCells section reported by the worksheet parser.
// Per-cell conversion failures (an unparseable number, a truncated
// string) degrade silently and produce no Warning.
type Warning struct {
	Sheet   string
	Message string
}

func (w Warning) String() string {
	if w.Sheet == "" {
		return w.Message
	}
	return w.Sheet + ": " + w.Message
}

// FormatWarnings renders a slice of warnings as a human-readable,
// newline-joined report.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
