package rowtext

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/arvonova/xlsxflat/workbook"
)

// renderDateSerial converts a numeric cell value under the given epoch
// into its calendar text. Serials at or below zero render as 1900-01-01
// under either epoch; epoch1900 squashes the phantom 1900-02-29 by subtracting one
// day from any serial at or past 60.
func renderDateSerial(s float64, epoch workbook.DateEpoch) string {
	if s <= 0 {
		return "1900-01-01"
	}

	adjusted := s
	if epoch == workbook.Epoch1904 {
		adjusted += 1462
	}
	if epoch == workbook.Epoch1900 && adjusted >= 60 {
		adjusted--
	}

	dayPart := math.Floor(adjusted)
	daysSince1970 := dayPart - 25568
	unixSeconds := int64(daysSince1970) * 86400
	t := time.Unix(unixSeconds, 0).UTC()
	dateStr := t.Format("2006-01-02")

	frac := s - math.Floor(s)
	totalSeconds := int(math.Round(frac * 86400))
	hh := totalSeconds / 3600
	mm := (totalSeconds % 3600) / 60
	ss := totalSeconds % 60
	timeStr := fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss)

	hasTime := frac > 0.001
	hasDate := frac < 0.999

	switch {
	case hasTime && hasDate:
		return dateStr + "T" + timeStr
	case hasTime:
		return timeStr
	default:
		return dateStr
	}
}

// renderNumber renders a plain numeric cell: NaN and the signed
// infinities render as Excel error tokens; whole values render without
// a decimal point; fractional values render to six decimal places with
// trailing zeros stripped.
func renderNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "#NUM!"
	case math.IsInf(v, 1):
		return "#DIV/0!"
	case math.IsInf(v, -1):
		return "-#DIV/0!"
	}

	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}

	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
