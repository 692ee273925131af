package xlsxflat

import (
	"github.com/arvonova/xlsxflat/rowtext"
	"github.com/arvonova/xlsxflat/sharedstrings"
	"github.com/arvonova/xlsxflat/zipio"
)

// extractOptions holds the enumerated configuration surface of an
// Extractor, split across the zip, shared-strings, and row-emission
// layers it eventually feeds.
type extractOptions struct {
	sheetName    string
	sheetIndex   int // -1 means unset/first sheet
	sheetByName  bool

	limits zipio.Limits

	sharedStringsMode      sharedstrings.Mode
	sharedStringsThreshold int64
	maxStringLength        int64
	flattenRichText        bool

	row rowtext.Config
}

// defaultOptions mirrors the documented defaults: first sheet,
// default zip limits, auto shared-strings mode, comma delimiter, LF
// newlines, no BOM, hidden rows/columns excluded, merged=None.
func defaultOptions() extractOptions {
	ssDefaults := sharedstrings.DefaultConfig()
	return extractOptions{
		sheetIndex:             -1,
		limits:                 zipio.DefaultLimits(),
		sharedStringsMode:      ssDefaults.Mode,
		sharedStringsThreshold: ssDefaults.Threshold,
		maxStringLength:        ssDefaults.MaxStringLength,
		flattenRichText:        ssDefaults.FlattenRichText,
		row:                    rowtext.DefaultConfig(),
	}
}

// clone creates a deep copy of extractOptions, preserving the
// immutable fluent-chaining contract of the Extractor above it.
func (o extractOptions) clone() extractOptions {
	return o
}

func (o extractOptions) sharedStringsConfig() sharedstrings.Config {
	return sharedstrings.Config{
		Mode:            o.sharedStringsMode,
		Threshold:       o.sharedStringsThreshold,
		MaxStringLength: o.maxStringLength,
		FlattenRichText: o.flattenRichText,
	}
}
