// Package config loads and validates xlsxflat's operator-facing settings:
// the Zip security limits and the default extraction options applied when
// a caller does not override them on an Extractor.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("singlebyte", singleByteDelimiter)
}

// Config holds the full xlsxflat configuration.
type Config struct {
	MaxEntries            int64  `yaml:"max_entries" validate:"gte=0"`
	MaxEntrySize          int64  `yaml:"max_entry_size" validate:"gte=0"`
	MaxTotalUncompressed  int64  `yaml:"max_total_uncompressed" validate:"gte=0"`
	SharedStringsMode     string `yaml:"shared_strings_mode" validate:"oneof=auto memory external"`
	SharedStringsThreshold int64 `yaml:"shared_strings_threshold" validate:"gte=0"`
	MaxStringLength       int64  `yaml:"max_string_length" validate:"gte=0"`
	FlattenRichText       bool   `yaml:"flatten_rich_text"`
	Delimiter             string `yaml:"delimiter" validate:"singlebyte"`
	Newline               string `yaml:"newline" validate:"oneof=LF CRLF"`
	BOM                   bool   `yaml:"bom"`
	IncludeHiddenRows     bool   `yaml:"include_hidden_rows"`
	IncludeHiddenColumns  bool   `yaml:"include_hidden_columns"`
}

// DefaultConfig returns the documented defaults: 10,000 entries,
// 256 MiB per entry, 2 GiB total uncompressed, Auto shared-strings mode
// with a 64 MiB threshold, 1 MiB per-string cap, comma delimiter, LF
// newlines, no BOM, hidden rows/columns excluded.
func DefaultConfig() *Config {
	return &Config{
		MaxEntries:             10_000,
		MaxEntrySize:           256 * 1024 * 1024,
		MaxTotalUncompressed:   2 * 1024 * 1024 * 1024,
		SharedStringsMode:      "auto",
		SharedStringsThreshold: 64 * 1024 * 1024,
		MaxStringLength:        1024 * 1024,
		FlattenRichText:        true,
		Delimiter:              ",",
		Newline:                "LF",
		BOM:                    false,
		IncludeHiddenRows:      false,
		IncludeHiddenColumns:   false,
	}
}

// LoadConfig reads and parses a YAML config file, starting from
// DefaultConfig so an operator only needs to specify overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints via struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func singleByteDelimiter(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) == 1
}
