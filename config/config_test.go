package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoadConfigMergesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xlsxflat.yaml")
	body := "delimiter: \";\"\nbom: true\nmax_entries: 500\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Delimiter != ";" {
		t.Errorf("Delimiter = %q, want ;", cfg.Delimiter)
	}
	if !cfg.BOM {
		t.Error("BOM = false, want true")
	}
	if cfg.MaxEntries != 500 {
		t.Errorf("MaxEntries = %d, want 500", cfg.MaxEntries)
	}
	// Unspecified fields keep their defaults.
	if cfg.Newline != "LF" {
		t.Errorf("Newline = %q, want LF", cfg.Newline)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBadDelimiter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delimiter = "ab"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for multi-byte delimiter")
	}
}

func TestValidateRejectsBadSharedStringsMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SharedStringsMode = "disk"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid shared_strings_mode")
	}
}

func TestValidateRejectsNegativeLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEntries = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative max_entries")
	}
}
