package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutDir != "gensynth_out" {
		t.Errorf("OutDir = %q, want gensynth_out", cfg.OutDir)
	}
	if cfg.MaxAttemptsCell != 50 || cfg.MaxAttemptsRow != 20 || cfg.MaxAttemptsTable != 100000 {
		t.Errorf("unexpected default budgets: %+v", cfg)
	}
	if cfg.OutputFormat != "csv" {
		t.Errorf("OutputFormat = %q, want csv", cfg.OutputFormat)
	}
	if cfg.ConstraintPolicy != "enforce" {
		t.Errorf("ConstraintPolicy = %q, want enforce", cfg.ConstraintPolicy)
	}
	if cfg.DatabaseURLEnv != "DATABASE_URL" {
		t.Errorf("DatabaseURLEnv = %q, want DATABASE_URL", cfg.DatabaseURLEnv)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gensynth.config.json")
	if err := os.WriteFile(path, []byte(`{"out_dir":"out","output_format":"csv","constraint_policy":"warn"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutDir != "out" {
		t.Errorf("OutDir = %q, want out", cfg.OutDir)
	}
	if cfg.ConstraintPolicy != "warn" {
		t.Errorf("ConstraintPolicy = %q, want warn", cfg.ConstraintPolicy)
	}
}

func TestValidateRejectsUnknownFormatAndPolicy(t *testing.T) {
	cfg := &Config{OutDir: "o", OutputFormat: "parquet", ConstraintPolicy: "enforce"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported output_format")
	}

	cfg = &Config{OutDir: "o", OutputFormat: "csv", ConstraintPolicy: "bogus"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported constraint_policy")
	}

	cfg = &Config{OutDir: "o", OutputFormat: "csv", ConstraintPolicy: "ignore"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDatabaseURLMissing(t *testing.T) {
	cfg := &Config{DatabaseURLEnv: "GENSYNTH_TEST_DB_URL_UNSET"}
	os.Unsetenv("GENSYNTH_TEST_DB_URL_UNSET")
	if _, err := cfg.DatabaseURL(); err == nil {
		t.Error("expected error when env var is unset")
	}
}
