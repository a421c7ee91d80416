package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	if !cfg.DryRun {
		t.Error("DryRun should default to true")
	}
	if cfg.Collect.LookbackDays != 14 {
		t.Errorf("LookbackDays = %d, want 14", cfg.Collect.LookbackDays)
	}
	if cfg.Collect.SeverityMin != "MEDIUM" {
		t.Errorf("SeverityMin = %q, want MEDIUM", cfg.Collect.SeverityMin)
	}
	if cfg.Correlation.DeltaThresholdPct != 30 {
		t.Errorf("DeltaThresholdPct = %v, want 30", cfg.Correlation.DeltaThresholdPct)
	}
	if cfg.Correlation.ZScoreThreshold != 2.0 {
		t.Errorf("ZScoreThreshold = %v, want 2.0", cfg.Correlation.ZScoreThreshold)
	}
	if cfg.Correlation.BufferHours != 24 {
		t.Errorf("BufferHours = %d, want 24", cfg.Correlation.BufferHours)
	}
	if cfg.Correlation.HistoryWeeks != 8 {
		t.Errorf("HistoryWeeks = %d, want 8", cfg.Correlation.HistoryWeeks)
	}
	if cfg.Correlation.ServiceDiversityThreshold != 3 {
		t.Errorf("ServiceDiversityThreshold = %d, want 3", cfg.Correlation.ServiceDiversityThreshold)
	}
	if got := cfg.Collect.SecurityProviders; len(got) != 2 || got[0] != "securityhub" || got[1] != "guardduty" {
		t.Errorf("SecurityProviders = %v, want [securityhub guardduty]", got)
	}
	if cfg.CronSchedule != "0 6 * * MON" {
		t.Errorf("CronSchedule = %q", cfg.CronSchedule)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DRY_RUN", "false")
	t.Setenv("DELTA_THRESHOLD", "45.5")
	t.Setenv("MATCH_BUFFER_HOURS", "12")
	t.Setenv("TARGET_SERVICES", "Amazon EC2, Amazon S3,")
	t.Setenv("SEVERITY_MIN", "high")
	t.Setenv("RAW_DATA_BUCKET", "spendguard-raw")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Environment != "prod" {
		t.Errorf("Environment = %q, want prod", cfg.Environment)
	}
	if cfg.DryRun {
		t.Error("DryRun should be false")
	}
	if cfg.Correlation.DeltaThresholdPct != 45.5 {
		t.Errorf("DeltaThresholdPct = %v, want 45.5", cfg.Correlation.DeltaThresholdPct)
	}
	if cfg.Correlation.BufferHours != 12 {
		t.Errorf("BufferHours = %d, want 12", cfg.Correlation.BufferHours)
	}
	if got := cfg.Collect.TargetServices; len(got) != 2 || got[0] != "Amazon EC2" || got[1] != "Amazon S3" {
		t.Errorf("TargetServices = %v, want trimmed two entries", got)
	}
	if cfg.Collect.SeverityMin != "HIGH" {
		t.Errorf("SeverityMin = %q, want uppercased HIGH", cfg.Collect.SeverityMin)
	}
	if cfg.Storage.RawBucket != "spendguard-raw" {
		t.Errorf("RawBucket = %q", cfg.Storage.RawBucket)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("COST_LOOKBACK_DAYS", "not-a-number")
	t.Setenv("ZSCORE_THRESHOLD", "two")
	t.Setenv("DRY_RUN", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Collect.LookbackDays != 14 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.Collect.LookbackDays)
	}
	if cfg.Correlation.ZScoreThreshold != 2.0 {
		t.Errorf("malformed float should fall back to default, got %v", cfg.Correlation.ZScoreThreshold)
	}
	if !cfg.DryRun {
		t.Error("malformed bool should fall back to default true")
	}
}
