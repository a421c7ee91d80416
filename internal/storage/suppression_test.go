package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/finsecops/spendguard/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suppress.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadSuppressionRules_FromFile(t *testing.T) {
	path := writeTempFile(t, `{
		"suppress": [
			{"account_id": "111122223333", "service": "AmazonEC2", "reason": "known batch job", "until": "2030-06-01T00:00:00Z"},
			{"pattern": "bitcointool"},
			{"region": "us-west-2", "until": "2030-06-01T00:00:00"}
		]
	}`)

	rules := LoadSuppressionRules(context.Background(), nil, path, testLogger())
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}
	if rules[0].AccountID != "111122223333" || rules[0].Service != "AmazonEC2" {
		t.Errorf("rule 0 fields = %+v", rules[0])
	}
	if rules[0].Until == nil || !rules[0].Until.Equal(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("rule 0 until = %v, want 2030-06-01T00:00:00Z", rules[0].Until)
	}
	if rules[1].Until != nil {
		t.Errorf("rule 1 until = %v, want nil (never expires)", rules[1].Until)
	}
	// naive timestamps normalize to UTC
	if rules[2].Until == nil || !rules[2].Until.Equal(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("rule 2 until = %v, want 2030-06-01T00:00:00Z", rules[2].Until)
	}
}

func TestLoadSuppressionRules_Degrades(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{name: "empty uri", uri: ""},
		{name: "missing file", uri: filepath.Join(os.TempDir(), "does-not-exist-spendguard.json")},
		{name: "invalid s3 uri", uri: "s3://only-bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := LoadSuppressionRules(context.Background(), nil, tt.uri, testLogger())
			if len(rules) != 0 {
				t.Errorf("got %d rules, want 0", len(rules))
			}
		})
	}
}

func TestLoadSuppressionRules_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, `{"suppress": [`)
	rules := LoadSuppressionRules(context.Background(), nil, path, testLogger())
	if len(rules) != 0 {
		t.Errorf("got %d rules, want 0 for invalid JSON", len(rules))
	}
}

func TestLoadSuppressionRules_InvalidUntilKeepsRule(t *testing.T) {
	path := writeTempFile(t, `{"suppress": [{"service": "AmazonS3", "until": "whenever"}]}`)
	rules := LoadSuppressionRules(context.Background(), nil, path, testLogger())
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	if rules[0].Until != nil {
		t.Errorf("until = %v, want nil for unparseable expiry", rules[0].Until)
	}
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{name: "valid", uri: "s3://reports/suppress/rules.json", wantBucket: "reports", wantKey: "suppress/rules.json"},
		{name: "missing key", uri: "s3://reports", wantErr: true},
		{name: "empty bucket", uri: "s3:///rules.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3URI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (bucket != tt.wantBucket || key != tt.wantKey) {
				t.Errorf("ParseS3URI() = (%q, %q), want (%q, %q)", bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}
