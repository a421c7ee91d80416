package correlation

import (
	"testing"
	"time"

	"github.com/finsecops/spendguard/internal/domain/security"
)

func testFinding(id, account, region, service, occurredAt string, provider security.Provider, severity security.Severity) security.Finding {
	return security.Finding{
		OccurredAt: occurredAt,
		AccountID:  account,
		Region:     region,
		Service:    service,
		Provider:   provider,
		Severity:   severity,
		Title:      "test finding " + id,
		FindingID:  id,
	}
}

func testAnomaly(account, region, service string, weekStart time.Time) Anomaly {
	return Anomaly{
		AccountID: account,
		Region:    region,
		Service:   service,
		WeekStart: weekStart,
		WeekEnd:   weekStart.AddDate(0, 0, 6),
	}
}

func TestFindingIndex_WindowBoundaries(t *testing.T) {
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	anomaly := testAnomaly("111122223333", "us-east-1", "AmazonEC2", weekStart)
	buffer := 24 * time.Hour

	tests := []struct {
		name       string
		occurredAt string
		want       bool
	}{
		{name: "exactly at week start minus buffer", occurredAt: "2025-01-05T00:00:00Z", want: true},
		{name: "one second before lower bound", occurredAt: "2025-01-04T23:59:59Z", want: false},
		{name: "mid-week", occurredAt: "2025-01-08T12:00:00Z", want: true},
		{name: "at upper bound", occurredAt: "2025-01-13T23:59:59.999Z", want: true},
		{name: "just past upper bound", occurredAt: "2025-01-14T00:00:00Z", want: false},
		{name: "naive timestamp treated as UTC", occurredAt: "2025-01-05T00:00:00", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding := testFinding("f-1", "111122223333", "us-east-1", "AmazonEC2", tt.occurredAt, security.ProviderGuardDuty, security.SeverityHigh)
			index := buildFindingIndex([]security.Finding{finding}, testLogger())
			matched := index.match(anomaly, buffer)
			if got := len(matched) == 1; got != tt.want {
				t.Errorf("match() included = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindingIndex_FallbackRecall(t *testing.T) {
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	anomaly := testAnomaly("111122223333", "us-east-1", "AmazonEC2", weekStart)

	findings := []security.Finding{
		// exact key match
		testFinding("f-exact", "111122223333", "us-east-1", "AmazonEC2", "2025-01-07T10:00:00Z", security.ProviderGuardDuty, security.SeverityHigh),
		// unmapped service, same account/region: reached via the fallback index
		testFinding("f-unmapped", "111122223333", "us-east-1", security.ServiceUnknown, "2025-01-07T11:00:00Z", security.ProviderSecurityHub, security.SeverityMedium),
		// differently named service, same account/region: also fallback recall
		testFinding("f-renamed", "111122223333", "us-east-1", "arn:aws:securityhub:::product/aws/guardduty", "2025-01-07T12:00:00Z", security.ProviderSecurityHub, security.SeverityHigh),
		// other account never matches
		testFinding("f-other", "999988887777", "us-east-1", "AmazonEC2", "2025-01-07T10:00:00Z", security.ProviderGuardDuty, security.SeverityHigh),
	}

	index := buildFindingIndex(findings, testLogger())
	matched := index.match(anomaly, 24*time.Hour)
	if len(matched) != 3 {
		t.Fatalf("match() returned %d findings, want 3", len(matched))
	}
	for _, f := range matched {
		if f.AccountID != "111122223333" {
			t.Errorf("matched finding %s from wrong account %s", f.FindingID, f.AccountID)
		}
	}
}

func TestFindingIndex_DeduplicatesByID(t *testing.T) {
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	anomaly := testAnomaly("111122223333", "us-east-1", "AmazonEC2", weekStart)

	// Same finding reachable through both the exact key and the fallback bucket.
	finding := testFinding("f-dup", "111122223333", "us-east-1", "AmazonEC2", "2025-01-07T10:00:00Z", security.ProviderGuardDuty, security.SeverityHigh)
	index := buildFindingIndex([]security.Finding{finding}, testLogger())

	matched := index.match(anomaly, 24*time.Hour)
	if len(matched) != 1 {
		t.Errorf("match() returned %d findings, want 1 after dedup", len(matched))
	}
}

func TestFindingIndex_SkipsBadTimestamps(t *testing.T) {
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	anomaly := testAnomaly("111122223333", "us-east-1", "AmazonEC2", weekStart)

	finding := testFinding("f-bad", "111122223333", "us-east-1", "AmazonEC2", "last tuesday", security.ProviderGuardDuty, security.SeverityHigh)
	index := buildFindingIndex([]security.Finding{finding}, testLogger())

	if matched := index.match(anomaly, 24*time.Hour); len(matched) != 0 {
		t.Errorf("match() returned %d findings, want 0", len(matched))
	}
}
