package correlation

import (
	"strings"
	"testing"
	"time"

	"github.com/finsecops/spendguard/internal/domain/alerting"
	"github.com/finsecops/spendguard/internal/domain/security"
)

func spikeWeek() time.Time {
	return monday.AddDate(0, 0, 7*8)
}

func TestCorrelator_AlertOnCostSpikeWithHighFinding(t *testing.T) {
	amounts := []float64{100, 100, 100, 100, 100, 100, 100, 100, 200}
	records := weeklySeries("111122223333", "us-east-1", "AmazonEC2", monday, amounts)
	findings := []security.Finding{
		testFinding("sh-1", "111122223333", "us-east-1", "AmazonEC2",
			spikeWeek().Add(12*time.Hour).Format(time.RFC3339),
			security.ProviderSecurityHub, security.SeverityHigh),
	}

	correlator := NewCorrelator(DefaultConfig(), testLogger())
	result := correlator.Run(records, findings, nil)

	if result.AnomalyCount != 1 {
		t.Fatalf("AnomalyCount = %d, want 1", result.AnomalyCount)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(result.Alerts))
	}
	alert := result.Alerts[0]
	if alert.CostDeltaPct != 100.0 {
		t.Errorf("CostDeltaPct = %v, want 100.0", alert.CostDeltaPct)
	}
	if len(alert.MatchedRules) != 1 || alert.MatchedRules[0] != RuleCostSecHigh {
		t.Errorf("MatchedRules = %v, want [%s]", alert.MatchedRules, RuleCostSecHigh)
	}
	if alert.Window != alerting.WindowWeek {
		t.Errorf("Window = %q, want %q", alert.Window, alerting.WindowWeek)
	}
	if alert.WeekStart != spikeWeek().Format("2006-01-02") {
		t.Errorf("WeekStart = %q, want %q", alert.WeekStart, spikeWeek().Format("2006-01-02"))
	}
	if len(alert.Evidence.Cost) != 1 || len(alert.Evidence.Findings) != 1 {
		t.Errorf("evidence bundle has %d cost records and %d findings, want 1 and 1",
			len(alert.Evidence.Cost), len(alert.Evidence.Findings))
	}
	if alert.Recommendation == "" {
		t.Error("alert has empty recommendation")
	}
}

func TestCorrelator_ThreatCostSpikeRule(t *testing.T) {
	amounts := []float64{100, 100, 100, 100, 100, 100, 100, 100, 200}
	records := weeklySeries("111122223333", "us-east-1", "AmazonEC2", monday, amounts)
	occurredAt := spikeWeek().Add(6 * time.Hour).Format(time.RFC3339)
	findings := []security.Finding{
		testFinding("gd-1", "111122223333", "us-east-1", "AmazonEC2", occurredAt,
			security.ProviderGuardDuty, security.SeverityHigh),
		testFinding("gd-2", "111122223333", "us-east-1", "AmazonEC2", occurredAt,
			security.ProviderGuardDuty, security.SeverityCritical),
	}

	correlator := NewCorrelator(DefaultConfig(), testLogger())
	result := correlator.Run(records, findings, nil)

	if len(result.Alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(result.Alerts))
	}
	alert := result.Alerts[0]
	if !containsString(alert.MatchedRules, RuleThreatCostSpike) {
		t.Errorf("MatchedRules = %v, want %s included", alert.MatchedRules, RuleThreatCostSpike)
	}
}

func TestCorrelator_AnomalyWithoutFindingsIsDropped(t *testing.T) {
	amounts := []float64{100, 100, 100, 100, 100, 100, 100, 100, 200}
	records := weeklySeries("111122223333", "us-east-1", "AmazonEC2", monday, amounts)
	// Finding far outside the buffered window.
	findings := []security.Finding{
		testFinding("sh-old", "111122223333", "us-east-1", "AmazonEC2",
			monday.Format(time.RFC3339), security.ProviderSecurityHub, security.SeverityCritical),
	}

	correlator := NewCorrelator(DefaultConfig(), testLogger())
	result := correlator.Run(records, findings, nil)

	if result.AnomalyCount != 1 {
		t.Fatalf("AnomalyCount = %d, want 1", result.AnomalyCount)
	}
	if result.CandidateCount != 0 {
		t.Errorf("CandidateCount = %d, want 0", result.CandidateCount)
	}
	if len(result.Alerts) != 0 {
		t.Errorf("got %d alerts, want 0", len(result.Alerts))
	}
}

func TestCorrelator_SeverityCountHygiene(t *testing.T) {
	occurredAt := spikeWeek().Add(3 * time.Hour).Format(time.RFC3339)
	amounts := []float64{100, 100, 100, 100, 100, 100, 100, 100, 200}
	records := weeklySeries("111122223333", "us-east-1", "AmazonEC2", monday, amounts)
	findings := []security.Finding{
		testFinding("f-high", "111122223333", "us-east-1", "AmazonEC2", occurredAt,
			security.ProviderSecurityHub, security.SeverityHigh),
		testFinding("f-lower", "111122223333", "us-east-1", "AmazonEC2", occurredAt,
			security.ProviderSecurityHub, security.Severity("high")),
		testFinding("f-bogus", "111122223333", "us-east-1", "AmazonEC2", occurredAt,
			security.Provider("Wazuh"), security.Severity("BANANAS")),
	}

	correlator := NewCorrelator(DefaultConfig(), testLogger())
	candidates, _ := correlator.Correlate(records, findings)
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	counts := candidates[0].SeverityCounts
	for severity, count := range counts {
		if !severity.Known() {
			t.Errorf("severity map contains unknown level %q", severity)
		}
		if count <= 0 {
			t.Errorf("severity map contains non-positive count %d for %s", count, severity)
		}
	}
	// lowercase severity normalizes into the same bucket
	if counts[security.SeverityHigh] != 2 {
		t.Errorf("HIGH count = %d, want 2", counts[security.SeverityHigh])
	}
	// provider tallies keep non-canonical providers
	if candidates[0].ProviderCounts[security.Provider("Wazuh")] != 1 {
		t.Errorf("provider counts dropped non-canonical provider: %v", candidates[0].ProviderCounts)
	}
}

func TestCorrelator_CandidateWithoutRuleMatchEmitsNoAlert(t *testing.T) {
	occurredAt := spikeWeek().Add(3 * time.Hour).Format(time.RFC3339)
	amounts := []float64{100, 100, 100, 100, 100, 100, 100, 100, 200}
	records := weeklySeries("111122223333", "us-east-1", "AmazonEC2", monday, amounts)
	// A lone LOW finding matches the window but satisfies no heuristic.
	findings := []security.Finding{
		testFinding("sh-low", "111122223333", "us-east-1", "AmazonEC2", occurredAt,
			security.ProviderCloudTrail, security.SeverityLow),
	}

	correlator := NewCorrelator(DefaultConfig(), testLogger())
	result := correlator.Run(records, findings, nil)

	if result.CandidateCount != 1 {
		t.Fatalf("CandidateCount = %d, want 1", result.CandidateCount)
	}
	if len(result.Alerts) != 0 {
		t.Errorf("got %d alerts, want 0", len(result.Alerts))
	}
}

func TestCorrelator_RecommendationDeduplicated(t *testing.T) {
	matches := []RuleMatch{
		{Name: "A", Recommendation: "check the account."},
		{Name: "B", Recommendation: "check the account."},
		{Name: "C", Recommendation: "rotate keys."},
	}
	alert := buildAlert(candidateWith(0, 0, nil, nil, 0, 0), matches)

	if got := strings.Count(alert.Recommendation, "check the account."); got != 1 {
		t.Errorf("recommendation repeats duplicate text %d times: %q", got, alert.Recommendation)
	}
	if len(alert.MatchedRules) != 3 {
		t.Errorf("MatchedRules = %v, want all three names", alert.MatchedRules)
	}
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
