package correlation

import (
	"testing"

	"github.com/finsecops/spendguard/internal/domain/security"
)

func candidateWith(deltaPct, score float64, severityCounts map[security.Severity]int, providerCounts map[security.Provider]int, guardDutyHigh, newServices int) Candidate {
	if severityCounts == nil {
		severityCounts = map[security.Severity]int{}
	}
	if providerCounts == nil {
		providerCounts = map[security.Provider]int{}
	}
	return Candidate{
		Anomaly: Anomaly{
			AccountID:       "111122223333",
			Region:          "us-east-1",
			Service:         "AmazonEC2",
			DeltaPct:        deltaPct,
			Score:           score,
			NewServiceCount: newServices,
		},
		SeverityCounts:     severityCounts,
		ProviderCounts:     providerCounts,
		GuardDutyHighCount: guardDutyHigh,
	}
}

func TestRuleEngine_CostSecHigh(t *testing.T) {
	tests := []struct {
		name           string
		deltaThreshold float64
		deltaPct       float64
		severityCounts map[security.Severity]int
		want           bool
	}{
		{
			name:           "fires at exact threshold with one high finding",
			deltaThreshold: 30,
			deltaPct:       30,
			severityCounts: map[security.Severity]int{security.SeverityHigh: 1},
			want:           true,
		},
		{
			name:           "near miss below threshold",
			deltaThreshold: 30,
			deltaPct:       29.99,
			severityCounts: map[security.Severity]int{security.SeverityHigh: 1},
			want:           false,
		},
		{
			name:           "critical counts toward the severity gate",
			deltaThreshold: 30,
			deltaPct:       85,
			severityCounts: map[security.Severity]int{security.SeverityCritical: 1},
			want:           true,
		},
		{
			name:           "no high or critical findings",
			deltaThreshold: 30,
			deltaPct:       85,
			severityCounts: map[security.Severity]int{security.SeverityMedium: 4},
			want:           false,
		},
		{
			name:           "configured threshold above 30 raises the bar",
			deltaThreshold: 50,
			deltaPct:       49.99,
			severityCounts: map[security.Severity]int{security.SeverityHigh: 1},
			want:           false,
		},
		{
			name:           "threshold below 30 is floored at 30",
			deltaThreshold: 10,
			deltaPct:       20,
			severityCounts: map[security.Severity]int{security.SeverityHigh: 1},
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DeltaThresholdPct = tt.deltaThreshold
			engine := NewRuleEngine(cfg)

			candidate := candidateWith(tt.deltaPct, 0, tt.severityCounts, nil, 0, 0)
			got := containsRule(engine.Evaluate(candidate), RuleCostSecHigh)
			if got != tt.want {
				t.Errorf("COST_SEC_HIGH fired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleEngine_ThreatCostSpike(t *testing.T) {
	tests := []struct {
		name          string
		guardDutyHigh int
		score         float64
		want          bool
	}{
		{name: "two high threats and strong score", guardDutyHigh: 2, score: 2.0, want: true},
		{name: "single threat is not enough", guardDutyHigh: 1, score: 5.0, want: false},
		{name: "weak score is not enough", guardDutyHigh: 3, score: 1.9, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewRuleEngine(DefaultConfig())
			candidate := candidateWith(0, tt.score, nil, nil, tt.guardDutyHigh, 0)
			got := containsRule(engine.Evaluate(candidate), RuleThreatCostSpike)
			if got != tt.want {
				t.Errorf("THREAT_COSTSPIKE fired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleEngine_AccountDrift(t *testing.T) {
	tests := []struct {
		name           string
		newServices    int
		providerCounts map[security.Provider]int
		want           bool
	}{
		{
			name:           "drift with security hub finding",
			newServices:    3,
			providerCounts: map[security.Provider]int{security.ProviderSecurityHub: 1},
			want:           true,
		},
		{
			name:           "below diversity threshold",
			newServices:    2,
			providerCounts: map[security.Provider]int{security.ProviderSecurityHub: 5},
			want:           false,
		},
		{
			name:           "guardduty findings do not satisfy the drift rule",
			newServices:    5,
			providerCounts: map[security.Provider]int{security.ProviderGuardDuty: 2},
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewRuleEngine(DefaultConfig())
			candidate := candidateWith(0, 0, nil, tt.providerCounts, 0, tt.newServices)
			got := containsRule(engine.Evaluate(candidate), RuleAccountDrift)
			if got != tt.want {
				t.Errorf("ACCOUNT_DRIFT fired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuleEngine_AllRulesCanFireTogether(t *testing.T) {
	engine := NewRuleEngine(DefaultConfig())
	candidate := candidateWith(120, 4.0,
		map[security.Severity]int{security.SeverityHigh: 2, security.SeverityCritical: 1},
		map[security.Provider]int{security.ProviderSecurityHub: 1, security.ProviderGuardDuty: 2},
		2, 4)

	matches := engine.Evaluate(candidate)
	if len(matches) != 3 {
		t.Fatalf("Evaluate() returned %d matches, want 3", len(matches))
	}
	wantOrder := []string{RuleCostSecHigh, RuleThreatCostSpike, RuleAccountDrift}
	for i, name := range wantOrder {
		if matches[i].Name != name {
			t.Errorf("matches[%d] = %s, want %s", i, matches[i].Name, name)
		}
		if matches[i].Recommendation == "" {
			t.Errorf("rule %s has empty recommendation", name)
		}
	}
}

func containsRule(matches []RuleMatch, name string) bool {
	for _, m := range matches {
		if m.Name == name {
			return true
		}
	}
	return false
}
