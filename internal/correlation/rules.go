package correlation

import (
	"math"

	"github.com/finsecops/spendguard/internal/domain/security"
)

// Rule names. Evaluation order is fixed so alert output is deterministic.
const (
	RuleCostSecHigh     = "COST_SEC_HIGH"
	RuleThreatCostSpike = "THREAT_COSTSPIKE"
	RuleAccountDrift    = "ACCOUNT_DRIFT"
)

const (
	recommendCostSecHigh     = "Cost spike coincides with high-severity security findings. Review access key usage, permission changes, and automation activity in the affected account."
	recommendThreatCostSpike = "GuardDuty reported multiple high-severity threats alongside a strong cost anomaly. Investigate whether resources are being abused by a threat actor."
	recommendAccountDrift    = "Several services were billed to the account for the first time while Security Hub raised findings. Review service sprawl and governance controls."
)

// RuleMatch is a fired heuristic with its recommendation text.
type RuleMatch struct {
	Name           string `json:"name"`
	Recommendation string `json:"recommendation"`
}

// RuleEngine evaluates correlation candidates against fixed heuristics.
// A candidate matching no rule produces no alert; this is the correlation
// gate, not an annotation step.
type RuleEngine struct {
	deltaThreshold            float64
	zscoreThreshold           float64
	serviceDiversityThreshold int
}

// NewRuleEngine creates a rule engine from the run configuration.
func NewRuleEngine(cfg Config) *RuleEngine {
	return &RuleEngine{
		deltaThreshold:            cfg.DeltaThresholdPct,
		zscoreThreshold:           cfg.ZScoreThreshold,
		serviceDiversityThreshold: cfg.ServiceDiversityThreshold,
	}
}

// Evaluate returns every matching rule in fixed order. All three heuristics
// are independent and may fire together.
func (e *RuleEngine) Evaluate(c Candidate) []RuleMatch {
	var matches []RuleMatch
	if e.costSecHigh(c) {
		matches = append(matches, RuleMatch{Name: RuleCostSecHigh, Recommendation: recommendCostSecHigh})
	}
	if e.threatCostSpike(c) {
		matches = append(matches, RuleMatch{Name: RuleThreatCostSpike, Recommendation: recommendThreatCostSpike})
	}
	if e.accountDrift(c) {
		matches = append(matches, RuleMatch{Name: RuleAccountDrift, Recommendation: recommendAccountDrift})
	}
	return matches
}

// costSecHigh: spend delta at or above max(30, configured threshold) together
// with at least one HIGH or CRITICAL finding.
func (e *RuleEngine) costSecHigh(c Candidate) bool {
	threshold := math.Max(30, e.deltaThreshold)
	return c.DeltaPct >= threshold && c.HighOrCriticalCount() >= 1
}

// threatCostSpike: an active-threat signature (two or more high GuardDuty
// findings) plus a statistically strong anomaly.
func (e *RuleEngine) threatCostSpike(c Candidate) bool {
	return c.GuardDutyHighCount >= 2 && c.Score >= math.Max(2.0, e.zscoreThreshold)
}

// accountDrift: unusual service sprawl alongside Security Hub findings.
func (e *RuleEngine) accountDrift(c Candidate) bool {
	return c.NewServiceCount >= e.serviceDiversityThreshold && c.ProviderCounts[security.ProviderSecurityHub] >= 1
}
