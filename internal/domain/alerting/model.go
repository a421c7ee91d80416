package alerting

import (
	"strings"
	"time"

	"github.com/finsecops/spendguard/internal/domain/billing"
	"github.com/finsecops/spendguard/internal/domain/security"
)

// WindowWeek tags alerts produced from weekly cost windows.
const WindowWeek = "WEEK"

// Evidence bundles the cost records and findings that substantiate an alert.
type Evidence struct {
	Cost     []billing.Record   `json:"cost"`
	Findings []security.Finding `json:"findings"`
}

// Alert is the final correlation artifact handed to persistence and
// notification collaborators. It is never mutated after creation; suppression
// removes it from the output set instead of editing it.
type Alert struct {
	ID             string                    `json:"id"`
	Window         string                    `json:"window"`
	WeekStart      string                    `json:"week_start"`
	AccountID      string                    `json:"account_id"`
	Region         string                    `json:"region"`
	Service        string                    `json:"service"`
	CostDeltaPct   float64                   `json:"cost_delta_pct"`
	AnomalyScore   float64                   `json:"cost_anomaly_score"`
	SeverityCounts map[security.Severity]int `json:"sec_counts"`
	MatchedRules   []string                  `json:"matched_rules"`
	Recommendation string                    `json:"recommendation"`
	Evidence       Evidence                  `json:"evidence"`
}

// SearchBlob builds the lowercased haystack suppression patterns match against:
// service, recommendation, matched rule names, and evidence titles and ids.
func (a Alert) SearchBlob() string {
	parts := []string{a.Service, a.Recommendation, strings.Join(a.MatchedRules, " ")}
	for _, f := range a.Evidence.Findings {
		parts = append(parts, f.Title, f.FindingID)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// SuppressionRule filters known false positives out of the alert output.
// Absent fields are wildcards; a rule with no expiry never expires.
type SuppressionRule struct {
	AccountID string     `json:"account_id,omitempty"`
	Region    string     `json:"region,omitempty"`
	Service   string     `json:"service,omitempty"`
	Pattern   string     `json:"pattern,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
}

// Expired reports whether the rule's expiry has passed. Expired rules are inert.
func (r SuppressionRule) Expired(now time.Time) bool {
	return r.Until != nil && r.Until.Before(now)
}
