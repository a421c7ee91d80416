package correlation

import (
	"strings"
	"time"

	"github.com/finsecops/spendguard/internal/domain/alerting"
	"github.com/finsecops/spendguard/internal/pkg/logger"
)

// Suppressor removes alerts matching externally supplied suppression rules.
// Rules are read-only during matching; an alert is suppressed by the first
// matching rule and remaining rules are not evaluated for it.
type Suppressor struct {
	rules  []alerting.SuppressionRule
	now    func() time.Time
	logger *logger.Logger
}

// NewSuppressor creates a suppressor over the given rule list.
func NewSuppressor(rules []alerting.SuppressionRule, log *logger.Logger) *Suppressor {
	return &Suppressor{rules: rules, now: time.Now, logger: log}
}

// ShouldSuppress reports whether any active rule matches the alert. Every
// field a rule specifies must match; absent fields are wildcards.
func (s *Suppressor) ShouldSuppress(alert alerting.Alert) bool {
	if len(s.rules) == 0 {
		return false
	}
	now := s.now().UTC()
	blob := alert.SearchBlob()
	for _, rule := range s.rules {
		if rule.Expired(now) {
			continue
		}
		if rule.AccountID != "" && rule.AccountID != alert.AccountID {
			continue
		}
		if rule.Region != "" && !strings.EqualFold(rule.Region, alert.Region) {
			continue
		}
		if rule.Service != "" && !strings.EqualFold(rule.Service, alert.Service) {
			continue
		}
		if rule.Pattern != "" && !strings.Contains(blob, strings.ToLower(rule.Pattern)) {
			continue
		}
		s.logger.WithFields(map[string]interface{}{
			"alert_id": alert.ID,
			"service":  alert.Service,
			"reason":   rule.Reason,
		}).Info("Suppressing alert")
		return true
	}
	return false
}

// Filter returns the alerts that survive suppression and the suppressed count.
func (s *Suppressor) Filter(alerts []alerting.Alert) ([]alerting.Alert, int) {
	if len(s.rules) == 0 {
		return alerts, 0
	}
	var kept []alerting.Alert
	for _, alert := range alerts {
		if s.ShouldSuppress(alert) {
			continue
		}
		kept = append(kept, alert)
	}
	return kept, len(alerts) - len(kept)
}
