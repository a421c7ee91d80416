package correlation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finsecops/spendguard/internal/domain/alerting"
	"github.com/finsecops/spendguard/internal/domain/billing"
	"github.com/finsecops/spendguard/internal/domain/security"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/pkg/metrics"
	"github.com/finsecops/spendguard/internal/pkg/timeutil"
)

// Candidate is an anomaly paired with its matched findings and tallies,
// produced per run and handed to the rule engine.
type Candidate struct {
	Anomaly
	Findings           []security.Finding
	SeverityCounts     map[security.Severity]int
	ProviderCounts     map[security.Provider]int
	GuardDutyHighCount int
}

// HighOrCriticalCount returns the combined HIGH and CRITICAL tally.
func (c Candidate) HighOrCriticalCount() int {
	return c.SeverityCounts[security.SeverityHigh] + c.SeverityCounts[security.SeverityCritical]
}

// Result is the outcome of one correlation run.
type Result struct {
	RunID           string           `json:"run_id"`
	Alerts          []alerting.Alert `json:"alerts"`
	AnomalyCount    int              `json:"anomaly_count"`
	CandidateCount  int              `json:"candidate_count"`
	SuppressedCount int              `json:"suppressed_count"`
}

// Correlator runs the full in-memory pipeline:
// detect -> match -> assemble -> rule-evaluate -> suppress.
// It performs no I/O; collaborators load inputs and persist outputs.
type Correlator struct {
	cfg      Config
	detector *Detector
	rules    *RuleEngine
	logger   *logger.Logger
}

// NewCorrelator creates a correlator with the given thresholds.
func NewCorrelator(cfg Config, log *logger.Logger) *Correlator {
	return &Correlator{
		cfg:      cfg,
		detector: NewDetector(cfg, log),
		rules:    NewRuleEngine(cfg),
		logger:   log,
	}
}

// Correlate detects cost anomalies and pairs each with the findings inside its
// buffered week. Anomalies with zero matched findings are dropped silently.
func (c *Correlator) Correlate(records []billing.Record, findings []security.Finding) ([]Candidate, int) {
	anomalies := c.detector.Detect(records)
	if len(anomalies) == 0 {
		c.logger.Info("No cost anomalies detected")
		return nil, 0
	}

	index := buildFindingIndex(findings, c.logger)
	buffer := time.Duration(c.cfg.BufferHours) * time.Hour

	var candidates []Candidate
	for _, anomaly := range anomalies {
		matched := index.match(anomaly, buffer)
		if len(matched) == 0 {
			continue
		}
		candidates = append(candidates, assemble(anomaly, matched))
	}

	c.logger.WithFields(map[string]interface{}{
		"anomalies":  len(anomalies),
		"candidates": len(candidates),
	}).Info("Correlation completed")
	return candidates, len(anomalies)
}

// Run executes the whole pipeline and returns the surviving alerts.
func (c *Correlator) Run(records []billing.Record, findings []security.Finding, suppressions []alerting.SuppressionRule) Result {
	started := time.Now()
	candidates, anomalyCount := c.Correlate(records, findings)

	var alerts []alerting.Alert
	for _, candidate := range candidates {
		matches := c.rules.Evaluate(candidate)
		if len(matches) == 0 {
			continue
		}
		alert := buildAlert(candidate, matches)
		metrics.RecordAlert(alert.MatchedRules)
		alerts = append(alerts, alert)
	}

	suppressor := NewSuppressor(suppressions, c.logger)
	kept, suppressed := suppressor.Filter(alerts)

	metrics.RecordAnomalies(anomalyCount)
	metrics.RecordCandidates(len(candidates))
	metrics.RecordSuppressed(suppressed)
	metrics.RecordRunDuration(time.Since(started))

	result := Result{
		RunID:           uuid.NewString(),
		Alerts:          kept,
		AnomalyCount:    anomalyCount,
		CandidateCount:  len(candidates),
		SuppressedCount: suppressed,
	}
	c.logger.WithFields(map[string]interface{}{
		"run_id":     result.RunID,
		"alerts":     len(kept),
		"suppressed": suppressed,
	}).Info("Correlation run completed")
	return result
}

// assemble tallies severity and provider counts for a matched anomaly.
// Unrecognized severities are dropped from the count map, not errored;
// provider counts keep every provider value as-is.
func assemble(anomaly Anomaly, matched []security.Finding) Candidate {
	severityCounts := make(map[security.Severity]int)
	providerCounts := make(map[security.Provider]int)
	guardDutyHigh := 0
	for _, f := range matched {
		severity := security.Severity(strings.ToUpper(string(f.Severity)))
		if severity == "" {
			severity = security.SeverityInfo
		}
		if severity.Known() {
			severityCounts[severity]++
		}
		providerCounts[f.Provider]++
		if f.Provider == security.ProviderGuardDuty && severity.AtLeast(security.SeverityHigh) {
			guardDutyHigh++
		}
	}
	return Candidate{
		Anomaly:            anomaly,
		Findings:           matched,
		SeverityCounts:     severityCounts,
		ProviderCounts:     providerCounts,
		GuardDutyHighCount: guardDutyHigh,
	}
}

func buildAlert(candidate Candidate, matches []RuleMatch) alerting.Alert {
	names := make([]string, 0, len(matches))
	var recommendations []string
	seen := make(map[string]struct{})
	for _, m := range matches {
		names = append(names, m.Name)
		if _, ok := seen[m.Recommendation]; ok {
			continue
		}
		seen[m.Recommendation] = struct{}{}
		recommendations = append(recommendations, m.Recommendation)
	}

	return alerting.Alert{
		ID:             uuid.NewString(),
		Window:         alerting.WindowWeek,
		WeekStart:      candidate.WeekStart.Format(timeutil.DateLayout),
		AccountID:      candidate.AccountID,
		Region:         candidate.Region,
		Service:        candidate.Service,
		CostDeltaPct:   candidate.DeltaPct,
		AnomalyScore:   candidate.Score,
		SeverityCounts: candidate.SeverityCounts,
		MatchedRules:   names,
		Recommendation: strings.Join(recommendations, " "),
		Evidence: alerting.Evidence{
			Cost:     candidate.Records,
			Findings: candidate.Findings,
		},
	}
}
