package security

// Provider identifies the security product a finding originated from.
type Provider string

// Canonical finding providers. Provider tallies in the correlator also count
// values outside this set; only the collectors are restricted to it.
const (
	ProviderSecurityHub Provider = "SecurityHub"
	ProviderGuardDuty   Provider = "GuardDuty"
	ProviderCloudTrail  Provider = "CloudTrail"
)

// Severity is the ordered finding severity: INFO < LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// severityRank is the single ordering table shared by every provider adapter.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Levels returns the canonical severities in ascending order.
func Levels() []Severity {
	return []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Known reports whether s is one of the five canonical severities.
func (s Severity) Known() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s ranks at or above min. Unknown severities never qualify.
func (s Severity) AtLeast(min Severity) bool {
	r, ok := severityRank[s]
	if !ok {
		return false
	}
	m, ok := severityRank[min]
	if !ok {
		return false
	}
	return r >= m
}

// FromGuardDutyScore maps GuardDuty's numeric severity onto the shared scale.
func FromGuardDutyScore(score float64) Severity {
	switch {
	case score >= 7:
		return SeverityCritical
	case score >= 4:
		return SeverityHigh
	case score >= 2:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// ServiceUnknown marks findings that could not be mapped to a billed service.
const ServiceUnknown = "UNKNOWN"

// RegionUnknown marks findings without a usable region.
const RegionUnknown = "UNKNOWN"

// Finding is one normalized security finding. The raw reference is carried for
// audit evidence only and is never interpreted by the correlation core.
type Finding struct {
	OccurredAt string         `json:"occurred_at" validate:"required"`
	AccountID  string         `json:"account_id" validate:"required"`
	Region     string         `json:"region" validate:"required"`
	Service    string         `json:"service" validate:"required"`
	Provider   Provider       `json:"provider" validate:"required"`
	Severity   Severity       `json:"severity" validate:"required"`
	Title      string         `json:"title"`
	FindingID  string         `json:"finding_id" validate:"required"`
	RawRef     map[string]any `json:"raw_ref,omitempty"`
}
