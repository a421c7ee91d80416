package correlation

import (
	"time"

	"github.com/finsecops/spendguard/internal/domain/security"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/pkg/timeutil"
)

type findingKey struct {
	account string
	region  string
	service string
}

type accountRegionKey struct {
	account string
	region  string
}

// findingIndex holds two lookups over the finding set: an exact
// (account, region, service) index for precision and an (account, region)
// fallback for findings whose service naming does not line up with the cost
// dimension. Every finding lands in both; dedup by id prevents double counting.
type findingIndex struct {
	primary  map[findingKey][]security.Finding
	fallback map[accountRegionKey][]security.Finding
	logger   *logger.Logger
}

func buildFindingIndex(findings []security.Finding, log *logger.Logger) *findingIndex {
	ix := &findingIndex{
		primary:  make(map[findingKey][]security.Finding),
		fallback: make(map[accountRegionKey][]security.Finding),
		logger:   log,
	}
	for _, f := range findings {
		service := f.Service
		if service == "" {
			service = security.ServiceUnknown
		}
		region := f.Region
		if region == "" {
			region = security.RegionUnknown
		}
		key := findingKey{account: f.AccountID, region: region, service: service}
		ix.primary[key] = append(ix.primary[key], f)
		arKey := accountRegionKey{account: f.AccountID, region: region}
		ix.fallback[arKey] = append(ix.fallback[arKey], f)
	}
	return ix
}

// match returns findings for the anomaly's key whose occurrence time falls
// inside the buffer-expanded week, deduplicated by finding id. Both interval
// ends are inclusive.
func (ix *findingIndex) match(a Anomaly, buffer time.Duration) []security.Finding {
	searchStart := a.WeekStart.Add(-buffer)
	windowEnd := a.WeekStart.AddDate(0, 0, 7).Add(-time.Millisecond)
	searchEnd := windowEnd.Add(buffer)

	var candidates []security.Finding
	candidates = append(candidates, ix.primary[findingKey{account: a.AccountID, region: a.Region, service: a.Service}]...)
	candidates = append(candidates, ix.fallback[accountRegionKey{account: a.AccountID, region: a.Region}]...)

	var matched []security.Finding
	seen := make(map[string]struct{})
	for _, f := range candidates {
		occurredAt, err := timeutil.ParseTimestamp(f.OccurredAt)
		if err != nil {
			ix.logger.WithFields(map[string]interface{}{
				"finding_id":  f.FindingID,
				"occurred_at": f.OccurredAt,
			}).Warn("Skipping finding with unparseable timestamp")
			continue
		}
		if occurredAt.Before(searchStart) || occurredAt.After(searchEnd) {
			continue
		}
		if _, ok := seen[f.FindingID]; ok {
			continue
		}
		seen[f.FindingID] = struct{}{}
		matched = append(matched, f)
	}
	return matched
}
