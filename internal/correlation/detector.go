package correlation

import (
	"math"
	"sort"
	"time"

	"github.com/finsecops/spendguard/internal/domain/billing"
	"github.com/finsecops/spendguard/internal/pkg/logger"
)

// Config holds the thresholds the correlation core runs with.
type Config struct {
	// DeltaThresholdPct flags weeks whose spend deviates from the trailing
	// average by at least this percentage.
	DeltaThresholdPct float64
	// ZScoreThreshold flags weeks whose robust z-score meets this value.
	ZScoreThreshold float64
	// BufferHours expands the finding search window on both ends.
	BufferHours int
	// HistoryWeeks caps the trailing history used per key.
	HistoryWeeks int
	// ServiceDiversityThreshold is the new-service count the drift rule requires.
	ServiceDiversityThreshold int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		DeltaThresholdPct:         30,
		ZScoreThreshold:           2.0,
		BufferHours:               24,
		HistoryWeeks:              8,
		ServiceDiversityThreshold: 3,
	}
}

// Anomaly is a weekly cost window that exceeded a deviation threshold.
type Anomaly struct {
	AccountID       string
	Region          string
	Service         string
	WeekStart       time.Time
	WeekEnd         time.Time
	Amount          float64
	DeltaPct        float64
	RobustZ         float64
	Score           float64
	Records         []billing.Record
	NewServiceCount int
}

type costKey struct {
	account string
	region  string
	service string
}

type weeklyWindow struct {
	amount  float64
	records []billing.Record
}

type accountWeek struct {
	account string
	week    time.Time
}

// Detector aggregates cost records into weekly windows per
// (account, region, service) and flags deviations against rolling history.
type Detector struct {
	cfg    Config
	logger *logger.Logger
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg Config, log *logger.Logger) *Detector {
	return &Detector{cfg: cfg, logger: log}
}

// Detect returns one anomaly per (key, week) whose normalized score reaches 1.0.
// The first observed week for a key is never flagged: it has no history.
func (d *Detector) Detect(records []billing.Record) []Anomaly {
	if len(records) == 0 {
		return nil
	}

	byKey := make(map[costKey]map[time.Time]*weeklyWindow)
	servicesByAccountWeek := make(map[accountWeek]map[string]struct{})

	for _, rec := range records {
		week, err := rec.WeekStart()
		if err != nil {
			d.logger.WithFields(map[string]interface{}{
				"account_id":   rec.AccountID,
				"period_start": rec.PeriodStart,
			}).Warn("Skipping cost record with unparseable period start")
			continue
		}
		region := rec.Region
		if region == "" {
			region = billing.RegionAll
		}
		key := costKey{account: rec.AccountID, region: region, service: rec.Service}
		weeks, ok := byKey[key]
		if !ok {
			weeks = make(map[time.Time]*weeklyWindow)
			byKey[key] = weeks
		}
		window, ok := weeks[week]
		if !ok {
			window = &weeklyWindow{}
			weeks[week] = window
		}
		window.amount += rec.Amount
		window.records = append(window.records, rec)

		aw := accountWeek{account: rec.AccountID, week: week}
		if servicesByAccountWeek[aw] == nil {
			servicesByAccountWeek[aw] = make(map[string]struct{})
		}
		servicesByAccountWeek[aw][rec.Service] = struct{}{}
	}

	newServiceCounts := countNewServices(servicesByAccountWeek)

	keys := make([]costKey, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.account != b.account {
			return a.account < b.account
		}
		if a.region != b.region {
			return a.region < b.region
		}
		return a.service < b.service
	})

	var anomalies []Anomaly
	for _, key := range keys {
		weekData := byKey[key]
		weeks := make([]time.Time, 0, len(weekData))
		for week := range weekData {
			weeks = append(weeks, week)
		}
		sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

		for idx, week := range weeks {
			if idx == 0 {
				continue
			}
			histStart := idx - d.cfg.HistoryWeeks
			if histStart < 0 {
				histStart = 0
			}
			history := make([]float64, 0, idx-histStart)
			for _, prev := range weeks[histStart:idx] {
				history = append(history, weekData[prev].amount)
			}
			if len(history) == 0 {
				continue
			}

			current := weekData[week]
			avg := mean(history)
			deltaPct := (current.amount - avg) / math.Max(1, avg) * 100
			robustZ := robustZScore(current.amount, history)
			score := math.Max(
				normalize(deltaPct, d.cfg.DeltaThresholdPct),
				normalize(robustZ, d.cfg.ZScoreThreshold),
			)
			if score < 1.0 {
				continue
			}

			anomalies = append(anomalies, Anomaly{
				AccountID:       key.account,
				Region:          key.region,
				Service:         key.service,
				WeekStart:       week,
				WeekEnd:         week.AddDate(0, 0, 6),
				Amount:          current.amount,
				DeltaPct:        deltaPct,
				RobustZ:         robustZ,
				Score:           score,
				Records:         current.records,
				NewServiceCount: newServiceCounts[accountWeek{account: key.account, week: week}],
			})
		}
	}

	return anomalies
}

// countNewServices counts, per (account, week), the services never billed to
// that account in any strictly earlier week.
func countNewServices(servicesByAccountWeek map[accountWeek]map[string]struct{}) map[accountWeek]int {
	weeksByAccount := make(map[string][]time.Time)
	for aw := range servicesByAccountWeek {
		weeksByAccount[aw.account] = append(weeksByAccount[aw.account], aw.week)
	}

	counts := make(map[accountWeek]int, len(servicesByAccountWeek))
	for account, weeks := range weeksByAccount {
		sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })
		seen := make(map[string]struct{})
		for _, week := range weeks {
			aw := accountWeek{account: account, week: week}
			fresh := 0
			for service := range servicesByAccountWeek[aw] {
				if _, ok := seen[service]; !ok {
					fresh++
				}
			}
			counts[aw] = fresh
			for service := range servicesByAccountWeek[aw] {
				seen[service] = struct{}{}
			}
		}
	}
	return counts
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// robustZScore measures deviation in median-absolute-deviation units. A zero
// MAD yields zero signal rather than an infinite one.
func robustZScore(current float64, history []float64) float64 {
	if len(history) == 0 {
		return 0
	}
	med := median(history)
	deviations := make([]float64, len(history))
	for i, v := range history {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)
	if mad == 0 {
		return 0
	}
	return (current - med) / mad
}

func normalize(value, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return math.Abs(value) / threshold
}
