package billing

import (
	"time"

	"github.com/finsecops/spendguard/internal/pkg/timeutil"
)

// RegionAll is the sentinel region for global (non-regional) cost lines.
const RegionAll = "ALL"

// Record is one normalized cost fact from the billing provider. Records are
// immutable after ingestion; the correlation core only reads them.
type Record struct {
	PeriodStart string  `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string  `json:"period_end" validate:"required,datetime=2006-01-02"`
	AccountID   string  `json:"account_id" validate:"required"`
	Region      string  `json:"region" validate:"required"`
	Service     string  `json:"service" validate:"required"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Unit        string  `json:"unit" validate:"required"`
}

// WeekStart returns the Monday 00:00 UTC of the week the record's period starts in.
func (r Record) WeekStart() (time.Time, error) {
	day, err := timeutil.ParseDate(r.PeriodStart)
	if err != nil {
		return time.Time{}, err
	}
	return timeutil.WeekStart(day), nil
}
