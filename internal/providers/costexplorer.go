package providers

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/finsecops/spendguard/internal/domain/billing"
	apperrors "github.com/finsecops/spendguard/internal/pkg/errors"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/pkg/metrics"
	"github.com/finsecops/spendguard/internal/pkg/validator"
)

// Cost metric preference order. The first metric present on a group wins.
var costMetricPreference = []string{"AmortizedCost", "BlendedCost", "UnblendedCost"}

// CostExplorerClient fetches daily cost aggregates grouped by service,
// linked account and region.
type CostExplorerClient struct {
	client        *costexplorer.Client
	validate      *validator.Validator
	logger        *logger.Logger
	dryRun        bool
	sampleDataDir string
}

func NewCostExplorerClient(cfg aws.Config, dryRun bool, sampleDataDir string, log *logger.Logger) *CostExplorerClient {
	// Cost Explorer is a global API served out of us-east-1.
	client := costexplorer.NewFromConfig(cfg, func(o *costexplorer.Options) {
		o.Region = "us-east-1"
	})
	return &CostExplorerClient{
		client:        client,
		validate:      validator.New(),
		logger:        log,
		dryRun:        dryRun,
		sampleDataDir: sampleDataDir,
	}
}

// FetchRecords pulls cost-and-usage data for [start, end) and converts it into
// validated cost records. Records that fail validation are logged and skipped.
// Start and end are dates in 2006-01-02 form, end exclusive.
func (c *CostExplorerClient) FetchRecords(ctx context.Context, start, end string, targetServices []string) ([]billing.Record, error) {
	var results []cetypes.ResultByTime

	if c.dryRun {
		var out costexplorer.GetCostAndUsageOutput
		if err := loadSample(c.sampleDataDir, "cost_explorer.json", &out); err != nil {
			return nil, apperrors.ProviderAPI("failed to load cost explorer sample data", err)
		}
		results = out.ResultsByTime
	} else {
		input := &costexplorer.GetCostAndUsageInput{
			TimePeriod: &cetypes.DateInterval{
				Start: aws.String(start),
				End:   aws.String(end),
			},
			Granularity: cetypes.GranularityDaily,
			Metrics:     costMetricPreference,
			GroupBy: []cetypes.GroupDefinition{
				{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
				{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("LINKED_ACCOUNT")},
				{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("REGION")},
			},
		}
		for {
			out, err := c.client.GetCostAndUsage(ctx, input)
			if err != nil {
				return nil, apperrors.ProviderAPI("cost explorer query failed", err)
			}
			results = append(results, out.ResultsByTime...)
			if out.NextPageToken == nil || *out.NextPageToken == "" {
				break
			}
			input.NextPageToken = out.NextPageToken
		}
	}

	records := c.recordsFromResults(results, targetServices)
	c.logger.Infof("collected %d cost records between %s and %s", len(records), start, end)
	return records, nil
}

// recordsFromResults flattens grouped results into cost records. Group keys
// arrive in GroupBy order: SERVICE, LINKED_ACCOUNT, REGION. A missing region
// key falls back to the ALL sentinel.
func (c *CostExplorerClient) recordsFromResults(results []cetypes.ResultByTime, targetServices []string) []billing.Record {
	allowed := make(map[string]bool, len(targetServices))
	for _, s := range targetServices {
		allowed[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var records []billing.Record
	skipped := 0
	for _, slice := range results {
		if slice.TimePeriod == nil {
			continue
		}
		periodStart := aws.ToString(slice.TimePeriod.Start)
		periodEnd := aws.ToString(slice.TimePeriod.End)

		for _, group := range slice.Groups {
			service := keyAt(group.Keys, 0, "UNKNOWN")
			account := keyAt(group.Keys, 1, "UNKNOWN")
			region := keyAt(group.Keys, 2, billing.RegionAll)
			if len(allowed) > 0 && !allowed[strings.ToLower(service)] {
				continue
			}
			amount, unit := extractAmount(group.Metrics)
			rec := billing.Record{
				AccountID:   account,
				Region:      region,
				Service:     service,
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Amount:      amount,
				Unit:        unit,
			}
			if errs := c.validate.Validate(rec); len(errs) > 0 {
				skipped++
				c.logger.Warnf("dropping invalid cost record: %s", validator.Describe(errs))
				continue
			}
			records = append(records, rec)
		}
	}
	metrics.RecordCostCollection(len(records), skipped)
	return records
}

func keyAt(keys []string, i int, fallback string) string {
	if i < len(keys) && strings.TrimSpace(keys[i]) != "" {
		return keys[i]
	}
	return fallback
}

// extractAmount picks the first preferred metric carrying an amount. Groups
// without any usable metric report a zero cost.
func extractAmount(values map[string]cetypes.MetricValue) (float64, string) {
	for _, name := range costMetricPreference {
		mv, ok := values[name]
		if !ok || mv.Amount == nil {
			continue
		}
		unit := aws.ToString(mv.Unit)
		if unit == "" {
			unit = "USD"
		}
		amount, err := strconv.ParseFloat(aws.ToString(mv.Amount), 64)
		if err != nil {
			return 0, unit
		}
		return amount, unit
	}
	return 0, "USD"
}
