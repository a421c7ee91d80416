package providers

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/guardduty"
	gdtypes "github.com/aws/aws-sdk-go-v2/service/guardduty/types"

	"github.com/finsecops/spendguard/internal/domain/security"
	apperrors "github.com/finsecops/spendguard/internal/pkg/errors"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/pkg/metrics"
)

// GetFindings accepts at most 50 finding IDs per call.
const guardDutyFindingsBatch = 50

// GuardDutyClient fetches GuardDuty findings at or above a numeric severity
// threshold.
type GuardDutyClient struct {
	client        *guardduty.Client
	logger        *logger.Logger
	dryRun        bool
	sampleDataDir string
}

func NewGuardDutyClient(cfg aws.Config, dryRun bool, sampleDataDir string, log *logger.Logger) *GuardDutyClient {
	return &GuardDutyClient{
		client:        guardduty.NewFromConfig(cfg),
		logger:        log,
		dryRun:        dryRun,
		sampleDataDir: sampleDataDir,
	}
}

// FetchFindings retrieves findings updated within the lookback window with a
// numeric severity of at least minScore. When detectorID is empty the first
// detector in the region is used.
func (c *GuardDutyClient) FetchFindings(ctx context.Context, minScore float64, lookbackDays int, detectorID string) ([]security.Finding, error) {
	var raw []gdtypes.Finding

	if c.dryRun {
		var out guardduty.GetFindingsOutput
		if err := loadSample(c.sampleDataDir, "guardduty_findings.json", &out); err != nil {
			return nil, apperrors.ProviderAPI("failed to load guardduty sample data", err)
		}
		raw = out.Findings
	} else {
		detector := detectorID
		if detector == "" {
			var err error
			detector, err = c.defaultDetector(ctx)
			if err != nil {
				return nil, err
			}
		}
		ids, err := c.listFindingIDs(ctx, detector, minScore, lookbackDays)
		if err != nil {
			return nil, err
		}
		raw, err = c.getFindings(ctx, detector, ids)
		if err != nil {
			return nil, err
		}
	}

	findings := make([]security.Finding, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		// Sample payloads bypass the API-side filter; enforce it here too.
		if aws.ToFloat64(item.Severity) < minScore {
			skipped++
			continue
		}
		findings = append(findings, FindingFromGuardDuty(item))
	}
	metrics.RecordFindingCollection(string(security.ProviderGuardDuty), len(findings), skipped)
	c.logger.Infof("collected %d guardduty findings (min score %.1f)", len(findings), minScore)
	return findings, nil
}

func (c *GuardDutyClient) defaultDetector(ctx context.Context) (string, error) {
	out, err := c.client.ListDetectors(ctx, &guardduty.ListDetectorsInput{})
	if err != nil {
		return "", apperrors.ProviderAPI("guardduty detector lookup failed", err)
	}
	if len(out.DetectorIds) == 0 {
		return "", apperrors.ProviderAPI("no guardduty detector available in this region", nil)
	}
	return out.DetectorIds[0], nil
}

func (c *GuardDutyClient) listFindingIDs(ctx context.Context, detectorID string, minScore float64, lookbackDays int) ([]string, error) {
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays).UnixMilli()
	input := &guardduty.ListFindingsInput{
		DetectorId: aws.String(detectorID),
		FindingCriteria: &gdtypes.FindingCriteria{
			Criterion: map[string]gdtypes.Condition{
				"severity":  {GreaterThanOrEqual: aws.Int64(int64(minScore))},
				"updatedAt": {GreaterThanOrEqual: aws.Int64(since)},
			},
		},
	}
	var ids []string
	paginator := guardduty.NewListFindingsPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperrors.ProviderAPI("guardduty finding listing failed", err)
		}
		ids = append(ids, page.FindingIds...)
	}
	return ids, nil
}

func (c *GuardDutyClient) getFindings(ctx context.Context, detectorID string, ids []string) ([]gdtypes.Finding, error) {
	var findings []gdtypes.Finding
	for start := 0; start < len(ids); start += guardDutyFindingsBatch {
		end := start + guardDutyFindingsBatch
		if end > len(ids) {
			end = len(ids)
		}
		out, err := c.client.GetFindings(ctx, &guardduty.GetFindingsInput{
			DetectorId: aws.String(detectorID),
			FindingIds: ids[start:end],
		})
		if err != nil {
			return nil, apperrors.ProviderAPI("guardduty finding fetch failed", err)
		}
		findings = append(findings, out.Findings...)
	}
	return findings, nil
}

// FindingFromGuardDuty maps one GuardDuty finding onto the shared model. The
// finding type doubles as the service dimension, and the numeric severity is
// projected onto the shared label scale.
func FindingFromGuardDuty(f gdtypes.Finding) security.Finding {
	occurredAt := aws.ToString(f.CreatedAt)
	if occurredAt == "" {
		occurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	findingID := aws.ToString(f.Id)
	if findingID == "" {
		findingID = "unknown"
	}
	return security.Finding{
		OccurredAt: occurredAt,
		AccountID:  stringOr(f.AccountId, security.ServiceUnknown),
		Region:     stringOr(f.Region, security.RegionUnknown),
		Service:    stringOr(f.Type, security.ServiceUnknown),
		Provider:   security.ProviderGuardDuty,
		Severity:   security.FromGuardDutyScore(aws.ToFloat64(f.Severity)),
		Title:      aws.ToString(f.Title),
		FindingID:  findingID,
		RawRef: map[string]any{
			"id":   findingID,
			"arn":  aws.ToString(f.Arn),
			"type": aws.ToString(f.Type),
		},
	}
}
