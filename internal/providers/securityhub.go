package providers

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	shtypes "github.com/aws/aws-sdk-go-v2/service/securityhub/types"

	"github.com/finsecops/spendguard/internal/domain/security"
	apperrors "github.com/finsecops/spendguard/internal/pkg/errors"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/pkg/metrics"
)

// SecurityHubClient fetches active Security Hub findings at or above a
// minimum severity.
type SecurityHubClient struct {
	client        *securityhub.Client
	logger        *logger.Logger
	dryRun        bool
	sampleDataDir string
}

func NewSecurityHubClient(cfg aws.Config, dryRun bool, sampleDataDir string, log *logger.Logger) *SecurityHubClient {
	return &SecurityHubClient{
		client:        securityhub.NewFromConfig(cfg),
		logger:        log,
		dryRun:        dryRun,
		sampleDataDir: sampleDataDir,
	}
}

// FetchFindings retrieves ACTIVE findings created within the lookback window
// whose severity is at or above minSeverity.
func (c *SecurityHubClient) FetchFindings(ctx context.Context, minSeverity security.Severity, lookbackDays int) ([]security.Finding, error) {
	var raw []shtypes.AwsSecurityFinding

	if c.dryRun {
		var out securityhub.GetFindingsOutput
		if err := loadSample(c.sampleDataDir, "security_hub_findings.json", &out); err != nil {
			return nil, apperrors.ProviderAPI("failed to load security hub sample data", err)
		}
		raw = out.Findings
	} else {
		input := &securityhub.GetFindingsInput{
			Filters:    buildSecurityHubFilters(minSeverity, lookbackDays, time.Now().UTC()),
			MaxResults: aws.Int32(100),
		}
		paginator := securityhub.NewGetFindingsPaginator(c.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, apperrors.ProviderAPI("security hub query failed", err)
			}
			raw = append(raw, page.Findings...)
		}
	}

	findings := make([]security.Finding, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		finding := FindingFromSecurityHub(item)
		// Sample payloads bypass the API-side filter; enforce it here too.
		if !finding.Severity.AtLeast(minSeverity) {
			skipped++
			continue
		}
		findings = append(findings, finding)
	}
	metrics.RecordFindingCollection(string(security.ProviderSecurityHub), len(findings), skipped)
	c.logger.Infof("collected %d security hub findings (min severity %s)", len(findings), minSeverity)
	return findings, nil
}

func buildSecurityHubFilters(minSeverity security.Severity, lookbackDays int, now time.Time) *shtypes.AwsSecurityFindingFilters {
	var labels []shtypes.StringFilter
	for _, level := range security.Levels() {
		if !level.AtLeast(minSeverity) {
			continue
		}
		labels = append(labels, shtypes.StringFilter{
			Value:      aws.String(securityHubLabel(level)),
			Comparison: shtypes.StringFilterComparisonEquals,
		})
	}
	start := now.AddDate(0, 0, -lookbackDays).Format(time.RFC3339)
	return &shtypes.AwsSecurityFindingFilters{
		CreatedAt: []shtypes.DateFilter{{Start: aws.String(start)}},
		RecordState: []shtypes.StringFilter{{
			Value:      aws.String("ACTIVE"),
			Comparison: shtypes.StringFilterComparisonEquals,
		}},
		SeverityLabel: labels,
	}
}

// securityHubLabel translates a canonical severity into Security Hub's label
// vocabulary, which spells the lowest level INFORMATIONAL.
func securityHubLabel(s security.Severity) string {
	if s == security.SeverityInfo {
		return "INFORMATIONAL"
	}
	return string(s)
}

// FindingFromSecurityHub maps one Security Hub finding onto the shared model.
// The product ARN doubles as the service dimension; Security Hub findings do
// not name the billed service directly.
func FindingFromSecurityHub(f shtypes.AwsSecurityFinding) security.Finding {
	occurredAt := aws.ToString(f.CreatedAt)
	if occurredAt == "" {
		occurredAt = aws.ToString(f.UpdatedAt)
	}
	if occurredAt == "" {
		occurredAt = time.Now().UTC().Format(time.RFC3339)
	}

	severity := security.SeverityLow
	if f.Severity != nil && f.Severity.Label != "" {
		label := strings.ToUpper(string(f.Severity.Label))
		if label == "INFORMATIONAL" {
			label = string(security.SeverityInfo)
		}
		severity = security.Severity(label)
	}

	findingID := aws.ToString(f.Id)
	if findingID == "" {
		findingID = "unknown"
	}

	return security.Finding{
		OccurredAt: occurredAt,
		AccountID:  stringOr(f.AwsAccountId, security.ServiceUnknown),
		Region:     stringOr(f.Region, security.RegionUnknown),
		Service:    stringOr(f.ProductArn, security.ServiceUnknown),
		Provider:   security.ProviderSecurityHub,
		Severity:   severity,
		Title:      aws.ToString(f.Title),
		FindingID:  findingID,
		RawRef: map[string]any{
			"id":           findingID,
			"product_arn":  aws.ToString(f.ProductArn),
			"generator_id": aws.ToString(f.GeneratorId),
		},
	}
}

func stringOr(p *string, fallback string) string {
	if v := aws.ToString(p); v != "" {
		return v
	}
	return fallback
}
