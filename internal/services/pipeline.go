package services

import (
	"context"
	"fmt"
	"time"

	"github.com/finsecops/spendguard/internal/config"
	"github.com/finsecops/spendguard/internal/correlation"
	"github.com/finsecops/spendguard/internal/domain/billing"
	"github.com/finsecops/spendguard/internal/domain/security"
	"github.com/finsecops/spendguard/internal/notify"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/pkg/retry"
	"github.com/finsecops/spendguard/internal/pkg/timeutil"
	"github.com/finsecops/spendguard/internal/providers"
	"github.com/finsecops/spendguard/internal/report"
	"github.com/finsecops/spendguard/internal/storage"
)

const presignExpiry = time.Hour

// Pipeline wires the collectors, the correlation core, storage, and
// notification into the weekly end-to-end run.
type Pipeline struct {
	cfg    *config.Config
	logger *logger.Logger

	costs     *providers.CostExplorerClient
	secHub    *providers.SecurityHubClient
	guardDuty *providers.GuardDutyClient
	store     *storage.S3Store
	notifier  *notify.Notifier
}

// NewPipeline builds all collaborators from one shared AWS configuration.
func NewPipeline(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Pipeline, error) {
	awsCfg, err := providers.LoadAWSConfig(ctx, cfg.AWSRegion, providers.Credentials{}, cfg.Collect.MaxAPIAttempts)
	if err != nil {
		return nil, err
	}

	targets := notify.Targets{
		SNSTopicARN:     cfg.Notify.SNSTopicARN,
		SlackWebhookURL: cfg.Notify.SlackWebhookURL,
	}
	return &Pipeline{
		cfg:       cfg,
		logger:    log,
		costs:     providers.NewCostExplorerClient(awsCfg, cfg.DryRun, cfg.Storage.SampleDataDir, log),
		secHub:    providers.NewSecurityHubClient(awsCfg, cfg.DryRun, cfg.Storage.SampleDataDir, log),
		guardDuty: providers.NewGuardDutyClient(awsCfg, cfg.DryRun, cfg.Storage.SampleDataDir, log),
		store:     storage.NewS3Store(awsCfg, log),
		notifier:  notify.New(awsCfg, targets, cfg.DryRun, retry.DefaultPolicy(), log),
	}, nil
}

// CollectCost fetches cost records for the run's lookback window and snapshots
// them to the raw bucket when one is configured.
func (p *Pipeline) CollectCost(ctx context.Context) ([]billing.Record, error) {
	start, end := timeutil.ResolveCostPeriod(time.Now().UTC(), p.cfg.Collect.LookbackDays)
	records, err := p.costs.FetchRecords(ctx, start, end, p.cfg.Collect.TargetServices)
	if err != nil {
		return nil, err
	}
	if p.cfg.Storage.RawBucket != "" && !p.cfg.DryRun {
		key := storage.RawSnapshotKey("cost", end)
		if err := p.store.PutJSON(ctx, p.cfg.Storage.RawBucket, key, records); err != nil {
			p.logger.ErrorWithErr(err, "Failed to snapshot cost records")
		}
	}
	return records, nil
}

// CollectSecurity fetches findings from every configured security provider and
// snapshots the combined list to the raw bucket when one is configured.
func (p *Pipeline) CollectSecurity(ctx context.Context) ([]security.Finding, error) {
	var findings []security.Finding
	for _, provider := range p.cfg.Collect.SecurityProviders {
		switch provider {
		case "securityhub":
			fetched, err := p.secHub.FetchFindings(ctx, security.Severity(p.cfg.Collect.SeverityMin), p.cfg.Collect.LookbackDays)
			if err != nil {
				return nil, err
			}
			findings = append(findings, fetched...)
		case "guardduty":
			fetched, err := p.guardDuty.FetchFindings(ctx, p.cfg.Collect.GuardDutySeverityThreshold, p.cfg.Collect.LookbackDays, p.cfg.Collect.GuardDutyDetectorID)
			if err != nil {
				return nil, err
			}
			findings = append(findings, fetched...)
		default:
			p.logger.Warnf("unsupported security provider configured: %s", provider)
		}
	}
	if p.cfg.Storage.RawBucket != "" && !p.cfg.DryRun {
		key := storage.RawSnapshotKey("security", time.Now().UTC().Format(timeutil.DateLayout))
		if err := p.store.PutJSON(ctx, p.cfg.Storage.RawBucket, key, findings); err != nil {
			p.logger.ErrorWithErr(err, "Failed to snapshot security findings")
		}
	}
	return findings, nil
}

// Correlate loads the suppression rules and runs the in-memory correlation
// pipeline over the given inputs.
func (p *Pipeline) Correlate(ctx context.Context, records []billing.Record, findings []security.Finding) correlation.Result {
	suppressions := storage.LoadSuppressionRules(ctx, p.store, p.cfg.Storage.SuppressConfigURI, p.logger)
	correlator := correlation.NewCorrelator(p.correlationConfig(), p.logger)
	return correlator.Run(records, findings, suppressions)
}

// Run executes the full weekly pipeline: collect, correlate, persist the
// report artifacts, and notify. Notification failures are logged but do not
// fail the run; the artifacts are already persisted by then.
func (p *Pipeline) Run(ctx context.Context) (correlation.Result, error) {
	records, err := p.CollectCost(ctx)
	if err != nil {
		return correlation.Result{}, err
	}
	findings, err := p.CollectSecurity(ctx)
	if err != nil {
		return correlation.Result{}, err
	}

	result := p.Correlate(ctx, records, findings)

	weekLabel := weekLabelFor(result)
	attachments, err := p.persistReport(ctx, result, weekLabel)
	if err != nil {
		return result, err
	}

	subject := fmt.Sprintf("[Cost x Security] Weekly correlation alerts (%s)", p.cfg.Environment)
	body := report.ToMarkdown(result.Alerts, weekLabel, attachments)
	if err := p.notifier.Send(ctx, subject, body); err != nil {
		p.logger.ErrorWithErr(err, "Report notification failed")
	}
	return result, nil
}

// persistReport writes the JSON and CSV artifacts for the week and returns
// attachment links for the report body. Without a reports bucket the report
// is notification-only.
func (p *Pipeline) persistReport(ctx context.Context, result correlation.Result, weekLabel string) (map[string]string, error) {
	if p.cfg.Storage.ReportsBucket == "" {
		return nil, nil
	}
	bucket := p.cfg.Storage.ReportsBucket
	prefix := fmt.Sprintf("reports/%s/%s", p.cfg.Environment, weekLabel)
	jsonKey := prefix + "/alerts.json"
	csvKey := prefix + "/alerts.csv"

	if err := p.store.PutJSON(ctx, bucket, jsonKey, result); err != nil {
		return nil, err
	}
	if err := p.store.PutObject(ctx, bucket, csvKey, "text/csv", []byte(report.ToCSV(result.Alerts))); err != nil {
		return nil, err
	}

	attachments := map[string]string{
		"JSON": fmt.Sprintf("s3://%s/%s", bucket, jsonKey),
		"CSV":  fmt.Sprintf("s3://%s/%s", bucket, csvKey),
	}
	if !p.cfg.DryRun {
		if url, err := p.store.PresignGet(ctx, bucket, jsonKey, presignExpiry); err == nil {
			attachments["JSON"] = url
		}
		if url, err := p.store.PresignGet(ctx, bucket, csvKey, presignExpiry); err == nil {
			attachments["CSV"] = url
		}
	}
	return attachments, nil
}

func (p *Pipeline) correlationConfig() correlation.Config {
	return correlation.Config{
		DeltaThresholdPct:         p.cfg.Correlation.DeltaThresholdPct,
		ZScoreThreshold:           p.cfg.Correlation.ZScoreThreshold,
		BufferHours:               p.cfg.Correlation.BufferHours,
		HistoryWeeks:              p.cfg.Correlation.HistoryWeeks,
		ServiceDiversityThreshold: p.cfg.Correlation.ServiceDiversityThreshold,
	}
}

// weekLabelFor labels report artifacts with the week of the first alert,
// falling back to today for empty runs.
func weekLabelFor(result correlation.Result) string {
	if len(result.Alerts) > 0 {
		return result.Alerts[0].WeekStart
	}
	return time.Now().UTC().Format(timeutil.DateLayout)
}
