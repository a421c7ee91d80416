package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	apperrors "github.com/finsecops/spendguard/internal/pkg/errors"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/pkg/retry"
)

// SNS rejects subjects longer than 100 characters.
const snsSubjectLimit = 100

// Targets names the configured notification destinations. Empty fields are
// skipped without error.
type Targets struct {
	SNSTopicARN     string
	SlackWebhookURL string
}

// Notifier dispatches rendered reports to SNS and Slack.
type Notifier struct {
	sns     *sns.Client
	http    *http.Client
	policy  retry.Policy
	targets Targets
	dryRun  bool
	logger  *logger.Logger
}

func New(cfg aws.Config, targets Targets, dryRun bool, policy retry.Policy, log *logger.Logger) *Notifier {
	return &Notifier{
		sns:     sns.NewFromConfig(cfg),
		http:    &http.Client{Timeout: 10 * time.Second},
		policy:  policy,
		targets: targets,
		dryRun:  dryRun,
		logger:  log,
	}
}

// Send delivers the message to every configured target. In dry-run mode the
// delivery is logged and skipped.
func (n *Notifier) Send(ctx context.Context, subject, body string) error {
	if n.dryRun {
		n.logger.Infof("dry-run: notification suppressed: %s", subject)
		return nil
	}
	if n.targets.SNSTopicARN != "" {
		if err := n.publishSNS(ctx, subject, body); err != nil {
			return err
		}
	}
	if n.targets.SlackWebhookURL != "" {
		if err := n.postSlack(ctx, body); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) publishSNS(ctx context.Context, subject, message string) error {
	if len(subject) > snsSubjectLimit {
		subject = subject[:snsSubjectLimit]
	}
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.targets.SNSTopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return apperrors.Notify("sns publish failed", err)
	}
	n.logger.Info("Published report to SNS")
	return nil
}

type slackError struct {
	status int
}

func (e *slackError) Error() string {
	return fmt.Sprintf("slack webhook returned status %d", e.status)
}

func (n *Notifier) postSlack(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return apperrors.Notify("failed to encode slack payload", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.targets.SlackWebhookURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := n.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return &slackError{status: resp.StatusCode}
		}
		return nil
	}

	if err := n.policy.Do(ctx, op, slackRetryable); err != nil {
		return apperrors.Notify("slack webhook delivery failed", err)
	}
	n.logger.Info("Posted report to Slack")
	return nil
}

// slackRetryable treats server errors and rate limiting as transient. Other
// 4xx responses indicate a misconfigured webhook and fail fast.
func slackRetryable(err error) bool {
	if se, ok := err.(*slackError); ok {
		return se.status >= 500 || se.status == http.StatusTooManyRequests
	}
	return true
}
