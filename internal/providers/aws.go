package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsretry "github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Credentials holds optional static AWS credentials. When empty, the default
// credential chain is used.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// LoadAWSConfig builds the shared AWS client configuration with the standard
// retryer capped at maxAttempts.
func LoadAWSConfig(ctx context.Context, region string, creds Credentials, maxAttempts int) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return awsretry.AddWithMaxAttempts(awsretry.NewStandard(), maxAttempts)
		}),
	}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// loadSample decodes a dry-run sample payload from the sample data directory.
// Sample files carry the provider's native response shape.
func loadSample(dir, filename string, out interface{}) error {
	path := filepath.Join(dir, filename)
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sample data file missing: %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("sample data file invalid: %s: %w", path, err)
	}
	return nil
}
