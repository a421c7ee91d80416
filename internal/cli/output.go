package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/finsecops/spendguard/internal/config"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/providers"
	"github.com/finsecops/spendguard/internal/storage"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(body))
	return nil
}

// writeOutput writes body to path, or stdout when path is empty.
func writeOutput(path, body string) error {
	if path == "" {
		fmt.Println(body)
		return nil
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// loadJSONInput reads JSON from a local path or an s3:// URI into out.
func loadJSONInput(ctx context.Context, cfg *config.Config, log *logger.Logger, uri string, out interface{}) error {
	if strings.HasPrefix(uri, "s3://") {
		bucket, key, err := storage.ParseS3URI(uri)
		if err != nil {
			return err
		}
		awsCfg, err := providers.LoadAWSConfig(ctx, cfg.AWSRegion, providers.Credentials{}, cfg.Collect.MaxAPIAttempts)
		if err != nil {
			return err
		}
		return storage.NewS3Store(awsCfg, log).GetJSON(ctx, bucket, key, out)
	}
	body, err := os.ReadFile(uri)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", uri, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", uri, err)
	}
	return nil
}
