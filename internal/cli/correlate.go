package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finsecops/spendguard/internal/domain/billing"
	"github.com/finsecops/spendguard/internal/domain/security"
	"github.com/finsecops/spendguard/internal/services"
)

func newCorrelateCmd() *cobra.Command {
	var costInput, findingsInput string

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate cost records with security findings",
		Long: `Runs the correlation pipeline over previously collected inputs. Both
inputs are JSON lists and can be local files or s3:// URIs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := context.Background()

			var records []billing.Record
			if err := loadJSONInput(ctx, cfg, log, costInput, &records); err != nil {
				return fmt.Errorf("failed to load cost records: %w", err)
			}
			var findings []security.Finding
			if err := loadJSONInput(ctx, cfg, log, findingsInput, &findings); err != nil {
				return fmt.Errorf("failed to load findings: %w", err)
			}

			pipeline, err := services.NewPipeline(ctx, cfg, log)
			if err != nil {
				return err
			}
			result := pipeline.Correlate(ctx, records, findings)
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&costInput, "cost", "", "cost records JSON (file path or s3:// URI)")
	cmd.Flags().StringVar(&findingsInput, "findings", "", "security findings JSON (file path or s3:// URI)")
	_ = cmd.MarkFlagRequired("cost")
	_ = cmd.MarkFlagRequired("findings")

	return cmd
}
