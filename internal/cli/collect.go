package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/finsecops/spendguard/internal/services"
)

func newCollectCostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect-cost",
		Short: "Collect weekly cost records from Cost Explorer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pipeline, err := services.NewPipeline(ctx, cfg, log)
			if err != nil {
				return err
			}
			records, err := pipeline.CollectCost(ctx)
			if err != nil {
				return err
			}
			return printJSON(records)
		},
	}
}

func newCollectSecurityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect-security",
		Short: "Collect security findings from the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pipeline, err := services.NewPipeline(ctx, cfg, log)
			if err != nil {
				return err
			}
			findings, err := pipeline.CollectSecurity(ctx)
			if err != nil {
				return err
			}
			return printJSON(findings)
		},
	}
}
