package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finsecops/spendguard/internal/domain/alerting"
	"github.com/finsecops/spendguard/internal/pkg/timeutil"
	"github.com/finsecops/spendguard/internal/report"
)

func newReportCmd() *cobra.Command {
	var alertsInput, format, week, outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render an alert list into a report format",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := context.Background()

			var alerts []alerting.Alert
			if err := loadJSONInput(ctx, cfg, log, alertsInput, &alerts); err != nil {
				return fmt.Errorf("failed to load alerts: %w", err)
			}

			weekLabel := week
			if weekLabel == "" {
				if len(alerts) > 0 {
					weekLabel = alerts[0].WeekStart
				} else {
					weekLabel = time.Now().UTC().Format(timeutil.DateLayout)
				}
			}

			var body string
			switch format {
			case "markdown":
				body = report.ToMarkdown(alerts, weekLabel, nil)
			case "html":
				body = report.ToHTML(alerts, weekLabel, nil)
			case "csv":
				body = report.ToCSV(alerts)
			default:
				return fmt.Errorf("unsupported format %q (markdown, html, csv)", format)
			}
			return writeOutput(outPath, body)
		},
	}

	cmd.Flags().StringVar(&alertsInput, "alerts", "", "alerts JSON (file path or s3:// URI)")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown, html, csv")
	cmd.Flags().StringVar(&week, "week", "", "week start label (defaults to the first alert's week)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write output to a file instead of stdout")
	_ = cmd.MarkFlagRequired("alerts")

	return cmd
}
