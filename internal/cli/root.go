package cli

import (
	"github.com/spf13/cobra"

	"github.com/finsecops/spendguard/internal/config"
	"github.com/finsecops/spendguard/internal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "spendguard",
	Short: "Weekly cloud-spend anomaly and security-finding correlation",
	Long: `spendguard detects weekly cost anomalies per account, region, and service,
pairs them with security findings from Security Hub and GuardDuty, and emits
correlated alerts with rule-based recommendations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newCollectCostCmd())
	rootCmd.AddCommand(newCollectSecurityCmd())
	rootCmd.AddCommand(newCorrelateCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newScheduleCmd())
}

// setup loads the run configuration and builds the logger every command
// shares. Configuration is rebuilt per invocation; nothing is cached.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	return cfg, log, nil
}
