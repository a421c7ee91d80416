package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/finsecops/spendguard/internal/scheduler"
	"github.com/finsecops/spendguard/internal/services"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full weekly pipeline once",
		Long: `Collects cost records and security findings, correlates them, persists
the report artifacts, and dispatches notifications.`,
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
			result, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the weekly pipeline on the configured cron schedule",
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

			sched := scheduler.New(log)
			job := func() {
				if _, err := pipeline.Run(context.Background()); err != nil {
					log.ErrorWithErr(err, "Scheduled run failed")
				}
			}
			if err := sched.Start(cfg.CronSchedule, job); err != nil {
				return err
			}

			if cfg.MetricsAddr != "" {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.Handler())
					if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
						log.ErrorWithErr(err, "Metrics endpoint stopped")
					}
				}()
				log.Infof("serving metrics on %s", cfg.MetricsAddr)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			sched.Stop()
			return nil
		},
	}
}
