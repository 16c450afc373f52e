// Command no2ctl is the operator CLI for the NO₂ prediction map: one-off
// predictions, the area catalog, the synthetic trend, a health check of a
// running prediction service, and a local stand-in for that service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ki-SH-an/NO2-predictor/internal/config"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
	"github.com/spf13/cobra"
)

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	baseURL string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "no2ctl",
		Short:         "NO₂ prediction map tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			a.logger = observability.NewLogger(cfg)

			if !cmd.Flags().Changed("base-url") {
				a.baseURL = cfg.PredictionBaseURL
			}
			if !cmd.Flags().Changed("timeout") {
				a.timeout = cfg.PredictionTimeout
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "prediction service base URL (default from PREDICTION_BASE_URL)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "prediction timeout (default from PREDICTION_TIMEOUT)")

	root.AddCommand(
		newPredictCmd(a),
		newAreasCmd(),
		newTrendCmd(),
		newCheckCmd(a),
		newMockServerCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
