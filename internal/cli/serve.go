package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ppiankov/claimcheck/internal/feedback"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/server"
	"github.com/ppiankov/claimcheck/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification API over HTTP",
	Long: `Serve starts the HTTP API:
  GET  /              health
  POST /verify/text   {"text": "...", "include_explanation": true}
  POST /verify/image  multipart "file", ?include_explanation=true
  POST /feedback      {"prompt", "chosen", "rejected", "notes"}
  GET  /metrics       Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config, :8000)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	recorder := metrics.NewPrometheus()
	p, err := pipeline.NewFromConfig(cfg, logger, recorder)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	srv := server.New(cfg.Server, p, server.Options{
		Feedback: feedback.NewLog(cfg.Feedback.Path),
		Metrics:  recorder,
		Limiter:  worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("claimcheck API", zap.String("version", Version), zap.String("provider", cfg.LLM.Provider))
	return srv.ListenAndServe(ctx)
}
