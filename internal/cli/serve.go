package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/carelog/internal/api"
	"github.com/ppiankov/carelog/internal/llm"
	"github.com/ppiankov/carelog/internal/pipeline"
	"github.com/ppiankov/carelog/internal/worker"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve exposes the pipeline over HTTP:
  POST /analyze?force_source=llm|rules   body: {"text": "..."}
  GET  /diag/llm                         model configuration and test call
  GET  /health                           liveness
  GET  /metrics                          Prometheus metrics

With --watch-config the incident pattern file is reloaded when it changes;
a reload that fails to parse keeps the previous patterns.

Example:
  carelog serve --addr :8000 --watch-config`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().Bool("watch-config", false, "reload the incident pattern file on change")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("incident.watch", serveCmd.Flags().Lookup("watch-config"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	p := pipeline.NewPipeline(cfg, logger, llm.WithThrottle(limiter))

	// Fail fast on a broken pattern file rather than on the first request
	if _, err := p.Store().Get(); err != nil {
		return fmt.Errorf("load incident config: %w", err)
	}

	if cfg.Incident.Watch {
		go func() {
			if err := p.Store().Watch(ctx); err != nil {
				logger.WithError(err).Error("config watch stopped")
			}
		}()
	}

	srv := api.NewServer(p, cfg.Server.RequestTimeout, logger)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
