package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/kozaktomas/face-gallery/internal/constants"
	"github.com/kozaktomas/face-gallery/internal/enroll"
	"github.com/kozaktomas/face-gallery/internal/match"
	"github.com/kozaktomas/face-gallery/internal/metrics"
	"github.com/kozaktomas/face-gallery/internal/recognize"
	"github.com/kozaktomas/face-gallery/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Gallery web server.
The server exposes the gallery (list, enroll, delete), frame analysis for a
browser camera client, raw embedding match/search and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT, default 5001)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("token", "", "Bearer token for gallery mutations (overrides WEB_API_TOKEN)")
	serveCmd.Flags().Float64("threshold", 0, "Maximum cosine distance for a match (overrides MATCH_THRESHOLD)")
}

// applyServeFlags applies command-line overrides on top of the environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if token := mustGetString(cmd, "token"); token != "" {
		cfg.Web.APIToken = token
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold != 0 {
		cfg.Match.Threshold = threshold
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openGallery(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d identities from %s\n", store.Len(), store.Path())

	m := metrics.New()
	m.RegisterGallery(store)

	client := newAnalyzerClient(cfg)
	engine, err := match.NewEngine(store, cfg.Match.Threshold)
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, web.Services{
		Gallery: store,
		Enroller: enroll.NewService(store, client, enroll.Options{
			ImageDir:        cfg.Gallery.ImageDir,
			MaxNameAttempts: cfg.Enroll.MaxNameAttempts,
			Metrics:         m,
		}),
		Coordinator: recognize.NewCoordinator(client, client, engine, cfg.Recognize.Concurrency, m),
		Engine:      engine,
		Metrics:     m,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Analyzer: %s (model %s, threshold %.2f)\n", cfg.Analyzer.URL, cfg.Analyzer.Model, engine.Threshold())
	if cfg.Web.APIToken == "" {
		fmt.Println("Warning: WEB_API_TOKEN not set, gallery mutations are unauthenticated")
	}
	fmt.Printf("Starting Face Gallery on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
