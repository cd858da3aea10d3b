package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-gallery/internal/analyzer"
	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/spf13/cobra"
)

// loadConfig loads the environment config and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()

	if catalog, _ := cmd.Flags().GetString("catalog"); catalog != "" {
		cfg.Gallery.CatalogPath = catalog
	}
	if imageDir, _ := cmd.Flags().GetString("image-dir"); imageDir != "" {
		cfg.Gallery.ImageDir = imageDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openGallery loads the catalog. A corrupt catalog is fatal.
func openGallery(cfg *config.Config) (*gallery.Store, error) {
	store, err := gallery.Load(cfg.Gallery.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	return store, nil
}

// newAnalyzerClient creates the DeepFace API client from config.
func newAnalyzerClient(cfg *config.Config) *analyzer.Client {
	return analyzer.NewClient(analyzer.Options{
		BaseURL:         cfg.Analyzer.URL,
		Model:           cfg.Analyzer.Model,
		DetectorBackend: cfg.Analyzer.Detector,
		ExpectedDim:     cfg.ExpectedDimension(),
		Timeout:         cfg.Analyzer.Timeout,
		RateLimit:       cfg.Analyzer.RateLimit,
	})
}

// readImageFile reads an image file from disk.
func readImageFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return data, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
