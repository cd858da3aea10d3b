package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-gallery",
	Short: "A face gallery and recognition service",
	Long: `Face Gallery keeps a small gallery of enrolled people, each with a reference
image and a face embedding, and recognizes those people in camera frames.

Face detection, attributes (emotion, age, gender) and embeddings come from a
DeepFace-compatible API server configured with ANALYZER_URL.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("catalog", "", "Path to the gallery catalog (overrides GALLERY_CATALOG_PATH)")
	rootCmd.PersistentFlags().String("image-dir", "", "Directory for reference images (overrides GALLERY_IMAGE_DIR)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
