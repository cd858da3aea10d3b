package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-gallery/internal/match"
	"github.com/kozaktomas/face-gallery/internal/recognize"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image-file>",
	Short: "Detect and recognize the faces in an image",
	Long: `Detect the faces in an image, predict emotion, age and gender, and match
each face against the gallery.

Examples:
  face-gallery analyze frame.jpg
  face-gallery analyze frame.jpg --threshold 0.3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Float64("threshold", 0, "Maximum cosine distance for a match (default MATCH_THRESHOLD)")
	analyzeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold != 0 {
		cfg.Match.Threshold = threshold
	}

	store, err := openGallery(cfg)
	if err != nil {
		return err
	}
	data, err := readImageFile(args[0])
	if err != nil {
		return err
	}

	engine, err := match.NewEngine(store, cfg.Match.Threshold)
	if err != nil {
		return err
	}
	client := newAnalyzerClient(cfg)
	coord := recognize.NewCoordinator(client, client, engine, cfg.Recognize.Concurrency, nil)

	faces, err := coord.AnalyzeFrame(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", args[0], err)
	}

	if mustGetBool(cmd, "json") {
		if faces == nil {
			faces = []recognize.FaceResult{}
		}
		return outputJSON(faces)
	}

	if len(faces) == 0 {
		fmt.Println("No faces found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tREGION\tNAME\tCONFIDENCE\tEMOTION\tAGE\tGENDER")
	for i, f := range faces {
		confidence := "-"
		if f.Confidence != nil {
			confidence = fmt.Sprintf("%.2f", *f.Confidence)
		}
		fmt.Fprintf(w, "%d\t%dx%d+%d+%d\t%s\t%s\t%s\t%d\t%s\n",
			i+1, f.Region.W, f.Region.H, f.Region.X, f.Region.Y,
			f.Name, confidence, f.DominantEmotion, f.Age, f.Gender)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
