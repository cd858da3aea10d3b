package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-gallery/internal/match"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <image-file>",
	Short: "Rank gallery identities against the face in an image",
	Long: `Embed the most prominent face in an image and rank every gallery identity
by cosine distance. The best identity under the threshold is reported as the
match.

Examples:
  face-gallery match face.png
  face-gallery match face.png --limit 3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Float64("threshold", 0, "Maximum cosine distance for a match (default MATCH_THRESHOLD)")
	matchCmd.Flags().Int("limit", 5, "Number of ranked identities to show (0 = all)")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

// MatchOutput is the JSON output of the match command.
type MatchOutput struct {
	Match     *match.Result  `json:"match"`
	Threshold float64        `json:"threshold"`
	Ranked    []match.Result `json:"ranked"`
}

func runMatch(cmd *cobra.Command, args []string) error {
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

	emb, err := newAnalyzerClient(cfg).Represent(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("failed to embed %s: %w", args[0], err)
	}

	best, err := engine.Match(emb.Embedding)
	if err != nil {
		return err
	}
	ranked, err := engine.Rank(emb.Embedding, mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(MatchOutput{Match: best, Threshold: engine.Threshold(), Ranked: ranked})
	}

	if best != nil {
		fmt.Printf("Match: %s (confidence %.3f)\n\n", best.Name, best.Confidence)
	} else {
		fmt.Printf("No match within threshold %.2f\n\n", engine.Threshold())
	}
	if len(ranked) == 0 {
		fmt.Println("Gallery is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tNAME\tDISTANCE\tID")
	for i, r := range ranked {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%s\n", i+1, r.Name, r.Distance, r.ID)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
