package cmd

import (
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the known embedding models",
	Long: `List the embedding models known to the analyzer client with their embedding
dimension and the cosine distance threshold DeepFace recommends for them.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	names := make([]string, 0, len(cfg.Models.Models))
	for name := range cfg.Models.Models {
		names = append(names, name)
	}
	slices.Sort(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tDIMENSION\tTHRESHOLD\t")
	for _, name := range names {
		info := cfg.Models.Models[name]
		marker := ""
		if name == cfg.Analyzer.Model {
			marker = "(configured)"
		}
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%s\n", name, info.Dimension, info.Threshold, marker)
	}
	return w.Flush()
}
