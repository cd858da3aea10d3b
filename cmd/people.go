package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/face-gallery/internal/enroll"
	"github.com/spf13/cobra"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage the gallery of enrolled people",
}

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled people",
	Args:  cobra.NoArgs,
	RunE:  runPeopleList,
}

var peopleAddCmd = &cobra.Command{
	Use:   "add <name> <image-file>",
	Short: "Enroll a person from a reference image",
	Long: `Enroll a person from a reference image.

The image is stored in the image directory under a name derived from the
person's name and embedded with the configured analyzer model.

Examples:
  face-gallery people add "Jane Doe" jane.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runPeopleAdd,
}

var peopleRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a person and their reference image",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleRemove,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
	peopleCmd.AddCommand(peopleListCmd, peopleAddCmd, peopleRemoveCmd)

	peopleListCmd.Flags().Bool("json", false, "Output as JSON")
	peopleAddCmd.Flags().Bool("json", false, "Output as JSON")
}

func runPeopleList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openGallery(cfg)
	if err != nil {
		return err
	}

	people := store.List()
	if mustGetBool(cmd, "json") {
		return outputJSON(people)
	}

	if len(people) == 0 {
		fmt.Println("No people enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDED")
	for _, p := range people {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.AddedAt.Local().Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("\n%d people, embedding dimension %d\n", len(people), store.Dimension())
	return nil
}

func runPeopleAdd(cmd *cobra.Command, args []string) error {
	name, imagePath := args[0], args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openGallery(cfg)
	if err != nil {
		return err
	}
	data, err := readImageFile(imagePath)
	if err != nil {
		return err
	}

	svc := enroll.NewService(store, newAnalyzerClient(cfg), enroll.Options{
		ImageDir:        cfg.Gallery.ImageDir,
		MaxNameAttempts: cfg.Enroll.MaxNameAttempts,
	})

	ident, err := svc.Enroll(context.Background(), name, data)
	if err != nil {
		return fmt.Errorf("failed to enroll %s: %w", name, err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(ident.Summary())
	}
	fmt.Printf("Enrolled %s\n", ident.Name)
	fmt.Printf("  ID:    %s\n", ident.ID)
	fmt.Printf("  Image: %s\n", ident.ImagePath)
	fmt.Printf("  Dim:   %d\n", len(ident.Embedding))
	return nil
}

func runPeopleRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openGallery(cfg)
	if err != nil {
		return err
	}

	removed, err := store.Remove(args[0])
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", args[0], err)
	}
	fmt.Printf("Removed %s (%s)\n", removed.Name, removed.ID)
	return nil
}
