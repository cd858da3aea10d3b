package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-gallery/internal/constants"
	"github.com/kozaktomas/face-gallery/internal/enroll"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var peopleImportCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Enroll every image in a directory",
	Long: `Enroll every image in a directory, one person per file.

The person's name is taken from the file name: the extension is dropped and
underscores become spaces, so "Jane_Doe.jpg" enrolls "Jane Doe".
Files that fail (no face, unreadable image) are reported and skipped.

Examples:
  face-gallery people import ./portraits
  face-gallery people import ./portraits --concurrency 4 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPeopleImport,
}

func init() {
	peopleCmd.AddCommand(peopleImportCmd)

	peopleImportCmd.Flags().Int("concurrency", constants.ImportWorkers, "Number of parallel enrollments")
	peopleImportCmd.Flags().Bool("dry-run", false, "List the people that would be enrolled")
	peopleImportCmd.Flags().Bool("json", false, "Output as JSON")
}

// importExtensions are the file types picked up by import.
var importExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

// ImportItem is the outcome for one file.
type ImportItem struct {
	File  string `json:"file"`
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Enrolled      int          `json:"enrolled"`
	Failed        int          `json:"failed"`
	Items         []ImportItem `json:"items"`
	DurationMs    int64        `json:"duration_ms"`
	DurationHuman string       `json:"duration,omitempty"`
}

// importName derives a display name from an image file name.
func importName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.Join(strings.Fields(name), " ")
}

// collectImages lists the importable files in dir, sorted by name.
func collectImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if slices.Contains(importExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

func runPeopleImport(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	dryRun := mustGetBool(cmd, "dry-run")
	jsonOutput := mustGetBool(cmd, "json")

	files, err := collectImages(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		if jsonOutput {
			return outputJSON(ImportResult{Items: []ImportItem{}})
		}
		fmt.Println("No images found.")
		return nil
	}

	if dryRun {
		items := make([]ImportItem, len(files))
		for i, f := range files {
			items[i] = ImportItem{File: f, Name: importName(f)}
		}
		if jsonOutput {
			return outputJSON(ImportResult{Items: items})
		}
		for _, item := range items {
			fmt.Printf("  %s -> %s\n", item.File, item.Name)
		}
		fmt.Printf("\n%d people would be enrolled (dry run)\n", len(items))
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openGallery(cfg)
	if err != nil {
		return err
	}
	svc := enroll.NewService(store, newAnalyzerClient(cfg), enroll.Options{
		ImageDir:        cfg.Gallery.ImageDir,
		MaxNameAttempts: cfg.Enroll.MaxNameAttempts,
	})

	if !jsonOutput {
		fmt.Printf("Enrolling %d people into %s\n\n", len(files), store.Path())
	}

	// Create progress bar (only for non-JSON output)
	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("people"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	startTime := time.Now()
	items := importFiles(cmd.Context(), svc, files, concurrency, func() {
		if bar != nil {
			bar.Add(1)
		}
	})
	if bar != nil {
		fmt.Println()
	}

	duration := time.Since(startTime)
	result := ImportResult{Items: items, DurationMs: duration.Milliseconds()}
	for _, item := range items {
		if item.Error != "" {
			result.Failed++
		} else {
			result.Enrolled++
		}
	}

	if jsonOutput {
		return outputJSON(result)
	}

	for _, item := range items {
		if item.Error != "" {
			fmt.Printf("  FAILED %s: %s\n", item.File, item.Error)
		}
	}
	fmt.Printf("\nEnrolled %d, failed %d in %s\n", result.Enrolled, result.Failed, formatDuration(duration))
	if result.Failed > 0 {
		return errors.New("some images could not be enrolled")
	}
	return nil
}

// importFiles enrolls files in parallel. Items keep the order of files.
func importFiles(ctx context.Context, svc *enroll.Service, files []string, concurrency int, progress func()) []ImportItem {
	if ctx == nil {
		ctx = context.Background()
	}
	items := make([]ImportItem, len(files))
	var progressMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))
	for i, file := range files {
		g.Go(func() error {
			item := ImportItem{File: file, Name: importName(file)}
			data, err := readImageFile(file)
			if err == nil {
				var ident gallery.Identity
				ident, err = svc.Enroll(ctx, item.Name, data)
				item.ID = ident.ID
			}
			if err != nil {
				item.Error = err.Error()
			}
			items[i] = item

			progressMu.Lock()
			progress()
			progressMu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-file errors are recorded in items

	return items
}
