package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/lorekeeper/internal/extract"
	"github.com/ziadkadry99/lorekeeper/internal/lifecycle"
	"github.com/ziadkadry99/lorekeeper/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files or globs]",
	Short: "Ingest documents into the library",
	Long: `Reads one or more text or markdown files (doublestar globs like
"books/**/*.txt" are supported), detects chapter structure, chunks and
embeds them, and adds them to the searchable library.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("title", "", "document title (single file only; defaults to the filename)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	title, _ := cmd.Flags().GetString("title")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths, err := expandGlobs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched %v", args)
	}
	if title != "" && len(paths) > 1 {
		return fmt.Errorf("--title applies to a single file, got %d", len(paths))
	}

	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	reporter := progress.NewReporter("Ingesting")
	reporter.Start(len(paths))
	defer reporter.Finish()

	var failed int
	for i, path := range paths {
		reporter.Update(i, filepath.Base(path))

		result, err := ingestFile(ctx, comps.lifecycle, path, title)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  %s: %v\n", path, err)
			continue
		}
		reporter.Update(i+1, fmt.Sprintf("%s (%d chunks)", result.Document.Title, result.ChunkCount))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	fmt.Fprintf(os.Stderr, "Ingested %d documents\n", len(paths))
	return nil
}

func ingestFile(ctx context.Context, lm *lifecycle.Manager, path, title string) (*lifecycle.AddResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, sourceType, err := extract.FromFile(path, data)
	if err != nil {
		return nil, err
	}
	return lm.AddDocument(ctx, lifecycle.AddRequest{
		Title:      title,
		Filename:   filepath.Base(path),
		Content:    text,
		SourceType: sourceType,
	})
}

// expandGlobs resolves each argument as a doublestar glob, passing plain
// paths through untouched.
func expandGlobs(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]struct{})
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if matches == nil {
			// Not a pattern; treat it as a literal path so the read error
			// surfaces with a useful message.
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	return paths, nil
}
