package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/lorekeeper/internal/vectorindex"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Semantically search the library",
	Long: `Searches the vector index using a natural language query. Pass
--max-chapter to hide passages from chapters you have not reached yet.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 10, "maximum number of results")
	queryCmd.Flags().String("document", "", "restrict the search to one document ID")
	queryCmd.Flags().Int("max-chapter", -1, "hide passages beyond this chapter (spoiler protection)")
	queryCmd.Flags().Bool("include-backmatter", false, "include appendices and other end material under a chapter filter")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	documentID, _ := cmd.Flags().GetString("document")
	maxChapter, _ := cmd.Flags().GetInt("max-chapter")
	includeBackmatter, _ := cmd.Flags().GetBool("include-backmatter")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	if comps.index.Count() == 0 {
		fmt.Println("The library is empty. Run `lorekeeper ingest` first.")
		return nil
	}

	filter := vectorindex.Filter{
		DocumentID:        documentID,
		IncludeBackmatter: includeBackmatter,
	}
	if maxChapter >= 0 {
		filter.MaxChapter = &maxChapter
	}

	results, err := comps.index.Search(ctx, queryText, limit, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Print(vectorindex.FormatResults(results))
	return nil
}
