package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show library statistics or one document's state",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("include-deleted", false, "also list soft-deleted documents")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	includeDeleted, _ := cmd.Flags().GetBool("include-deleted")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	if len(args) == 1 {
		st, err := comps.lifecycle.Status(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Title:     %s\n", st.Title)
		fmt.Printf("Filename:  %s\n", st.Filename)
		fmt.Printf("Indexed:   %v\n", st.Indexed)
		fmt.Printf("Deleted:   %v\n", st.Deleted)
		fmt.Printf("Chunks:    %d\n", st.ChunkCount)
		if st.MaxChapter > 0 {
			fmt.Printf("Chapters:  1-%d\n", st.MaxChapter)
		}
		if st.BackmatterChunks > 0 {
			fmt.Printf("Backmatter chunks: %d\n", st.BackmatterChunks)
		}
		return nil
	}

	stats, err := comps.lifecycle.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Documents:         %d\n", stats.Documents)
	fmt.Printf("Soft-deleted:      %d\n", stats.DeletedDocuments)
	fmt.Printf("Chunks in index:   %d\n", stats.TotalChunks)
	if stats.ShouldRebuild {
		fmt.Println("\nEnough documents are deleted that a rebuild would reclaim space.")
		fmt.Println("Run `lorekeeper rebuild` to compact the index.")
	}

	docs, err := comps.lifecycle.List(ctx, includeDeleted)
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		fmt.Println()
		for _, d := range docs {
			marker := " "
			if d.Deleted {
				marker = "D"
			}
			fmt.Printf("  %s %-36s %-30s %4d chunks\n", marker, d.ID, d.Title, d.ChunkCount)
		}
	}
	return nil
}
