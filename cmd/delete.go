package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Soft-delete a document",
	Long: `Marks a document deleted so its passages stop matching searches. The
chunks stay in the index and the document can be restored instantly with
` + "`lorekeeper restore`" + ` until the next rebuild makes the deletion permanent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		comps, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer comps.Close()

		if err := comps.lifecycle.DeleteDocument(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s (restore with `lorekeeper restore %s`)\n", args[0], args[0])
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [document-id]",
	Short: "Restore a soft-deleted document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		comps, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer comps.Close()

		result, err := comps.lifecycle.ProcessDocument(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", result.Document.Title, result.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(restoreCmd)
}
