package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/lorekeeper/internal/progress"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from the stored documents",
	Long: `Re-chunks and re-embeds every live document into a fresh index.
Soft-deleted documents are dropped permanently and the deleted set is
cleared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		comps, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer comps.Close()

		reporter := progress.NewReporter("Rebuilding")
		started := false
		err = comps.lifecycle.Rebuild(ctx, func(done, total int, title string) {
			if !started {
				reporter.Start(total)
				started = true
			}
			reporter.Update(done, title)
		})
		if started {
			reporter.Finish()
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
