package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ziadkadry99/lorekeeper/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize lorekeeper configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure lorekeeper and generates a .lorekeeper.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
