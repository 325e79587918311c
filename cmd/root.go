package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lorekeeper",
	Short: "Spoiler-aware semantic search over narrative documents",
	Long: `Lorekeeper ingests novels and other narrative documents, detects their
chapter structure, and builds a semantic vector index whose searches can
be capped at a chapter: ask about a book you are halfway through without
being spoiled by its ending.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".lorekeeper.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
