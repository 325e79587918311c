package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/lorekeeper/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing spoiler-aware library search tools for AI agents.`,
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

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "lorekeeper MCP server started on stdio (chunks=%d)\n", comps.index.Count())

		srv := mcpserver.NewServer(comps.index, comps.lifecycle)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
