package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcp-fleet",
		Short: "MCP tool servers over pluggable entity storage",
		Long: `mcp-fleet runs small MCP tool servers (memry, tides) whose entities live in a
pluggable storage backend: one JSON file per entity, sqlite, or memory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("mcp-fleet %s\n", version)
		},
	}
}
