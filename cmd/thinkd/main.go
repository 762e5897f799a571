// Thinkd is an MCP server that keeps stateful reasoning chains.
//
// It speaks MCP over stdin/stdout. Logs go to stderr. An optional HTTP
// sidecar serves health, prometheus metrics and session inspection.
//
// Usage:
//
//	# Serve MCP on stdio with ~/.config/thinkd/config.yaml
//	thinkd serve
//
//	# Override settings through the environment
//	CHAIN_MAX_DEPTH=20 SERVER_HTTP_ENABLED=true thinkd serve
//
//	# Show the effective configuration
//	thinkd config
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "thinkd",
		Short: "Stateful reasoning chains over MCP",
		Long: `thinkd keeps sequential thought chains and drafting chains per session and
exposes them as MCP tools over stdio.`,
		Version:      version,
		SilenceUsage: true,
		// MCP clients launch the bare binary.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/thinkd/config.yaml)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newConfigCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "thinkd by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
