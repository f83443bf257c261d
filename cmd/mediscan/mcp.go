package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MediScan tools over MCP on stdio",
	Long: `Run an MCP server on stdin/stdout exposing the extract, tokenize,
classify and render tools. Logs go to stderr.

Rendering a report that names other medications without interaction text
calls the configured interaction provider.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, _, err := localPipeline()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(&mcp.Implementation{Name: "mediscan", Version: version.String()}, nil)
		comps.Pipeline.RegisterMCP(srv)
		logger.Info("mcp server ready", "transport", "stdio")
		return srv.Run(cmd.Context(), &mcp.StdioTransport{})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
