package main

import (
	"github.com/spf13/cobra"

	"github.com/godilite/ticket-triage/internal/mcp"
)

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the triage tools over MCP on stdio",
		Long: "Starts a Model Context Protocol server on stdin/stdout exposing the\n" +
			"triage_email and classify_urgency tools.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline, _, logger, err := loadPipeline(g)
			if err != nil {
				return err
			}
			defer pipeline.Close()
			defer logger.Sync()

			return mcp.NewServer(pipeline.Service, nil, logger).Run(cmd.Context())
		},
	}
}
