package main

import (
	"context"
	"fmt"

	"github.com/apc-foundation/exam-pipeline/internal/cli"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:     "ingest",
		Short:   "Reconcile a scraper batch from a file in a single webhook run",
		Example: "ingest --file /path/to/batch.json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := cli.ReadWebhookFile(filePath)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), func(ctx context.Context, p *service.PipelineService) (*service.RunResult, error) {
				return p.Execute(ctx, service.NewWebhookRequest(*batch))
			})
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the JSON batch (required)")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Errorf("marking file flag required: %w", err))
	}
	return cmd
}
