package main

import (
	"context"
	"fmt"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/events"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/apc-foundation/exam-pipeline/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var refreshRunType string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute the status of every active exam in a single run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), func(ctx context.Context, p *service.PipelineService) (*service.RunResult, error) {
			return p.Execute(ctx, service.NewRefreshRequest(api.StringToRunType(refreshRunType)))
		})
	},
}

func init() {
	refreshCmd.Flags().StringVar(&refreshRunType, "run-type", string(api.RunTypeManual), "Run type recorded in the ledger (manual or scheduled)")
}

// runOnce executes one in-process run against the configured database and prints its
// outcome.
func runOnce(ctx context.Context, fn func(ctx context.Context, p *service.PipelineService) (*service.RunResult, error)) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	undo := log.Setup(cfg.Service.LogLevel)
	defer undo()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	producer := events.NewEventProducer(events.NewStdoutWriter())
	defer func() { _ = producer.Close() }()

	p, err := newPipelineService(cfg, store, producer)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := fn(ctx, p)
	if err != nil {
		return err
	}

	zap.S().Named("main").Infow("run finished",
		"run_id", result.RunID,
		"run_type", result.RunType,
		"status", result.Status,
		"duration_ms", result.DurationMs,
		"found", result.Found,
		"new", result.New,
		"updated", result.Updated,
		"errors", len(result.Errors),
		"closed", result.StatusChanges.Closed,
		"opened", result.StatusChanges.Opened,
		"coming_soon", result.StatusChanges.ComingSoon,
	)
	if result.Status == api.RunStatusFailed {
		return fmt.Errorf("run %s failed", result.RunID)
	}
	return nil
}
