package main

import (
	"context"

	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/apc-foundation/exam-pipeline/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail runs left running longer than the stale threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		swept, err := service.NewPipelineService(store, nil).Sweep(ctx, cfg.Scheduler.StaleRunAfter)
		if err != nil {
			return err
		}

		zap.S().Named("main").Infof("failed %d stale runs", swept)
		return nil
	},
}
