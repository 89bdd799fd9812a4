package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/apc-foundation/exam-pipeline/internal/api_server"
	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/events"
	"github.com/apc-foundation/exam-pipeline/internal/scheduler"
	"github.com/apc-foundation/exam-pipeline/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline api, the scheduler and the metrics server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		undo := log.Setup(cfg.Service.LogLevel)
		defer undo()

		zap.S().Named("main").Info("starting exam pipeline")
		defer zap.S().Named("main").Info("exam pipeline stopped")
		zap.S().Named("main").Infof("using config: %s", cfg)

		store, err := openStore(cfg)
		if err != nil {
			zap.S().Named("main").Fatalw("opening store", "error", err)
		}
		defer store.Close()

		producer := events.NewEventProducer(events.NewStdoutWriter())
		defer func() { _ = producer.Close() }()

		pipelineSrv, err := newPipelineService(cfg, store, producer)
		if err != nil {
			zap.S().Named("main").Fatalw("creating pipeline", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Named("main").Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, store, listener, pipelineSrv)
			if err := server.Run(ctx); err != nil {
				zap.S().Named("main").Fatalw("running api server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Named("main").Fatalw("creating metrics listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener, store)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Named("main").Fatalw("running metrics server", "error", err)
			}
		}()

		if cfg.Scheduler.Enabled {
			go func() {
				s := scheduler.New(pipelineSrv, cfg.Scheduler.RefreshInterval, cfg.Scheduler.SweepInterval, cfg.Scheduler.StaleRunAfter)
				_ = s.Run(ctx)
			}()
		} else {
			zap.S().Named("main").Info("scheduler disabled")
		}

		<-ctx.Done()
		return nil
	},
}
