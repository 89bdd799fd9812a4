package main

import (
	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/pkg/log"
	"github.com/apc-foundation/exam-pipeline/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		undo := log.Setup(cfg.Service.LogLevel)
		defer undo()

		zap.S().Named("main").Infof("using config: %s", cfg)

		db, err := store.InitDB(cfg)
		if err != nil {
			return err
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := migrate(cfg, db, s); err != nil {
			return err
		}

		if cfg.Database.Type == "pgsql" {
			version, err := migrations.Version(db)
			if err != nil {
				return err
			}
			zap.S().Named("main").Infof("db migrated to version %d", version)
			return nil
		}

		zap.S().Named("main").Info("db migrated")
		return nil
	},
}
