package main

import (
	"context"
	"fmt"
	"net"

	"github.com/apc-foundation/exam-pipeline/internal/config"
	"github.com/apc-foundation/exam-pipeline/internal/events"
	"github.com/apc-foundation/exam-pipeline/internal/service"
	"github.com/apc-foundation/exam-pipeline/internal/store"
	"github.com/apc-foundation/exam-pipeline/pkg/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// openStore connects to the configured database and brings its schema up to date.
// Postgres is migrated with goose; sqlite gets the schema from the models.
func openStore(cfg *config.Config) (store.Store, error) {
	zap.S().Named("main").Info("initializing data store")
	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing data store: %w", err)
	}

	s := store.NewStore(db)
	if err := migrate(cfg, db, s); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func migrate(cfg *config.Config, db *gorm.DB, s store.Store) error {
	if cfg.Database.Type == "pgsql" {
		if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		return nil
	}

	if err := s.InitialMigration(context.Background()); err != nil {
		return fmt.Errorf("running initial migration: %w", err)
	}
	return nil
}

func newPipelineService(cfg *config.Config, s store.Store, producer *events.EventProducer) (*service.PipelineService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return service.NewPipelineService(s, producer, service.WithLocation(loc)), nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
