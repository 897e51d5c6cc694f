package main

import (
	"context"
	"time"

	"github.com/WailSalutem-Health-Care/patient-service/internal/config"
	"github.com/WailSalutem-Health-Care/patient-service/internal/db"
	"github.com/WailSalutem-Health-Care/patient-service/internal/logger"
	"go.uber.org/zap"
)

// migrate applies the patient and user schema as a one-shot job, e.g. as an
// init container ahead of the api rollout.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync()

	if cfg.StoreDriver != config.StoreDriverPostgres {
		log.Info("nothing to migrate", zap.String("store", cfg.StoreDriver))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	database, err := db.Connect(ctx, db.Params{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("schema is up to date", zap.String("database", cfg.DBName))
}
