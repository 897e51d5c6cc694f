package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WailSalutem-Health-Care/patient-service/internal/auth"
	"github.com/WailSalutem-Health-Care/patient-service/internal/billing"
	"github.com/WailSalutem-Health-Care/patient-service/internal/config"
	"github.com/WailSalutem-Health-Care/patient-service/internal/db"
	httpserver "github.com/WailSalutem-Health-Care/patient-service/internal/http"
	"github.com/WailSalutem-Health-Care/patient-service/internal/logger"
	"github.com/WailSalutem-Health-Care/patient-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/patient-service/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/patient-service/internal/users"
	"go.uber.org/zap"
)

const (
	shutdownTimeout     = 15 * time.Second
	jwksRefreshInterval = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync()

	ctx := context.Background()

	tp, err := telemetry.InitProvider(ctx, telemetry.LoadConfig(), log)
	if err != nil {
		log.Warn("telemetry disabled", zap.Error(err))
	}
	metrics, err := telemetry.InitMetrics(log)
	if err != nil {
		log.Warn("metrics disabled", zap.Error(err))
	}

	store, userRepo, database := openStores(ctx, cfg, log)
	if database != nil {
		defer database.Close()
	}

	conn, err := billing.Dial(ctx, cfg.BillingAddr)
	if err != nil {
		log.Fatal("failed to set up billing client", zap.Error(err))
	}
	defer conn.Close()
	billingClient := billing.NewClient(conn, billing.ClientConfig{
		Timeout:    cfg.BillingTimeout,
		MaxRetries: cfg.BillingMaxRetries,
	}, log)

	// without a broker every event fails with ErrNotConnected and is logged, registration keeps working
	publisher, err := messaging.NewPublisher(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("RabbitMQ unavailable, patient events will be dropped", zap.Error(err))
		publisher = nil
	}
	defer publisher.Close()

	var recorder patient.MetricsRecorder
	if metrics != nil {
		recorder = metrics
	}
	patientService := patient.NewService(
		store,
		billingClient,
		patient.NewRabbitEventSender(publisher),
		log,
		recorder,
		patient.ServiceConfig{
			CompensateBillingFailure: cfg.BillingCompensate,
			EventTimeout:             cfg.EventPublishTimeout,
		},
	)

	userService := users.NewService(userRepo)
	if metrics != nil {
		userService.WithRecorder(metrics)
	}

	deps := httpserver.Deps{
		Patients:           patientService,
		Users:              userService,
		Metrics:            metrics,
		Logger:             log,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}

	if cfg.AuthEnabled {
		authCfg := auth.LoadConfig()
		jwks, err := auth.NewJWKS(ctx, authCfg.JWKSURL, jwksRefreshInterval, log)
		if err != nil {
			log.Fatal("failed to load JWKS", zap.String("url", authCfg.JWKSURL), zap.Error(err))
		}
		defer jwks.Close()

		perms, err := auth.LoadPermissions(cfg.PermissionsFile)
		if err != nil {
			log.Fatal("failed to load permissions", zap.String("file", cfg.PermissionsFile), zap.Error(err))
		}

		deps.Verifier = auth.NewVerifier(authCfg, jwks)
		deps.Permissions = perms
	} else {
		log.Warn("authentication disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpserver.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("patient-service listening", zap.String("addr", server.Addr), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down, draining in-flight requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// pending patient created events must reach the broker before it is closed
	patientService.Wait()

	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}

	log.Info("server exited")
}

// openStores selects the patient store and user repository for the configured driver.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (patient.Store, users.RepositoryInterface, *sql.DB) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return patient.NewMemoryStore(), users.NewMemoryRepository(), nil
	}

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
	if err := db.Migrate(ctx, database); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}
	return patient.NewRepository(database), users.NewRepository(database), database
}
