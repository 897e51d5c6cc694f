package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/WailSalutem-Health-Care/patient-service/internal/billing"
	"github.com/WailSalutem-Health-Care/patient-service/internal/config"
	"github.com/WailSalutem-Health-Care/patient-service/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// billing runs the in-memory billing provisioning service used by local
// and staging deployments of patient-service.
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

	lis, err := net.Listen("tcp", ":"+cfg.BillingGRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.String("port", cfg.BillingGRPCPort), zap.Error(err))
	}

	gs := grpc.NewServer()
	billing.RegisterBillingServiceServer(gs, billing.NewServer(log))

	go func() {
		log.Info("billing service listening", zap.String("addr", lis.Addr().String()))
		if err := gs.Serve(lis); err != nil {
			log.Fatal("billing server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down billing service")
	gs.GracefulStop()
}
