package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	grpcHandler "github.com/wekeepgrowing/shop-settlement/internal/adapter/handler/grpc"
	"github.com/wekeepgrowing/shop-settlement/internal/app"
	"github.com/wekeepgrowing/shop-settlement/internal/config"
	"github.com/wekeepgrowing/shop-settlement/internal/infrastructure/database"
	grpcServer "github.com/wekeepgrowing/shop-settlement/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/shop-settlement/internal/infrastructure/http"
	"github.com/wekeepgrowing/shop-settlement/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := telemetry.ShutdownFunc(telemetry.Noop)
	if cfg.Telemetry.Enabled {
		shutdownTracer, err = telemetry.SetupTracer(ctx, telemetry.Options{
			ServiceName: cfg.Service.Name,
			Version:     cfg.Service.Version,
			Environment: cfg.Service.Environment,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := database.Migrate(a.DB, logger); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	grpcSrv := grpcServer.NewServer(
		grpcServer.WithAddr(cfg.Server.GRPC.Addr()),
		grpcServer.WithLogger(logger),
	)
	health := grpcHandler.NewHealthHandler(cfg.Service.Name, a.Ping, grpcSrv.Health(), 10*time.Second, logger)
	go health.Run(ctx)

	httpSrv := httpServer.NewServer(cfg, logger, httpServer.Dependencies{
		Initiator: a.Initiator,
		Verifier:  a.Verifier,
		Carts:     a.Carts,
		Ping:      a.Ping,
	})

	if a.OutboxRelay != nil && cfg.Outbox.Enabled {
		go a.OutboxRelay.Run(ctx)
	}

	go func() {
		if err := grpcSrv.Start(); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
			stop()
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	logger.Info("Settlement service started",
		zap.String("http", cfg.Server.HTTP.Addr()),
		zap.String("grpc", cfg.Server.GRPC.Addr()),
		zap.Strings("providers", a.Providers.Names()))

	<-ctx.Done()
	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}
	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown tracer", zap.Error(err))
	}

	logger.Info("Servers shut down successfully")
}
