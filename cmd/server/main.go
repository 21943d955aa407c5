package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/cache"
	"github.com/oggyb/cardlink/internal/config"
	"github.com/oggyb/cardlink/internal/db"
	"github.com/oggyb/cardlink/internal/jobs"
	"github.com/oggyb/cardlink/internal/logger"
	"github.com/oggyb/cardlink/internal/server"
	"github.com/oggyb/cardlink/internal/service/account"
	"github.com/oggyb/cardlink/internal/service/analytics"
	"github.com/oggyb/cardlink/internal/service/cards"
	"github.com/oggyb/cardlink/internal/service/marketplace"
	"github.com/oggyb/cardlink/internal/service/payments"
	"github.com/oggyb/cardlink/internal/service/profile"
	"github.com/oggyb/cardlink/internal/service/quota"
	"github.com/oggyb/cardlink/internal/service/social"
	"github.com/oggyb/cardlink/internal/storage"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg, log)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	appCtx := app.New(cfg, database, redisCache, log)

	// Proof uploads are optional; payments still work with external URLs.
	if proofs, err := storage.NewProofStore(context.Background(), cfg.Storage); err != nil {
		log.Warn("proof uploads disabled", "err", err)
	} else {
		appCtx.Proofs = proofs
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedDemoData(database, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	quotas := quota.NewService(appCtx)
	tracking := analytics.NewRegistrar(appCtx)
	registrars := []server.Registrar{
		account.NewRegistrar(appCtx),
		profile.NewRegistrar(appCtx),
		social.NewRegistrar(appCtx),
		cards.NewRegistrar(appCtx),
		payments.NewRegistrar(appCtx),
		quota.NewRegistrar(quotas),
		marketplace.NewRegistrar(appCtx, quotas),
		tracking,
	}

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	if err := scheduler.AddSubscriptionSweep(cfg.Jobs.SubscriptionSweep, payments.NewService(appCtx)); err != nil {
		log.Error("failed to schedule jobs", "err", err)
		os.Exit(1)
	}
	if err := scheduler.AddIdleSweep(cfg.Jobs.LimiterSweep, tracking.Limiter()); err != nil {
		log.Error("failed to schedule jobs", "err", err)
		os.Exit(1)
	}
	scheduler.Start()

	httpServer := server.NewHTTPServer(appCtx, server.NewRouter(appCtx, registrars...))
	grpcServer, health := server.NewGRPCServer()
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Addr())
		if err := server.StartGRPCServer(cfg, grpcServer); err != nil {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		log.Error("server failed", "err", err)
	}

	health.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	grpcServer.GracefulStop()
	scheduler.Stop(ctx)
	log.Info("bye")
}
