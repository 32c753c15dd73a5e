package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/khata-app/khata-backend/internal/api"
	"github.com/khata-app/khata-backend/internal/auth"
	"github.com/khata-app/khata-backend/internal/config"
	"github.com/khata-app/khata-backend/internal/db"
	"github.com/khata-app/khata-backend/internal/kv/postgres"
	"github.com/khata-app/khata-backend/internal/ledger"
	"github.com/khata-app/khata-backend/internal/logger"
	"github.com/khata-app/khata-backend/internal/metrics"
	repositories "github.com/khata-app/khata-backend/internal/repository/postgres"
	"github.com/khata-app/khata-backend/internal/services"
	"github.com/khata-app/khata-backend/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	repos := repositories.NewRepositories(pool)
	store := ledger.NewStore(postgres.NewTreeStore(pool))

	metrics.Init()
	wp := worker.NewPool(4)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	userSvc := services.NewUserService(repos.Users, tm)
	rec := services.NewReconciler(store, repos.AuditLogs, wp)

	r := api.NewRouter(cfg, tm, userSvc, rec, repos.AuditLogs)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
