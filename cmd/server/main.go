package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authlink/authlink/config"
	"github.com/authlink/authlink/internal/counter"
	"github.com/authlink/authlink/internal/email"
	"github.com/authlink/authlink/internal/health"
	"github.com/authlink/authlink/internal/infrastructure/postgres"
	"github.com/authlink/authlink/internal/janitor"
	ctxlog "github.com/authlink/authlink/internal/log"
	"github.com/authlink/authlink/internal/metrics"
	"github.com/authlink/authlink/internal/property"
	"github.com/authlink/authlink/internal/signature"
	httptransport "github.com/authlink/authlink/internal/transport/http"
	"github.com/authlink/authlink/internal/transport/http/handler"
	"github.com/authlink/authlink/internal/urlgen"
	"github.com/authlink/authlink/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		stop()
		log.Fatalf("db schema: %v", err)
	}

	// Signature engine and its usage counter. Local runs keep counters
	// in process; everything else shares them through Postgres.
	var counterStore counter.Store
	var purger janitor.Purger
	if cfg.Env == "local" {
		mem := counter.NewMemStore(cfg.UsageRetention())
		counterStore, purger = mem, mem
	} else {
		pg := postgres.NewCounterStore(pool, cfg.UsageRetention())
		counterStore, purger = pg, pg
	}
	signer := signature.New([]byte(cfg.LinkSecret), cfg.LinkMaxUses, counterStore)

	resolver, err := property.NewResolver(cfg.SignatureProperties)
	if err != nil {
		stop()
		log.Fatalf("signature properties: %v", err)
	}

	urls, err := urlgen.NewRouteGenerator(cfg.BaseURL, map[string]string{
		cfg.LinkRoute: "/auth/login-link/check",
	})
	if err != nil {
		stop()
		log.Fatalf("url generator: %v", err)
	}

	userRepo := postgres.NewUserRepository(pool)
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)

	loginLinks := usecase.NewLoginLinkUsecase(
		userRepo, signer, urls, resolver, sender,
		cfg.LinkLifetime(), cfg.LinkRoute, []byte(cfg.JWTSecret),
	)
	loginLinkHandler := handler.NewLoginLinkHandler(loginLinks, userRepo, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	jan, err := janitor.New(purger, logger, cfg.PurgeSchedule)
	if err != nil {
		stop()
		log.Fatalf("janitor: %v", err)
	}
	go jan.Start(ctx)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, loginLinkHandler, []byte(cfg.JWTSecret)),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker.LivenessHandler, checker.ReadinessHandler)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
