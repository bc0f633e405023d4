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

	"github.com/edumarket/storefront/config"
	"github.com/edumarket/storefront/internal/apiclient"
	"github.com/edumarket/storefront/internal/backend"
	"github.com/edumarket/storefront/internal/health"
	"github.com/edumarket/storefront/internal/infrastructure/memory"
	"github.com/edumarket/storefront/internal/infrastructure/redis"
	ctxlog "github.com/edumarket/storefront/internal/log"
	"github.com/edumarket/storefront/internal/metrics"
	"github.com/edumarket/storefront/internal/repository"
	"github.com/edumarket/storefront/internal/session"
	httptransport "github.com/edumarket/storefront/internal/transport/http"
	"github.com/edumarket/storefront/internal/transport/http/handler"
	"github.com/edumarket/storefront/internal/transport/http/middleware"
	"github.com/edumarket/storefront/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
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

	// Marketplace API
	cookies := session.NewCookieStore(session.CookieConfig{
		Name:        cfg.CookieName,
		RefreshName: cfg.RefreshCookieName,
		Secure:      cfg.CookieSecure,
		Domain:      cfg.CookieDomain,
	})
	api := apiclient.New(cfg.APIURL, cookies, session.JarNavigator{},
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout()}),
		apiclient.WithLogger(logger),
		apiclient.WithLoginPath(cfg.LoginPath),
	)
	marketplace := backend.New(api)
	deps := map[string]health.Pinger{"api": marketplace}

	// Flow storage
	var flows repository.FlowStore
	switch cfg.FlowStore {
	case "redis":
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("redis: %v", err)
		}
		defer func() { _ = client.Close() }()
		store := redis.NewFlowStore(client, cfg.FlowTTL(), redis.WithLockTTL(cfg.StepLockTTL()))
		flows = store
		deps["redis"] = store
	default:
		store := memory.NewFlowStore(cfg.FlowTTL())
		janitor, err := memory.NewJanitor(store, memory.DefaultSweepSpec, logger)
		if err != nil {
			stop()
			log.Fatalf("janitor: %v", err)
		}
		go janitor.Start(ctx)
		flows = store
	}

	identity := usecase.NewIdentityUsecase(marketplace, logger)
	sessionHandler := handler.NewSessionHandler(identity, logger)
	flowHandler := handler.NewFlowHandler(identity, flows, logger)

	limiter := middleware.NewRateLimiter(cfg.OTPSendsPerMinute)
	housekeeping := cron.New()
	if _, err := housekeeping.AddFunc("@every 5m", func() { limiter.Prune() }); err != nil {
		stop()
		log.Fatalf("housekeeping: %v", err)
	}
	housekeeping.Start()

	metrics.Register()
	checker := health.NewChecker(deps, logger, prometheus.DefaultRegisterer)

	router := httptransport.NewRouter(logger, httptransport.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		CookieName:     cfg.CookieName,
		LoginPath:      cfg.LoginPath,
		HSTS:           cfg.CookieSecure,
	}, limiter, sessionHandler, flowHandler)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("gateway started", "port", cfg.Port, "api", cfg.APIURL, "flow_store", cfg.FlowStore)
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

	<-housekeeping.Stop().Done()

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
