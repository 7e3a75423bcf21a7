package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/cli"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("bilancio")

	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	views := cache.NewLRUCache[services.View](cfg.CacheSize, cfg.CacheTTL)
	sessionCache := cache.NewLRUCache[*services.Session](1000, cfg.SessionTTL)
	caches := cache.NewManager(logger)
	caches.Register(views)
	caches.Register(sessionCache)
	caches.StartCleanup(time.Minute)

	svc := services.NewTransactionService(result.Store, services.Options{
		PageSize:    cfg.PageSize,
		LabelLayout: cfg.DateLabelLayout,
		Cache:       views,
		Logger:      logger,
	})
	sessions := services.NewSessions(svc, sessionCache)

	srv := apphttp.NewServer(":"+cfg.Port, svc, sessions, apphttp.Options{
		Ready:              result.Ready,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		BlockSuspicious:    cfg.BlockSuspicious,
		SecureCookies:      cfg.SecureCookies,
		Logger:             logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		caches.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err.Error())
		}
	})

	logger.Info("Starting bilancio server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", result.Events,
		"page_size", svc.PageSize())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
