// nejat-devserver serves the Nejat API from memory for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/prohmpiriya/nejat-client/internal/devserver"
	"github.com/prohmpiriya/nejat-client/internal/metrics"
	"github.com/prohmpiriya/nejat-client/pkg/config"
	"github.com/prohmpiriya/nejat-client/pkg/logger"
	pkgredis "github.com/prohmpiriya/nejat-client/pkg/redis"
	"github.com/prohmpiriya/nejat-client/pkg/telemetry"
)

func main() {
	var envFile string
	flagSet := pflag.NewFlagSet("nejat-devserver", pflag.ExitOnError)
	flagSet.StringVar(&envFile, "env-file", "", "load configuration from this env file")
	_ = flagSet.Parse(os.Args[1:])

	// Load configuration
	var cfg *config.Config
	var err error
	if envFile != "" {
		cfg, err = config.LoadWithPath(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	level := "info"
	if cfg.App.Debug {
		level = "debug"
	}
	if err := logger.Init(&logger.Config{
		Level:       level,
		ServiceName: "nejat-devserver",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Nejat dev server...")

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "nejat-devserver",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Tracing disabled", zap.Error(err))
	}

	// Metrics
	var recorder *metrics.Recorder
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.New(reg)
		gatherer = reg
	}

	// Repository, optionally cached in Redis
	var repo devserver.EventRepository = devserver.NewMemoryRepository(devserver.DefaultSeed(time.Now()))

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: 500 * time.Millisecond,
		})
		if err != nil {
			appLog.Warn("Redis unavailable, serving without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			repo = devserver.NewCachedEventRepository(repo, redisClient, cfg.Redis.CacheTTL, appLog, recorder)
			appLog.Info(fmt.Sprintf("Redis cache enabled at %s (ttl %s)", cfg.Redis.Addr(), cfg.Redis.CacheTTL))
		}
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := devserver.NewRouter(&devserver.RouterConfig{
		Repo:        repo,
		Logger:      appLog,
		Redis:       redisClient,
		Metrics:     recorder,
		Gatherer:    gatherer,
		MetricsPath: cfg.Metrics.Path,
		Tracing:     cfg.OTel.Enabled,
		ServiceName: "nejat-devserver",
	})

	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Nejat dev server listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
