package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-name-registry/internal/adapter"
	"github.com/feral-file/ff-name-registry/internal/api/middleware"
	"github.com/feral-file/ff-name-registry/internal/api/server"
	"github.com/feral-file/ff-name-registry/internal/config"
	"github.com/feral-file/ff-name-registry/internal/lease"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/metrics"
	"github.com/feral-file/ff-name-registry/internal/ratelimit"
	"github.com/feral-file/ff-name-registry/internal/registry"
	"github.com/feral-file/ff-name-registry/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Feral File Name Registry API")

	// Registry settings
	econ, err := cfg.Registry.ToEconomics()
	if err != nil {
		logger.Fatal("Invalid registry economics", zap.Error(err))
	}
	owner, treasury, escrow, err := cfg.Registry.Addresses()
	if err != nil {
		logger.Fatal("Invalid registry addresses", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	fs := adapter.NewFileSystem()
	jsonAdapter := adapter.NewJSON()
	clock := adapter.NewClock()

	// Load reserved names
	var reserved registry.ReservedRegistry
	if cfg.Registry.ReservedNamesPath != "" {
		reserved, err = registry.NewReservedLoader(fs, jsonAdapter).Load(cfg.Registry.ReservedNamesPath)
		if err != nil {
			logger.Fatal("Failed to load reserved names",
				zap.Error(err),
				zap.String("path", cfg.Registry.ReservedNamesPath))
		}
		logger.InfoCtx(ctx, "Loaded reserved names", zap.String("path", cfg.Registry.ReservedNamesPath))
	} else {
		logger.WarnCtx(ctx, "Reserved names path not configured, every name can be acquired")
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	// Registry engine, hydrated from the store
	svc, err := lease.New(lease.Config{
		Economics:      econ,
		Owner:          owner,
		Treasury:       treasury,
		Escrow:         escrow,
		SeedingEnabled: cfg.Registry.Seeding.Enabled,
		LockWait:       cfg.Registry.LockWait,
	}, dataStore, clock, reserved, m)
	if err != nil {
		logger.Fatal("Failed to create registry", zap.Error(err))
	}
	if err := svc.Load(ctx); err != nil {
		logger.Fatal("Failed to load registry state", zap.Error(err))
	}

	// Rate limiter
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		redisClient, err := adapter.NewRedisClient(cfg.RateLimit.RedisURL)
		if err != nil {
			logger.Fatal("Failed to create redis client", zap.Error(err))
		}
		limiter, err = ratelimit.NewLimiter(cfg.RateLimit, redisClient, clock)
		if err != nil {
			logger.Fatal("Failed to create rate limiter", zap.Error(err))
		}
		defer func() {
			if err := limiter.Close(); err != nil {
				logger.Error(err, zap.String("component", "rate_limiter"))
			}
		}()
		logger.InfoCtx(ctx, "Rate limiting enabled",
			zap.Int("requests_per_minute", cfg.RateLimit.RequestsPerMinute),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	} else {
		logger.WarnCtx(ctx, "Rate limiting disabled")
	}

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	srv := server.New(serverConfig, svc, limiter, m, promRegistry)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}
	cancel()

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, zap.String("message", "Server forced to shutdown"))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
