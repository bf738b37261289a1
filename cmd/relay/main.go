package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-name-registry/internal/adapter"
	"github.com/feral-file/ff-name-registry/internal/config"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/metrics"
	"github.com/feral-file/ff-name-registry/internal/providers/jetstream"
	"github.com/feral-file/ff-name-registry/internal/relay"
	"github.com/feral-file/ff-name-registry/internal/store"
	"github.com/feral-file/ff-name-registry/internal/vanity"
	"github.com/feral-file/ff-name-registry/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadRelayConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "outbox-relay",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Outbox Relay")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.Fatal("Failed to configure connection pool", zap.Error(err))
	}
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	jsonAdapter := adapter.NewJSON()
	clock := adapter.NewClock()
	httpClient := adapter.NewHTTPClient(cfg.Vanity.HTTPTimeout, adapter.RetryPolicy{})

	// Connect to NATS JetStream
	publisher, err := jetstream.NewPublisher(ctx, jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		SubjectPrefix:  cfg.NATS.SubjectPrefix,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream(), jsonAdapter)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer publisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS JetStream", zap.String("stream", cfg.NATS.StreamName))

	// Vanity collaborator
	signer := webhook.NewSigner(cfg.Vanity.WebhookSecret, jsonAdapter, clock)
	notifier := vanity.NewWebhookNotifier(cfg.Vanity.WebhookURL, signer, httpClient)
	if cfg.Vanity.WebhookURL == "" {
		logger.WarnCtx(ctx, "Vanity webhook URL not configured, holder changes are only published to NATS")
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	var metricsServer *http.Server
	if cfg.Relay.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Relay.MetricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(err, zap.String("component", "metrics_server"))
			}
		}()
	}

	// Initialize outbox relay
	outbox := relay.NewOutboxRelay(&relay.Config{
		BatchSize:      cfg.Relay.BatchSize,
		WorkerPoolSize: cfg.Relay.PoolSize,
		PollInterval:   cfg.Relay.PollInterval,
		MaxAttempts:    cfg.Relay.MaxAttempts,
	}, dataStore, publisher, notifier, jsonAdapter, clock, m)

	logger.InfoCtx(ctx, "Initialized outbox relay",
		zap.Int("batch_size", cfg.Relay.BatchSize),
		zap.Int("pool_size", cfg.Relay.PoolSize),
		zap.Duration("poll_interval", cfg.Relay.PollInterval),
	)

	// Start the relay in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := outbox.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	// Cancel context to stop the relay
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := outbox.Stop(shutdownCtx); err != nil {
		logger.Error(err, zap.String("component", "relay"))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, zap.String("component", "metrics_server"))
		}
	}

	logger.Info("Outbox relay stopped")
}
