package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tokencart/settlement/internal/api/middleware"
	"github.com/tokencart/settlement/internal/api/server"
	"github.com/tokencart/settlement/internal/config"
	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger/settlement"
	"github.com/tokencart/settlement/internal/ledger/token"
	"github.com/tokencart/settlement/internal/logger"
	"github.com/tokencart/settlement/internal/messaging"
	"github.com/tokencart/settlement/internal/providers/jetstream"
	"github.com/tokencart/settlement/internal/store"
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
			"service": "settlement-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting settlement API")

	orchestratorIdentity, err := domain.NewIdentity(cfg.Ledger.OrchestratorAddress)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid orchestrator address", zap.Error(err))
	}
	adminIdentity, err := domain.NewIdentity(cfg.Ledger.AdminAddress)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid admin address", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and ledger core
	dataStore := store.NewPGStore(db)
	tokenLedger := token.NewLedger(dataStore, token.Config{
		FeeRateBPS: cfg.Ledger.TokenFeeRateBPS,
	})
	orchestrator := settlement.New(dataStore, tokenLedger, settlement.Config{
		Identity:             orchestratorIdentity,
		Admin:                adminIdentity,
		SettlementFeeRateBPS: cfg.Ledger.SettlementFeeRateBPS,
	})

	// Connect the event publisher; without a broker the API still runs and
	// events remain in the ledger_events audit table
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
	} else {
		publisher = messaging.NoopPublisher{}
		logger.Warn("NATS URL not configured, events will not be published")
	}

	dispatcher := messaging.NewDispatcher(ctx, publisher, messaging.DispatcherConfig{
		PoolSize:  cfg.Worker.PoolSize,
		QueueSize: cfg.Worker.QueueSize,
	})

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey:     cfg.Auth.JWTPublicKey,
			APIKeyIdentities: cfg.Auth.APIKeyIdentities,
		},
	}

	// Create and start server
	srv := server.New(serverConfig, tokenLedger, orchestrator, dispatcher)

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
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Drain in-flight event publications before exiting
	dispatcher.Stop()

	logger.Info("API server stopped")
}
