package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tokencart/settlement/internal/config"
	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/logger"
	"github.com/tokencart/settlement/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

// main migrates the schema and performs the one-time capability handoff: the
// orchestrator becomes the sole writer of every registry, and the payment
// processor and fee collector identities are pinned for the token. Re-running
// against an already-wired database is a no-op.
func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadBootstrapConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx := context.Background()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "settlement-bootstrap",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	orchestrator, err := domain.NewIdentity(cfg.Ledger.OrchestratorAddress)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid orchestrator address", zap.Error(err))
	}
	paymentContract, err := domain.NewIdentity(cfg.Ledger.PaymentContractAddress)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid payment contract address", zap.Error(err))
	}
	feeCollector, err := domain.NewIdentity(cfg.Ledger.FeeCollectorAddress)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid fee collector address", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Running schema migration")
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate schema", zap.Error(err))
	}

	dataStore := store.NewPGStore(db)

	wirings := map[string]domain.Identity{
		domain.WiringWriterKey(domain.RegistryCompany):  orchestrator,
		domain.WiringWriterKey(domain.RegistryProduct):  orchestrator,
		domain.WiringWriterKey(domain.RegistryCustomer): orchestrator,
		domain.WiringWriterKey(domain.RegistryInvoice):  orchestrator,
		domain.WiringTokenPaymentContract:               paymentContract,
		domain.WiringTokenFeeCollector:                  feeCollector,
	}

	for name, identity := range wirings {
		err := dataStore.SetWiring(ctx, name, identity)
		switch {
		case errors.Is(err, domain.ErrAlreadyWired):
			logger.InfoCtx(ctx, "Wiring already set, skipping",
				zap.String("name", name))
		case err != nil:
			logger.FatalCtx(ctx, "Failed to set wiring",
				zap.Error(err), zap.String("name", name))
		default:
			logger.InfoCtx(ctx, "Wiring set",
				zap.String("name", name),
				zap.String("identity", identity.String()))
		}
	}

	logger.Info("Bootstrap complete")
}
