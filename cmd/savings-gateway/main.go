// Package main runs the savings gateway: a stateless HTTP service that reads
// savings program accounts and builds unsigned transactions for wallets.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nestfund/savings_layer/internal/chain"
	"github.com/nestfund/savings_layer/internal/config"
	"github.com/nestfund/savings_layer/internal/httputil"
	"github.com/nestfund/savings_layer/internal/logging"
	"github.com/nestfund/savings_layer/internal/metrics"
	"github.com/nestfund/savings_layer/internal/middleware"
	"github.com/nestfund/savings_layer/internal/platform/migrations"
	savingscache "github.com/nestfund/savings_layer/services/savings/cache"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
	"github.com/nestfund/savings_layer/services/savings/httpapi"
	savingsrules "github.com/nestfund/savings_layer/services/savings/rules"
)

const rateLimitCleanupInterval = time.Minute

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".env")
	if err != nil {
		logging.Default().WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(httpapi.ServiceID, cfg.LogLevel, cfg.LogFormat)
	httputil.SetExposeCauses(!cfg.IsProduction())
	m := metrics.New("savings")

	logger.WithFields(map[string]interface{}{
		"environment":     cfg.Environment,
		"rpc_url":         cfg.SolanaRPCURL,
		"program_id":      cfg.ProgramID,
		"simplified_auth": cfg.SimplifiedAuth,
		"faucet_enabled":  cfg.FaucetEnabled,
	}).Info("Starting savings gateway")
	if cfg.SimplifiedAuth {
		logger.Warn("Simplified wallet authentication is enabled; signatures are not verified")
	}

	// Ledger access
	client, err := chain.NewClient(chain.Config{
		RPCURL:     cfg.SolanaRPCURL,
		Commitment: cfg.Commitment,
		Timeout:    cfg.RPCTimeout,
		Metrics:    m,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create ledger client")
	}
	addrs := savingschain.NewAddresses(cfg.ProgramKey())
	reader := savingschain.NewReader(client, addrs)
	builder := savingschain.NewBuilder(addrs, client, m)

	// Optional relational cache
	var store savingscache.Store
	if cfg.DatabaseURL != "" {
		if cfg.AutoMigrate {
			if err := migrations.Up(cfg.DatabaseURL); err != nil {
				logger.WithError(err).Fatal("Failed to apply migrations")
			}
		}
		db, err := savingscache.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to cache database")
		}
		defer db.Close()
		store = savingscache.NewPostgresStore(db)
		logger.Info("Relational cache enabled")
	} else {
		logger.Warn("DATABASE_URL not set; running without cache")
	}

	throttle := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	stopCleanup := throttle.StartCleanup(rateLimitCleanupInterval)
	defer stopCleanup()

	svc, err := httpapi.New(httpapi.Config{
		Reader:  reader,
		Builder: builder,
		Auth: middleware.NewWalletAuth(middleware.WalletAuthConfig{
			Simplified: cfg.SimplifiedAuth,
			Logger:     logger,
			Metrics:    m,
		}),
		Cache:      store,
		Faucet:     savingsrules.NewFaucetLimiter(reader, cfg.FaucetEnabled, nil),
		Throttle:   throttle,
		CORS:       middleware.NewCORSMiddleware(cfg.AllowedOrigins()),
		Ledger:     client,
		Currencies: cfg.Currencies,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create service")
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      svc,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("Savings gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
	logger.Info("Service stopped")
}
