// Package httpapi exposes the savings gateway over HTTP: read endpoints for
// users, goals and currencies, and builders for unsigned transactions.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nestfund/savings_layer/internal/config"
	"github.com/nestfund/savings_layer/internal/logging"
	"github.com/nestfund/savings_layer/internal/metrics"
	"github.com/nestfund/savings_layer/internal/middleware"
	savingscache "github.com/nestfund/savings_layer/services/savings/cache"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
	savingsrules "github.com/nestfund/savings_layer/services/savings/rules"
)

// =============================================================================
// Service Constants
// =============================================================================

const (
	ServiceID   = "savings-gateway"
	ServiceName = "Savings Gateway"
	Version     = "1.0.0"

	healthCheckTimeout = 5 * time.Second
)

// HealthChecker reports ledger reachability. *chain.Client implements it.
type HealthChecker interface {
	GetHealth(ctx context.Context) error
}

// =============================================================================
// Service Definition
// =============================================================================

// Config holds the service's collaborators. Reader, Builder and Auth are
// required; everything else is optional.
type Config struct {
	Reader  savingschain.StateReader
	Builder *savingschain.Builder
	Auth    *middleware.WalletAuth

	// Cache mirrors chain reads for history. Nil runs chain-only.
	Cache    savingscache.Store
	Faucet   *savingsrules.FaucetLimiter
	Throttle *middleware.RateLimiter
	CORS     *middleware.CORSMiddleware
	Ledger   HealthChecker

	Currencies map[uint8]config.CurrencyMeta
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Service serves the gateway routes.
type Service struct {
	reader   savingschain.StateReader
	builder  *savingschain.Builder
	auth     *middleware.WalletAuth
	cache    savingscache.Store
	faucet   *savingsrules.FaucetLimiter
	throttle *middleware.RateLimiter
	cors     *middleware.CORSMiddleware
	ledger   HealthChecker

	currencies map[uint8]config.CurrencyMeta
	logger     *logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	router  *mux.Router
	handler http.Handler
}

// New creates the service and registers its routes.
func New(cfg Config) (*Service, error) {
	if cfg.Reader == nil {
		return nil, fmt.Errorf("httpapi: reader is required")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("httpapi: builder is required")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("httpapi: auth is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Currencies == nil {
		cfg.Currencies = config.DefaultCurrencies()
	}
	if cfg.Faucet == nil {
		cfg.Faucet = savingsrules.NewFaucetLimiter(cfg.Reader, false, cfg.Now)
	}
	if cfg.Cache != nil {
		cfg.Cache = savingscache.Instrument(cfg.Cache, cfg.Logger, cfg.Metrics)
	}

	s := &Service{
		reader:     cfg.Reader,
		builder:    cfg.Builder,
		auth:       cfg.Auth,
		cache:      cfg.Cache,
		faucet:     cfg.Faucet,
		throttle:   cfg.Throttle,
		cors:       cfg.CORS,
		ledger:     cfg.Ledger,
		currencies: cfg.Currencies,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		router:     mux.NewRouter(),
	}
	s.registerRoutes()

	// Tracing, logging and CORS wrap the router so unmatched requests and
	// preflights pass through them too.
	var h http.Handler = s.router
	if s.cors != nil {
		h = s.cors.Handler(h)
	}
	h = middleware.LoggingMiddleware(s.logger)(h)
	s.handler = middleware.NewTracingMiddleware(s.logger).Handler(h)
	return s, nil
}

// Router returns the route table without the outer middleware.
func (s *Service) Router() *mux.Router {
	return s.router
}

// ServeHTTP serves a request through the full middleware stack.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
