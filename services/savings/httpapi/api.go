package httpapi

import (
	"net/http"

	"github.com/nestfund/savings_layer/internal/errors"
	"github.com/nestfund/savings_layer/internal/httputil"
	"github.com/nestfund/savings_layer/internal/middleware"
)

// =============================================================================
// API Routes
// =============================================================================

// registerRoutes wires routes. /health and /metrics are public; every other
// route runs behind wallet authentication and the per-client throttle.
func (s *Service) registerRoutes() {
	router := s.router

	router.Use(middleware.MetricsMiddleware(ServiceID, s.metrics))

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(s.auth.Handler)
	if s.throttle != nil {
		api.Use(s.throttle.Handler)
	}

	// Users
	api.HandleFunc("/users/initialize", s.handleInitializeUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{address}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{address}/stats", s.handleUserStats).Methods(http.MethodGet)
	api.HandleFunc("/users/{address}/balance", s.handleUserBalance).Methods(http.MethodGet)

	// Goals; fixed segments before the {address}/{goalIndex} pattern.
	api.HandleFunc("/goals/create", s.handleCreateGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/currencies/all", s.handleListCurrencies).Methods(http.MethodGet)
	api.HandleFunc("/goals/user/{address}", s.handleListGoals).Methods(http.MethodGet)
	api.HandleFunc("/goals/{address}/{goalIndex:[0-9]+}", s.handleGetGoal).Methods(http.MethodGet)

	// Transactions
	api.HandleFunc("/transactions/deposit", s.handleDeposit).Methods(http.MethodPost)
	api.HandleFunc("/transactions/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	api.HandleFunc("/transactions/faucet/claim", s.handleFaucetClaim).Methods(http.MethodPost)
	api.HandleFunc("/transactions/user/{address}/history", s.handleHistory).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteServiceError(w, errors.NotFound("route", r.URL.Path))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusMethodNotAllowed, string(errors.CodeValidation),
			"method not allowed", map[string]interface{}{"method": r.Method})
	})
}
