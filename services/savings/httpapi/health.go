package httpapi

import (
	"context"
	"net/http"

	"github.com/nestfund/savings_layer/internal/httputil"
)

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	Version        string `json:"version"`
	Ledger         bool   `json:"ledger"`
	Cache          bool   `json:"cache"`
	CacheEnabled   bool   `json:"cacheEnabled"`
	SimplifiedAuth bool   `json:"simplifiedAuth"`
	FaucetEnabled  bool   `json:"faucetEnabled"`
	Timestamp      int64  `json:"timestamp"`
}

// handleHealth reports ledger and cache reachability. Only an unreachable
// ledger makes the gateway unhealthy; the cache is optional.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status:         "healthy",
		Service:        ServiceID,
		Version:        Version,
		Ledger:         true,
		CacheEnabled:   s.cache != nil,
		SimplifiedAuth: s.auth.Simplified(),
		FaucetEnabled:  s.faucet.Enabled(),
		Timestamp:      s.now().Unix(),
	}

	if s.ledger != nil {
		if err := s.ledger.GetHealth(ctx); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Ledger health check failed")
			status.Ledger = false
		}
	}
	if s.cache != nil {
		status.Cache = s.cache.Ping(ctx) == nil
	}

	code := http.StatusOK
	if !status.Ledger {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else if status.CacheEnabled && !status.Cache {
		status.Status = "degraded"
	}
	httputil.WriteJSON(w, code, status)
}
