package httpapi

import (
	"context"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"

	"github.com/nestfund/savings_layer/internal/errors"
	"github.com/nestfund/savings_layer/internal/httputil"
	"github.com/nestfund/savings_layer/internal/middleware"
	savingscache "github.com/nestfund/savings_layer/services/savings/cache"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
)

// callerWallet returns the authenticated wallet. It is the only source of
// "whose transaction is this"; body fields naming a wallet are checked
// against it by the auth middleware and otherwise ignored.
func callerWallet(r *http.Request) (solana.PublicKey, error) {
	wallet, ok := middleware.WalletFromContext(r.Context())
	if !ok {
		return solana.PublicKey{}, errors.Unauthorized("")
	}
	return wallet, nil
}

// pathWallet parses the {address} route variable.
func pathWallet(r *http.Request) (solana.PublicKey, error) {
	raw := mux.Vars(r)["address"]
	wallet, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, errors.Validation("address %q is not a valid wallet address", raw)
	}
	return wallet, nil
}

// fail writes err and logs it; server-side failures at error level.
func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.Wrap(err, "internal server error")
	entry := s.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": se.HTTPStatus,
		"kind":   string(se.Code),
	})
	switch {
	case se.HTTPStatus >= http.StatusInternalServerError:
		entry.WithError(err).Error("Request failed")
	default:
		entry.WithField("reason", se.Message).Debug("Request rejected")
	}
	httputil.WriteServiceError(w, se)
}

// reject records a transaction request refused before building.
func (s *Service) reject(w http.ResponseWriter, r *http.Request, kind string, err error) {
	s.metrics.RecordTransactionBuilt(kind, err)
	s.fail(w, r, err)
}

// =============================================================================
// Cache write-through
// =============================================================================

// rememberUser mirrors a freshly read user into the cache. Failures are
// logged by the instrumented store and never reach the caller.
func (s *Service) rememberUser(ctx context.Context, u *savingschain.UserAccount) {
	if s.cache == nil || u == nil {
		return
	}
	_ = s.cache.UpsertUser(ctx, savingscache.UserRecordFrom(u))
}

func (s *Service) rememberGoals(ctx context.Context, goals ...*savingschain.GoalAccount) {
	if s.cache == nil {
		return
	}
	for _, g := range goals {
		if g == nil {
			continue
		}
		if err := s.cache.UpsertGoal(ctx, savingscache.GoalRecordFrom(g)); err != nil {
			return
		}
	}
}

// servesStale reports whether a failed ledger read may be answered from the
// cache.
func (s *Service) servesStale(err error) bool {
	return s.cache != nil && errors.IsCode(err, errors.CodeUpstream)
}

// currencyIndex reads every currency config into a map keyed by id. A
// failed read yields an empty map; APY figures then show as zero.
func (s *Service) currencyIndex(ctx context.Context) map[uint8]*savingschain.CurrencyConfig {
	out := make(map[uint8]*savingschain.CurrencyConfig)
	currencies, err := s.reader.Currencies(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Currency configs unavailable")
		return out
	}
	for _, c := range currencies {
		out[c.CurrencyID] = c
	}
	return out
}
