package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nestfund/savings_layer/internal/errors"
	"github.com/nestfund/savings_layer/internal/httputil"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
	savingsrules "github.com/nestfund/savings_layer/services/savings/rules"
)

// =============================================================================
// User Handlers
// =============================================================================

func (s *Service) handleInitializeUser(w http.ResponseWriter, r *http.Request) {
	wallet, err := callerWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req walletRequest
	if r.ContentLength != 0 && !httputil.DecodeJSON(w, r, &req) {
		return
	}

	existing, err := s.reader.UserAccount(r.Context(), wallet)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if existing != nil {
		s.reject(w, r, savingschain.IxInitializeUser, errors.Conflict("user account already initialized").
			WithDetails("userAddress", existing.Address.String()))
		return
	}

	tx, err := s.builder.InitializeUser(r.Context(), wallet)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"transaction": transactionView(tx),
		"userAddress": tx.Accounts["userAccount"],
	})
}

func (s *Service) handleGetUser(w http.ResponseWriter, r *http.Request) {
	wallet, err := pathWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()

	user, err := s.reader.UserAccount(ctx, wallet)
	if err != nil {
		if s.servesStale(err) {
			rec, cerr := s.cache.GetUser(ctx, wallet.String())
			if cerr == nil && rec != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("Ledger unavailable, serving cached user")
				httputil.WriteSuccess(w, cachedUserView(rec))
				return
			}
		}
		s.fail(w, r, err)
		return
	}
	if user == nil {
		s.fail(w, r, errors.NotFound("user account", wallet.String()))
		return
	}
	s.rememberUser(ctx, user)

	httputil.WriteSuccess(w, userView(user))
}

func (s *Service) handleUserStats(w http.ResponseWriter, r *http.Request) {
	wallet, err := pathWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()

	user, err := s.reader.UserAccount(ctx, wallet)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if user == nil {
		s.fail(w, r, errors.NotFound("user account", wallet.String()))
		return
	}
	goals, err := s.reader.Goals(ctx, wallet, user.TotalGoalsCreated)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.rememberUser(ctx, user)
	s.rememberGoals(ctx, goals...)

	now := s.now()
	currencies := s.currencyIndex(ctx)
	grouped := map[string][]GoalView{
		savingschain.GoalStatusActive.String():    {},
		savingschain.GoalStatusCompleted.String(): {},
		savingschain.GoalStatusWithdrawn.String(): {},
	}
	for _, g := range goals {
		key := g.Status.String()
		grouped[key] = append(grouped[key], s.goalView(g, currencies[g.CurrencyID], now))
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"user":  userView(user),
		"stats": statsView(savingsrules.SummarizeGoals(goals)),
		"goals": grouped,
	})
}

func (s *Service) handleUserBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := pathWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	lamports, err := s.reader.Balance(r.Context(), wallet)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	raw := decimal.NewFromUint64(lamports)
	httputil.WriteSuccess(w, map[string]interface{}{
		"walletAddress": wallet.String(),
		"lamports":      raw,
		"balance":       raw.Div(lamportsPerSOL),
	})
}
