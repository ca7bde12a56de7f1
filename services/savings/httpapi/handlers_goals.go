package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nestfund/savings_layer/internal/errors"
	"github.com/nestfund/savings_layer/internal/httputil"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
	savingsrules "github.com/nestfund/savings_layer/services/savings/rules"
)

// =============================================================================
// Goal Handlers
// =============================================================================

func (s *Service) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	wallet, err := callerWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req createGoalRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	target, err := savingsrules.ParseAmount("targetAmount", string(req.TargetAmount))
	if err != nil {
		s.reject(w, r, savingschain.IxCreateGoal, err)
		return
	}
	if req.CurrencyID == nil {
		s.reject(w, r, savingschain.IxCreateGoal, errors.Validation("currencyId is required"))
		return
	}
	if req.Deadline == nil {
		s.reject(w, r, savingschain.IxCreateGoal, errors.Validation("deadline is required"))
		return
	}
	draft := savingsrules.GoalDraft{
		Name:         req.Name,
		TargetAmount: target,
		Mode:         req.Mode,
		CurrencyID:   *req.CurrencyID,
		Deadline:     *req.Deadline,
	}
	if req.RiskTier != nil {
		draft.RiskTier = *req.RiskTier
	}

	ctx := r.Context()
	user, err := s.reader.UserAccount(ctx, wallet)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	args, err := savingsrules.ValidateCreateGoal(user, draft, s.now())
	if err != nil {
		s.reject(w, r, savingschain.IxCreateGoal, err)
		return
	}

	currency, err := s.reader.CurrencyConfig(ctx, args.CurrencyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if currency == nil {
		s.reject(w, r, savingschain.IxCreateGoal, errors.NotFound("currency", strconv.Itoa(int(args.CurrencyID))))
		return
	}

	tx, err := s.builder.CreateGoal(ctx, wallet, args)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.rememberUser(ctx, user)

	apy := currency.APYBps(args.Mode, args.RiskTier)
	httputil.WriteSuccess(w, map[string]interface{}{
		"transaction": transactionView(tx),
		"goalAddress": tx.Accounts["goalAccount"],
		"goalIndex":   args.GoalIndex,
		"apyBps":      apy,
		"apyPercent":  savingsrules.APYPercent(apy),
	})
}

func (s *Service) handleListGoals(w http.ResponseWriter, r *http.Request) {
	wallet, err := pathWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var filter *savingschain.GoalStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := savingschain.ParseGoalStatus(raw)
		if err != nil {
			s.fail(w, r, errors.Validation("%s", err.Error()))
			return
		}
		filter = &st
	}

	ctx := r.Context()
	user, err := s.reader.UserAccount(ctx, wallet)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views := []GoalView{}
	if user == nil {
		httputil.WriteSuccess(w, map[string]interface{}{"goals": views, "count": 0})
		return
	}

	goals, err := s.reader.Goals(ctx, wallet, user.TotalGoalsCreated)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.rememberGoals(ctx, goals...)

	now := s.now()
	currencies := s.currencyIndex(ctx)
	for _, g := range goals {
		if filter != nil && g.Status != *filter {
			continue
		}
		views = append(views, s.goalView(g, currencies[g.CurrencyID], now))
	}
	httputil.WriteSuccess(w, map[string]interface{}{"goals": views, "count": len(views)})
}

func (s *Service) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	wallet, err := pathWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw := mux.Vars(r)["goalIndex"]
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.fail(w, r, errors.Validation("goalIndex must be between 0 and 255"))
		return
	}
	idx, err := savingsrules.ValidateGoalIndex(n)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	goal, err := s.reader.GoalAccount(ctx, wallet, idx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if goal == nil {
		s.fail(w, r, errors.NotFound("goal", raw).WithDetails("walletAddress", wallet.String()))
		return
	}
	s.rememberGoals(ctx, goal)

	currency, err := s.reader.CurrencyConfig(ctx, goal.CurrencyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, s.goalView(goal, currency, s.now()))
}

func (s *Service) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := s.reader.Currencies(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	views := make([]CurrencyView, 0, len(currencies))
	for _, c := range currencies {
		views = append(views, s.currencyView(c))
	}
	httputil.WriteSuccess(w, map[string]interface{}{"currencies": views})
}
