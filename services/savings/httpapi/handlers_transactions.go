package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/nestfund/savings_layer/internal/errors"
	"github.com/nestfund/savings_layer/internal/httputil"
	savingscache "github.com/nestfund/savings_layer/services/savings/cache"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
	savingsrules "github.com/nestfund/savings_layer/services/savings/rules"
)

// =============================================================================
// Transaction Handlers
// =============================================================================

func (s *Service) handleDeposit(w http.ResponseWriter, r *http.Request) {
	wallet, err := callerWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req depositRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if req.GoalIndex == nil {
		s.reject(w, r, savingschain.IxDeposit, errors.Validation("goalIndex is required"))
		return
	}
	idx, err := savingsrules.ValidateGoalIndex(*req.GoalIndex)
	if err != nil {
		s.reject(w, r, savingschain.IxDeposit, err)
		return
	}
	if req.CurrencyID == nil {
		s.reject(w, r, savingschain.IxDeposit, errors.Validation("currencyId is required"))
		return
	}
	currencyID, err := savingsrules.ValidateCurrencyID(*req.CurrencyID)
	if err != nil {
		s.reject(w, r, savingschain.IxDeposit, err)
		return
	}
	amount, err := savingsrules.ParseAmount("amount", string(req.Amount))
	if err != nil {
		s.reject(w, r, savingschain.IxDeposit, err)
		return
	}

	ctx := r.Context()
	goal, err := s.reader.GoalAccount(ctx, wallet, idx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	newTotal, err := savingsrules.ValidateDeposit(goal, currencyID, amount)
	if err != nil {
		s.reject(w, r, savingschain.IxDeposit, err)
		return
	}

	currency, err := s.reader.CurrencyConfig(ctx, currencyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if currency == nil {
		s.reject(w, r, savingschain.IxDeposit, errors.NotFound("currency", strconv.Itoa(int(currencyID))))
		return
	}

	tx, err := s.builder.Deposit(ctx, wallet, idx, amount, currency)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.rememberGoals(ctx, goal)

	httputil.WriteSuccess(w, map[string]interface{}{
		"transaction": transactionView(tx),
		"goalAddress": goal.Address.String(),
		"amount":      decimal.NewFromUint64(amount),
		"newTotal":    decimal.NewFromUint64(newTotal),
	})
}

func (s *Service) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	wallet, err := callerWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req withdrawRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if req.GoalIndex == nil {
		s.reject(w, r, savingschain.IxWithdrawCompleted, errors.Validation("goalIndex is required"))
		return
	}
	idx, err := savingsrules.ValidateGoalIndex(*req.GoalIndex)
	if err != nil {
		s.reject(w, r, savingschain.IxWithdrawCompleted, err)
		return
	}

	ctx := r.Context()
	goal, err := s.reader.GoalAccount(ctx, wallet, idx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plan, err := savingsrules.PlanWithdrawal(goal, s.now())
	if err != nil {
		s.reject(w, r, savingschain.IxWithdrawCompleted, err)
		return
	}

	kind := savingschain.IxWithdrawCompleted
	if plan.Early {
		kind = savingschain.IxWithdrawEarly
	}
	// The deadline decides the path. A caller that explicitly refuses the
	// penalty on an unmatured goal is told so instead of being charged.
	if plan.Early && req.Early != nil && !*req.Early {
		s.reject(w, r, kind, errors.Conflict("goal has not reached its deadline; early withdrawal incurs a penalty").
			WithDetails("deadline", goal.Deadline).
			WithDetails("penalty", plan.Penalty))
		return
	}

	currency, err := s.reader.CurrencyConfig(ctx, goal.CurrencyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if currency == nil {
		s.reject(w, r, kind, errors.NotFound("currency", strconv.Itoa(int(goal.CurrencyID))))
		return
	}
	global, err := s.reader.GlobalState(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if global == nil {
		s.reject(w, r, kind, errors.NotFound("global state", ""))
		return
	}

	var tx *savingschain.BuiltTransaction
	if plan.Early {
		tx, err = s.builder.WithdrawEarly(ctx, wallet, idx, currency, global)
	} else {
		tx, err = s.builder.WithdrawCompleted(ctx, wallet, idx, currency, global)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.rememberGoals(ctx, goal)

	httputil.WriteSuccess(w, map[string]interface{}{
		"transaction": transactionView(tx),
		"goalAddress": goal.Address.String(),
		"withdrawal":  plan,
	})
}

func (s *Service) handleFaucetClaim(w http.ResponseWriter, r *http.Request) {
	wallet, err := callerWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req faucetClaimRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	var mint solana.PublicKey
	switch {
	case req.TokenMint != "":
		mint, err = solana.PublicKeyFromBase58(req.TokenMint)
		if err != nil {
			s.reject(w, r, savingschain.IxClaimFaucet, errors.Validation("tokenMint is not a valid address"))
			return
		}
	case req.CurrencyID != nil:
		currencyID, err := savingsrules.ValidateCurrencyID(*req.CurrencyID)
		if err != nil {
			s.reject(w, r, savingschain.IxClaimFaucet, err)
			return
		}
		currency, err := s.reader.CurrencyConfig(ctx, currencyID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if currency == nil {
			s.reject(w, r, savingschain.IxClaimFaucet, errors.NotFound("currency", strconv.Itoa(int(currencyID))))
			return
		}
		mint = currency.BaseMint
	default:
		s.reject(w, r, savingschain.IxClaimFaucet, errors.Validation("tokenMint or currencyId is required"))
		return
	}

	acct, err := s.faucet.Allow(ctx, wallet)
	if err != nil {
		s.reject(w, r, savingschain.IxClaimFaucet, err)
		return
	}
	faucetCfg, err := s.reader.FaucetConfig(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if faucetCfg == nil {
		s.reject(w, r, savingschain.IxClaimFaucet, errors.NotFound("faucet config", ""))
		return
	}

	tx, err := s.builder.ClaimFaucet(ctx, wallet, mint)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	remaining := savingsrules.MaxClaimsPerDay - savingsrules.ClaimsToday(acct, s.now()) - 1
	httputil.WriteSuccess(w, map[string]interface{}{
		"transaction":          transactionView(tx),
		"tokenMint":            mint.String(),
		"amountPerClaim":       decimal.NewFromUint64(faucetCfg.AmountPerClaim),
		"claimsRemainingToday": remaining,
	})
}

// handleHistory lists a wallet's goals as history rows read from the chain.
// When the ledger is unreachable the cached rows are served instead, marked
// with source "cache".
func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	wallet, err := pathWallet(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx := r.Context()

	records, err := s.chainHistory(ctx, wallet)
	if err == nil {
		s.writeHistory(w, "chain", records)
		return
	}
	if s.servesStale(err) {
		cached, cerr := s.cache.ListGoals(ctx, wallet.String())
		if cerr == nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Ledger unavailable, serving cached history")
			s.writeHistory(w, "cache", cached)
			return
		}
	}
	s.fail(w, r, err)
}

func (s *Service) chainHistory(ctx context.Context, wallet solana.PublicKey) ([]savingscache.GoalRecord, error) {
	user, err := s.reader.UserAccount(ctx, wallet)
	if err != nil || user == nil {
		return nil, err
	}
	goals, err := s.reader.Goals(ctx, wallet, user.TotalGoalsCreated)
	if err != nil {
		return nil, err
	}
	s.rememberUser(ctx, user)
	s.rememberGoals(ctx, goals...)

	records := make([]savingscache.GoalRecord, 0, len(goals))
	for _, g := range goals {
		records = append(records, savingscache.GoalRecordFrom(g))
	}
	return records, nil
}

func (s *Service) writeHistory(w http.ResponseWriter, source string, records []savingscache.GoalRecord) {
	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntry(rec))
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"source":  source,
		"entries": entries,
		"count":   len(entries),
	})
}
