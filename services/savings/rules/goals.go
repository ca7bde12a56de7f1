package savingsrules

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/nestfund/savings_layer/internal/errors"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
)

const (
	// MaxActiveGoals is the per-wallet ceiling on active goals.
	MaxActiveGoals = 5
	// MinGoalDuration is the shortest allowed time from creation to deadline.
	MinGoalDuration = 90 * 24 * time.Hour
	// MaxGoalNameLength is the program's limit on goal names, in bytes.
	MaxGoalNameLength = 32
	// PenaltyRateBps is the early-withdrawal penalty (2%).
	PenaltyRateBps = 200
)

var (
	penaltyRate = decimal.New(PenaltyRateBps, -4)
	hundred     = decimal.NewFromInt(100)
)

// =============================================================================
// Goal Creation
// =============================================================================

// GoalDraft is an unvalidated create-goal request.
type GoalDraft struct {
	Name         string
	TargetAmount uint64
	Mode         string
	RiskTier     string
	CurrencyID   int
	Deadline     int64
}

// ValidateCreateGoal checks a draft against the caller's user account and
// returns the instruction arguments. The goal index is the user's
// totalGoalsCreated at read time; concurrent creates from one wallet can pick
// the same index and only one will land on-chain.
func ValidateCreateGoal(user *savingschain.UserAccount, draft GoalDraft, now time.Time) (savingschain.CreateGoalArgs, error) {
	var args savingschain.CreateGoalArgs

	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return args, errors.Validation("name is required")
	}
	if len(name) > MaxGoalNameLength || !utf8.ValidString(name) {
		return args, errors.Validation("name must be valid UTF-8 of at most %d bytes", MaxGoalNameLength)
	}
	if draft.TargetAmount == 0 {
		return args, errors.Validation("targetAmount must be positive")
	}

	mode, err := savingschain.ParseGoalMode(draft.Mode)
	if err != nil {
		return args, errors.Validation("%s", err.Error())
	}

	var tier *savingschain.RiskTier
	switch {
	case mode == savingschain.GoalModePro && draft.RiskTier == "":
		return args, errors.Validation("riskTier is required for pro goals")
	case mode == savingschain.GoalModeLite && draft.RiskTier != "":
		return args, errors.Validation("riskTier is only allowed for pro goals")
	case mode == savingschain.GoalModePro:
		t, err := savingschain.ParseRiskTier(draft.RiskTier)
		if err != nil {
			return args, errors.Validation("%s", err.Error())
		}
		tier = &t
	}

	currencyID, err := ValidateCurrencyID(draft.CurrencyID)
	if err != nil {
		return args, err
	}

	earliest := now.Add(MinGoalDuration).Unix()
	if draft.Deadline < earliest {
		return args, errors.Validation("deadline must be at least 90 days from now").
			WithDetails("earliestDeadline", earliest)
	}

	if user == nil {
		return args, errors.NotFound("user account", "").
			WithDetails("hint", "initialize the user account first")
	}
	if user.ActiveGoals >= MaxActiveGoals {
		return args, errors.Conflict("maximum of %d active goals reached", MaxActiveGoals)
	}
	if user.TotalGoalsCreated == math.MaxUint8 {
		return args, errors.Conflict("goal index space exhausted")
	}

	return savingschain.CreateGoalArgs{
		GoalIndex:    user.TotalGoalsCreated,
		Name:         name,
		TargetAmount: draft.TargetAmount,
		Mode:         mode,
		RiskTier:     tier,
		CurrencyID:   currencyID,
		Deadline:     draft.Deadline,
	}, nil
}

// ValidateCurrencyID accepts the supported currency ids.
func ValidateCurrencyID(id int) (uint8, error) {
	for _, supported := range savingschain.SupportedCurrencyIDs {
		if id == int(supported) {
			return supported, nil
		}
	}
	return 0, errors.Validation("currencyId must be 0 or 1")
}

// ValidateGoalIndex accepts indexes that fit the on-chain u8.
func ValidateGoalIndex(idx int) (uint8, error) {
	if idx < 0 || idx > math.MaxUint8 {
		return 0, errors.Validation("goalIndex must be between 0 and 255")
	}
	return uint8(idx), nil
}

// =============================================================================
// Deposit
// =============================================================================

// ValidateDeposit checks a deposit and returns the projected goal total.
func ValidateDeposit(goal *savingschain.GoalAccount, currencyID uint8, amount uint64) (uint64, error) {
	if goal == nil {
		return 0, errors.NotFound("goal", "")
	}
	if goal.Status != savingschain.GoalStatusActive {
		return 0, errors.Conflict("goal is %s, deposits require an active goal", goal.Status)
	}
	if goal.CurrencyID != currencyID {
		return 0, errors.Conflict("currency mismatch: goal uses currency %d", goal.CurrencyID)
	}
	if amount == 0 {
		return 0, errors.Validation("amount must be positive")
	}
	if amount > math.MaxUint64-goal.CurrentAmount {
		return 0, errors.Validation("amount would overflow the goal balance")
	}
	return goal.CurrentAmount + amount, nil
}

// =============================================================================
// Withdrawal
// =============================================================================

// WithdrawalPlan is the outcome of a withdrawal. Amounts are base units.
type WithdrawalPlan struct {
	Early              bool            `json:"isEarly"`
	TotalValue         decimal.Decimal `json:"totalValue"`
	Penalty            decimal.Decimal `json:"penalty"`
	AmountAfterPenalty decimal.Decimal `json:"amountAfterPenalty"`
	TreasuryShare      decimal.Decimal `json:"treasuryShare"`
	RewardPoolShare    decimal.Decimal `json:"rewardPoolShare"`
}

// IsEarly reports whether withdrawing at now is before the deadline.
func IsEarly(goal *savingschain.GoalAccount, now time.Time) bool {
	return goal.Deadline > now.Unix()
}

// Penalty returns floor(total * 2%).
func Penalty(total decimal.Decimal) decimal.Decimal {
	return total.Mul(penaltyRate).Floor()
}

// SplitPenalty divides a penalty between treasury and reward pool. The
// treasury takes the floor of the half; the pool takes the remainder.
func SplitPenalty(penalty decimal.Decimal) (treasury, rewardPool decimal.Decimal) {
	treasury = penalty.Div(decimal.NewFromInt(2)).Floor()
	return treasury, penalty.Sub(treasury)
}

// PlanWithdrawal validates a withdrawal and computes the payout. The early
// branch is chosen by comparing the deadline to now.
func PlanWithdrawal(goal *savingschain.GoalAccount, now time.Time) (*WithdrawalPlan, error) {
	if goal == nil {
		return nil, errors.NotFound("goal", "")
	}
	if goal.Status == savingschain.GoalStatusWithdrawn {
		return nil, errors.Conflict("goal has already been withdrawn")
	}
	if goal.CurrentAmount == 0 {
		return nil, errors.Conflict("goal has no balance to withdraw")
	}

	total := decimal.NewFromUint64(goal.CurrentAmount).Add(decimal.NewFromUint64(goal.AccruedInterest))
	plan := &WithdrawalPlan{
		Early:           IsEarly(goal, now),
		TotalValue:      total,
		Penalty:         decimal.Zero,
		TreasuryShare:   decimal.Zero,
		RewardPoolShare: decimal.Zero,
	}
	if plan.Early {
		plan.Penalty = Penalty(total)
		plan.TreasuryShare, plan.RewardPoolShare = SplitPenalty(plan.Penalty)
	}
	plan.AmountAfterPenalty = total.Sub(plan.Penalty)
	return plan, nil
}
