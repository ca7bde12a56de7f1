package savingsrules

import (
	"time"

	"github.com/shopspring/decimal"

	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
)

// GoalInsights are read-side figures derived from a goal snapshot.
type GoalInsights struct {
	ProgressPercent  decimal.Decimal
	DaysRemaining    int64
	IsMatured        bool
	APYPercent       decimal.Decimal
	ProjectedPenalty decimal.Decimal
}

// APYPercent converts basis points to a percentage with two decimals.
func APYPercent(bps uint16) decimal.Decimal {
	return decimal.New(int64(bps), -2).Round(2)
}

// ProgressPercent returns current/target as a percentage, two decimals,
// capped at 100.
func ProgressPercent(current, target uint64) decimal.Decimal {
	if target == 0 {
		return decimal.Zero
	}
	p := decimal.NewFromUint64(current).Mul(hundred).DivRound(decimal.NewFromUint64(target), 2)
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// DaysRemaining counts whole or partial days until the deadline, zero once
// it has passed.
func DaysRemaining(deadline int64, now time.Time) int64 {
	left := deadline - now.Unix()
	if left <= 0 {
		return 0
	}
	return (left + secondsPerDay - 1) / secondsPerDay
}

// Insights computes the enrichment for a goal. currency may be nil when the
// currency config is unavailable, in which case APY is zero.
func Insights(goal *savingschain.GoalAccount, currency *savingschain.CurrencyConfig, now time.Time) GoalInsights {
	in := GoalInsights{
		ProgressPercent:  ProgressPercent(goal.CurrentAmount, goal.TargetAmount),
		DaysRemaining:    DaysRemaining(goal.Deadline, now),
		IsMatured:        !IsEarly(goal, now),
		APYPercent:       decimal.Zero,
		ProjectedPenalty: decimal.Zero,
	}
	if currency != nil {
		in.APYPercent = APYPercent(currency.APYBps(goal.Mode, goal.RiskTier))
	}
	if goal.Status == savingschain.GoalStatusActive && !in.IsMatured {
		total := decimal.NewFromUint64(goal.CurrentAmount).Add(decimal.NewFromUint64(goal.AccruedInterest))
		in.ProjectedPenalty = Penalty(total)
	}
	return in
}

// GoalStats aggregates a wallet's goals.
type GoalStats struct {
	TotalGoals      int
	ActiveGoals     int
	CompletedGoals  int
	WithdrawnGoals  int
	TotalSaved      decimal.Decimal
	TotalInterest   decimal.Decimal
	TotalTarget     decimal.Decimal
	OverallProgress decimal.Decimal
}

// SummarizeGoals totals balances across active and completed goals; withdrawn
// goals count toward the status tallies only.
func SummarizeGoals(goals []*savingschain.GoalAccount) GoalStats {
	s := GoalStats{
		TotalGoals:      len(goals),
		TotalSaved:      decimal.Zero,
		TotalInterest:   decimal.Zero,
		TotalTarget:     decimal.Zero,
		OverallProgress: decimal.Zero,
	}
	for _, g := range goals {
		switch g.Status {
		case savingschain.GoalStatusActive:
			s.ActiveGoals++
		case savingschain.GoalStatusCompleted:
			s.CompletedGoals++
		case savingschain.GoalStatusWithdrawn:
			s.WithdrawnGoals++
			continue
		}
		s.TotalSaved = s.TotalSaved.Add(decimal.NewFromUint64(g.CurrentAmount))
		s.TotalInterest = s.TotalInterest.Add(decimal.NewFromUint64(g.AccruedInterest))
		s.TotalTarget = s.TotalTarget.Add(decimal.NewFromUint64(g.TargetAmount))
	}
	if s.TotalTarget.IsPositive() {
		s.OverallProgress = s.TotalSaved.Mul(hundred).DivRound(s.TotalTarget, 2)
		if s.OverallProgress.GreaterThan(hundred) {
			s.OverallProgress = hundred
		}
	}
	return s
}
