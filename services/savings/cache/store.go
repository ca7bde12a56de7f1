// Package savingscache mirrors savings program accounts into a relational
// store for fast history and stats reads. The chain stays authoritative; the
// cache is optional and last-write-wins.
package savingscache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
)

// Store is the cache contract. Upserts are idempotent and keyed by the
// natural on-chain address.
type Store interface {
	UpsertUser(ctx context.Context, rec UserRecord) error
	UpsertGoal(ctx context.Context, rec GoalRecord) error
	// GetUser returns nil, nil when the wallet has not been cached.
	GetUser(ctx context.Context, wallet string) (*UserRecord, error)
	ListGoals(ctx context.Context, wallet string) ([]GoalRecord, error)
	Ping(ctx context.Context) error
}

// UserRecord is a cached UserAccount.
type UserRecord struct {
	WalletAddress     string          `db:"wallet_address"`
	UserAddress       string          `db:"user_address"`
	TotalGoalsCreated int             `db:"total_goals_created"`
	ActiveGoals       int             `db:"active_goals"`
	TotalDeposited    decimal.Decimal `db:"total_deposited"`
	TotalWithdrawn    decimal.Decimal `db:"total_withdrawn"`
	ChainCreatedAt    int64           `db:"chain_created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// GoalRecord is a cached GoalAccount.
type GoalRecord struct {
	GoalAddress     string          `db:"goal_address"`
	WalletAddress   string          `db:"wallet_address"`
	GoalIndex       int             `db:"goal_index"`
	Name            string          `db:"name"`
	TargetAmount    decimal.Decimal `db:"target_amount"`
	CurrentAmount   decimal.Decimal `db:"current_amount"`
	AccruedInterest decimal.Decimal `db:"accrued_interest"`
	CurrencyID      int             `db:"currency_id"`
	Mode            string          `db:"mode"`
	RiskTier        sql.NullString  `db:"risk_tier"`
	Status          string          `db:"status"`
	Deadline        int64           `db:"deadline"`
	ChainCreatedAt  int64           `db:"chain_created_at"`
	StreakDays      int             `db:"streak_days"`
	DepositCount    int64           `db:"deposit_count"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// UserRecordFrom converts a decoded user account.
func UserRecordFrom(u *savingschain.UserAccount) UserRecord {
	return UserRecord{
		WalletAddress:     u.Owner.String(),
		UserAddress:       u.Address.String(),
		TotalGoalsCreated: int(u.TotalGoalsCreated),
		ActiveGoals:       int(u.ActiveGoals),
		TotalDeposited:    decimal.NewFromUint64(u.TotalDeposited),
		TotalWithdrawn:    decimal.NewFromUint64(u.TotalWithdrawn),
		ChainCreatedAt:    u.CreatedAt,
	}
}

// GoalRecordFrom converts a decoded goal account.
func GoalRecordFrom(g *savingschain.GoalAccount) GoalRecord {
	rec := GoalRecord{
		GoalAddress:     g.Address.String(),
		WalletAddress:   g.Owner.String(),
		GoalIndex:       int(g.GoalIndex),
		Name:            g.Name,
		TargetAmount:    decimal.NewFromUint64(g.TargetAmount),
		CurrentAmount:   decimal.NewFromUint64(g.CurrentAmount),
		AccruedInterest: decimal.NewFromUint64(g.AccruedInterest),
		CurrencyID:      int(g.CurrencyID),
		Mode:            g.Mode.String(),
		Status:          g.Status.String(),
		Deadline:        g.Deadline,
		ChainCreatedAt:  g.CreatedAt,
		StreakDays:      int(g.StreakDays),
		DepositCount:    int64(g.DepositCount),
	}
	if g.RiskTier != nil {
		rec.RiskTier = sql.NullString{String: g.RiskTier.String(), Valid: true}
	}
	return rec
}

// GoalAccount converts the record back into the chain representation. The
// address fields are parsed; enum labels must be in the closed sets.
func (r GoalRecord) GoalAccount() (*savingschain.GoalAccount, error) {
	g := &savingschain.GoalAccount{
		GoalIndex:    uint8(r.GoalIndex),
		Name:         r.Name,
		CurrencyID:   uint8(r.CurrencyID),
		Deadline:     r.Deadline,
		CreatedAt:    r.ChainCreatedAt,
		StreakDays:   uint16(r.StreakDays),
		DepositCount: uint32(r.DepositCount),
	}

	var err error
	if err = g.Address.UnmarshalText([]byte(r.GoalAddress)); err != nil {
		return nil, fmt.Errorf("goal address: %w", err)
	}
	if err = g.Owner.UnmarshalText([]byte(r.WalletAddress)); err != nil {
		return nil, fmt.Errorf("wallet address: %w", err)
	}
	if g.Mode, err = savingschain.ParseGoalMode(r.Mode); err != nil {
		return nil, err
	}
	if g.Status, err = savingschain.ParseGoalStatus(r.Status); err != nil {
		return nil, err
	}
	if r.RiskTier.Valid {
		tier, err := savingschain.ParseRiskTier(r.RiskTier.String)
		if err != nil {
			return nil, err
		}
		g.RiskTier = &tier
	}
	if g.TargetAmount, err = toU64(r.TargetAmount); err != nil {
		return nil, fmt.Errorf("target amount: %w", err)
	}
	if g.CurrentAmount, err = toU64(r.CurrentAmount); err != nil {
		return nil, fmt.Errorf("current amount: %w", err)
	}
	if g.AccruedInterest, err = toU64(r.AccruedInterest); err != nil {
		return nil, fmt.Errorf("accrued interest: %w", err)
	}
	return g, nil
}

func toU64(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() || !d.IsInteger() || !d.BigInt().IsUint64() {
		return 0, fmt.Errorf("%s is not a u64", d.String())
	}
	return d.BigInt().Uint64(), nil
}
