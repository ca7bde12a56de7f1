package httpapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nestfund/savings_layer/internal/config"
	savingscache "github.com/nestfund/savings_layer/services/savings/cache"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
	savingsrules "github.com/nestfund/savings_layer/services/savings/rules"
)

// lamportsPerSOL converts native balances for display.
var lamportsPerSOL = decimal.New(1, 9)

// =============================================================================
// Request Types
// =============================================================================

// amountString accepts an amount as a JSON string or a bare integer and keeps
// its raw text; it never passes through float64.
type amountString string

func (a *amountString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountString(s)
		return nil
	}
	*a = amountString(b)
	return nil
}

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type createGoalRequest struct {
	WalletAddress string       `json:"walletAddress"`
	Name          string       `json:"name"`
	TargetAmount  amountString `json:"targetAmount"`
	Mode          string       `json:"mode"`
	RiskTier      *string      `json:"riskTier"`
	CurrencyID    *int         `json:"currencyId"`
	Deadline      *int64       `json:"deadline"`
}

type depositRequest struct {
	WalletAddress string       `json:"walletAddress"`
	GoalIndex     *int         `json:"goalIndex"`
	Amount        amountString `json:"amount"`
	CurrencyID    *int         `json:"currencyId"`
}

type withdrawRequest struct {
	WalletAddress string `json:"walletAddress"`
	GoalIndex     *int   `json:"goalIndex"`
	Early         *bool  `json:"early"`
}

type faucetClaimRequest struct {
	WalletAddress string `json:"walletAddress"`
	TokenMint     string `json:"tokenMint"`
	CurrencyID    *int   `json:"currencyId"`
}

// =============================================================================
// Response Types
// =============================================================================

// TransactionView is an unsigned transaction handed back for signing.
type TransactionView struct {
	Kind                 string            `json:"kind"`
	Transaction          string            `json:"transaction"`
	Blockhash            string            `json:"blockhash"`
	LastValidBlockHeight uint64            `json:"lastValidBlockHeight"`
	Accounts             map[string]string `json:"accounts"`
}

func transactionView(tx *savingschain.BuiltTransaction) TransactionView {
	return TransactionView{
		Kind:                 tx.Kind,
		Transaction:          tx.Transaction,
		Blockhash:            tx.Blockhash,
		LastValidBlockHeight: tx.LastValidBlockHeight,
		Accounts:             tx.Accounts,
	}
}

// UserView is a user account snapshot.
type UserView struct {
	Address           string          `json:"address"`
	WalletAddress     string          `json:"walletAddress"`
	TotalGoalsCreated uint8           `json:"totalGoalsCreated"`
	ActiveGoals       uint8           `json:"activeGoals"`
	TotalDeposited    decimal.Decimal `json:"totalDeposited"`
	TotalWithdrawn    decimal.Decimal `json:"totalWithdrawn"`
	CreatedAt         int64           `json:"createdAt"`
	Source            string          `json:"source,omitempty"`
}

func userView(u *savingschain.UserAccount) UserView {
	return UserView{
		Address:           u.Address.String(),
		WalletAddress:     u.Owner.String(),
		TotalGoalsCreated: u.TotalGoalsCreated,
		ActiveGoals:       u.ActiveGoals,
		TotalDeposited:    decimal.NewFromUint64(u.TotalDeposited),
		TotalWithdrawn:    decimal.NewFromUint64(u.TotalWithdrawn),
		CreatedAt:         u.CreatedAt,
	}
}

func cachedUserView(rec *savingscache.UserRecord) UserView {
	return UserView{
		Address:           rec.UserAddress,
		WalletAddress:     rec.WalletAddress,
		TotalGoalsCreated: uint8(rec.TotalGoalsCreated),
		ActiveGoals:       uint8(rec.ActiveGoals),
		TotalDeposited:    rec.TotalDeposited,
		TotalWithdrawn:    rec.TotalWithdrawn,
		CreatedAt:         rec.ChainCreatedAt,
		Source:            "cache",
	}
}

// GoalView is a goal snapshot with derived progress figures.
type GoalView struct {
	Address                  string                  `json:"address"`
	WalletAddress            string                  `json:"walletAddress"`
	GoalIndex                uint8                   `json:"goalIndex"`
	Name                     string                  `json:"name"`
	TargetAmount             decimal.Decimal         `json:"targetAmount"`
	CurrentAmount            decimal.Decimal         `json:"currentAmount"`
	AccruedInterest          decimal.Decimal         `json:"accruedInterest"`
	CurrencyID               uint8                   `json:"currencyId"`
	Currency                 string                  `json:"currency,omitempty"`
	Mode                     savingschain.GoalMode   `json:"mode"`
	RiskTier                 *savingschain.RiskTier  `json:"riskTier"`
	Status                   savingschain.GoalStatus `json:"status"`
	CreatedAt                int64                   `json:"createdAt"`
	Deadline                 int64                   `json:"deadline"`
	StreakDays               uint16                  `json:"streakDays"`
	DepositCount             uint32                  `json:"depositCount"`
	FirstDepositBonusClaimed bool                    `json:"firstDepositBonusClaimed"`
	ProgressPercent          decimal.Decimal         `json:"progressPercent"`
	DaysRemaining            int64                   `json:"daysRemaining"`
	IsMatured                bool                    `json:"isMatured"`
	APYPercent               decimal.Decimal         `json:"apyPercent"`
	ProjectedPenalty         decimal.Decimal         `json:"projectedPenalty"`
}

func (s *Service) goalView(g *savingschain.GoalAccount, currency *savingschain.CurrencyConfig, now time.Time) GoalView {
	in := savingsrules.Insights(g, currency, now)
	return GoalView{
		Address:                  g.Address.String(),
		WalletAddress:            g.Owner.String(),
		GoalIndex:                g.GoalIndex,
		Name:                     g.Name,
		TargetAmount:             decimal.NewFromUint64(g.TargetAmount),
		CurrentAmount:            decimal.NewFromUint64(g.CurrentAmount),
		AccruedInterest:          decimal.NewFromUint64(g.AccruedInterest),
		CurrencyID:               g.CurrencyID,
		Currency:                 s.currencies[g.CurrencyID].Symbol,
		Mode:                     g.Mode,
		RiskTier:                 g.RiskTier,
		Status:                   g.Status,
		CreatedAt:                g.CreatedAt,
		Deadline:                 g.Deadline,
		StreakDays:               g.StreakDays,
		DepositCount:             g.DepositCount,
		FirstDepositBonusClaimed: g.FirstDepositBonusClaimed,
		ProgressPercent:          in.ProgressPercent,
		DaysRemaining:            in.DaysRemaining,
		IsMatured:                in.IsMatured,
		APYPercent:               in.APYPercent,
		ProjectedPenalty:         in.ProjectedPenalty,
	}
}

// StatsView aggregates a wallet's goals.
type StatsView struct {
	TotalGoals      int             `json:"totalGoals"`
	ActiveGoals     int             `json:"activeGoals"`
	CompletedGoals  int             `json:"completedGoals"`
	WithdrawnGoals  int             `json:"withdrawnGoals"`
	TotalSaved      decimal.Decimal `json:"totalSaved"`
	TotalInterest   decimal.Decimal `json:"totalInterest"`
	TotalTarget     decimal.Decimal `json:"totalTarget"`
	OverallProgress decimal.Decimal `json:"overallProgress"`
}

func statsView(st savingsrules.GoalStats) StatsView {
	return StatsView{
		TotalGoals:      st.TotalGoals,
		ActiveGoals:     st.ActiveGoals,
		CompletedGoals:  st.CompletedGoals,
		WithdrawnGoals:  st.WithdrawnGoals,
		TotalSaved:      st.TotalSaved,
		TotalInterest:   st.TotalInterest,
		TotalTarget:     st.TotalTarget,
		OverallProgress: st.OverallProgress,
	}
}

// CurrencyView is a currency config with APY figures as percentages.
type CurrencyView struct {
	CurrencyID     uint8               `json:"currencyId"`
	Address        string              `json:"address"`
	BaseMint       string              `json:"baseMint"`
	SavingsMint    string              `json:"savingsMint"`
	Meta           config.CurrencyMeta `json:"meta"`
	LiteAPY        decimal.Decimal     `json:"liteApy"`
	ProLowAPY      decimal.Decimal     `json:"proLowApy"`
	ProMediumAPY   decimal.Decimal     `json:"proMediumApy"`
	ProHighAPY     decimal.Decimal     `json:"proHighApy"`
	TotalDeposited decimal.Decimal     `json:"totalDeposited"`
	TotalGoals     decimal.Decimal     `json:"totalGoals"`
}

func (s *Service) currencyView(c *savingschain.CurrencyConfig) CurrencyView {
	return CurrencyView{
		CurrencyID:     c.CurrencyID,
		Address:        c.Address.String(),
		BaseMint:       c.BaseMint.String(),
		SavingsMint:    c.SavingsMint.String(),
		Meta:           s.currencies[c.CurrencyID],
		LiteAPY:        savingsrules.APYPercent(c.LiteAPYBps),
		ProLowAPY:      savingsrules.APYPercent(c.ProLowAPYBps),
		ProMediumAPY:   savingsrules.APYPercent(c.ProMediumAPYBps),
		ProHighAPY:     savingsrules.APYPercent(c.ProHighAPYBps),
		TotalDeposited: decimal.NewFromUint64(c.TotalDeposited),
		TotalGoals:     decimal.NewFromUint64(c.TotalGoals),
	}
}

// HistoryEntry summarises one goal as a pseudo-transaction history row.
type HistoryEntry struct {
	GoalAddress   string          `json:"goalAddress"`
	GoalIndex     int             `json:"goalIndex"`
	Name          string          `json:"name"`
	Status        string          `json:"status"`
	CurrencyID    int             `json:"currencyId"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	DepositCount  int64           `json:"depositCount"`
	CreatedAt     int64           `json:"createdAt"`
	Deadline      int64           `json:"deadline"`
}

func historyEntry(rec savingscache.GoalRecord) HistoryEntry {
	return HistoryEntry{
		GoalAddress:   rec.GoalAddress,
		GoalIndex:     rec.GoalIndex,
		Name:          rec.Name,
		Status:        rec.Status,
		CurrencyID:    rec.CurrencyID,
		TargetAmount:  rec.TargetAmount,
		CurrentAmount: rec.CurrentAmount,
		DepositCount:  rec.DepositCount,
		CreatedAt:     rec.ChainCreatedAt,
		Deadline:      rec.Deadline,
	}
}
