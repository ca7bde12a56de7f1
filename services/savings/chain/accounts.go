package savingschain

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// =============================================================================
// Enumerations
// =============================================================================

// GoalMode is the yield profile of a goal.
type GoalMode uint8

const (
	GoalModeLite GoalMode = iota
	GoalModePro
)

var goalModeNames = [...]string{"lite", "pro"}

func (m GoalMode) String() string {
	if int(m) < len(goalModeNames) {
		return goalModeNames[m]
	}
	return fmt.Sprintf("GoalMode(%d)", uint8(m))
}

func (m GoalMode) MarshalText() ([]byte, error) {
	if int(m) >= len(goalModeNames) {
		return nil, fmt.Errorf("invalid goal mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// ParseGoalMode parses "lite" or "pro", case-insensitively.
func ParseGoalMode(s string) (GoalMode, error) {
	for i, name := range goalModeNames {
		if strings.EqualFold(s, name) {
			return GoalMode(i), nil
		}
	}
	return 0, fmt.Errorf("invalid goal mode %q: must be lite or pro", s)
}

func decodeGoalMode(tag uint8) (GoalMode, error) {
	if int(tag) >= len(goalModeNames) {
		return 0, fmt.Errorf("unknown goal mode tag %d", tag)
	}
	return GoalMode(tag), nil
}

// RiskTier selects the pro-mode yield rate.
type RiskTier uint8

const (
	RiskTierLow RiskTier = iota
	RiskTierMedium
	RiskTierHigh
)

var riskTierNames = [...]string{"low", "medium", "high"}

func (r RiskTier) String() string {
	if int(r) < len(riskTierNames) {
		return riskTierNames[r]
	}
	return fmt.Sprintf("RiskTier(%d)", uint8(r))
}

func (r RiskTier) MarshalText() ([]byte, error) {
	if int(r) >= len(riskTierNames) {
		return nil, fmt.Errorf("invalid risk tier %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// ParseRiskTier parses "low", "medium" or "high", case-insensitively.
func ParseRiskTier(s string) (RiskTier, error) {
	for i, name := range riskTierNames {
		if strings.EqualFold(s, name) {
			return RiskTier(i), nil
		}
	}
	return 0, fmt.Errorf("invalid risk tier %q: must be low, medium or high", s)
}

func decodeRiskTier(tag uint8) (RiskTier, error) {
	if int(tag) >= len(riskTierNames) {
		return 0, fmt.Errorf("unknown risk tier tag %d", tag)
	}
	return RiskTier(tag), nil
}

// GoalStatus is the lifecycle state of a goal. Completed and Withdrawn are
// terminal.
type GoalStatus uint8

const (
	GoalStatusActive GoalStatus = iota
	GoalStatusCompleted
	GoalStatusWithdrawn
)

var goalStatusNames = [...]string{"active", "completed", "withdrawn"}

func (s GoalStatus) String() string {
	if int(s) < len(goalStatusNames) {
		return goalStatusNames[s]
	}
	return fmt.Sprintf("GoalStatus(%d)", uint8(s))
}

func (s GoalStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(goalStatusNames) {
		return nil, fmt.Errorf("invalid goal status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// ParseGoalStatus parses a status label, case-insensitively.
func ParseGoalStatus(s string) (GoalStatus, error) {
	for i, name := range goalStatusNames {
		if strings.EqualFold(s, name) {
			return GoalStatus(i), nil
		}
	}
	return 0, fmt.Errorf("invalid goal status %q: must be active, completed or withdrawn", s)
}

func decodeGoalStatus(tag uint8) (GoalStatus, error) {
	if int(tag) >= len(goalStatusNames) {
		return 0, fmt.Errorf("unknown goal status tag %d", tag)
	}
	return GoalStatus(tag), nil
}

// =============================================================================
// Account Records
// =============================================================================

// GlobalState holds program-wide settings.
type GlobalState struct {
	Address        solana.PublicKey
	Authority      solana.PublicKey
	Treasury       solana.PublicKey
	RewardPool     solana.PublicKey
	PenaltyRateBps uint16
	CurrencyCount  uint8
	Bump           uint8
}

// CurrencyConfig describes one supported base currency.
type CurrencyConfig struct {
	Address         solana.PublicKey
	CurrencyID      uint8
	BaseMint        solana.PublicKey
	SavingsMint     solana.PublicKey
	LiteAPYBps      uint16
	ProLowAPYBps    uint16
	ProMediumAPYBps uint16
	ProHighAPYBps   uint16
	TotalDeposited  uint64
	TotalGoals      uint64
	Bump            uint8
}

// APYBps returns the yield in basis points for a mode and optional tier.
// Pro mode without a tier falls back to the low tier rate.
func (c *CurrencyConfig) APYBps(mode GoalMode, tier *RiskTier) uint16 {
	if mode == GoalModeLite {
		return c.LiteAPYBps
	}
	if tier == nil {
		return c.ProLowAPYBps
	}
	switch *tier {
	case RiskTierMedium:
		return c.ProMediumAPYBps
	case RiskTierHigh:
		return c.ProHighAPYBps
	default:
		return c.ProLowAPYBps
	}
}

// UserAccount aggregates one wallet's savings activity.
type UserAccount struct {
	Address           solana.PublicKey
	Owner             solana.PublicKey
	TotalGoalsCreated uint8
	ActiveGoals       uint8
	TotalDeposited    uint64
	TotalWithdrawn    uint64
	CreatedAt         int64
	Bump              uint8
}

// GoalAccount is a single savings goal.
type GoalAccount struct {
	Address                  solana.PublicKey
	Owner                    solana.PublicKey
	GoalIndex                uint8
	Name                     string
	TargetAmount             uint64
	CurrentAmount            uint64
	AccruedInterest          uint64
	CurrencyID               uint8
	Mode                     GoalMode
	RiskTier                 *RiskTier
	CreatedAt                int64
	Deadline                 int64
	Status                   GoalStatus
	StreakDays               uint16
	LastDepositDay           int64
	DepositCount             uint32
	FirstDepositBonusClaimed bool
	Bump                     uint8
}

// FaucetConfig is the program-wide faucet configuration.
type FaucetConfig struct {
	Address        solana.PublicKey
	Authority      solana.PublicKey
	AmountPerClaim uint64
	TotalClaims    uint64
	Bump           uint8
}

// FaucetAccount tracks one wallet's faucet usage.
type FaucetAccount struct {
	Address     solana.PublicKey
	User        solana.PublicKey
	LastClaim   int64
	ClaimsToday uint8
	TotalClaims uint32
	Bump        uint8
}

// =============================================================================
// Decoders
// =============================================================================

func DecodeGlobalState(data []byte) (*GlobalState, error) {
	r := newAccountReader(data, "GlobalState")
	s := &GlobalState{
		Authority:      r.pubkey(),
		Treasury:       r.pubkey(),
		RewardPool:     r.pubkey(),
		PenaltyRateBps: r.u16(),
		CurrencyCount:  r.u8(),
		Bump:           r.u8(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode GlobalState: %w", r.err)
	}
	return s, nil
}

func DecodeCurrencyConfig(data []byte) (*CurrencyConfig, error) {
	r := newAccountReader(data, "CurrencyConfig")
	c := &CurrencyConfig{
		CurrencyID:      r.u8(),
		BaseMint:        r.pubkey(),
		SavingsMint:     r.pubkey(),
		LiteAPYBps:      r.u16(),
		ProLowAPYBps:    r.u16(),
		ProMediumAPYBps: r.u16(),
		ProHighAPYBps:   r.u16(),
		TotalDeposited:  r.u64(),
		TotalGoals:      r.u64(),
		Bump:            r.u8(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode CurrencyConfig: %w", r.err)
	}
	return c, nil
}

func DecodeUserAccount(data []byte) (*UserAccount, error) {
	r := newAccountReader(data, "UserAccount")
	u := &UserAccount{
		Owner:             r.pubkey(),
		TotalGoalsCreated: r.u8(),
		ActiveGoals:       r.u8(),
		TotalDeposited:    r.u64(),
		TotalWithdrawn:    r.u64(),
		CreatedAt:         r.i64(),
		Bump:              r.u8(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode UserAccount: %w", r.err)
	}
	return u, nil
}

// DecodeGoalAccount decodes a goal and rejects unknown enum tags and a risk
// tier that disagrees with the mode.
func DecodeGoalAccount(data []byte) (*GoalAccount, error) {
	r := newAccountReader(data, "GoalAccount")
	g := &GoalAccount{
		Owner:           r.pubkey(),
		GoalIndex:       r.u8(),
		Name:            r.str(),
		TargetAmount:    r.u64(),
		CurrentAmount:   r.u64(),
		AccruedInterest: r.u64(),
		CurrencyID:      r.u8(),
	}
	modeTag := r.u8()
	tierTag := r.optionU8()
	g.CreatedAt = r.i64()
	g.Deadline = r.i64()
	statusTag := r.u8()
	g.StreakDays = r.u16()
	g.LastDepositDay = r.i64()
	g.DepositCount = r.u32()
	g.FirstDepositBonusClaimed = r.boolean()
	g.Bump = r.u8()
	if r.err != nil {
		return nil, fmt.Errorf("decode GoalAccount: %w", r.err)
	}

	var err error
	if g.Mode, err = decodeGoalMode(modeTag); err != nil {
		return nil, fmt.Errorf("decode GoalAccount: %w", err)
	}
	if g.Status, err = decodeGoalStatus(statusTag); err != nil {
		return nil, fmt.Errorf("decode GoalAccount: %w", err)
	}
	if tierTag != nil {
		tier, err := decodeRiskTier(*tierTag)
		if err != nil {
			return nil, fmt.Errorf("decode GoalAccount: %w", err)
		}
		g.RiskTier = &tier
	}
	if (g.Mode == GoalModePro) != (g.RiskTier != nil) {
		return nil, fmt.Errorf("decode GoalAccount: risk tier must be set iff mode is pro (mode=%s)", g.Mode)
	}
	return g, nil
}

func DecodeFaucetConfig(data []byte) (*FaucetConfig, error) {
	r := newAccountReader(data, "FaucetConfig")
	f := &FaucetConfig{
		Authority:      r.pubkey(),
		AmountPerClaim: r.u64(),
		TotalClaims:    r.u64(),
		Bump:           r.u8(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode FaucetConfig: %w", r.err)
	}
	return f, nil
}

func DecodeFaucetAccount(data []byte) (*FaucetAccount, error) {
	r := newAccountReader(data, "FaucetAccount")
	f := &FaucetAccount{
		User:        r.pubkey(),
		LastClaim:   r.i64(),
		ClaimsToday: r.u8(),
		TotalClaims: r.u32(),
		Bump:        r.u8(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode FaucetAccount: %w", r.err)
	}
	return f, nil
}
