package savingsrules

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/nestfund/savings_layer/internal/errors"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
)

const (
	// FaucetCooldown is the minimum time between two claims by one wallet.
	FaucetCooldown = time.Hour
	// MaxClaimsPerDay caps claims within one UTC day window.
	MaxClaimsPerDay = 10

	secondsPerDay = 24 * 60 * 60
)

// ClaimsToday returns the wallet's claim count for the day containing now.
// The on-chain counter is stale once the last claim is on an earlier day.
func ClaimsToday(acct *savingschain.FaucetAccount, now time.Time) int {
	if acct == nil {
		return 0
	}
	if acct.LastClaim/secondsPerDay < now.Unix()/secondsPerDay {
		return 0
	}
	return int(acct.ClaimsToday)
}

// CheckFaucetClaim applies the cooldown and daily cap to a wallet's faucet
// account. A nil account has never claimed.
func CheckFaucetClaim(enabled bool, acct *savingschain.FaucetAccount, now time.Time) error {
	if !enabled {
		return errors.Conflict("faucet is disabled")
	}
	if acct == nil {
		return nil
	}

	nowUnix := now.Unix()
	cooldown := int64(FaucetCooldown / time.Second)
	if elapsed := nowUnix - acct.LastClaim; elapsed < cooldown {
		return errors.RateLimited("faucet cooldown active", cooldown-elapsed).
			WithDetails("last_claim", acct.LastClaim)
	}

	if ClaimsToday(acct, now) >= MaxClaimsPerDay {
		nextDay := (nowUnix/secondsPerDay + 1) * secondsPerDay
		return errors.RateLimited("daily faucet claim limit reached", nextDay-nowUnix).
			WithDetails("max_claims_per_day", MaxClaimsPerDay)
	}
	return nil
}

// FaucetAccountReader is the chain access the limiter needs.
type FaucetAccountReader interface {
	FaucetAccount(ctx context.Context, wallet solana.PublicKey) (*savingschain.FaucetAccount, error)
}

// FaucetLimiter enforces the faucet policy from fresh chain state on every
// call; it keeps no counters of its own.
type FaucetLimiter struct {
	reader  FaucetAccountReader
	enabled bool
	now     func() time.Time
}

// NewFaucetLimiter creates a limiter. now defaults to time.Now.
func NewFaucetLimiter(reader FaucetAccountReader, enabled bool, now func() time.Time) *FaucetLimiter {
	if now == nil {
		now = time.Now
	}
	return &FaucetLimiter{reader: reader, enabled: enabled, now: now}
}

// Enabled reports whether claims are accepted at all.
func (l *FaucetLimiter) Enabled() bool {
	return l.enabled
}

// Allow re-reads the wallet's faucet account and checks the policy.
func (l *FaucetLimiter) Allow(ctx context.Context, wallet solana.PublicKey) (*savingschain.FaucetAccount, error) {
	if !l.enabled {
		return nil, CheckFaucetClaim(false, nil, l.now())
	}
	acct, err := l.reader.FaucetAccount(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if err := CheckFaucetClaim(true, acct, l.now()); err != nil {
		return acct, err
	}
	return acct, nil
}
