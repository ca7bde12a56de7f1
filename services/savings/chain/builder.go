package savingschain

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/nestfund/savings_layer/internal/chain"
	"github.com/nestfund/savings_layer/internal/errors"
	"github.com/nestfund/savings_layer/internal/metrics"
)

// BlockhashSource supplies the recent blockhash new transactions are anchored
// to. *chain.Client implements it.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context) (*chain.Blockhash, error)
}

// BuiltTransaction is an unsigned transaction ready for the wallet to sign.
type BuiltTransaction struct {
	Kind                 string
	Transaction          string // base64 wire format, signature slots zeroed
	Blockhash            string
	LastValidBlockHeight uint64
	// Accounts names the derived addresses the transaction touches.
	Accounts map[string]string
}

// Builder assembles unsigned savings program transactions. Callers validate
// business rules first; the builder only derives addresses and encodes.
type Builder struct {
	addrs     *Addresses
	blockhash BlockhashSource
	metrics   *metrics.Metrics
}

// NewBuilder creates a transaction builder.
func NewBuilder(addrs *Addresses, blockhash BlockhashSource, m *metrics.Metrics) *Builder {
	return &Builder{addrs: addrs, blockhash: blockhash, metrics: m}
}

// Addresses returns the derivation catalogue the builder uses.
func (b *Builder) Addresses() *Addresses {
	return b.addrs
}

func (b *Builder) finish(ctx context.Context, kind string, wallet solana.PublicKey, accounts map[string]string, build func() (solana.Instruction, error)) (tx *BuiltTransaction, err error) {
	defer func() {
		b.metrics.RecordTransactionBuilt(kind, err)
	}()

	ix, err := build()
	if err != nil {
		return nil, errors.Internal("failed to encode instruction", err)
	}
	bh, err := b.blockhash.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, errors.Upstream("ledger", err)
	}
	hash, err := solana.HashFromBase58(bh.Hash)
	if err != nil {
		return nil, errors.Upstream("ledger", err)
	}

	compiled, err := solana.NewTransaction([]solana.Instruction{ix}, hash, solana.TransactionPayer(wallet))
	if err != nil {
		return nil, errors.Internal("failed to compile transaction", err)
	}
	// The wallet signs client side; every required slot goes out zeroed.
	compiled.Signatures = make([]solana.Signature, compiled.Message.Header.NumRequiredSignatures)
	encoded, err := compiled.ToBase64()
	if err != nil {
		return nil, errors.Internal("failed to serialize transaction", err)
	}

	return &BuiltTransaction{
		Kind:                 kind,
		Transaction:          encoded,
		Blockhash:            bh.Hash,
		LastValidBlockHeight: bh.LastValidBlockHeight,
		Accounts:             accounts,
	}, nil
}

func deriveErr(err error) error {
	return errors.Internal("failed to derive address", err)
}

// InitializeUser builds initialize_user for wallet.
func (b *Builder) InitializeUser(ctx context.Context, wallet solana.PublicKey) (*BuiltTransaction, error) {
	user, _, err := b.addrs.User(wallet)
	if err != nil {
		return nil, deriveErr(err)
	}

	return b.finish(ctx, IxInitializeUser, wallet, map[string]string{
		"userAccount": user.String(),
	}, func() (solana.Instruction, error) {
		return initializeUserIx(b.addrs.ProgramID(), initializeUserAccounts{User: user, Owner: wallet})
	})
}

// CreateGoal builds create_goal. args.GoalIndex must be the user's current
// totalGoalsCreated.
func (b *Builder) CreateGoal(ctx context.Context, wallet solana.PublicKey, args CreateGoalArgs) (*BuiltTransaction, error) {
	goal, _, err := b.addrs.Goal(wallet, args.GoalIndex)
	if err != nil {
		return nil, deriveErr(err)
	}
	user, _, err := b.addrs.User(wallet)
	if err != nil {
		return nil, deriveErr(err)
	}
	currency, _, err := b.addrs.Currency(args.CurrencyID)
	if err != nil {
		return nil, deriveErr(err)
	}

	return b.finish(ctx, IxCreateGoal, wallet, map[string]string{
		"goalAccount":    goal.String(),
		"userAccount":    user.String(),
		"currencyConfig": currency.String(),
	}, func() (solana.Instruction, error) {
		return createGoalIx(b.addrs.ProgramID(), createGoalAccounts{
			Goal:     goal,
			User:     user,
			Currency: currency,
			Owner:    wallet,
		}, args)
	})
}

// tokenAccounts resolves the mints and token accounts shared by deposit and
// withdrawal.
type tokenAccounts struct {
	goal, user, currency  solana.PublicKey
	baseMint, savingsMint solana.PublicKey
	userBase, userSavings solana.PublicKey
	vault                 solana.PublicKey
}

func (b *Builder) resolveTokenAccounts(wallet solana.PublicKey, goalIndex uint8, currency *CurrencyConfig) (*tokenAccounts, error) {
	t := &tokenAccounts{baseMint: currency.BaseMint, savingsMint: currency.SavingsMint}
	var err error
	if t.goal, _, err = b.addrs.Goal(wallet, goalIndex); err != nil {
		return nil, err
	}
	if t.user, _, err = b.addrs.User(wallet); err != nil {
		return nil, err
	}
	if t.currency, _, err = b.addrs.Currency(currency.CurrencyID); err != nil {
		return nil, err
	}
	if t.savingsMint.IsZero() {
		if t.savingsMint, _, err = b.addrs.SavingsMint(currency.CurrencyID); err != nil {
			return nil, err
		}
	}
	if t.userBase, err = TokenAccount(wallet, t.baseMint); err != nil {
		return nil, err
	}
	if t.userSavings, err = TokenAccount(wallet, t.savingsMint); err != nil {
		return nil, err
	}
	if t.vault, err = b.addrs.Vault(currency.CurrencyID, t.baseMint); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *tokenAccounts) describe() map[string]string {
	return map[string]string{
		"goalAccount":        t.goal.String(),
		"userAccount":        t.user.String(),
		"currencyConfig":     t.currency.String(),
		"baseMint":           t.baseMint.String(),
		"savingsMint":        t.savingsMint.String(),
		"userBaseAccount":    t.userBase.String(),
		"userSavingsAccount": t.userSavings.String(),
		"vault":              t.vault.String(),
	}
}

// Deposit builds deposit of amount base units into the goal.
func (b *Builder) Deposit(ctx context.Context, wallet solana.PublicKey, goalIndex uint8, amount uint64, currency *CurrencyConfig) (*BuiltTransaction, error) {
	t, err := b.resolveTokenAccounts(wallet, goalIndex, currency)
	if err != nil {
		return nil, deriveErr(err)
	}

	return b.finish(ctx, IxDeposit, wallet, t.describe(), func() (solana.Instruction, error) {
		return depositIx(b.addrs.ProgramID(), depositAccounts{
			Goal:           t.goal,
			User:           t.user,
			Currency:       t.currency,
			BaseMint:       t.baseMint,
			SavingsMint:    t.savingsMint,
			UserBaseATA:    t.userBase,
			UserSavingsATA: t.userSavings,
			Vault:          t.vault,
			Owner:          wallet,
		}, goalIndex, amount)
	})
}

// WithdrawCompleted builds withdraw_completed. The treasury account is
// included even though it receives nothing on this path.
func (b *Builder) WithdrawCompleted(ctx context.Context, wallet solana.PublicKey, goalIndex uint8, currency *CurrencyConfig, global *GlobalState) (*BuiltTransaction, error) {
	return b.withdraw(ctx, wallet, goalIndex, currency, global, false)
}

// WithdrawEarly builds withdraw_early, routing the penalty to the treasury
// and reward pool.
func (b *Builder) WithdrawEarly(ctx context.Context, wallet solana.PublicKey, goalIndex uint8, currency *CurrencyConfig, global *GlobalState) (*BuiltTransaction, error) {
	return b.withdraw(ctx, wallet, goalIndex, currency, global, true)
}

func (b *Builder) withdraw(ctx context.Context, wallet solana.PublicKey, goalIndex uint8, currency *CurrencyConfig, global *GlobalState, early bool) (*BuiltTransaction, error) {
	t, err := b.resolveTokenAccounts(wallet, goalIndex, currency)
	if err != nil {
		return nil, deriveErr(err)
	}
	globalAddr, _, err := b.addrs.GlobalState()
	if err != nil {
		return nil, deriveErr(err)
	}
	treasury, err := TokenAccount(global.Treasury, t.baseMint)
	if err != nil {
		return nil, deriveErr(err)
	}

	acc := withdrawAccounts{
		Goal:           t.goal,
		User:           t.user,
		Currency:       t.currency,
		GlobalState:    globalAddr,
		BaseMint:       t.baseMint,
		SavingsMint:    t.savingsMint,
		UserBaseATA:    t.userBase,
		UserSavingsATA: t.userSavings,
		Vault:          t.vault,
		TreasuryATA:    treasury,
		Owner:          wallet,
	}
	accounts := t.describe()
	accounts["globalState"] = globalAddr.String()
	accounts["treasuryAccount"] = treasury.String()

	kind := IxWithdrawCompleted
	if early {
		kind = IxWithdrawEarly
		pool, err := TokenAccount(global.RewardPool, t.baseMint)
		if err != nil {
			return nil, deriveErr(err)
		}
		acc.RewardPoolATA = &pool
		accounts["rewardPoolAccount"] = pool.String()
	}

	return b.finish(ctx, kind, wallet, accounts, func() (solana.Instruction, error) {
		return withdrawIx(b.addrs.ProgramID(), acc, goalIndex)
	})
}

// ClaimFaucet builds claim_faucet for mint.
func (b *Builder) ClaimFaucet(ctx context.Context, wallet, mint solana.PublicKey) (*BuiltTransaction, error) {
	cfg, _, err := b.addrs.FaucetConfig()
	if err != nil {
		return nil, deriveErr(err)
	}
	userFaucet, _, err := b.addrs.UserFaucet(wallet)
	if err != nil {
		return nil, deriveErr(err)
	}
	faucetTokens, err := b.addrs.FaucetTokenAccount(mint)
	if err != nil {
		return nil, deriveErr(err)
	}
	userTokens, err := TokenAccount(wallet, mint)
	if err != nil {
		return nil, deriveErr(err)
	}

	return b.finish(ctx, IxClaimFaucet, wallet, map[string]string{
		"faucetConfig":       cfg.String(),
		"userFaucetAccount":  userFaucet.String(),
		"mint":               mint.String(),
		"faucetTokenAccount": faucetTokens.String(),
		"userTokenAccount":   userTokens.String(),
	}, func() (solana.Instruction, error) {
		return claimFaucetIx(b.addrs.ProgramID(), claimFaucetAccounts{
			FaucetConfig:       cfg,
			UserFaucet:         userFaucet,
			Mint:               mint,
			FaucetTokenAccount: faucetTokens,
			UserTokenAccount:   userTokens,
			Owner:              wallet,
		})
	})
}
