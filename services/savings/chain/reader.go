package savingschain

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/nestfund/savings_layer/internal/chain"
	"github.com/nestfund/savings_layer/internal/errors"
)

// SupportedCurrencyIDs lists the currency ids the program accepts.
var SupportedCurrencyIDs = []uint8{0, 1}

// AccountFetcher is the raw ledger access the reader needs. *chain.Client
// implements it.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, address string) (*chain.AccountInfo, error)
	GetMultipleAccounts(ctx context.Context, addresses []string) ([]*chain.AccountInfo, error)
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// StateReader fetches and decodes savings program accounts. Every getter
// returns nil, nil when the account does not exist.
type StateReader interface {
	GlobalState(ctx context.Context) (*GlobalState, error)
	CurrencyConfig(ctx context.Context, currencyID uint8) (*CurrencyConfig, error)
	Currencies(ctx context.Context) ([]*CurrencyConfig, error)
	UserAccount(ctx context.Context, wallet solana.PublicKey) (*UserAccount, error)
	GoalAccount(ctx context.Context, wallet solana.PublicKey, goalIndex uint8) (*GoalAccount, error)
	Goals(ctx context.Context, wallet solana.PublicKey, count uint8) ([]*GoalAccount, error)
	FaucetConfig(ctx context.Context) (*FaucetConfig, error)
	FaucetAccount(ctx context.Context, wallet solana.PublicKey) (*FaucetAccount, error)
	Balance(ctx context.Context, wallet solana.PublicKey) (uint64, error)
}

// Reader implements StateReader over an AccountFetcher.
type Reader struct {
	fetcher AccountFetcher
	addrs   *Addresses
}

// NewReader creates a reader for the program behind addrs.
func NewReader(fetcher AccountFetcher, addrs *Addresses) *Reader {
	return &Reader{fetcher: fetcher, addrs: addrs}
}

// fetch returns the raw data at addr, nil when absent. Accounts owned by a
// different program are treated as corrupt.
func (r *Reader) fetch(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	info, err := r.fetcher.GetAccountInfo(ctx, addr.String())
	if err != nil {
		return nil, errors.Upstream("ledger", err)
	}
	return r.accountData(addr, info)
}

func (r *Reader) accountData(addr solana.PublicKey, info *chain.AccountInfo) ([]byte, error) {
	if info == nil {
		return nil, nil
	}
	if info.Owner != r.addrs.ProgramID().String() {
		return nil, errors.Internal("account has unexpected owner", nil).
			WithDetails("address", addr.String()).
			WithDetails("owner", info.Owner)
	}
	return info.Data, nil
}

func decodeErr(what string, addr solana.PublicKey, err error) error {
	return errors.Internal("failed to decode "+what, err).WithDetails("address", addr.String())
}

func (r *Reader) GlobalState(ctx context.Context) (*GlobalState, error) {
	addr, _, err := r.addrs.GlobalState()
	if err != nil {
		return nil, errors.Internal("derive global state", err)
	}
	data, err := r.fetch(ctx, addr)
	if err != nil || data == nil {
		return nil, err
	}
	s, err := DecodeGlobalState(data)
	if err != nil {
		return nil, decodeErr("global state", addr, err)
	}
	s.Address = addr
	return s, nil
}

func (r *Reader) CurrencyConfig(ctx context.Context, currencyID uint8) (*CurrencyConfig, error) {
	addr, _, err := r.addrs.Currency(currencyID)
	if err != nil {
		return nil, errors.Internal("derive currency config", err)
	}
	data, err := r.fetch(ctx, addr)
	if err != nil || data == nil {
		return nil, err
	}
	c, err := DecodeCurrencyConfig(data)
	if err != nil {
		return nil, decodeErr("currency config", addr, err)
	}
	c.Address = addr
	return c, nil
}

// Currencies returns the configured currencies in id order, skipping ids
// that have not been initialized on-chain.
func (r *Reader) Currencies(ctx context.Context) ([]*CurrencyConfig, error) {
	addrs := make([]solana.PublicKey, len(SupportedCurrencyIDs))
	keys := make([]string, len(SupportedCurrencyIDs))
	for i, id := range SupportedCurrencyIDs {
		addr, _, err := r.addrs.Currency(id)
		if err != nil {
			return nil, errors.Internal("derive currency config", err)
		}
		addrs[i] = addr
		keys[i] = addr.String()
	}

	infos, err := r.fetcher.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, errors.Upstream("ledger", err)
	}

	out := make([]*CurrencyConfig, 0, len(infos))
	for i, info := range infos {
		data, err := r.accountData(addrs[i], info)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		c, err := DecodeCurrencyConfig(data)
		if err != nil {
			return nil, decodeErr("currency config", addrs[i], err)
		}
		c.Address = addrs[i]
		out = append(out, c)
	}
	return out, nil
}

func (r *Reader) UserAccount(ctx context.Context, wallet solana.PublicKey) (*UserAccount, error) {
	addr, _, err := r.addrs.User(wallet)
	if err != nil {
		return nil, errors.Internal("derive user account", err)
	}
	data, err := r.fetch(ctx, addr)
	if err != nil || data == nil {
		return nil, err
	}
	u, err := DecodeUserAccount(data)
	if err != nil {
		return nil, decodeErr("user account", addr, err)
	}
	u.Address = addr
	return u, nil
}

func (r *Reader) GoalAccount(ctx context.Context, wallet solana.PublicKey, goalIndex uint8) (*GoalAccount, error) {
	addr, _, err := r.addrs.Goal(wallet, goalIndex)
	if err != nil {
		return nil, errors.Internal("derive goal account", err)
	}
	data, err := r.fetch(ctx, addr)
	if err != nil || data == nil {
		return nil, err
	}
	g, err := DecodeGoalAccount(data)
	if err != nil {
		return nil, decodeErr("goal account", addr, err)
	}
	g.Address = addr
	return g, nil
}

// Goals fetches goal indexes [0, count) in one batched call and returns the
// ones that exist, in index order.
func (r *Reader) Goals(ctx context.Context, wallet solana.PublicKey, count uint8) ([]*GoalAccount, error) {
	if count == 0 {
		return []*GoalAccount{}, nil
	}

	addrs := make([]solana.PublicKey, count)
	keys := make([]string, count)
	for i := 0; i < int(count); i++ {
		addr, _, err := r.addrs.Goal(wallet, uint8(i))
		if err != nil {
			return nil, errors.Internal("derive goal account", err)
		}
		addrs[i] = addr
		keys[i] = addr.String()
	}

	infos, err := r.fetcher.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, errors.Upstream("ledger", err)
	}

	goals := make([]*GoalAccount, 0, len(infos))
	for i, info := range infos {
		data, err := r.accountData(addrs[i], info)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		g, err := DecodeGoalAccount(data)
		if err != nil {
			return nil, decodeErr("goal account", addrs[i], err)
		}
		g.Address = addrs[i]
		goals = append(goals, g)
	}
	return goals, nil
}

func (r *Reader) FaucetConfig(ctx context.Context) (*FaucetConfig, error) {
	addr, _, err := r.addrs.FaucetConfig()
	if err != nil {
		return nil, errors.Internal("derive faucet config", err)
	}
	data, err := r.fetch(ctx, addr)
	if err != nil || data == nil {
		return nil, err
	}
	f, err := DecodeFaucetConfig(data)
	if err != nil {
		return nil, decodeErr("faucet config", addr, err)
	}
	f.Address = addr
	return f, nil
}

func (r *Reader) FaucetAccount(ctx context.Context, wallet solana.PublicKey) (*FaucetAccount, error) {
	addr, _, err := r.addrs.UserFaucet(wallet)
	if err != nil {
		return nil, errors.Internal("derive faucet account", err)
	}
	data, err := r.fetch(ctx, addr)
	if err != nil || data == nil {
		return nil, err
	}
	f, err := DecodeFaucetAccount(data)
	if err != nil {
		return nil, decodeErr("faucet account", addr, err)
	}
	f.Address = addr
	return f, nil
}

// Balance returns the wallet's native balance in lamports.
func (r *Reader) Balance(ctx context.Context, wallet solana.PublicKey) (uint64, error) {
	bal, err := r.fetcher.GetBalance(ctx, wallet.String())
	if err != nil {
		return 0, errors.Upstream("ledger", err)
	}
	return bal, nil
}
