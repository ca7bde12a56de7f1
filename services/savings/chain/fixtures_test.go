package savingschain

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/nestfund/savings_layer/internal/chain"
)

var testProgramID = solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

func newWallet(t *testing.T) solana.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return solana.PublicKeyFromBytes(pub)
}

// Account layouts need a few field kinds no instruction argument uses.

func (w *argWriter) u16(v uint16) *argWriter {
	return w.do(func() error { return w.enc.WriteUint16(v, bin.LE) })
}

func (w *argWriter) u32(v uint32) *argWriter {
	return w.do(func() error { return w.enc.WriteUint32(v, bin.LE) })
}

func (w *argWriter) boolean(v bool) *argWriter {
	return w.do(func() error { return w.enc.WriteBool(v) })
}

func (w *argWriter) pubkey(pk solana.PublicKey) *argWriter {
	return w.raw(pk[:])
}

func mustBytes(w *argWriter) []byte {
	out, err := w.bytes()
	if err != nil {
		panic(err)
	}
	return out
}

func accountPrefix(name string) *argWriter {
	return newArgWriter(accountDiscriminator(name))
}

func encodeGlobalState(s GlobalState) []byte {
	return mustBytes(accountPrefix("GlobalState").
		pubkey(s.Authority).
		pubkey(s.Treasury).
		pubkey(s.RewardPool).
		u16(s.PenaltyRateBps).
		u8(s.CurrencyCount).
		u8(s.Bump))
}

func encodeCurrencyConfig(c CurrencyConfig) []byte {
	return mustBytes(accountPrefix("CurrencyConfig").
		u8(c.CurrencyID).
		pubkey(c.BaseMint).
		pubkey(c.SavingsMint).
		u16(c.LiteAPYBps).
		u16(c.ProLowAPYBps).
		u16(c.ProMediumAPYBps).
		u16(c.ProHighAPYBps).
		u64(c.TotalDeposited).
		u64(c.TotalGoals).
		u8(c.Bump))
}

func encodeUserAccount(u UserAccount) []byte {
	return mustBytes(accountPrefix("UserAccount").
		pubkey(u.Owner).
		u8(u.TotalGoalsCreated).
		u8(u.ActiveGoals).
		u64(u.TotalDeposited).
		u64(u.TotalWithdrawn).
		i64(u.CreatedAt).
		u8(u.Bump))
}

// encodeGoalTags lets tests write raw enum tags, including invalid ones.
func encodeGoalTags(g GoalAccount, mode uint8, tier *uint8, status uint8) []byte {
	return mustBytes(accountPrefix("GoalAccount").
		pubkey(g.Owner).
		u8(g.GoalIndex).
		str(g.Name).
		u64(g.TargetAmount).
		u64(g.CurrentAmount).
		u64(g.AccruedInterest).
		u8(g.CurrencyID).
		u8(mode).
		optionU8(tier).
		i64(g.CreatedAt).
		i64(g.Deadline).
		u8(status).
		u16(g.StreakDays).
		i64(g.LastDepositDay).
		u32(g.DepositCount).
		boolean(g.FirstDepositBonusClaimed).
		u8(g.Bump))
}

func encodeGoalAccount(g GoalAccount) []byte {
	var tier *uint8
	if g.RiskTier != nil {
		t := uint8(*g.RiskTier)
		tier = &t
	}
	return encodeGoalTags(g, uint8(g.Mode), tier, uint8(g.Status))
}

func encodeFaucetConfig(f FaucetConfig) []byte {
	return mustBytes(accountPrefix("FaucetConfig").
		pubkey(f.Authority).
		u64(f.AmountPerClaim).
		u64(f.TotalClaims).
		u8(f.Bump))
}

func encodeFaucetAccount(f FaucetAccount) []byte {
	return mustBytes(accountPrefix("FaucetAccount").
		pubkey(f.User).
		i64(f.LastClaim).
		u8(f.ClaimsToday).
		u32(f.TotalClaims).
		u8(f.Bump))
}

// fakeFetcher serves accounts from memory.
type fakeFetcher struct {
	owner    string
	accounts map[string][]byte
	balances map[string]uint64
	err      error
	batches  int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		owner:    testProgramID.String(),
		accounts: map[string][]byte{},
		balances: map[string]uint64{},
	}
}

func (f *fakeFetcher) put(addr solana.PublicKey, data []byte) {
	f.accounts[addr.String()] = data
}

func (f *fakeFetcher) GetAccountInfo(_ context.Context, address string) (*chain.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.accounts[address]
	if !ok {
		return nil, nil
	}
	return &chain.AccountInfo{Owner: f.owner, Data: data, Lamports: 1}, nil
}

func (f *fakeFetcher) GetMultipleAccounts(ctx context.Context, addresses []string) ([]*chain.AccountInfo, error) {
	f.batches++
	out := make([]*chain.AccountInfo, len(addresses))
	for i, a := range addresses {
		info, err := f.GetAccountInfo(ctx, a)
		if err != nil {
			return nil, err
		}
		out[i] = info
	}
	return out, nil
}

func (f *fakeFetcher) GetBalance(_ context.Context, address string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.balances[address], nil
}

type staticBlockhash struct {
	hash string
	err  error
}

func (s staticBlockhash) GetLatestBlockhash(context.Context) (*chain.Blockhash, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &chain.Blockhash{Hash: s.hash, LastValidBlockHeight: 1234}, nil
}
