// Package savingschain maps the savings program's accounts and instructions
// onto solana-go primitives and the JSON-RPC transport in internal/chain.
package savingschain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed namespaces used by the savings program.
const (
	SeedGlobalState  = "global_state"
	SeedUser         = "user"
	SeedGoal         = "goal"
	SeedCurrency     = "currency"
	SeedSavingsMint  = "savings_mint"
	SeedFaucetConfig = "faucet_config"
	SeedUserFaucet   = "user_faucet"
)

// Addresses derives every program-owned address for one program id.
type Addresses struct {
	programID solana.PublicKey
}

// NewAddresses returns the derivation catalogue for programID.
func NewAddresses(programID solana.PublicKey) *Addresses {
	return &Addresses{programID: programID}
}

// ProgramID returns the savings program id.
func (a *Addresses) ProgramID() solana.PublicKey {
	return a.programID
}

func (a *Addresses) derive(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, a.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive %s address: %w", seeds[0], err)
	}
	return addr, bump, nil
}

func (a *Addresses) GlobalState() (solana.PublicKey, uint8, error) {
	return a.derive([]byte(SeedGlobalState))
}

func (a *Addresses) User(wallet solana.PublicKey) (solana.PublicKey, uint8, error) {
	return a.derive([]byte(SeedUser), wallet.Bytes())
}

// Goal derives the goal account at goalIndex in the wallet's creation sequence.
func (a *Addresses) Goal(wallet solana.PublicKey, goalIndex uint8) (solana.PublicKey, uint8, error) {
	return a.derive([]byte(SeedGoal), wallet.Bytes(), []byte{goalIndex})
}

func (a *Addresses) Currency(currencyID uint8) (solana.PublicKey, uint8, error) {
	return a.derive([]byte(SeedCurrency), []byte{currencyID})
}

func (a *Addresses) SavingsMint(currencyID uint8) (solana.PublicKey, uint8, error) {
	return a.derive([]byte(SeedSavingsMint), []byte{currencyID})
}

func (a *Addresses) FaucetConfig() (solana.PublicKey, uint8, error) {
	return a.derive([]byte(SeedFaucetConfig))
}

func (a *Addresses) UserFaucet(wallet solana.PublicKey) (solana.PublicKey, uint8, error) {
	return a.derive([]byte(SeedUserFaucet), wallet.Bytes())
}

// Vault returns the currency's base-token holding account: the associated
// token account of the (off-curve) currency config address.
func (a *Addresses) Vault(currencyID uint8, baseMint solana.PublicKey) (solana.PublicKey, error) {
	currency, _, err := a.Currency(currencyID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return TokenAccount(currency, baseMint)
}

// FaucetTokenAccount returns the faucet's holding account for mint.
func (a *Addresses) FaucetTokenAccount(mint solana.PublicKey) (solana.PublicKey, error) {
	cfg, _, err := a.FaucetConfig()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return TokenAccount(cfg, mint)
}

// TokenAccount returns owner's associated token account for mint.
func TokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account: %w", err)
	}
	return ata, nil
}
