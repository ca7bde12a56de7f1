package savingschain

import (
	"github.com/gagliardetto/solana-go"
)

// Instruction names as declared by the program.
const (
	IxInitializeUser    = "initialize_user"
	IxCreateGoal        = "create_goal"
	IxDeposit           = "deposit"
	IxWithdrawCompleted = "withdraw_completed"
	IxWithdrawEarly     = "withdraw_early"
	IxClaimFaucet       = "claim_faucet"
)

func writable(pk solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(pk).WRITE()
}

func readonly(pk solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(pk)
}

func payer(pk solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(pk).WRITE().SIGNER()
}

// CreateGoalArgs are the create_goal arguments.
type CreateGoalArgs struct {
	GoalIndex    uint8
	Name         string
	TargetAmount uint64
	Mode         GoalMode
	RiskTier     *RiskTier
	CurrencyID   uint8
	Deadline     int64
}

func (a CreateGoalArgs) encode() ([]byte, error) {
	var tier *uint8
	if a.RiskTier != nil {
		t := uint8(*a.RiskTier)
		tier = &t
	}
	return newArgWriter(instructionDiscriminator(IxCreateGoal)).
		u8(a.GoalIndex).
		str(a.Name).
		u64(a.TargetAmount).
		u8(uint8(a.Mode)).
		optionU8(tier).
		u8(a.CurrencyID).
		i64(a.Deadline).
		bytes()
}

type initializeUserAccounts struct {
	User, Owner solana.PublicKey
}

func initializeUserIx(programID solana.PublicKey, acc initializeUserAccounts) (solana.Instruction, error) {
	data, err := newArgWriter(instructionDiscriminator(IxInitializeUser)).bytes()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		writable(acc.User),
		payer(acc.Owner),
		readonly(solana.SystemProgramID),
	}, data), nil
}

type createGoalAccounts struct {
	Goal, User, Currency, Owner solana.PublicKey
}

func createGoalIx(programID solana.PublicKey, acc createGoalAccounts, args CreateGoalArgs) (solana.Instruction, error) {
	data, err := args.encode()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		writable(acc.Goal),
		writable(acc.User),
		writable(acc.Currency),
		payer(acc.Owner),
		readonly(solana.SystemProgramID),
	}, data), nil
}

type depositAccounts struct {
	Goal, User, Currency        solana.PublicKey
	BaseMint, SavingsMint       solana.PublicKey
	UserBaseATA, UserSavingsATA solana.PublicKey
	Vault, Owner                solana.PublicKey
}

func depositIx(programID solana.PublicKey, acc depositAccounts, goalIndex uint8, amount uint64) (solana.Instruction, error) {
	data, err := newArgWriter(instructionDiscriminator(IxDeposit)).u8(goalIndex).u64(amount).bytes()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		writable(acc.Goal),
		writable(acc.User),
		writable(acc.Currency),
		readonly(acc.BaseMint),
		writable(acc.SavingsMint),
		writable(acc.UserBaseATA),
		writable(acc.UserSavingsATA),
		writable(acc.Vault),
		payer(acc.Owner),
		readonly(solana.TokenProgramID),
		readonly(solana.SPLAssociatedTokenAccountProgramID),
		readonly(solana.SystemProgramID),
	}, data), nil
}

type withdrawAccounts struct {
	Goal, User, Currency, GlobalState solana.PublicKey
	BaseMint, SavingsMint             solana.PublicKey
	UserBaseATA, UserSavingsATA       solana.PublicKey
	Vault, TreasuryATA                solana.PublicKey
	RewardPoolATA                     *solana.PublicKey
	Owner                             solana.PublicKey
}

// withdrawIx builds withdraw_completed, or withdraw_early when the reward
// pool account is supplied.
func withdrawIx(programID solana.PublicKey, acc withdrawAccounts, goalIndex uint8) (solana.Instruction, error) {
	name := IxWithdrawCompleted
	metas := solana.AccountMetaSlice{
		writable(acc.Goal),
		writable(acc.User),
		writable(acc.Currency),
		readonly(acc.GlobalState),
		readonly(acc.BaseMint),
		writable(acc.SavingsMint),
		writable(acc.UserBaseATA),
		writable(acc.UserSavingsATA),
		writable(acc.Vault),
		writable(acc.TreasuryATA),
	}
	if acc.RewardPoolATA != nil {
		name = IxWithdrawEarly
		metas = append(metas, writable(*acc.RewardPoolATA))
	}
	metas = append(metas,
		payer(acc.Owner),
		readonly(solana.TokenProgramID),
	)

	data, err := newArgWriter(instructionDiscriminator(name)).u8(goalIndex).bytes()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, metas, data), nil
}

type claimFaucetAccounts struct {
	FaucetConfig, UserFaucet, Mint       solana.PublicKey
	FaucetTokenAccount, UserTokenAccount solana.PublicKey
	Owner                                solana.PublicKey
}

func claimFaucetIx(programID solana.PublicKey, acc claimFaucetAccounts) (solana.Instruction, error) {
	data, err := newArgWriter(instructionDiscriminator(IxClaimFaucet)).bytes()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		writable(acc.FaucetConfig),
		writable(acc.UserFaucet),
		readonly(acc.Mint),
		writable(acc.FaucetTokenAccount),
		writable(acc.UserTokenAccount),
		payer(acc.Owner),
		readonly(solana.TokenProgramID),
		readonly(solana.SPLAssociatedTokenAccountProgramID),
		readonly(solana.SystemProgramID),
	}, data), nil
}
