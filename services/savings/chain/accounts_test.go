package savingschain

import (
	"encoding/hex"
	"errors"
	"reflect"
	"testing"
)

// =============================================================================
// Enum Tests
// =============================================================================

func TestParseEnums(t *testing.T) {
	if mode, err := ParseGoalMode("PRO"); err != nil || mode != GoalModePro {
		t.Errorf("ParseGoalMode(PRO) = %v, %v", mode, err)
	}
	if _, err := ParseGoalMode("turbo"); err == nil {
		t.Error("ParseGoalMode(turbo) succeeded")
	}
	if tier, err := ParseRiskTier("medium"); err != nil || tier != RiskTierMedium {
		t.Errorf("ParseRiskTier(medium) = %v, %v", tier, err)
	}
	if _, err := ParseRiskTier("extreme"); err == nil {
		t.Error("ParseRiskTier(extreme) succeeded")
	}
	if status, err := ParseGoalStatus("withdrawn"); err != nil || status != GoalStatusWithdrawn {
		t.Errorf("ParseGoalStatus(withdrawn) = %v, %v", status, err)
	}
	if text, err := GoalStatusCompleted.MarshalText(); err != nil || string(text) != "completed" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
	if _, err := GoalStatus(9).MarshalText(); err == nil {
		t.Error("GoalStatus(9).MarshalText() succeeded")
	}
}

func TestCurrencyAPYBps(t *testing.T) {
	c := &CurrencyConfig{LiteAPYBps: 400, ProLowAPYBps: 600, ProMediumAPYBps: 900, ProHighAPYBps: 1500}
	med := RiskTierMedium
	high := RiskTierHigh

	tests := []struct {
		mode GoalMode
		tier *RiskTier
		want uint16
	}{
		{GoalModeLite, nil, 400},
		{GoalModePro, nil, 600},
		{GoalModePro, &med, 900},
		{GoalModePro, &high, 1500},
	}
	for _, tt := range tests {
		if got := c.APYBps(tt.mode, tt.tier); got != tt.want {
			t.Errorf("APYBps(%s, %v) = %d, want %d", tt.mode, tt.tier, got, tt.want)
		}
	}
}

// =============================================================================
// Decoder Tests
// =============================================================================

func TestDiscriminators(t *testing.T) {
	tests := []struct {
		got  []byte
		want string
	}{
		{instructionDiscriminator("initialize").Bytes(), "afaf6d1f0d989bed"},
		{instructionDiscriminator(IxDeposit).Bytes(), "f223c68952e1f2b6"},
		{accountDiscriminator("GoalAccount").Bytes(), "a7cc3cc4d2f689ce"},
	}
	for _, tt := range tests {
		if got := hex.EncodeToString(tt.got); got != tt.want {
			t.Errorf("discriminator = %s, want %s", got, tt.want)
		}
	}
}

func TestDecodeGoalAccount(t *testing.T) {
	owner := newWallet(t)
	tier := RiskTierHigh
	want := GoalAccount{
		Owner:                    owner,
		GoalIndex:                3,
		Name:                     "Emergency fund",
		TargetAmount:             5_000_000_000,
		CurrentAmount:            1_250_000_000,
		AccruedInterest:          3_400_000,
		CurrencyID:               1,
		Mode:                     GoalModePro,
		RiskTier:                 &tier,
		CreatedAt:                1_700_000_000,
		Deadline:                 1_800_000_000,
		Status:                   GoalStatusActive,
		StreakDays:               12,
		LastDepositDay:           19_700,
		DepositCount:             31,
		FirstDepositBonusClaimed: true,
		Bump:                     254,
	}

	got, err := DecodeGoalAccount(encodeGoalAccount(want))
	if err != nil {
		t.Fatalf("DecodeGoalAccount: %v", err)
	}
	if !reflect.DeepEqual(got, &want) {
		t.Errorf("DecodeGoalAccount() = %+v, want %+v", got, want)
	}
}

func TestDecodeGoalAccountRejectsBadTags(t *testing.T) {
	base := GoalAccount{Owner: newWallet(t), Name: "x"}
	tier := uint8(1)
	badTier := uint8(7)

	tests := []struct {
		name   string
		mode   uint8
		tier   *uint8
		status uint8
	}{
		{"unknown mode", 2, nil, 0},
		{"unknown status", 0, nil, 3},
		{"unknown risk tier", 1, &badTier, 0},
		{"lite with tier", 0, &tier, 0},
		{"pro without tier", 1, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeGoalAccount(encodeGoalTags(base, tt.mode, tt.tier, tt.status)); err == nil {
				t.Error("DecodeGoalAccount succeeded")
			}
		})
	}
}

func TestDecodeGoalAccountRejectsBadEncoding(t *testing.T) {
	good := encodeGoalAccount(GoalAccount{Owner: newWallet(t), Name: "x"})
	// discriminator(8) + owner(32) + index(1) + name(4+1) + amounts(24) + currency(1) + mode(1)
	optionTag := 8 + 32 + 1 + 5 + 24 + 1 + 1
	boolByte := len(good) - 2

	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{"option tag", func(b []byte) { b[optionTag] = 2 }},
		{"bool byte", func(b []byte) { b[boolByte] = 7 }},
		{"invalid utf-8 name", func(b []byte) { b[8+32+1+4] = 0xff }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), good...)
			tt.mutate(data)
			if _, err := DecodeGoalAccount(data); err == nil {
				t.Error("DecodeGoalAccount succeeded")
			}
		})
	}
}

func TestDecodeRecords(t *testing.T) {
	gs := GlobalState{Authority: newWallet(t), Treasury: newWallet(t), RewardPool: newWallet(t), PenaltyRateBps: 200, CurrencyCount: 2, Bump: 255}
	if got, err := DecodeGlobalState(encodeGlobalState(gs)); err != nil || !reflect.DeepEqual(got, &gs) {
		t.Errorf("DecodeGlobalState() = %+v, %v", got, err)
	}

	cc := CurrencyConfig{CurrencyID: 1, BaseMint: newWallet(t), SavingsMint: newWallet(t), LiteAPYBps: 400, ProLowAPYBps: 600, ProMediumAPYBps: 900, ProHighAPYBps: 1500, TotalDeposited: 1 << 50, TotalGoals: 17, Bump: 250}
	if got, err := DecodeCurrencyConfig(encodeCurrencyConfig(cc)); err != nil || !reflect.DeepEqual(got, &cc) {
		t.Errorf("DecodeCurrencyConfig() = %+v, %v", got, err)
	}

	ua := UserAccount{Owner: newWallet(t), TotalGoalsCreated: 4, ActiveGoals: 2, TotalDeposited: 9_000, TotalWithdrawn: 1_000, CreatedAt: 1_700_000_000, Bump: 253}
	if got, err := DecodeUserAccount(encodeUserAccount(ua)); err != nil || !reflect.DeepEqual(got, &ua) {
		t.Errorf("DecodeUserAccount() = %+v, %v", got, err)
	}

	fc := FaucetConfig{Authority: newWallet(t), AmountPerClaim: 1_000_000_000, TotalClaims: 99, Bump: 252}
	if got, err := DecodeFaucetConfig(encodeFaucetConfig(fc)); err != nil || !reflect.DeepEqual(got, &fc) {
		t.Errorf("DecodeFaucetConfig() = %+v, %v", got, err)
	}

	fa := FaucetAccount{User: newWallet(t), LastClaim: 1_700_000_000, ClaimsToday: 3, TotalClaims: 40, Bump: 251}
	if got, err := DecodeFaucetAccount(encodeFaucetAccount(fa)); err != nil || !reflect.DeepEqual(got, &fa) {
		t.Errorf("DecodeFaucetAccount() = %+v, %v", got, err)
	}
}

func TestDecodeWrongDiscriminator(t *testing.T) {
	data := encodeUserAccount(UserAccount{Owner: newWallet(t)})
	if _, err := DecodeGoalAccount(data); err == nil {
		t.Error("DecodeGoalAccount(user account) succeeded")
	}

	_, err := DecodeUserAccount(data[:20])
	if !errors.Is(err, errShortAccount) {
		t.Errorf("DecodeUserAccount(truncated) error = %v, want %v", err, errShortAccount)
	}
	_, err = DecodeUserAccount(data[:4])
	if !errors.Is(err, errShortAccount) {
		t.Errorf("DecodeUserAccount(4 bytes) error = %v, want %v", err, errShortAccount)
	}
}
