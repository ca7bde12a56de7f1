package savingscache

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gagliardetto/solana-go"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/nestfund/savings_layer/internal/logging"
	"github.com/nestfund/savings_layer/internal/metrics"
	savingschain "github.com/nestfund/savings_layer/services/savings/chain"
)

const (
	testWallet = "11111111111111111111111111111112"
	testGoal   = "SysvarRent111111111111111111111111111111111"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func sampleGoal() GoalRecord {
	return GoalRecord{
		GoalAddress:     testGoal,
		WalletAddress:   testWallet,
		GoalIndex:       2,
		Name:            "laptop",
		TargetAmount:    decimal.NewFromInt(50_000),
		CurrentAmount:   decimal.NewFromInt(1_000),
		AccruedInterest: decimal.Zero,
		CurrencyID:      1,
		Mode:            "pro",
		RiskTier:        sql.NullString{String: "medium", Valid: true},
		Status:          "active",
		Deadline:        1_900_000_000,
		ChainCreatedAt:  1_700_000_000,
		StreakDays:      3,
		DepositCount:    4,
	}
}

// =============================================================================
// PostgresStore
// =============================================================================

func TestPostgresUpsertUserCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO savings_users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpsertUser(context.Background(), UserRecord{
		WalletAddress:  testWallet,
		UserAddress:    testGoal,
		TotalDeposited: decimal.NewFromInt(10),
		TotalWithdrawn: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	expectationsMet(t, mock)
}

func TestPostgresUpsertFailures(t *testing.T) {
	tests := []struct {
		name    string
		expect  func(sqlmock.Sqlmock)
		wantErr string
	}{
		{
			name: "exec failure rolls back",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO savings_goals").WillReturnError(errors.New("constraint violated"))
				mock.ExpectRollback()
			},
			wantErr: "constraint violated",
		},
		{
			name: "begin failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
			},
			wantErr: "begin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.expect(mock)

			err := store.UpsertGoal(context.Background(), sampleGoal())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("UpsertGoal() error = %v, want it to mention %q", err, tt.wantErr)
			}
			expectationsMet(t, mock)
		})
	}
}

func TestPostgresUpsertGoalIsRepeatable(t *testing.T) {
	store, mock := newMockStore(t)

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("ON CONFLICT \\(goal_address\\) DO UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	rec := sampleGoal()
	for i := 0; i < 2; i++ {
		if err := store.UpsertGoal(context.Background(), rec); err != nil {
			t.Fatalf("UpsertGoal #%d: %v", i+1, err)
		}
	}
	expectationsMet(t, mock)
}

func TestPostgresGetUser(t *testing.T) {
	store, mock := newMockStore(t)
	cols := []string{
		"wallet_address", "user_address", "total_goals_created", "active_goals",
		"total_deposited", "total_withdrawn", "chain_created_at", "updated_at",
	}
	now := time.Now().UTC()

	mock.ExpectQuery("FROM savings_users").
		WithArgs(testWallet).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(testWallet, testGoal, 3, 2, "1500", "0", int64(1_700_000_000), now))

	rec, err := store.GetUser(context.Background(), testWallet)
	if err != nil || rec == nil {
		t.Fatalf("GetUser() = %v, %v", rec, err)
	}
	if rec.TotalGoalsCreated != 3 {
		t.Errorf("TotalGoalsCreated = %d, want 3", rec.TotalGoalsCreated)
	}
	if !rec.TotalDeposited.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("TotalDeposited = %s, want 1500", rec.TotalDeposited)
	}

	mock.ExpectQuery("FROM savings_users").
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows(cols))

	rec, err = store.GetUser(context.Background(), "unknown")
	if err != nil || rec != nil {
		t.Errorf("GetUser(unknown) = %v, %v; want nil, nil", rec, err)
	}
	expectationsMet(t, mock)
}

func TestPostgresListGoals(t *testing.T) {
	store, mock := newMockStore(t)
	cols := []string{
		"goal_address", "wallet_address", "goal_index", "name", "target_amount",
		"current_amount", "accrued_interest", "currency_id", "mode", "risk_tier", "status",
		"deadline", "chain_created_at", "streak_days", "deposit_count", "updated_at",
	}
	now := time.Now().UTC()

	mock.ExpectQuery("FROM savings_goals").
		WithArgs(testWallet).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(testGoal, testWallet, 0, "bike", "900", "100", "0", 0, "lite", nil, "active", int64(1_900_000_000), int64(1_700_000_000), 0, 1, now).
			AddRow(testWallet, testWallet, 1, "car", "5000", "5000", "12", 1, "pro", "high", "completed", int64(1_900_000_000), int64(1_700_000_000), 5, 9, now))

	goals, err := store.ListGoals(context.Background(), testWallet)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("len(goals) = %d, want 2", len(goals))
	}
	if goals[0].RiskTier.Valid {
		t.Errorf("goals[0].RiskTier = %q, want NULL", goals[0].RiskTier.String)
	}
	if goals[1].RiskTier.String != "high" {
		t.Errorf("goals[1].RiskTier = %q, want high", goals[1].RiskTier.String)
	}

	acct, err := goals[1].GoalAccount()
	if err != nil {
		t.Fatalf("GoalAccount: %v", err)
	}
	if acct.Mode != savingschain.GoalModePro {
		t.Errorf("Mode = %s, want pro", acct.Mode)
	}
	if acct.RiskTier == nil || *acct.RiskTier != savingschain.RiskTierHigh {
		t.Errorf("RiskTier = %v, want high", acct.RiskTier)
	}
	if acct.AccruedInterest != 12 {
		t.Errorf("AccruedInterest = %d, want 12", acct.AccruedInterest)
	}
	expectationsMet(t, mock)
}

func TestPostgresListGoalsQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM savings_goals").WillReturnError(errors.New("connection reset"))

	if _, err := store.ListGoals(context.Background(), testWallet); err == nil {
		t.Error("ListGoals succeeded on a query error")
	}
}

// =============================================================================
// Record conversion
// =============================================================================

func TestGoalRecordRoundTripsAccount(t *testing.T) {
	tier := savingschain.RiskTierMedium
	goal := &savingschain.GoalAccount{
		Address:         solana.MustPublicKeyFromBase58(testGoal),
		Owner:           solana.MustPublicKeyFromBase58(testWallet),
		GoalIndex:       4,
		Name:            "house",
		TargetAmount:    1 << 63,
		CurrentAmount:   77,
		AccruedInterest: 3,
		CurrencyID:      1,
		Mode:            savingschain.GoalModePro,
		RiskTier:        &tier,
		Status:          savingschain.GoalStatusActive,
		Deadline:        1_900_000_000,
		CreatedAt:       1_700_000_000,
		StreakDays:      6,
		DepositCount:    8,
	}

	back, err := GoalRecordFrom(goal).GoalAccount()
	if err != nil {
		t.Fatalf("GoalAccount: %v", err)
	}
	if back.Address != goal.Address || back.Owner != goal.Owner {
		t.Errorf("addresses = %s/%s, want %s/%s", back.Address, back.Owner, goal.Address, goal.Owner)
	}
	if back.TargetAmount != goal.TargetAmount || back.DepositCount != goal.DepositCount {
		t.Errorf("target=%d deposits=%d, want %d and %d", back.TargetAmount, back.DepositCount, goal.TargetAmount, goal.DepositCount)
	}
	if back.Mode != goal.Mode || back.RiskTier == nil || *back.RiskTier != tier {
		t.Errorf("mode=%s tier=%v, want %s %s", back.Mode, back.RiskTier, goal.Mode, tier)
	}
}

func TestGoalRecordRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GoalRecord)
	}{
		{"unknown mode", func(r *GoalRecord) { r.Mode = "turbo" }},
		{"negative amount", func(r *GoalRecord) { r.CurrentAmount = decimal.NewFromInt(-1) }},
		{"fractional amount", func(r *GoalRecord) { r.TargetAmount = decimal.RequireFromString("1.5") }},
		{"bad address", func(r *GoalRecord) { r.GoalAddress = "not-base58!" }},
	}
	for _, tt := range tests {
		rec := sampleGoal()
		tt.mutate(&rec)
		if _, err := rec.GoalAccount(); err == nil {
			t.Errorf("%s: GoalAccount succeeded", tt.name)
		}
	}
}

// =============================================================================
// MemoryStore and instrumentation
// =============================================================================

func TestMemoryStoreUpsertIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := sampleGoal()
	if err := store.UpsertGoal(ctx, rec); err != nil {
		t.Fatalf("UpsertGoal: %v", err)
	}

	rec.CurrentAmount = decimal.NewFromInt(2_000)
	rec.Mode = "lite"
	if err := store.UpsertGoal(ctx, rec); err != nil {
		t.Fatalf("UpsertGoal: %v", err)
	}

	goals, err := store.ListGoals(ctx, testWallet)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("len(goals) = %d, want 1", len(goals))
	}
	if !goals[0].CurrentAmount.Equal(decimal.NewFromInt(2_000)) {
		t.Errorf("CurrentAmount = %s, want 2000", goals[0].CurrentAmount)
	}
	if goals[0].Mode != "pro" {
		t.Errorf("Mode = %q, want pro; mode is fixed at creation", goals[0].Mode)
	}

	user, err := store.GetUser(ctx, testWallet)
	if err != nil || user != nil {
		t.Errorf("GetUser() = %v, %v; want nil, nil", user, err)
	}
}

func TestMemoryStoreListOrdersByIndex(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, idx := range []int{3, 0, 1} {
		rec := sampleGoal()
		rec.GoalIndex = idx
		rec.GoalAddress = testGoal + string(rune('a'+idx))
		if err := store.UpsertGoal(ctx, rec); err != nil {
			t.Fatalf("UpsertGoal(%d): %v", idx, err)
		}
	}

	goals, err := store.ListGoals(ctx, testWallet)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	var got []int
	for _, g := range goals {
		got = append(got, g.GoalIndex)
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 3 {
		t.Errorf("indexes = %v, want [0 1 3]", got)
	}
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Ping(context.Context) error { return errors.New("down") }

func TestInstrumentRecordsOperations(t *testing.T) {
	m := metrics.New("savings")
	inner := NewMemoryStore()
	store := Instrument(inner, logging.NewDiscard(), m)

	if err := store.UpsertUser(context.Background(), UserRecord{WalletAddress: testWallet}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	got, err := store.GetUser(context.Background(), testWallet)
	if err != nil || got == nil {
		t.Fatalf("GetUser() = %v, %v", got, err)
	}

	broken := Instrument(&failingStore{MemoryStore: NewMemoryStore()}, nil, m)
	if err := broken.Ping(context.Background()); err == nil {
		t.Error("Ping succeeded on a failing store")
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	series := -1
	for _, f := range families {
		if f.GetName() == "savings_cache_operations_total" {
			series = len(f.GetMetric())
		}
	}
	if series < 3 {
		t.Errorf("savings_cache_operations_total series = %d, want at least 3", series)
	}
}
