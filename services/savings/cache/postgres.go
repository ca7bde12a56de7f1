package savingscache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open handle. The handle's pool is shared by
// every request and is not closed by the store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects to databaseURL and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}

const upsertUserSQL = `
	INSERT INTO savings_users (
		wallet_address, user_address, total_goals_created, active_goals,
		total_deposited, total_withdrawn, chain_created_at, updated_at
	) VALUES (
		:wallet_address, :user_address, :total_goals_created, :active_goals,
		:total_deposited, :total_withdrawn, :chain_created_at, NOW()
	)
	ON CONFLICT (wallet_address) DO UPDATE SET
		user_address = EXCLUDED.user_address,
		total_goals_created = EXCLUDED.total_goals_created,
		active_goals = EXCLUDED.active_goals,
		total_deposited = EXCLUDED.total_deposited,
		total_withdrawn = EXCLUDED.total_withdrawn,
		chain_created_at = EXCLUDED.chain_created_at,
		updated_at = NOW()
`

const upsertGoalSQL = `
	INSERT INTO savings_goals (
		goal_address, wallet_address, goal_index, name, target_amount,
		current_amount, accrued_interest, currency_id, mode, risk_tier, status,
		deadline, chain_created_at, streak_days, deposit_count, updated_at
	) VALUES (
		:goal_address, :wallet_address, :goal_index, :name, :target_amount,
		:current_amount, :accrued_interest, :currency_id, :mode, :risk_tier, :status,
		:deadline, :chain_created_at, :streak_days, :deposit_count, NOW()
	)
	ON CONFLICT (goal_address) DO UPDATE SET
		name = EXCLUDED.name,
		target_amount = EXCLUDED.target_amount,
		current_amount = EXCLUDED.current_amount,
		accrued_interest = EXCLUDED.accrued_interest,
		status = EXCLUDED.status,
		deadline = EXCLUDED.deadline,
		streak_days = EXCLUDED.streak_days,
		deposit_count = EXCLUDED.deposit_count,
		updated_at = NOW()
`

// UpsertUser writes rec in its own transaction.
func (s *PostgresStore) UpsertUser(ctx context.Context, rec UserRecord) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, upsertUserSQL, rec)
		return err
	})
}

// UpsertGoal writes rec in its own transaction. Immutable columns (owner,
// index, currency, mode, tier) keep their first-seen values.
func (s *PostgresStore) UpsertGoal(ctx context.Context, rec GoalRecord) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, upsertGoalSQL, rec)
		return err
	})
}

func (s *PostgresStore) GetUser(ctx context.Context, wallet string) (*UserRecord, error) {
	var rec UserRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT wallet_address, user_address, total_goals_created, active_goals,
			total_deposited, total_withdrawn, chain_created_at, updated_at
		FROM savings_users
		WHERE wallet_address = $1
	`, wallet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) ListGoals(ctx context.Context, wallet string) ([]GoalRecord, error) {
	goals := []GoalRecord{}
	err := s.db.SelectContext(ctx, &goals, `
		SELECT goal_address, wallet_address, goal_index, name, target_amount,
			current_amount, accrued_interest, currency_id, mode, risk_tier, status,
			deadline, chain_created_at, streak_days, deposit_count, updated_at
		FROM savings_goals
		WHERE wallet_address = $1
		ORDER BY goal_index
	`, wallet)
	if err != nil {
		return nil, err
	}
	return goals, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn in a transaction, rolling back on any error. The connection
// returns to the pool on every path.
func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
