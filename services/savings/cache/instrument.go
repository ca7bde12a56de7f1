package savingscache

import (
	"context"
	"time"

	"github.com/nestfund/savings_layer/internal/logging"
	"github.com/nestfund/savings_layer/internal/metrics"
)

// instrumented decorates a Store with timing logs and metrics. The wrapped
// store is never modified.
type instrumented struct {
	next    Store
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// Instrument wraps next so every call is timed, logged at debug level (warn
// on failure) and recorded in the cache metrics.
func Instrument(next Store, logger *logging.Logger, m *metrics.Metrics) Store {
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &instrumented{next: next, logger: logger, metrics: m}
}

func (s *instrumented) observe(ctx context.Context, op, wallet string, start time.Time, err error) {
	elapsed := time.Since(start)
	s.metrics.RecordCacheOp(op, err, elapsed)

	entry := s.logger.WithContext(ctx).WithField("op", op).WithField("duration_ms", elapsed.Milliseconds())
	if wallet != "" {
		entry = entry.WithField("wallet", wallet)
	}
	if err != nil {
		entry.WithError(err).Warn("cache operation failed")
		return
	}
	entry.Debug("cache operation")
}

func (s *instrumented) UpsertUser(ctx context.Context, rec UserRecord) (err error) {
	defer func(start time.Time) { s.observe(ctx, "upsert_user", rec.WalletAddress, start, err) }(time.Now())
	return s.next.UpsertUser(ctx, rec)
}

func (s *instrumented) UpsertGoal(ctx context.Context, rec GoalRecord) (err error) {
	defer func(start time.Time) { s.observe(ctx, "upsert_goal", rec.WalletAddress, start, err) }(time.Now())
	return s.next.UpsertGoal(ctx, rec)
}

func (s *instrumented) GetUser(ctx context.Context, wallet string) (rec *UserRecord, err error) {
	defer func(start time.Time) { s.observe(ctx, "get_user", wallet, start, err) }(time.Now())
	return s.next.GetUser(ctx, wallet)
}

func (s *instrumented) ListGoals(ctx context.Context, wallet string) (goals []GoalRecord, err error) {
	defer func(start time.Time) { s.observe(ctx, "list_goals", wallet, start, err) }(time.Now())
	return s.next.ListGoals(ctx, wallet)
}

func (s *instrumented) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe(ctx, "ping", "", start, err) }(time.Now())
	return s.next.Ping(ctx)
}
