// Package service implements the treasury ledger engine: pooled capital
// moving between an available pool and invested positions, yield accrual,
// and grant disbursement under a minimum-liquidity invariant.
//
// Every mutating operation is a single atomic read-modify-write over the
// treasury aggregate. Authorization and argument checks run before any
// write, and the balance invariant Total == Invested + Available is
// re-checked before commit, so a failed call leaves no trace.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"verigrant/internal/platform/clock"
	"verigrant/internal/treasury/metrics"
	"verigrant/internal/treasury/models"
	"verigrant/internal/treasury/ports"
	"verigrant/internal/treasury/yield"
	id "verigrant/pkg/domain"
	dErrors "verigrant/pkg/domain-errors"
	"verigrant/pkg/platform/audit"
	"verigrant/pkg/requestcontext"
)

type Service struct {
	store   ports.Store
	authz   ports.Authorizer
	clock   ports.Clock
	logger  *slog.Logger
	audit   ports.AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithClock(c ports.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store ports.Store, authz ports.Authorizer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("treasury store is required")
	}
	if authz == nil {
		return nil, fmt.Errorf("authorizer is required")
	}

	svc := &Service{
		store:  store,
		authz:  authz,
		tracer: otel.Tracer("verigrant/treasury"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.clock == nil {
		svc.clock = clock.NewLedger()
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// codeFor maps the treasury error taxonomy onto transport-facing codes.
func codeFor(err error) dErrors.Code {
	switch {
	case errors.Is(err, models.ErrAlreadyInitialized),
		errors.Is(err, models.ErrNotInitialized):
		return dErrors.CodeConflict
	case errors.Is(err, models.ErrUnauthorized):
		return dErrors.CodeForbidden
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidIndex),
		errors.Is(err, models.ErrInvalidAllocationID):
		return dErrors.CodeInvalidInput
	case errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrLiquidityBreach),
		errors.Is(err, models.ErrLiquidityUnavailable),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrExceedsPrincipal):
		return dErrors.CodeUnprocessable
	default:
		return dErrors.CodeInternal
	}
}

func wrapDomain(err error, msg string) error {
	return dErrors.Wrap(err, codeFor(err), msg)
}

// checkInvariant guards the ledger identity before any commit. A violation
// here is an engine bug, never a caller error, and it aborts the whole
// transaction.
func checkInvariant(state *models.State) error {
	if !state.Balances.Consistent() {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("balance invariant broken: total=%d invested=%d available=%d",
				state.Balances.Total, state.Balances.Invested, state.Balances.Available))
	}
	for i, pos := range state.Positions {
		if pos.Principal <= 0 {
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("position %d has non-positive principal %d", i, pos.Principal))
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Action = string(action)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveOp(op, time.Since(start))
}

// requireAuth runs the caller-identity oracle. It is the first thing every
// mutating operation does.
func (s *Service) requireAuth(ctx context.Context, caller id.AccountID) error {
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if err := s.authz.Verify(ctx, caller); err != nil {
		s.emit(ctx, audit.EventMutationRejected, audit.Event{Actor: caller, Reason: "identity verification failed"})
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "caller identity verification failed")
	}
	return nil
}

// Initialize sets the singleton treasury configuration. It fails with
// AlreadyInitialized on any second call; no partial reinitialization exists.
func (s *Service) Initialize(ctx context.Context, caller id.AccountID, cfg *models.TreasuryConfig) error {
	ctx, span := s.tracer.Start(ctx, "treasury.Initialize")
	defer span.End()
	defer s.observe("initialize", s.clock.Now())

	if err := s.requireAuth(ctx, caller); err != nil {
		return err
	}
	if cfg == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "treasury config is required")
	}

	err := s.store.Update(ctx, func(state *models.State) error {
		if state.Initialized() {
			return models.ErrAlreadyInitialized
		}
		state.Config = cfg
		state.Balances = models.Balances{}
		return checkInvariant(state)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, models.ErrAlreadyInitialized) {
			return wrapDomain(err, "treasury can only be initialized once")
		}
		return err
	}

	s.logger.InfoContext(ctx, "treasury initialized",
		"admin", cfg.Admin,
		"pool", cfg.Pool,
		"min_liquidity_ratio_bps", cfg.MinLiquidityRatioBps,
	)
	s.emit(ctx, audit.EventTreasuryInitialized, audit.Event{Actor: caller, Pool: cfg.Pool})
	return nil
}

// Deposit credits funds to the treasury and may trigger auto-investment of
// half the available balance once the configured threshold is reached. The
// auto-invest leg degrades to a no-op instead of failing the deposit.
func (s *Service) Deposit(ctx context.Context, depositor id.AccountID, amount int64) error {
	ctx, span := s.tracer.Start(ctx, "treasury.Deposit")
	defer span.End()
	defer s.observe("deposit", s.clock.Now())

	if err := s.requireAuth(ctx, depositor); err != nil {
		return err
	}

	now := s.clock.Now()
	var autoInvested int64
	var autoSkip string

	err := s.store.Update(ctx, func(state *models.State) error {
		if !state.Initialized() {
			return models.ErrNotInitialized
		}
		if amount <= 0 {
			return models.ErrInvalidAmount
		}
		if state.Balances.Total > math.MaxInt64-amount {
			return dErrors.New(dErrors.CodeUnprocessable, "deposit would overflow treasury balance")
		}

		state.Balances.Total += amount
		state.Balances.Available += amount

		autoInvested, autoSkip = 0, ""
		if state.Balances.Available >= state.Config.AutoInvestThreshold {
			half := state.Balances.Available / 2
			if investErr := applyInvest(state, half, now); investErr != nil {
				// Deposits never fail because of the auto-invest side effect.
				autoSkip = investErr.Error()
			} else {
				autoInvested = half
			}
		}
		return checkInvariant(state)
	})
	if err != nil {
		span.RecordError(err)
		return wrapDomain(err, "deposit failed")
	}

	if s.metrics != nil {
		s.metrics.Deposits.Inc()
		s.metrics.DepositedUnits.Add(float64(amount))
		if autoInvested > 0 {
			s.metrics.Investments.Inc()
		}
	}
	s.emit(ctx, audit.EventDepositReceived, audit.Event{Actor: depositor, Amount: amount})
	switch {
	case autoInvested > 0:
		s.logger.InfoContext(ctx, "auto-invested idle funds", "amount", autoInvested)
		s.emit(ctx, audit.EventFundsInvested, audit.Event{Actor: depositor, Amount: autoInvested, Reason: "auto_invest"})
	case autoSkip != "":
		s.logger.DebugContext(ctx, "auto-invest skipped", "reason", autoSkip)
		s.emit(ctx, audit.EventAutoInvestSkipped, audit.Event{Actor: depositor, Reason: autoSkip})
	}
	return nil
}

// Invest moves funds from the available pool into a new position. Admin
// only; the post-investment available balance must stay at or above the
// configured minimum liquidity.
func (s *Service) Invest(ctx context.Context, caller id.AccountID, amount int64) error {
	ctx, span := s.tracer.Start(ctx, "treasury.Invest")
	defer span.End()
	defer s.observe("invest", s.clock.Now())

	if err := s.requireAuth(ctx, caller); err != nil {
		return err
	}

	now := s.clock.Now()
	var pool id.PoolID
	err := s.store.Update(ctx, func(state *models.State) error {
		if !state.Initialized() {
			return models.ErrNotInitialized
		}
		if caller != state.Config.Admin {
			return models.ErrUnauthorized
		}
		if err := applyInvest(state, amount, now); err != nil {
			return err
		}
		pool = state.Config.Pool
		return checkInvariant(state)
	})
	if err != nil {
		span.RecordError(err)
		return wrapDomain(err, "invest failed")
	}

	if s.metrics != nil {
		s.metrics.Investments.Inc()
	}
	s.logger.InfoContext(ctx, "invested idle funds", "amount", amount, "pool", pool)
	s.emit(ctx, audit.EventFundsInvested, audit.Event{Actor: caller, Amount: amount, Pool: pool})
	return nil
}

// Divest shrinks or closes a position, settling its yield first. Principal
// and settled yield move back to the available pool; realized yield also
// grows Total so the ledger identity keeps holding.
func (s *Service) Divest(ctx context.Context, caller id.AccountID, amount int64, index id.PositionIndex) error {
	ctx, span := s.tracer.Start(ctx, "treasury.Divest")
	defer span.End()
	defer s.observe("divest", s.clock.Now())

	if err := s.requireAuth(ctx, caller); err != nil {
		return err
	}

	now := s.clock.Now()
	var settled int64
	err := s.store.Update(ctx, func(state *models.State) error {
		if !state.Initialized() {
			return models.ErrNotInitialized
		}
		if caller != state.Config.Admin {
			return models.ErrUnauthorized
		}
		if amount <= 0 {
			return models.ErrInvalidAmount
		}
		if index < 0 || int(index) >= len(state.Positions) {
			return models.ErrInvalidIndex
		}
		pos := &state.Positions[index]
		if amount > pos.Principal {
			return models.ErrExceedsPrincipal
		}

		settled = yield.Settle(*pos, now)
		pos.AccumulatedYield += settled
		pos.LastYieldSettledAt = now
		pos.Principal -= amount
		if pos.Principal == 0 {
			// Index of subsequent positions shifts; callers re-fetch.
			state.Positions = append(state.Positions[:index], state.Positions[index+1:]...)
		}

		state.Balances.Invested -= amount
		state.Balances.Available += amount + settled
		state.Balances.Total += settled
		return checkInvariant(state)
	})
	if err != nil {
		span.RecordError(err)
		return wrapDomain(err, "divest failed")
	}

	if s.metrics != nil {
		s.metrics.Divestments.Inc()
		if settled > 0 {
			s.metrics.YieldUnits.Add(float64(settled))
		}
	}
	s.logger.InfoContext(ctx, "divested funds", "amount", amount, "settled_yield", settled)
	s.emit(ctx, audit.EventFundsDivested, audit.Event{Actor: caller, Amount: amount})
	return nil
}

// ClaimYield settles every open position up to now, appends one immutable
// yield record per position that accrued anything, and credits the running
// total to both Available and Total. With nothing accrued it still succeeds
// as a no-op pass.
func (s *Service) ClaimYield(ctx context.Context, caller id.AccountID) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "treasury.ClaimYield")
	defer span.End()
	defer s.observe("claim_yield", s.clock.Now())

	if err := s.requireAuth(ctx, caller); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	var claimed int64
	err := s.store.Update(ctx, func(state *models.State) error {
		if !state.Initialized() {
			return models.ErrNotInitialized
		}
		if caller != state.Config.Admin {
			return models.ErrUnauthorized
		}

		claimed = 0
		for i := range state.Positions {
			pos := &state.Positions[i]
			settled := yield.Settle(*pos, now)
			if settled <= 0 {
				continue
			}
			pos.AccumulatedYield += settled
			pos.LastYieldSettledAt = now
			state.YieldHistory = append(state.YieldHistory, models.YieldRecord{
				Amount:    settled,
				ClaimedAt: now,
				Pool:      pos.Pool,
				APYBps:    yield.APYBasisPoints,
			})
			claimed += settled
		}

		state.Balances.Available += claimed
		state.Balances.Total += claimed
		state.LastYieldClaimAt = now
		state.YieldClaimCount++
		return checkInvariant(state)
	})
	if err != nil {
		span.RecordError(err)
		return 0, wrapDomain(err, "claim yield failed")
	}

	if s.metrics != nil {
		s.metrics.YieldClaims.Inc()
		if claimed > 0 {
			s.metrics.YieldUnits.Add(float64(claimed))
		}
	}
	if claimed > 0 {
		s.logger.InfoContext(ctx, "claimed yield", "amount", claimed)
		s.emit(ctx, audit.EventYieldClaimed, audit.Event{Actor: caller, Amount: claimed})
	}
	return claimed, nil
}
