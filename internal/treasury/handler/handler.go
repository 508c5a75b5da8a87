// Package handler exposes the treasury engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	platformmetrics "verigrant/internal/platform/metrics"
	"verigrant/internal/platform/middleware"
	"verigrant/internal/transport/http/shared"
	"verigrant/internal/treasury/models"
	id "verigrant/pkg/domain"
	dErrors "verigrant/pkg/domain-errors"
	"verigrant/pkg/requestcontext"
)

// Service defines the treasury operations the handler exposes.
type Service interface {
	Initialize(ctx context.Context, caller id.AccountID, cfg *models.TreasuryConfig) error
	Deposit(ctx context.Context, depositor id.AccountID, amount int64) error
	Invest(ctx context.Context, caller id.AccountID, amount int64) error
	Divest(ctx context.Context, caller id.AccountID, amount int64, index id.PositionIndex) error
	ClaimYield(ctx context.Context, caller id.AccountID) (int64, error)
	AllocateGrant(ctx context.Context, caller, grantee id.AccountID, amount int64) (id.AllocationID, error)
	WithdrawGrant(ctx context.Context, grantee id.AccountID, allocationID id.AllocationID) error

	GetBalances(ctx context.Context) (models.Balances, error)
	GetInvestmentPositions(ctx context.Context) ([]models.InvestmentPosition, error)
	GetGrantAllocations(ctx context.Context) ([]models.GrantAllocation, error)
	GetYieldHistory(ctx context.Context) ([]models.YieldRecord, error)
	GetTreasuryConfig(ctx context.Context) (*models.TreasuryConfig, error)
	GetAccumulatedYield(ctx context.Context) (int64, error)
	GetClaimStats(ctx context.Context) (time.Time, uint64, error)
	GetAPY() uint32
}

// Handler handles treasury endpoints.
type Handler struct {
	logger       *slog.Logger
	treasury     Service
	jwtValidator middleware.JWTValidator
	metrics      *platformmetrics.Metrics
	extra        []func(http.Handler) http.Handler
}

// Option configures the handler.
type Option func(*Handler)

// WithMiddleware appends extra middleware, applied after authentication.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.extra = append(h.extra, mw...)
	}
}

// WithHTTPMetrics records per-route request counts and latency.
func WithHTTPMetrics(m *platformmetrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// New creates a new treasury Handler.
func New(treasury Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		treasury:     treasury,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the treasury routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	treasuryRouter := chi.NewRouter()
	treasuryRouter.Use(middleware.Recovery(h.logger))
	treasuryRouter.Use(middleware.RequestID)
	treasuryRouter.Use(middleware.Logger(h.logger))
	treasuryRouter.Use(middleware.Timeout(30 * time.Second))
	treasuryRouter.Use(middleware.ContentTypeJSON)
	treasuryRouter.Use(middleware.LatencyMiddleware(h.metrics))
	treasuryRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	for _, mw := range h.extra {
		treasuryRouter.Use(mw)
	}

	treasuryRouter.Post("/treasury/initialize", h.handleInitialize)
	treasuryRouter.Post("/treasury/deposit", h.handleDeposit)
	treasuryRouter.Post("/treasury/invest", h.handleInvest)
	treasuryRouter.Post("/treasury/divest", h.handleDivest)
	treasuryRouter.Post("/treasury/yield/claim", h.handleClaimYield)
	treasuryRouter.Post("/treasury/grants", h.handleAllocateGrant)
	treasuryRouter.Post("/treasury/grants/{allocationID}/withdraw", h.handleWithdrawGrant)

	treasuryRouter.Get("/treasury/balances", h.handleGetBalances)
	treasuryRouter.Get("/treasury/positions", h.handleGetPositions)
	treasuryRouter.Get("/treasury/grants", h.handleGetAllocations)
	treasuryRouter.Get("/treasury/yield/history", h.handleGetYieldHistory)
	treasuryRouter.Get("/treasury/config", h.handleGetConfig)
	treasuryRouter.Get("/treasury/stats", h.handleGetStats)

	r.Mount("/", treasuryRouter)
}

// caller returns the authenticated account established by RequireAuth.
func (h *Handler) caller(ctx context.Context) (id.AccountID, error) {
	account := requestcontext.Caller(ctx)
	if account.IsNil() {
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		return id.AccountID{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return account, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := h.caller(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req InitializeRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, err := req.Config()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.treasury.Initialize(ctx, caller, cfg); err != nil {
		h.writeServiceError(ctx, w, "initialize treasury", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := h.caller(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.treasury.Deposit(ctx, caller, req.Amount); err != nil {
		h.writeServiceError(ctx, w, "deposit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInvest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := h.caller(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.treasury.Invest(ctx, caller, req.Amount); err != nil {
		h.writeServiceError(ctx, w, "invest", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDivest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := h.caller(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req DivestRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.treasury.Divest(ctx, caller, req.Amount, id.PositionIndex(req.PositionIndex)); err != nil {
		h.writeServiceError(ctx, w, "divest", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClaimYield(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := h.caller(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	claimed, err := h.treasury.ClaimYield(ctx, caller)
	if err != nil {
		h.writeServiceError(ctx, w, "claim yield", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, ClaimYieldResponse{Claimed: claimed})
}

func (h *Handler) handleAllocateGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := h.caller(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req AllocateGrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	grantee, err := id.ParseAccountID(req.Grantee)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid grantee account id"))
		return
	}

	allocationID, err := h.treasury.AllocateGrant(ctx, caller, grantee, req.Amount)
	if err != nil {
		h.writeServiceError(ctx, w, "allocate grant", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, AllocateGrantResponse{AllocationID: int(allocationID)})
}

func (h *Handler) handleWithdrawGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := h.caller(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	allocationID, err := strconv.Atoi(chi.URLParam(r, "allocationID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid allocation id"))
		return
	}

	if err := h.treasury.WithdrawGrant(ctx, caller, id.AllocationID(allocationID)); err != nil {
		h.writeServiceError(ctx, w, "withdraw grant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.treasury.GetBalances(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "get balances", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, BalancesResponse{
		Total:     balances.Total,
		Invested:  balances.Invested,
		Available: balances.Available,
	})
}

func (h *Handler) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.treasury.GetInvestmentPositions(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "get positions", err)
		return
	}
	resp := make([]PositionResponse, 0, len(positions))
	for index, position := range positions {
		resp = append(resp, PositionResponse{
			Index:              index,
			Principal:          position.Principal,
			Pool:               position.Pool.String(),
			OpenedAt:           position.OpenedAt,
			LastYieldSettledAt: position.LastYieldSettledAt,
			AccumulatedYield:   position.AccumulatedYield,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.treasury.GetGrantAllocations(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "get allocations", err)
		return
	}
	resp := make([]AllocationResponse, 0, len(allocations))
	for allocationID, allocation := range allocations {
		resp = append(resp, AllocationResponse{
			AllocationID: allocationID,
			Grantee:      allocation.Grantee.String(),
			Amount:       allocation.Amount,
			AllocatedAt:  allocation.AllocatedAt,
			Status:       string(allocation.Status),
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetYieldHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.treasury.GetYieldHistory(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "get yield history", err)
		return
	}
	resp := make([]YieldRecordResponse, 0, len(history))
	for _, record := range history {
		resp = append(resp, YieldRecordResponse{
			Amount:    record.Amount,
			ClaimedAt: record.ClaimedAt,
			Pool:      record.Pool.String(),
			APYBps:    record.APYBps,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.treasury.GetTreasuryConfig(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "get config", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, ConfigResponse{
		Admin:                      cfg.Admin.String(),
		Pool:                       cfg.Pool.String(),
		MinLiquidityRatioBps:       cfg.MinLiquidityRatioBps,
		AutoInvestThreshold:        cfg.AutoInvestThreshold,
		YieldClaimFrequencySeconds: int64(cfg.YieldClaimFrequency / time.Second),
		APYBps:                     h.treasury.GetAPY(),
	})
}

func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accumulated, err := h.treasury.GetAccumulatedYield(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "get stats", err)
		return
	}
	last, count, err := h.treasury.GetClaimStats(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "get stats", err)
		return
	}
	resp := StatsResponse{
		AccumulatedYield: accumulated,
		YieldClaimCount:  count,
		APYBps:           h.treasury.GetAPY(),
	}
	if !last.IsZero() {
		resp.LastYieldClaimAt = &last
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "treasury operation failed",
			"op", op,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, "treasury operation rejected",
			"op", op,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
