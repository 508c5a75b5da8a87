package audit

import (
	"context"
	"time"

	id "verigrant/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: grant allocations and disbursements, treasury initialization.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: rejected authorization attempts on treasury mutations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: deposits, investments, yield claims.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key treasury actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Actor is the authenticated account that performed the action.
	Actor id.AccountID
	// Grantee is set for grant lifecycle events.
	Grantee id.AccountID
	Action  string
	// Amount is the base-unit amount the event concerns, when applicable.
	Amount int64
	// Pool is the investment pool involved, when applicable.
	Pool id.PoolID
	// Reason carries failure or skip detail (e.g. why auto-invest was skipped).
	Reason string
	// RequestID is the correlation ID from the request context.
	RequestID string
}

type AuditEvent string

const (
	EventTreasuryInitialized AuditEvent = "treasury_initialized"
	EventDepositReceived     AuditEvent = "deposit_received"
	EventFundsInvested       AuditEvent = "funds_invested"
	EventFundsDivested       AuditEvent = "funds_divested"
	EventAutoInvestSkipped   AuditEvent = "auto_invest_skipped"
	EventGrantAllocated      AuditEvent = "grant_allocated"
	EventGrantDisbursed      AuditEvent = "grant_disbursed"
	EventYieldClaimed        AuditEvent = "yield_claimed"
	EventLiquidityRaised     AuditEvent = "liquidity_raised"
	EventMutationRejected    AuditEvent = "mutation_rejected"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - the money trail regulators care about.
	EventTreasuryInitialized: CategoryCompliance,
	EventGrantAllocated:      CategoryCompliance,
	EventGrantDisbursed:      CategoryCompliance,

	// Security events.
	EventMutationRejected: CategorySecurity,

	// Operations events - routine treasury activity.
	EventDepositReceived:   CategoryOperations,
	EventFundsInvested:     CategoryOperations,
	EventFundsDivested:     CategoryOperations,
	EventAutoInvestSkipped: CategoryOperations,
	EventYieldClaimed:      CategoryOperations,
	EventLiquidityRaised:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent
// use; Append must not mutate the event.
type Store interface {
	Append(ctx context.Context, event Event) error
}
