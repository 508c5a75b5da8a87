package models


// AllocationStatus is the grant allocation lifecycle state.
//
// Transitions:
//
//	Pending  -> Approved  (two-phase approval; reserved, no entry point yet)
//	Approved -> Disbursed (grantee withdraws)
//	Approved -> Expired   (time-based expiry; reserved, no entry point yet)
//
// Disbursed and Expired are terminal. Allocations are currently created
// directly in Approved; Pending and Expired stay modeled so a propose/approve
// flow or expiry sweep can be added without changing the entity shape.
type AllocationStatus string

const (
	AllocationStatusPending   AllocationStatus = "pending"
	AllocationStatusApproved  AllocationStatus = "approved"
	AllocationStatusDisbursed AllocationStatus = "disbursed"
	AllocationStatusExpired   AllocationStatus = "expired"
)

// allocationTransitions is the single source of truth for legal transitions.
var allocationTransitions = map[AllocationStatus][]AllocationStatus{
	AllocationStatusPending:  {AllocationStatusApproved},
	AllocationStatusApproved: {AllocationStatusDisbursed, AllocationStatusExpired},
}

func (s AllocationStatus) IsValid() bool {
	switch s {
	case AllocationStatusPending, AllocationStatusApproved,
		AllocationStatusDisbursed, AllocationStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s AllocationStatus) IsTerminal() bool {
	return len(allocationTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo reports whether the transition s -> target is legal.
func (s AllocationStatus) CanTransitionTo(target AllocationStatus) bool {
	for _, next := range allocationTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// CanDisburse checks the Approved -> Disbursed transition.
func (a *GrantAllocation) CanDisburse() error {
	if !a.Status.CanTransitionTo(AllocationStatusDisbursed) {
		return ErrInvalidState
	}
	return nil
}

// ApplyDisbursement transitions the allocation to Disbursed. Funds were
// already earmarked at allocation time, so this touches no balances.
// Call CanDisburse first to validate the transition.
func (a *GrantAllocation) ApplyDisbursement() {
	a.Status = AllocationStatusDisbursed
}

// Disburse validates and applies disbursement in one call.
func (a *GrantAllocation) Disburse() error {
	if err := a.CanDisburse(); err != nil {
		return err
	}
	a.ApplyDisbursement()
	return nil
}

// Approve is the reserved Pending -> Approved edge for a future two-phase
// approval flow. No current entry point drives it.
func (a *GrantAllocation) Approve() error {
	if !a.Status.CanTransitionTo(AllocationStatusApproved) {
		return ErrInvalidState
	}
	a.Status = AllocationStatusApproved
	return nil
}

// Expire is the reserved Approved -> Expired edge. Whether expiry should
// reclaim the earmarked funds to Available is a product decision still open;
// this method deliberately leaves balances untouched.
func (a *GrantAllocation) Expire() error {
	if !a.Status.CanTransitionTo(AllocationStatusExpired) {
		return ErrInvalidState
	}
	a.Status = AllocationStatusExpired
	return nil
}
