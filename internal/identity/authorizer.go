package identity

import (
	"context"

	id "verigrant/pkg/domain"
	dErrors "verigrant/pkg/domain-errors"
	"verigrant/pkg/requestcontext"
)

// ContextAuthorizer verifies that the account a request claims to act as is
// the account the authentication middleware actually established. Any
// mismatch, including a missing authenticated caller, fails verification.
type ContextAuthorizer struct{}

func NewContextAuthorizer() ContextAuthorizer {
	return ContextAuthorizer{}
}

func (ContextAuthorizer) Verify(ctx context.Context, claimed id.AccountID) error {
	authenticated := requestcontext.Caller(ctx)
	if authenticated.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "no authenticated caller")
	}
	if authenticated != claimed {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity mismatch")
	}
	return nil
}
