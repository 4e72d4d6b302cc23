package registry

import "errors"

// Registry operation errors. Every failed operation leaves state exactly
// as it was before the call.
var (
	// ErrInvalidAccount is returned for a null destination or query target.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrTokenNotFound is returned for operations on a token that does not exist.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExists is returned when a mint would collide with an existing
	// token ID. Defensive; cannot occur with sequential allocation.
	ErrTokenExists = errors.New("token already exists")

	// ErrSelfApproval is returned when a delegate or operator equals the
	// account it would act for.
	ErrSelfApproval = errors.New("approval to self")

	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrOwnerMismatch is returned when the stated from account is not the
	// token's current owner.
	ErrOwnerMismatch = errors.New("from does not match token owner")

	// ErrReceiverRejected is returned when an active receiver fails to
	// acknowledge a transfer or mint. The whole operation is rolled back.
	ErrReceiverRejected = errors.New("receiver rejected token")

	// ErrBootstrapped is returned when initialization runs twice.
	ErrBootstrapped = errors.New("registry already bootstrapped")
)
