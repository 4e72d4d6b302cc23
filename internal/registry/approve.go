package registry

import (
	"fmt"

	"github.com/sigilnet/sigil/internal/events"
	"github.com/sigilnet/sigil/pkg/types"
)

// Approve sets delegate as the single account authorized to transfer the
// given token. Only the token's owner or a blanket-approved operator may
// approve. Approving the current owner is rejected; re-approving the same
// delegate is allowed and re-emits the event.
func (r *Registry) Approve(caller, delegate types.Address, id types.TokenID) error {
	owner, ok := r.state.owner(id)
	if !ok {
		return fmt.Errorf("%w: token %s", ErrTokenNotFound, id)
	}
	if delegate == owner {
		return fmt.Errorf("%w: delegate is the token owner", ErrSelfApproval)
	}
	if caller != owner && !r.state.isOperator(owner, caller) {
		return fmt.Errorf("%w: %s is not owner or operator of token %s", ErrUnauthorized, caller, id)
	}

	r.begin()
	if delegate.IsZero() {
		delete(r.state.approvals, id)
	} else {
		r.state.approvals[id] = delegate
	}
	r.record(events.NewApproval(owner, delegate, id))
	if err := r.commit(); err != nil {
		return err
	}

	r.logger.Info().
		Str("token", id.String()).
		Str("owner", owner.String()).
		Str("delegate", delegate.String()).
		Msg("token approval set")
	return nil
}

// SetApprovalForAll grants or revokes operator's blanket transfer rights
// over all of caller's present and future tokens. Idempotent.
func (r *Registry) SetApprovalForAll(caller, operator types.Address, approved bool) error {
	if operator == caller {
		return fmt.Errorf("%w: operator is the caller", ErrSelfApproval)
	}

	r.begin()
	r.state.setOperator(caller, operator, approved)
	r.record(events.NewApprovalForAll(caller, operator, approved))
	if err := r.commit(); err != nil {
		return err
	}

	r.logger.Info().
		Str("owner", caller.String()).
		Str("operator", operator.String()).
		Bool("approved", approved).
		Msg("operator approval set")
	return nil
}
