package registry

import (
	"fmt"

	"github.com/sigilnet/sigil/internal/events"
	"github.com/sigilnet/sigil/pkg/types"
)

// MintOptions controls optional mint behavior.
type MintOptions struct {
	// AdminOnly restricts minting to the registry admin.
	AdminOnly bool

	// Data is an opaque payload forwarded to an active receiver.
	Data []byte
}

// Mint creates the next sequentially numbered token and assigns it to the
// destination account, returning the new token's ID. A mint is a transfer
// from the null account and always runs the receiver acknowledgment
// protocol; there is no unsafe variant. A rejected acknowledgment rolls
// back the whole mint, including the ID counter: a failed mint has no
// observable effect and the same ID is allocated by the next attempt.
func (r *Registry) Mint(caller, to types.Address, opts MintOptions) (types.TokenID, error) {
	if to.IsZero() {
		return types.TokenID{}, fmt.Errorf("%w: null destination", ErrInvalidAccount)
	}
	if opts.AdminOnly && caller != r.state.admin {
		return types.TokenID{}, fmt.Errorf("%w: minting requires the registry admin", ErrUnauthorized)
	}

	id := r.state.lastID.Next()
	if _, exists := r.state.owner(id); exists {
		// Cannot happen with sequential allocation; guards counter corruption.
		return types.TokenID{}, fmt.Errorf("%w: token %s", ErrTokenExists, id)
	}

	r.begin()
	r.state.lastID = id
	r.state.owners[id] = to
	r.state.addBalance(to, 1)
	r.record(events.NewTransfer(types.Address{}, to, id))

	if err := r.acknowledge(caller, types.Address{}, to, id, TransferOptions{ExpectAck: true, Data: opts.Data}); err != nil {
		r.rollback()
		r.logger.Warn().
			Str("token", id.String()).
			Str("to", to.String()).
			Str("phase", string(phaseRolledBack)).
			Err(err).
			Msg("mint rolled back")
		return types.TokenID{}, err
	}
	if err := r.commit(); err != nil {
		return types.TokenID{}, err
	}

	r.logger.Info().
		Str("token", id.String()).
		Str("to", to.String()).
		Msg("token minted")
	return id, nil
}

// Burn destroys a token. The caller must be the owner, the per-token
// delegate, or a blanket-approved operator. No acknowledgment step: the
// destination is nowhere.
func (r *Registry) Burn(caller types.Address, id types.TokenID) error {
	owner, ok := r.state.owner(id)
	if !ok {
		return fmt.Errorf("%w: token %s", ErrTokenNotFound, id)
	}
	if !r.state.canTransfer(caller, owner, id) {
		return fmt.Errorf("%w: %s may not burn token %s", ErrUnauthorized, caller, id)
	}

	r.begin()
	delete(r.state.approvals, id)
	r.state.addBalance(owner, -1)
	delete(r.state.owners, id)
	r.record(events.NewTransfer(owner, types.Address{}, id))
	if err := r.commit(); err != nil {
		return err
	}

	r.logger.Info().
		Str("token", id.String()).
		Str("owner", owner.String()).
		Msg("token burned")
	return nil
}
