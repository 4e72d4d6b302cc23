package registry

import (
	"fmt"

	"github.com/sigilnet/sigil/internal/events"
	"github.com/sigilnet/sigil/pkg/types"
)

// TransferOptions controls optional transfer behavior.
type TransferOptions struct {
	// ExpectAck runs the safe-transfer protocol: if the destination is an
	// active receiver it must acknowledge delivery or the whole transfer
	// is rolled back.
	ExpectAck bool

	// Data is an opaque payload forwarded to an active receiver.
	Data []byte
}

// ackPhase tracks the safe-transfer protocol state for logging.
type ackPhase string

const (
	phaseApplied      ackPhase = "applied"
	phaseAcknowledged ackPhase = "acknowledged"
	phaseRolledBack   ackPhase = "rolled_back"
)

// Transfer moves a token from its current owner to another account.
// The caller must be the owner, the per-token delegate, or a
// blanket-approved operator of the owner. The per-token approval is
// cleared whether or not one was set.
func (r *Registry) Transfer(caller, from, to types.Address, id types.TokenID, opts TransferOptions) error {
	owner, ok := r.state.owner(id)
	if !ok {
		return fmt.Errorf("%w: token %s", ErrTokenNotFound, id)
	}
	if !r.state.canTransfer(caller, owner, id) {
		return fmt.Errorf("%w: %s may not transfer token %s", ErrUnauthorized, caller, id)
	}
	if from != owner {
		return fmt.Errorf("%w: token %s is owned by %s, not %s", ErrOwnerMismatch, id, owner, from)
	}
	if to.IsZero() {
		return fmt.Errorf("%w: null destination", ErrInvalidAccount)
	}

	r.begin()
	r.move(from, to, id)
	r.record(events.NewTransfer(from, to, id))

	if err := r.acknowledge(caller, from, to, id, opts); err != nil {
		r.rollback()
		r.logger.Warn().
			Str("token", id.String()).
			Str("to", to.String()).
			Str("phase", string(phaseRolledBack)).
			Err(err).
			Msg("transfer rolled back")
		return err
	}
	if err := r.commit(); err != nil {
		return err
	}

	r.logger.Info().
		Str("token", id.String()).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("token transferred")
	return nil
}

// move applies the ownership change: approval cleared, balances adjusted,
// owner record updated. Callers hold an open transaction.
func (r *Registry) move(from, to types.Address, id types.TokenID) {
	delete(r.state.approvals, id)
	r.state.addBalance(from, -1)
	r.state.addBalance(to, 1)
	r.state.owners[id] = to
}

// acknowledge runs the receiver acknowledgment step of the safe-transfer
// protocol. State is fully mutated and internally consistent before the
// channel call, so a re-entrant call from the receiver observes the
// applied (if not yet acknowledged) state.
func (r *Registry) acknowledge(operator, from, to types.Address, id types.TokenID, opts TransferOptions) error {
	if !opts.ExpectAck || r.oracle == nil || !r.oracle.IsReceiver(to) {
		return nil
	}

	r.logger.Debug().
		Str("token", id.String()).
		Str("to", to.String()).
		Str("phase", string(phaseApplied)).
		Msg("awaiting receiver acknowledgment")

	if r.channel == nil {
		return fmt.Errorf("%w: no acknowledgment channel configured", ErrReceiverRejected)
	}
	code, err := r.channel.Deliver(operator, from, to, id, opts.Data)
	if err != nil {
		return fmt.Errorf("%w: delivery failed: %v", ErrReceiverRejected, err)
	}
	if code != AckTokenReceived {
		return fmt.Errorf("%w: got code %s, want %s", ErrReceiverRejected, code, AckTokenReceived)
	}

	r.logger.Debug().
		Str("token", id.String()).
		Str("to", to.String()).
		Str("phase", string(phaseAcknowledged)).
		Msg("receiver acknowledged")
	return nil
}
