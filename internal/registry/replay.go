package registry

import (
	"fmt"

	"github.com/sigilnet/sigil/internal/events"
)

// EventSource is an ordered, replayable event stream; *events.Log
// satisfies it.
type EventSource interface {
	ForEach(fn func(events.Event) error) error
}

// Replay rebuilds registry state from an event log. The registry must be
// freshly created. Replay applies events directly: no authorization
// checks, no receiver acknowledgments, no re-emission; the log already
// records the outcome of every committed operation.
func (r *Registry) Replay(src EventSource) error {
	if len(r.state.owners) != 0 || !r.state.lastID.IsZero() {
		return fmt.Errorf("replay requires an empty registry")
	}

	var count uint64
	err := src.ForEach(func(ev events.Event) error {
		if err := r.apply(ev); err != nil {
			return fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	r.logger.Info().
		Uint64("events", count).
		Uint64("tokens", r.TotalSupply()).
		Str("last_id", r.state.lastID.String()).
		Msg("state replayed from event log")
	return nil
}

// apply mutates state for a single replayed event.
func (r *Registry) apply(ev events.Event) error {
	switch ev.Type {
	case events.TypeTransfer:
		switch {
		case ev.IsMint():
			if _, exists := r.state.owner(ev.Token); exists {
				return fmt.Errorf("mint of existing token %s", ev.Token)
			}
			r.state.owners[ev.Token] = ev.To
			r.state.addBalance(ev.To, 1)
			// IDs are sequential, so the largest minted ID is the counter.
			r.state.lastID = ev.Token
		case ev.IsBurn():
			owner, exists := r.state.owner(ev.Token)
			if !exists || owner != ev.From {
				return fmt.Errorf("burn of token %s not owned by %s", ev.Token, ev.From)
			}
			delete(r.state.approvals, ev.Token)
			r.state.addBalance(ev.From, -1)
			delete(r.state.owners, ev.Token)
		default:
			owner, exists := r.state.owner(ev.Token)
			if !exists || owner != ev.From {
				return fmt.Errorf("transfer of token %s not owned by %s", ev.Token, ev.From)
			}
			delete(r.state.approvals, ev.Token)
			r.state.addBalance(ev.From, -1)
			r.state.addBalance(ev.To, 1)
			r.state.owners[ev.Token] = ev.To
		}
	case events.TypeApproval:
		if _, exists := r.state.owner(ev.Token); !exists {
			return fmt.Errorf("approval for nonexistent token %s", ev.Token)
		}
		if ev.Delegate.IsZero() {
			delete(r.state.approvals, ev.Token)
		} else {
			r.state.approvals[ev.Token] = ev.Delegate
		}
	case events.TypeApprovalForAll:
		r.state.setOperator(ev.Owner, ev.Operator, ev.Approved)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}
