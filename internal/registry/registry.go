// Package registry implements the token registry: exclusive ownership of
// uniquely numbered tokens, transfer delegation, and the safe-transfer
// acknowledgment protocol.
//
// Every operation is transactional: it either commits completely (state
// mutated, events appended) or fails with no observable effect. A Registry
// is not safe for concurrent use; callers serialize access so that each
// operation runs to completion before the next is admitted. Receiver
// acknowledgment callbacks run on the caller's goroutine and may re-enter
// the registry; state is fully consistent at that point, and a rejected
// acknowledgment rolls back the outer operation along with anything a
// re-entrant call changed inside it.
package registry

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sigilnet/sigil/internal/events"
	klog "github.com/sigilnet/sigil/internal/log"
	"github.com/sigilnet/sigil/pkg/types"
)

// EventSink receives the events of each committed operation, in order.
// Rolled-back operations never reach the sink.
type EventSink interface {
	Append(evs []events.Event) error
}

// Collection holds the registry's descriptive metadata.
type Collection struct {
	Name    string
	Symbol  string
	BaseURI string
}

// Options configures a Registry.
type Options struct {
	// Oracle classifies destinations for safe transfers. Nil treats every
	// account as a passive holder.
	Oracle CapabilityOracle

	// Channel delivers receiver notifications. Nil means active receivers
	// are unreachable, so safe transfers to them fail.
	Channel AckChannel

	// Events receives committed events. Nil discards them.
	Events EventSink

	// Meta persists state not derivable from the event log (the admin
	// account). Nil keeps it in memory only.
	Meta *Store

	Collection Collection
}

// Registry is the token registry state machine.
type Registry struct {
	state      *State
	oracle     CapabilityOracle
	channel    AckChannel
	sink       EventSink
	meta       *Store
	collection Collection
	logger     zerolog.Logger

	// txns is the open transaction stack; entries above the first belong
	// to re-entrant calls made from receiver callbacks.
	txns []txn
}

type txn struct {
	prev   *State
	events []events.Event
}

// New creates an empty registry.
func New(opts Options) *Registry {
	return &Registry{
		state:      newState(),
		oracle:     opts.Oracle,
		channel:    opts.Channel,
		sink:       opts.Events,
		meta:       opts.Meta,
		collection: opts.Collection,
		logger:     klog.Registry,
	}
}

// ── Queries ─────────────────────────────────────────────────────────────

// BalanceOf returns the number of tokens owned by an account.
// The null account is rejected: it represents nonexistence, not a holder.
func (r *Registry) BalanceOf(addr types.Address) (uint64, error) {
	if addr.IsZero() {
		return 0, fmt.Errorf("%w: null account has no balance", ErrInvalidAccount)
	}
	return r.state.balances[addr], nil
}

// OwnerOf returns the current owner of a token.
func (r *Registry) OwnerOf(id types.TokenID) (types.Address, error) {
	owner, ok := r.state.owner(id)
	if !ok {
		return types.Address{}, fmt.Errorf("%w: token %s", ErrTokenNotFound, id)
	}
	return owner, nil
}

// GetApproved returns the delegate approved for a token, or the null
// address when none is set.
func (r *Registry) GetApproved(id types.TokenID) (types.Address, error) {
	if _, ok := r.state.owner(id); !ok {
		return types.Address{}, fmt.Errorf("%w: token %s", ErrTokenNotFound, id)
	}
	return r.state.approvals[id], nil
}

// IsApprovedForAll reports whether operator holds blanket approval from owner.
func (r *Registry) IsApprovedForAll(owner, operator types.Address) bool {
	return r.state.isOperator(owner, operator)
}

// LastID returns the most recently allocated token ID (zero if none).
func (r *Registry) LastID() types.TokenID {
	return r.state.lastID
}

// TotalSupply returns the number of tokens currently in existence.
func (r *Registry) TotalSupply() uint64 {
	return uint64(len(r.state.owners))
}

// Name returns the collection name.
func (r *Registry) Name() string { return r.collection.Name }

// Symbol returns the collection symbol.
func (r *Registry) Symbol() string { return r.collection.Symbol }

// TokenURI returns the metadata URI for a token: the collection base URI
// with the decimal token ID appended. Empty when no base URI is set.
func (r *Registry) TokenURI(id types.TokenID) (string, error) {
	if _, ok := r.state.owner(id); !ok {
		return "", fmt.Errorf("%w: token %s", ErrTokenNotFound, id)
	}
	if r.collection.BaseURI == "" {
		return "", nil
	}
	return r.collection.BaseURI + id.String(), nil
}

// ── Transactions ────────────────────────────────────────────────────────

// begin opens a transaction by snapshotting the full state. Rollback
// restores the pre-operation state no matter what a re-entrant callback did.
func (r *Registry) begin() {
	r.txns = append(r.txns, txn{prev: r.state.clone()})
}

// record buffers an event in the current transaction.
func (r *Registry) record(ev events.Event) {
	cur := &r.txns[len(r.txns)-1]
	cur.events = append(cur.events, ev)
}

// commit closes the current transaction. The outermost commit flushes the
// operation's events to the sink; a sink failure rolls everything back so
// state and log cannot diverge. Nested commits hand their events to the
// enclosing transaction, which may still discard them by rolling back.
func (r *Registry) commit() error {
	cur := r.txns[len(r.txns)-1]
	if len(r.txns) > 1 {
		parent := &r.txns[len(r.txns)-2]
		parent.events = append(parent.events, cur.events...)
		r.txns = r.txns[:len(r.txns)-1]
		return nil
	}

	if r.sink != nil && len(cur.events) > 0 {
		if err := r.sink.Append(cur.events); err != nil {
			r.rollback()
			return fmt.Errorf("append events: %w", err)
		}
	}
	r.txns = r.txns[:len(r.txns)-1]
	return nil
}

// rollback discards the current transaction, restoring the snapshot.
func (r *Registry) rollback() {
	cur := r.txns[len(r.txns)-1]
	r.state = cur.prev
	r.txns = r.txns[:len(r.txns)-1]
}
