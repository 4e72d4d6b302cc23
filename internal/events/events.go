// Package events defines the registry's domain event log.
//
// Every committed registry mutation appends one or more events describing
// exactly what changed. The log is ordered, append-only, and immutable:
// rolled-back operations never reach it. Registry state is fully
// reconstructable by replaying the log from the beginning, with the single
// exception of the administrative owner, which is persisted separately.
package events

import (
	"github.com/sigilnet/sigil/pkg/types"
)

// Type identifies the kind of a domain event.
type Type string

// Domain event types.
const (
	TypeTransfer       Type = "transfer"
	TypeApproval       Type = "approval"
	TypeApprovalForAll Type = "approval_for_all"
)

// Event is one immutable log entry.
//
// Field usage by type:
//
//	transfer:         From, To, Token (mint: From is null; burn: To is null)
//	approval:         Owner, Delegate, Token (Delegate null = cleared)
//	approval_for_all: Owner, Operator, Approved
type Event struct {
	Seq      uint64        `json:"seq"`
	Type     Type          `json:"type"`
	From     types.Address `json:"from"`
	To       types.Address `json:"to"`
	Owner    types.Address `json:"owner"`
	Delegate types.Address `json:"delegate"`
	Operator types.Address `json:"operator"`
	Token    types.TokenID `json:"token"`
	Approved bool          `json:"approved"`
}

// NewTransfer builds a transfer event. Mints use a null from address,
// burns a null to address.
func NewTransfer(from, to types.Address, token types.TokenID) Event {
	return Event{Type: TypeTransfer, From: from, To: to, Token: token}
}

// NewApproval builds a per-token approval event.
func NewApproval(owner, delegate types.Address, token types.TokenID) Event {
	return Event{Type: TypeApproval, Owner: owner, Delegate: delegate, Token: token}
}

// NewApprovalForAll builds an operator approval event.
func NewApprovalForAll(owner, operator types.Address, approved bool) Event {
	return Event{Type: TypeApprovalForAll, Owner: owner, Operator: operator, Approved: approved}
}

// IsMint reports whether the event is a transfer from the null account.
func (e Event) IsMint() bool {
	return e.Type == TypeTransfer && e.From.IsZero()
}

// IsBurn reports whether the event is a transfer to the null account.
func (e Event) IsBurn() bool {
	return e.Type == TypeTransfer && e.To.IsZero()
}
