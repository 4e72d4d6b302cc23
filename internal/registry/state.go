package registry

import (
	"github.com/sigilnet/sigil/pkg/types"
)

// State holds the registry's mutable state. Invariants maintained by every
// committed operation:
//
//   - a token ID is a key in owners iff the token exists, and each existing
//     token has exactly one owner
//   - for every account, balances equals the number of owners entries
//     pointing to it; absent means zero
//   - approvals only carries entries for existing tokens
//   - lastID never decreases across committed operations; IDs are never reused
type State struct {
	owners    map[types.TokenID]types.Address
	balances  map[types.Address]uint64
	approvals map[types.TokenID]types.Address
	operators map[types.Address]map[types.Address]bool

	// lastID is the most recently allocated token ID; the next mint
	// allocates lastID+1. Zero means nothing minted yet.
	lastID types.TokenID

	// admin is the privileged registry owner, set once by Bootstrap.
	admin       types.Address
	initialized bool
}

// newState creates an empty registry state.
func newState() *State {
	return &State{
		owners:    make(map[types.TokenID]types.Address),
		balances:  make(map[types.Address]uint64),
		approvals: make(map[types.TokenID]types.Address),
		operators: make(map[types.Address]map[types.Address]bool),
	}
}

// clone returns a deep copy, used as a rollback snapshot.
func (s *State) clone() *State {
	c := &State{
		owners:      make(map[types.TokenID]types.Address, len(s.owners)),
		balances:    make(map[types.Address]uint64, len(s.balances)),
		approvals:   make(map[types.TokenID]types.Address, len(s.approvals)),
		operators:   make(map[types.Address]map[types.Address]bool, len(s.operators)),
		lastID:      s.lastID,
		admin:       s.admin,
		initialized: s.initialized,
	}
	for id, owner := range s.owners {
		c.owners[id] = owner
	}
	for addr, bal := range s.balances {
		c.balances[addr] = bal
	}
	for id, delegate := range s.approvals {
		c.approvals[id] = delegate
	}
	for owner, ops := range s.operators {
		inner := make(map[types.Address]bool, len(ops))
		for op, ok := range ops {
			inner[op] = ok
		}
		c.operators[owner] = inner
	}
	return c
}

// owner returns the current owner of a token, with existence flag.
func (s *State) owner(id types.TokenID) (types.Address, bool) {
	owner, ok := s.owners[id]
	return owner, ok
}

// isOperator reports whether operator has blanket approval from owner.
func (s *State) isOperator(owner, operator types.Address) bool {
	return s.operators[owner][operator]
}

// canTransfer reports whether caller may move the given token: the caller
// must be the owner, the per-token delegate, or a blanket-approved operator.
func (s *State) canTransfer(caller, owner types.Address, id types.TokenID) bool {
	if caller == owner {
		return true
	}
	if s.approvals[id] == caller && !caller.IsZero() {
		return true
	}
	return s.isOperator(owner, caller)
}

// addBalance adjusts an account's balance by delta, deleting zero entries
// so that balances and owners stay in exact correspondence.
func (s *State) addBalance(addr types.Address, delta int64) {
	next := int64(s.balances[addr]) + delta
	if next <= 0 {
		delete(s.balances, addr)
		return
	}
	s.balances[addr] = uint64(next)
}

// setOperator sets or clears a blanket approval, pruning empty inner maps.
func (s *State) setOperator(owner, operator types.Address, approved bool) {
	if approved {
		inner := s.operators[owner]
		if inner == nil {
			inner = make(map[types.Address]bool)
			s.operators[owner] = inner
		}
		inner[operator] = true
		return
	}
	inner := s.operators[owner]
	if inner == nil {
		return
	}
	delete(inner, operator)
	if len(inner) == 0 {
		delete(s.operators, owner)
	}
}
