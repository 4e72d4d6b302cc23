package registry

import (
	"github.com/sigilnet/sigil/pkg/types"
)

// CapabilityOracle classifies destination accounts. Passive holders accept
// tokens unconditionally; active receivers must acknowledge delivery before
// a safe transfer or mint is final.
type CapabilityOracle interface {
	// IsReceiver reports whether the account is an active receiver.
	IsReceiver(addr types.Address) bool
}

// AckCode is a receiver's 4-byte acknowledgment code.
type AckCode = Selector

// AckChannel delivers a receiver notification and returns the receiver's
// acknowledgment code. A non-nil error means delivery itself failed; both
// failure modes roll back the enclosing operation.
type AckChannel interface {
	Deliver(operator, from, to types.Address, id types.TokenID, data []byte) (AckCode, error)
}

// AckTokenReceived is the code an active receiver must return for a
// transfer or mint to commit. Any other code, or a delivery failure,
// rejects the token.
var AckTokenReceived = DeriveSelector("tokenReceived(operator,from,to,tokenId,data)")
