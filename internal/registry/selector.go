package registry

import (
	"encoding/hex"
	"fmt"

	"github.com/sigilnet/sigil/pkg/crypto"
)

// Selector is a 4-byte identifier derived from a signature string: the
// first four bytes of its BLAKE3 hash. Selectors name acknowledgment
// codes and capabilities, so independent implementations agree on them
// without a central registry.
type Selector [4]byte

// DeriveSelector computes the selector for a signature string.
func DeriveSelector(signature string) Selector {
	h := crypto.Hash([]byte(signature))
	var s Selector
	copy(s[:], h[:4])
	return s
}

// ParseSelector parses an 8-character hex string.
func ParseSelector(s string) (Selector, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid selector: %w", err)
	}
	if len(b) != 4 {
		return Selector{}, fmt.Errorf("selector must be 4 bytes, got %d", len(b))
	}
	var sel Selector
	copy(sel[:], b)
	return sel, nil
}

// String returns the hex-encoded selector.
func (s Selector) String() string {
	return hex.EncodeToString(s[:])
}
