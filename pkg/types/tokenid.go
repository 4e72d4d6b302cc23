package types

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// TokenID identifies a registered token. IDs span the full 256-bit unsigned
// range and are allocated sequentially starting at 1; an ID is never reused
// after the token is burned. The zero ID is not a valid token.
//
// TokenID is a value type and is usable as a map key.
type TokenID struct {
	n uint256.Int
}

// NewTokenID creates a TokenID from a uint64.
func NewTokenID(v uint64) TokenID {
	var id TokenID
	id.n.SetUint64(v)
	return id
}

// TokenIDFromBytes32 creates a TokenID from a 32-byte big-endian value.
func TokenIDFromBytes32(b [32]byte) TokenID {
	var id TokenID
	id.n.SetBytes32(b[:])
	return id
}

// ParseTokenID parses a decimal token ID string.
func ParseTokenID(s string) (TokenID, error) {
	if s == "" {
		return TokenID{}, fmt.Errorf("empty token ID")
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return TokenID{}, fmt.Errorf("invalid token ID %q: %w", s, err)
	}
	return TokenID{n: *n}, nil
}

// IsZero returns true if the ID is zero (not a valid token).
func (t TokenID) IsZero() bool {
	return t.n.IsZero()
}

// Next returns the successor ID. Wrapping the 256-bit range is not a
// practical concern for a sequential counter.
func (t TokenID) Next() TokenID {
	var next TokenID
	next.n.AddUint64(&t.n, 1)
	return next
}

// Uint64 returns the low 64 bits of the ID.
func (t TokenID) Uint64() uint64 {
	return t.n.Uint64()
}

// Bytes32 returns the ID as a 32-byte big-endian array, used for
// storage keys so that keys sort in ID order.
func (t TokenID) Bytes32() [32]byte {
	return t.n.Bytes32()
}

// String returns the decimal representation.
func (t TokenID) String() string {
	return t.n.Dec()
}

// MarshalJSON encodes the ID as a decimal string.
func (t TokenID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a decimal string into a token ID.
func (t *TokenID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = TokenID{}
		return nil
	}
	parsed, err := ParseTokenID(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
