package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/sigilnet/sigil/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var h types.Hash
	copy(h[:], b)
	return h
}

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("Hash(%q) = %x, want %x", tt.input, got, want)
			}
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	h1 := Hash(data)
	h2 := Hash(data)
	if h1 != h2 {
		t.Errorf("Hash is not deterministic: %x != %x", h1, h2)
	}
}

func TestHash_DifferentInputs(t *testing.T) {
	h1 := Hash([]byte("input one"))
	h2 := Hash([]byte("input two"))
	if h1 == h2 {
		t.Error("different inputs should produce different hashes")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pub := key.PublicKey()

	addr := AddressFromPubKey(pub)
	if addr.IsZero() {
		t.Error("derived address should not be zero")
	}

	// Deterministic for the same key.
	if AddressFromPubKey(pub) != addr {
		t.Error("AddressFromPubKey is not deterministic")
	}

	// First 20 bytes of the pubkey hash.
	h := Hash(pub)
	var want types.Address
	copy(want[:], h[:types.AddressSize])
	if addr != want {
		t.Errorf("AddressFromPubKey = %x, want %x", addr, want)
	}
}
