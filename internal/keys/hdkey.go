package keys

import (
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/sigilnet/sigil/pkg/crypto"
	"github.com/sigilnet/sigil/pkg/types"
)

// Account keys live at m/44'/7470'/index'. Every level is hardened;
// registry accounts do not need public derivation, so there is no
// external/internal chain split.
const (
	purpose = bip32.FirstHardenedChild + 44

	// coinType is a placeholder pending SLIP-44 registration.
	coinType = bip32.FirstHardenedChild + 7470
)

// HDKey wraps a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// MasterKey builds the root key from a 64-byte seed.
func MasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	root, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: root}, nil
}

// Account derives the key for the numbered account: m/44'/7470'/index'.
func (k *HDKey) Account(index uint32) (*HDKey, error) {
	cur := k.key
	for _, step := range []uint32{purpose, coinType, bip32.FirstHardenedChild + index} {
		child, err := cur.NewChildKey(step)
		if err != nil {
			return nil, fmt.Errorf("derive account %d: %w", index, err)
		}
		cur = child
	}
	return &HDKey{key: cur}, nil
}

// Signer returns the signing key. Fails on a public-only key.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	if !k.key.IsPrivate {
		return nil, fmt.Errorf("public-only key cannot sign")
	}
	raw := k.key.Key
	// bip32 private key material carries a leading zero pad byte.
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	return k.key.PublicKey().Key
}

// Address returns the account address for this key's public key.
func (k *HDKey) Address() types.Address {
	return crypto.AddressFromPubKey(k.PublicKeyBytes())
}
