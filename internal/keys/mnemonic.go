// Package keys implements account key management: BIP-39 mnemonics,
// BIP-32 hierarchical derivation, and an encrypted on-disk keystore.
package keys

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// EntropyBits is the mnemonic entropy size (24 words).
const EntropyBits = 256

// SeedSize is the length of a derived seed in bytes.
const SeedSize = 64

// NewMnemonic creates a fresh 24-word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(EntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidMnemonic reports whether the phrase passes BIP-39 validation
// (word count, wordlist membership, checksum).
func ValidMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// Seed derives the 512-bit BIP-39 seed from a mnemonic and optional
// passphrase.
func Seed(mnemonic, passphrase string) ([]byte, error) {
	if !ValidMnemonic(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
