package keys

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed envelope layout:
//
//	salt(32) | memory(4, LE) | passes(4, LE) | threads(1) | nonce(24) | ciphertext
const (
	saltSize   = 32
	envHeader  = saltSize + 4 + 4 + 1
	envMinSize = envHeader + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
)

// KDFParams holds the Argon2id cost parameters baked into each envelope,
// so old keystores stay readable after defaults change.
type KDFParams struct {
	Memory  uint32 // KiB
	Passes  uint32
	Threads uint8
}

// DefaultKDFParams returns the current recommended Argon2id costs.
func DefaultKDFParams() KDFParams {
	return KDFParams{Memory: 64 * 1024, Passes: 3, Threads: 4}
}

func (p KDFParams) derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Passes, p.Memory, p.Threads, chacha20poly1305.KeySize)
}

// Seal encrypts secret under password with Argon2id + XChaCha20-Poly1305.
func Seal(secret, password []byte, params KDFParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := params.derive(password, salt)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	out := make([]byte, 0, envHeader+len(nonce)+len(secret)+chacha20poly1305.Overhead)
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, params.Memory)
	out = binary.LittleEndian.AppendUint32(out, params.Passes)
	out = append(out, params.Threads)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, secret, nil), nil
}

// Open decrypts an envelope produced by Seal.
func Open(envelope, password []byte) ([]byte, error) {
	if len(envelope) < envMinSize {
		return nil, fmt.Errorf("sealed data too short: %d bytes, need at least %d", len(envelope), envMinSize)
	}

	salt := envelope[:saltSize]
	params := KDFParams{
		Memory:  binary.LittleEndian.Uint32(envelope[saltSize:]),
		Passes:  binary.LittleEndian.Uint32(envelope[saltSize+4:]),
		Threads: envelope[saltSize+8],
	}
	nonce := envelope[envHeader : envHeader+chacha20poly1305.NonceSizeX]
	ciphertext := envelope[envHeader+chacha20poly1305.NonceSizeX:]

	key := params.derive(password, salt)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	secret, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return secret, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
