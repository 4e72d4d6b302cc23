package rpc

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sigilnet/sigil/pkg/crypto"
	"github.com/sigilnet/sigil/pkg/types"
)

// SigningDigest computes the 32-byte digest a caller signs for a mutation:
// BLAKE3 over the method name and the request fields, one per line. Field
// order is fixed per method, so client and server derive the same digest
// without JSON canonicalization.
func SigningDigest(method string, fields ...string) []byte {
	payload := method + "\n" + strings.Join(fields, "\n")
	h := crypto.Hash([]byte(payload))
	return h[:]
}

// checkAuth verifies a mutation request's authorization. When the server
// requires signatures, auth must be present; when present, the Schnorr
// signature must verify against the digest and the public key must hash
// to the caller address. An unsigned request on a trusting server passes.
func (s *Server) checkAuth(caller types.Address, auth *Auth, method string, fields ...string) *Error {
	if auth == nil {
		if s.requireSigned {
			return &Error{Code: CodeUnauthorized, Message: "signed request required"}
		}
		return nil
	}

	pubKey, err := hex.DecodeString(auth.PubKey)
	if err != nil || len(pubKey) != 33 {
		return &Error{Code: CodeInvalidParams, Message: "auth.pubkey must be 33-byte hex"}
	}
	sig, err := hex.DecodeString(auth.Signature)
	if err != nil || len(sig) != 64 {
		return &Error{Code: CodeInvalidParams, Message: "auth.signature must be 64-byte hex"}
	}

	if crypto.AddressFromPubKey(pubKey) != caller {
		return &Error{Code: CodeUnauthorized, Message: "auth.pubkey does not match caller address"}
	}
	if !crypto.VerifySignature(SigningDigest(method, fields...), sig, pubKey) {
		return &Error{Code: CodeUnauthorized, Message: fmt.Sprintf("invalid signature for %s", method)}
	}
	return nil
}
