package keys

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PublicKey wraps a secp256k1 public key. Outputs bind directly to one of
// these; there is no address or script layer on top.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// NewPublicKeyFromBytes parses a compressed or uncompressed serialized
// public key, as read off the wire or a UTXO record.
func NewPublicKeyFromBytes(data []byte) (*PublicKey, error) {
	key, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return &PublicKey{key: key}, nil
}

// Bytes returns the serialized public key, in compressed or uncompressed
// form as the caller asks.
func (pub *PublicKey) Bytes(compressed bool) []byte {
	if compressed {
		return pub.key.SerializeCompressed()
	}
	return pub.key.SerializeUncompressed()
}

// String returns hex representation.
func (pub *PublicKey) String() string {
	return fmt.Sprintf("%x", pub.Bytes(true))
}

// Equal reports whether two public keys serialize to the same bytes.
func (pub *PublicKey) Equal(other *PublicKey) bool {
	if pub == nil || other == nil {
		return pub == other
	}
	return pub.key.IsEqual(other.key)
}

// Verify verifies a signature against a message hash.
func (pub *PublicKey) Verify(hash []byte, sig *Signature) bool {
	if len(hash) != 32 {
		return false
	}
	return sig.sig.Verify(hash, pub.key)
}
