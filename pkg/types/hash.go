// Package types holds the wire-level data model: hashes, transactions and
// blocks. Nothing in this package validates anything; that lives in
// pkg/chain.
package types

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Hash is a 32-byte digest, always produced by double SHA-256.
type Hash [32]byte

// ZeroHash is the sentinel used as a genesis block's previous-block-hash
// and as a coinbase input's (absent) referenced output.
var ZeroHash = Hash{}

// String returns hex representation for printing.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// NewHashFromString creates a hash from a hex string. Mainly useful in tests.
func NewHashFromString(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != 32 {
		return h, fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// IsZero checks if hash is all zeros (used for the genesis block's previous
// hash, and for a coinbase input's absent reference).
func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// MatchesTarget reports whether h, read as a big-endian 256-bit unsigned
// integer, is at most target.
func (h Hash) MatchesTarget(target *uint256.Int) bool {
	if target == nil {
		return false
	}
	asInt := new(uint256.Int).SetBytes(h[:])
	return asInt.Cmp(target) <= 0
}

// Big returns h interpreted as a big-endian unsigned integer, useful for
// arithmetic that doesn't fit in 256 bits.
func (h Hash) Big() *big.Int {
	return new(big.Int).SetBytes(h[:])
}
