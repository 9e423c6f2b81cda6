package crypto

import (
	"crypto/sha256"

	"github.com/educhain/chainnode/pkg/types"
)

// DoubleSHA256 hashes data twice, guarding against length-extension attacks.
func DoubleSHA256(data []byte) types.Hash {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second
}

// HashTransaction computes a transaction's id from its serialized bytes.
func HashTransaction(data []byte) types.Hash {
	return DoubleSHA256(data)
}

// HashBlockHeader computes a block's hash from its serialized header bytes.
func HashBlockHeader(data []byte) types.Hash {
	return DoubleSHA256(data)
}
