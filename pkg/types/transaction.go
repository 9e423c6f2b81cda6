package types

import (
	"github.com/google/uuid"

	"github.com/educhain/chainnode/pkg/keys"
)

// TransactionInput references a previously created output by the hash of
// that output itself. There is no output index: the output hash is the key
// of the UTXO set, so validation looks it up directly instead of by a
// (txid, index) pair.
type TransactionInput struct {
	PrevOutputHash Hash
	Signature      *keys.Signature
}

// TransactionOutput sends value to a public key directly. UniqueID
// disambiguates outputs that would otherwise collide in the UTXO set, most
// importantly two coinbase outputs of identical value to the same miner key.
type TransactionOutput struct {
	Value    uint64
	UniqueID uuid.UUID
	Pubkey   *keys.PublicKey
}

// Transaction moves value from a set of referenced outputs to a new set of
// outputs. It carries no version or locktime field; those are Bitcoin
// concerns this model doesn't reproduce.
type Transaction struct {
	Inputs  []TransactionInput
	Outputs []TransactionOutput
}

// IsCoinbase reports whether this is a reward transaction: exactly one
// input, referencing the zero hash.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].PrevOutputHash.IsZero()
}
