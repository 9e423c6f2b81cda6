package types

import "github.com/holiman/uint256"

// BlockHeader is the metadata a miner hashes and grinds a nonce against.
type BlockHeader struct {
	Timestamp     uint32
	PrevBlockHash Hash
	Nonce         uint64
	Target        *uint256.Int
	MerkleRoot    Hash
}

// Block is a full block: header plus the transactions it commits to via
// MerkleRoot. The first transaction is always the coinbase.
type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// TxHashes returns hashTx applied to each transaction, in order, for
// Merkle root computation.
func (b *Block) TxHashes(hashTx func(*Transaction) Hash) []Hash {
	hashes := make([]Hash, len(b.Transactions))
	for i := range b.Transactions {
		hashes[i] = hashTx(&b.Transactions[i])
	}
	return hashes
}
