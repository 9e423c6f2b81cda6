package chain

import (
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/educhain/chainnode/pkg/crypto"
	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/serialization"
	"github.com/educhain/chainnode/pkg/types"
)

// BuildTemplate implements the FetchTemplate handler's construction step:
// snapshot (mempool txs, prev hash, target, utxos, reward) under the read
// lock, then build the candidate block entirely outside it. The miner-fee
// total is computed from the UTXO snapshot, the coinbase output is set to
// reward+fees, and only then is the Merkle root computed, since the
// coinbase's own hash feeds the root it names.
func (bc *Blockchain) BuildTemplate(minerPubkey *keys.PublicKey) (types.Block, error) {
	bc.mu.RLock()
	mempoolTxs := make([]types.Transaction, len(bc.mempool))
	for i, e := range bc.mempool {
		mempoolTxs[i] = e.Tx
	}
	if len(mempoolTxs) > BlockTransactionCap {
		mempoolTxs = mempoolTxs[:BlockTransactionCap]
	}
	prevHash, err := bc.tipLocked()
	if err != nil {
		bc.mu.RUnlock()
		return types.Block{}, err
	}
	target := new(uint256.Int).Set(bc.target)
	reward := BlockReward(uint64(len(bc.blocks)))
	utxos := make(map[types.Hash]UTXOEntry, len(bc.utxos))
	for k, v := range bc.utxos {
		utxos[k] = v
	}
	bc.mu.RUnlock()

	coinbase := types.Transaction{
		Inputs: []types.TransactionInput{{PrevOutputHash: types.ZeroHash}},
		Outputs: []types.TransactionOutput{{
			Value:    0,
			UniqueID: uuid.New(),
			Pubkey:   minerPubkey,
		}},
	}

	txs := append([]types.Transaction{coinbase}, mempoolTxs...)

	fees := minerFeesAgainst(utxos, mempoolTxs)
	coinbase.Outputs[0].Value = reward + fees
	txs[0] = coinbase

	merkleRoot, err := merkleRootOf(txs)
	if err != nil {
		return types.Block{}, err
	}

	header := types.BlockHeader{
		Timestamp:     uint32(now().Unix()),
		PrevBlockHash: prevHash,
		Nonce:         0,
		Target:        target,
		MerkleRoot:    merkleRoot,
	}

	return types.Block{Header: header, Transactions: txs}, nil
}

func minerFeesAgainst(utxos map[types.Hash]UTXOEntry, txs []types.Transaction) uint64 {
	var total uint64
	for i := range txs {
		var inputSum, outputSum uint64
		for _, in := range txs[i].Inputs {
			inputSum += utxos[in.PrevOutputHash].Output.Value
		}
		for _, out := range txs[i].Outputs {
			outputSum += out.Value
		}
		if inputSum >= outputSum {
			total += inputSum - outputSum
		}
	}
	return total
}

func merkleRootOf(txs []types.Transaction) (types.Hash, error) {
	hashes := make([]types.Hash, len(txs))
	for i := range txs {
		h, err := serialization.HashTransaction(&txs[i])
		if err != nil {
			return types.Hash{}, err
		}
		hashes[i] = h
	}
	return crypto.ComputeMerkleRoot(hashes), nil
}

// ValidateTemplate reports whether block's prev hash still matches the
// current tip, the ValidateTemplate message's whole contract.
func (bc *Blockchain) ValidateTemplate(block types.Block) (bool, error) {
	tip, err := bc.Tip()
	if err != nil {
		return false, err
	}
	return block.Header.PrevBlockHash == tip, nil
}
