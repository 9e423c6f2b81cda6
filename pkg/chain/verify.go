package chain

import (
	"github.com/educhain/chainnode/internal/errs"
	"github.com/educhain/chainnode/pkg/types"
)

// verifyTransactionsLocked implements spec 4.3's verify_transactions: the
// first transaction must be a coinbase whose output sum equals the block
// reward plus fees; every other transaction must reference live UTXOs with
// verifying signatures, with no input referenced twice across the block.
// Callers hold bc.mu for writing.
func (bc *Blockchain) verifyTransactionsLocked(height uint64, txs []types.Transaction) error {
	if len(txs) == 0 || !txs[0].IsCoinbase() {
		return &errs.InvalidBlock{Reason: "first transaction must be a coinbase"}
	}

	seenInputs := make(map[types.Hash]struct{})
	var totalFees uint64

	for i := 1; i < len(txs); i++ {
		tx := &txs[i]
		if tx.IsCoinbase() {
			return &errs.InvalidTransaction{Reason: "only the first transaction may be a coinbase"}
		}

		var inputSum uint64
		for _, in := range tx.Inputs {
			if _, dup := seenInputs[in.PrevOutputHash]; dup {
				return &errs.InvalidTransaction{Reason: "input referenced twice within block"}
			}
			seenInputs[in.PrevOutputHash] = struct{}{}

			entry, ok := bc.utxos[in.PrevOutputHash]
			if !ok {
				return &errs.InvalidTransaction{Reason: "input references unknown utxo"}
			}
			if in.Signature == nil || entry.Output.Pubkey == nil ||
				!entry.Output.Pubkey.Verify(in.PrevOutputHash[:], in.Signature) {
				return &errs.InvalidSignature{}
			}
			inputSum += entry.Output.Value
		}

		var outputSum uint64
		for _, out := range tx.Outputs {
			outputSum += out.Value
		}
		if inputSum < outputSum {
			return &errs.InvalidTransaction{Reason: "outputs exceed inputs"}
		}
		totalFees += inputSum - outputSum
	}

	var coinbaseSum uint64
	for _, out := range txs[0].Outputs {
		coinbaseSum += out.Value
	}
	if coinbaseSum != BlockReward(height)+totalFees {
		return &errs.InvalidTransaction{Reason: "coinbase value does not match reward plus fees"}
	}

	return nil
}

// CalculateMinerFees sums (input value - output value) over every
// non-coinbase transaction in txs against the current UTXO snapshot,
// matching the node's FetchTemplate coinbase-value computation.
func (bc *Blockchain) CalculateMinerFees(txs []types.Transaction) (uint64, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	var total uint64
	for i := range txs {
		tx := &txs[i]
		var inputSum, outputSum uint64
		for _, in := range tx.Inputs {
			entry, ok := bc.utxos[in.PrevOutputHash]
			if !ok {
				continue
			}
			inputSum += entry.Output.Value
		}
		for _, out := range tx.Outputs {
			outputSum += out.Value
		}
		if inputSum >= outputSum {
			total += inputSum - outputSum
		}
	}
	return total, nil
}
