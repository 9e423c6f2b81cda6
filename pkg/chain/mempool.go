package chain

import (
	"sort"
	"time"

	"github.com/educhain/chainnode/internal/errs"
	"github.com/educhain/chainnode/pkg/types"
)

// AddToMempool implements spec 4.2: validates references and balance,
// evicts any conflicting predecessor via replace-by-fee, marks the UTXOs
// the new transaction reserves, and re-sorts the mempool by descending fee.
// Signature verification is deliberately deferred to block inclusion (see
// design notes); this mirrors the source's documented choice.
func (bc *Blockchain) AddToMempool(tx types.Transaction) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	seen := make(map[types.Hash]struct{}, len(tx.Inputs))
	var inputSum uint64
	for _, in := range tx.Inputs {
		if _, dup := seen[in.PrevOutputHash]; dup {
			return &errs.InvalidTransaction{Reason: "self-double-spend within transaction"}
		}
		seen[in.PrevOutputHash] = struct{}{}

		entry, ok := bc.utxos[in.PrevOutputHash]
		if !ok {
			return &errs.InvalidTransaction{Reason: "input references unknown utxo"}
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

	for _, in := range tx.Inputs {
		entry := bc.utxos[in.PrevOutputHash]
		if entry.Marked {
			bc.evictConflictLocked(in.PrevOutputHash)
		}
	}

	for _, in := range tx.Inputs {
		entry := bc.utxos[in.PrevOutputHash]
		entry.Marked = true
		bc.utxos[in.PrevOutputHash] = entry
	}

	bc.mempool = append(bc.mempool, MempoolEntry{InsertedAt: now(), Tx: tx})
	bc.sortMempoolLocked()
	return nil
}

// evictConflictLocked implements the RBF reverse-lookup: find the mempool
// transaction that owns markedKey — the one with an input referencing it —
// remove it, and unmark every UTXO it had reserved. If none is found the
// flag is cleared defensively.
func (bc *Blockchain) evictConflictLocked(markedKey types.Hash) {
	ownerIdx := -1
	for i := range bc.mempool {
		for _, in := range bc.mempool[i].Tx.Inputs {
			if in.PrevOutputHash == markedKey {
				ownerIdx = i
				break
			}
		}
		if ownerIdx >= 0 {
			break
		}
	}

	if ownerIdx < 0 {
		entry := bc.utxos[markedKey]
		entry.Marked = false
		bc.utxos[markedKey] = entry
		return
	}

	evicted := bc.mempool[ownerIdx]
	bc.mempool = append(bc.mempool[:ownerIdx], bc.mempool[ownerIdx+1:]...)
	for _, in := range evicted.Tx.Inputs {
		entry := bc.utxos[in.PrevOutputHash]
		entry.Marked = false
		bc.utxos[in.PrevOutputHash] = entry
	}
}

func feeOf(entries map[types.Hash]UTXOEntry, tx *types.Transaction) uint64 {
	var inputSum, outputSum uint64
	for _, in := range tx.Inputs {
		inputSum += entries[in.PrevOutputHash].Output.Value
	}
	for _, out := range tx.Outputs {
		outputSum += out.Value
	}
	if inputSum < outputSum {
		return 0
	}
	return inputSum - outputSum
}

func (bc *Blockchain) sortMempoolLocked() {
	sort.SliceStable(bc.mempool, func(i, j int) bool {
		return feeOf(bc.utxos, &bc.mempool[i].Tx) > feeOf(bc.utxos, &bc.mempool[j].Tx)
	})
}

// CleanupMempool implements spec 4.5: evict every entry older than
// MaxMempoolTransactionAgeSecs, unmarking the UTXOs it reserved.
func (bc *Blockchain) CleanupMempool() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	cutoff := now().Add(-MaxMempoolTransactionAgeSecs * time.Second)
	kept := bc.mempool[:0]
	for _, entry := range bc.mempool {
		if entry.InsertedAt.Before(cutoff) {
			for _, in := range entry.Tx.Inputs {
				u := bc.utxos[in.PrevOutputHash]
				u.Marked = false
				bc.utxos[in.PrevOutputHash] = u
			}
			continue
		}
		kept = append(kept, entry)
	}
	bc.mempool = kept
}

// MempoolSnapshot returns a defensive copy of the current mempool,
// ordered by descending fee, for template construction under a read lock.
func (bc *Blockchain) MempoolSnapshot() []types.Transaction {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	out := make([]types.Transaction, len(bc.mempool))
	for i, e := range bc.mempool {
		out[i] = e.Tx
	}
	return out
}

// now is overridable in tests that need deterministic mempool ages.
var now = time.Now
