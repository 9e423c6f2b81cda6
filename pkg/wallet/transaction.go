package wallet

import (
	"github.com/google/uuid"

	"github.com/educhain/chainnode/internal/errs"
	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/types"
)

// CreateTransaction implements spec 4.7's coin selection: walk the cached
// UTXO view in insertion order, skipping marked (reserved) entries,
// accumulating inputs until input_sum >= amount + fee(amount). Each
// selected input is signed over its own referenced output hash. A change
// output returns input_sum - amount - fee to the wallet's first key when
// positive.
func (w *Wallet) CreateTransaction(recipient *keys.PublicKey, amount uint64) (*types.Transaction, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.keyOrder) == 0 {
		return nil, &errs.InsufficientFunds{Have: 0, Need: amount}
	}

	fee := w.fee.Fee(amount)
	threshold := amount + fee

	var selected []OwnedUTXO
	var inputSum uint64
	for _, u := range w.utxoCache {
		if u.Marked {
			continue
		}
		selected = append(selected, u)
		inputSum += u.Output.Value
		if inputSum >= threshold {
			break
		}
	}
	if inputSum < threshold {
		return nil, &errs.InsufficientFunds{Have: inputSum, Need: threshold}
	}

	tx := &types.Transaction{
		Inputs:  make([]types.TransactionInput, len(selected)),
		Outputs: []types.TransactionOutput{{Value: amount, UniqueID: uuid.New(), Pubkey: recipient}},
	}

	for i, u := range selected {
		priv, ok := w.keyFor(u.Output.Pubkey)
		if !ok {
			return nil, &errs.InvalidPrivateKey{Reason: "no key owns a selected utxo"}
		}
		sig, err := priv.Sign(u.OutputHash[:])
		if err != nil {
			return nil, err
		}
		tx.Inputs[i] = types.TransactionInput{PrevOutputHash: u.OutputHash, Signature: sig}
	}

	if change := inputSum - amount - fee; change > 0 {
		firstOwnKey := w.keys[w.keyOrder[0]].PublicKey()
		tx.Outputs = append(tx.Outputs, types.TransactionOutput{
			Value:    change,
			UniqueID: uuid.New(),
			Pubkey:   firstOwnKey,
		})
	}

	return tx, nil
}
