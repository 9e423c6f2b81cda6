package serialization

import (
	"bytes"
	"io"

	"github.com/educhain/chainnode/pkg/crypto"
	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/types"
)

// SerializeTransaction converts a transaction to bytes. Field order must
// match between Serialize/Deserialize and between every node on the
// network, or hashes silently diverge.
func SerializeTransaction(tx *types.Transaction) ([]byte, error) {
	var buf bytes.Buffer

	if err := WriteVarInt(&buf, uint64(len(tx.Inputs))); err != nil {
		return nil, err
	}
	for _, input := range tx.Inputs {
		buf.Write(input.PrevOutputHash[:])

		var sigBytes []byte
		if input.Signature != nil {
			sigBytes = input.Signature.Serialize()
		}
		if err := WriteBytes(&buf, sigBytes); err != nil {
			return nil, err
		}
	}

	if err := WriteVarInt(&buf, uint64(len(tx.Outputs))); err != nil {
		return nil, err
	}
	for i := range tx.Outputs {
		outBytes, err := SerializeOutput(&tx.Outputs[i])
		if err != nil {
			return nil, err
		}
		buf.Write(outBytes)
	}

	return buf.Bytes(), nil
}

// DeserializeTransaction reads a transaction from bytes.
func DeserializeTransaction(r io.Reader) (*types.Transaction, error) {
	var tx types.Transaction

	inputCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	tx.Inputs = make([]types.TransactionInput, inputCount)
	for i := uint64(0); i < inputCount; i++ {
		if _, err := io.ReadFull(r, tx.Inputs[i].PrevOutputHash[:]); err != nil {
			return nil, err
		}
		sigBytes, err := ReadBytes(r)
		if err != nil {
			return nil, err
		}
		if len(sigBytes) > 0 {
			sig, err := keys.ParseSignature(sigBytes)
			if err != nil {
				return nil, err
			}
			tx.Inputs[i].Signature = sig
		}
	}

	outputCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]types.TransactionOutput, outputCount)
	for i := uint64(0); i < outputCount; i++ {
		out, err := DeserializeOutput(r)
		if err != nil {
			return nil, err
		}
		tx.Outputs[i] = *out
	}

	return &tx, nil
}

// HashTransaction computes a transaction's id.
func HashTransaction(tx *types.Transaction) (types.Hash, error) {
	serialized, err := SerializeTransaction(tx)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.HashTransaction(serialized), nil
}
