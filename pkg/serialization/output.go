package serialization

import (
	"bytes"
	"io"

	"github.com/google/uuid"

	"github.com/educhain/chainnode/pkg/crypto"
	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/types"
)

// SerializeOutput converts a single output to bytes, used both as part of a
// transaction and standalone as the UTXO set's hash key.
func SerializeOutput(out *types.TransactionOutput) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteUint64(&buf, out.Value); err != nil {
		return nil, err
	}
	idBytes, err := out.UniqueID.MarshalBinary()
	if err != nil {
		return nil, err
	}
	buf.Write(idBytes)

	var pubBytes []byte
	if out.Pubkey != nil {
		pubBytes = out.Pubkey.Bytes(true)
	}
	if err := WriteBytes(&buf, pubBytes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeOutput reads a single output, the inverse of SerializeOutput.
func DeserializeOutput(r io.Reader) (*types.TransactionOutput, error) {
	var out types.TransactionOutput

	val, err := ReadUint64(r)
	if err != nil {
		return nil, err
	}
	out.Value = val

	var idBytes [16]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		return nil, err
	}
	id, err := uuid.FromBytes(idBytes[:])
	if err != nil {
		return nil, err
	}
	out.UniqueID = id

	pubBytes, err := ReadBytes(r)
	if err != nil {
		return nil, err
	}
	if len(pubBytes) > 0 {
		pub, err := keys.NewPublicKeyFromBytes(pubBytes)
		if err != nil {
			return nil, err
		}
		out.Pubkey = pub
	}

	return &out, nil
}

// HashOutput computes the UTXO set key for an output.
func HashOutput(out *types.TransactionOutput) (types.Hash, error) {
	data, err := SerializeOutput(out)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.DoubleSHA256(data), nil
}
