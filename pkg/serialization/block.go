package serialization

import (
	"bytes"
	"io"

	"github.com/holiman/uint256"

	"github.com/educhain/chainnode/pkg/crypto"
	"github.com/educhain/chainnode/pkg/types"
)

// SerializeBlockHeader converts a header to its fixed-size byte form:
// 4 (timestamp) + 32 (prev hash) + 8 (nonce) + 32 (target) + 32 (merkle root).
func SerializeBlockHeader(bh *types.BlockHeader) ([]byte, error) {
	var buf bytes.Buffer

	if err := WriteUint32(&buf, bh.Timestamp); err != nil {
		return nil, err
	}
	buf.Write(bh.PrevBlockHash[:])
	if err := WriteUint64(&buf, bh.Nonce); err != nil {
		return nil, err
	}

	target := bh.Target
	if target == nil {
		target = new(uint256.Int)
	}
	targetBytes := target.Bytes32()
	buf.Write(targetBytes[:])

	buf.Write(bh.MerkleRoot[:])

	return buf.Bytes(), nil
}

// DeserializeBlockHeader reads a header back from bytes.
func DeserializeBlockHeader(r io.Reader) (*types.BlockHeader, error) {
	var bh types.BlockHeader
	var err error

	if bh.Timestamp, err = ReadUint32(r); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, bh.PrevBlockHash[:]); err != nil {
		return nil, err
	}
	if bh.Nonce, err = ReadUint64(r); err != nil {
		return nil, err
	}

	var targetBytes [32]byte
	if _, err = io.ReadFull(r, targetBytes[:]); err != nil {
		return nil, err
	}
	bh.Target = new(uint256.Int).SetBytes(targetBytes[:])

	if _, err = io.ReadFull(r, bh.MerkleRoot[:]); err != nil {
		return nil, err
	}

	return &bh, nil
}

// HashBlockHeader computes a block's hash from its header.
func HashBlockHeader(bh *types.BlockHeader) (types.Hash, error) {
	serialized, err := SerializeBlockHeader(bh)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.HashBlockHeader(serialized), nil
}

// SerializeBlock serializes a complete block: header then transactions.
func SerializeBlock(block *types.Block) ([]byte, error) {
	var buf bytes.Buffer

	headerBytes, err := SerializeBlockHeader(&block.Header)
	if err != nil {
		return nil, err
	}
	buf.Write(headerBytes)

	if err := WriteVarInt(&buf, uint64(len(block.Transactions))); err != nil {
		return nil, err
	}
	for i := range block.Transactions {
		txBytes, err := SerializeTransaction(&block.Transactions[i])
		if err != nil {
			return nil, err
		}
		buf.Write(txBytes)
	}

	return buf.Bytes(), nil
}

// DeserializeBlock reads a complete block from bytes.
func DeserializeBlock(data []byte) (*types.Block, error) {
	r := bytes.NewReader(data)

	header, err := DeserializeBlockHeader(r)
	if err != nil {
		return nil, err
	}

	txCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	txs := make([]types.Transaction, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx, err := DeserializeTransaction(r)
		if err != nil {
			return nil, err
		}
		txs[i] = *tx
	}

	return &types.Block{
		Header:       *header,
		Transactions: txs,
	}, nil
}
