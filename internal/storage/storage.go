// Package storage persists the Blockchain's durable state — blocks and the
// proof-of-work target — to a single binary file, reusing the same var-int
// framing pkg/serialization already uses for network messages. The mempool
// is never persisted, matching the design the original node follows.
package storage

import (
	"bytes"
	"fmt"
	"os"

	"github.com/holiman/uint256"

	"github.com/educhain/chainnode/pkg/serialization"
	"github.com/educhain/chainnode/pkg/types"
)

// fileMagic guards against loading an unrelated file as a chain blob.
const fileMagic uint32 = 0xB10C0001

// Snapshot is everything Save/Load round-trips: the block list and the
// current difficulty target. UTXOs are rebuilt from blocks after Load,
// never stored directly.
type Snapshot struct {
	Blocks []types.Block
	Target *uint256.Int
}

// Save writes snap to path, overwriting any existing file.
func Save(path string, snap Snapshot) error {
	var buf bytes.Buffer

	if err := serialization.WriteUint32(&buf, fileMagic); err != nil {
		return err
	}

	target := snap.Target
	if target == nil {
		target = new(uint256.Int)
	}
	targetBytes := target.Bytes32()
	buf.Write(targetBytes[:])

	if err := serialization.WriteVarInt(&buf, uint64(len(snap.Blocks))); err != nil {
		return err
	}
	for i := range snap.Blocks {
		blockBytes, err := serialization.SerializeBlock(&snap.Blocks[i])
		if err != nil {
			return fmt.Errorf("serialize block %d: %w", i, err)
		}
		if err := serialization.WriteBytes(&buf, blockBytes); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp chain file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace chain file: %w", err)
	}
	return nil
}

// Load reads a snapshot previously written by Save. It returns
// (Snapshot{}, false, nil) when no file exists at path.
func Load(path string) (Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read chain file: %w", err)
	}

	r := bytes.NewReader(data)

	magic, err := serialization.ReadUint32(r)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read magic: %w", err)
	}
	if magic != fileMagic {
		return Snapshot{}, false, fmt.Errorf("bad chain file magic: %x", magic)
	}

	var targetBytes [32]byte
	if _, err := r.Read(targetBytes[:]); err != nil {
		return Snapshot{}, false, fmt.Errorf("read target: %w", err)
	}
	target := new(uint256.Int).SetBytes(targetBytes[:])

	count, err := serialization.ReadVarInt(r)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read block count: %w", err)
	}

	blocks := make([]types.Block, count)
	for i := uint64(0); i < count; i++ {
		blockBytes, err := serialization.ReadBytes(r)
		if err != nil {
			return Snapshot{}, false, fmt.Errorf("read block %d: %w", i, err)
		}
		block, err := serialization.DeserializeBlock(blockBytes)
		if err != nil {
			return Snapshot{}, false, fmt.Errorf("deserialize block %d: %w", i, err)
		}
		blocks[i] = *block
	}

	return Snapshot{Blocks: blocks, Target: target}, true, nil
}
