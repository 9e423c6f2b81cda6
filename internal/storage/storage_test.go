package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/types"
)

func sampleSnapshot(t *testing.T) Snapshot {
	t.Helper()
	priv, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}

	block := types.Block{
		Header: types.BlockHeader{
			Timestamp:     1_700_000_000,
			PrevBlockHash: types.ZeroHash,
			Nonce:         7,
			Target:        uint256.NewInt(0xFFFFFFFF),
			MerkleRoot:    types.Hash{0x03},
		},
		Transactions: []types.Transaction{
			{
				Inputs:  []types.TransactionInput{{PrevOutputHash: types.ZeroHash}},
				Outputs: []types.TransactionOutput{{Value: 5000, UniqueID: uuid.New(), Pubkey: priv.PublicKey()}},
			},
		},
	}

	return Snapshot{Blocks: []types.Block{block}, Target: uint256.NewInt(0xFFFFFFFF)}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.bin")
	snap := sampleSnapshot(t)

	if err := Save(path, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("Load reported no existing file after Save")
	}

	if len(loaded.Blocks) != 1 {
		t.Fatalf("loaded %d blocks, want 1", len(loaded.Blocks))
	}
	if loaded.Blocks[0].Header.Nonce != snap.Blocks[0].Header.Nonce {
		t.Errorf("nonce round-tripped wrong: got %d, want %d", loaded.Blocks[0].Header.Nonce, snap.Blocks[0].Header.Nonce)
	}
	if loaded.Target.Cmp(snap.Target) != 0 {
		t.Errorf("target round-tripped wrong: got %s, want %s", loaded.Target.Hex(), snap.Target.Hex())
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.bin")

	_, ok, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("Load reported an existing file at a path that was never written")
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.bin")
	if err := Save(path, sampleSnapshot(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}
	data[0] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	if _, _, err := Load(path); err == nil {
		t.Fatal("expected a bad-magic error loading a corrupted chain file")
	}
}
