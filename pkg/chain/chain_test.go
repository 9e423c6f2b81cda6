package chain

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/mining"
	"github.com/educhain/chainnode/pkg/serialization"
	"github.com/educhain/chainnode/pkg/types"
)

func mustKey(t *testing.T) *keys.PrivateKey {
	t.Helper()
	priv, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	return priv
}

func coinbaseTx(t *testing.T, to *keys.PublicKey, value uint64) types.Transaction {
	t.Helper()
	return types.Transaction{
		Inputs:  []types.TransactionInput{{PrevOutputHash: types.ZeroHash}},
		Outputs: []types.TransactionOutput{{Value: value, UniqueID: uuid.New(), Pubkey: to}},
	}
}

// blockTimestamps hands out strictly increasing timestamps so successive
// mineBlock calls within the same wall-clock second never collide.
var blockTimestamps = uint32(time.Now().Unix())

func nextTimestamp() uint32 {
	blockTimestamps++
	return blockTimestamps
}

// mineBlock grinds a valid header for the given transactions against an
// easy target, the way cmd/miner does against a node's template.
func mineBlock(t *testing.T, prevHash types.Hash, txs []types.Transaction) types.Block {
	t.Helper()
	block := types.Block{
		Header: types.BlockHeader{
			Timestamp:     nextTimestamp(),
			PrevBlockHash: prevHash,
			Target:        MinTarget(),
		},
		Transactions: txs,
	}
	mr, err := merkleRootOf(txs)
	if err != nil {
		t.Fatalf("merkleRootOf: %v", err)
	}
	block.Header.MerkleRoot = mr

	mined, err := mining.Mine(context.Background(), block, nil)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	return mined
}

func TestAddBlockGenesis(t *testing.T) {
	bc := New()
	minerKey := mustKey(t)

	genesis := mineBlock(t, types.ZeroHash, []types.Transaction{
		coinbaseTx(t, minerKey.PublicKey(), BlockReward(0)),
	})

	if err := bc.AddBlock(genesis); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}
	if bc.Height() != 1 {
		t.Fatalf("height = %d, want 1", bc.Height())
	}
}

func TestAddBlockRejectsWrongPrevHash(t *testing.T) {
	bc := New()
	minerKey := mustKey(t)

	genesis := mineBlock(t, types.ZeroHash, []types.Transaction{
		coinbaseTx(t, minerKey.PublicKey(), BlockReward(0)),
	})
	if err := bc.AddBlock(genesis); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}

	bogus := mineBlock(t, types.Hash{0xAA}, []types.Transaction{
		coinbaseTx(t, minerKey.PublicKey(), BlockReward(1)),
	})
	if err := bc.AddBlock(bogus); err == nil {
		t.Fatal("expected error appending a block with a stale prev_block_hash")
	}
	if bc.Height() != 1 {
		t.Fatalf("height changed after rejected append: %d", bc.Height())
	}
}

func TestRebuildUTXOsCountsCoinbaseOutputs(t *testing.T) {
	bc := New()
	minerKey := mustKey(t)

	genesis := mineBlock(t, types.ZeroHash, []types.Transaction{
		coinbaseTx(t, minerKey.PublicKey(), BlockReward(0)),
	})
	if err := bc.AddBlock(genesis); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}

	tip, err := bc.Tip()
	if err != nil {
		t.Fatalf("Tip: %v", err)
	}
	second := mineBlock(t, tip, []types.Transaction{
		coinbaseTx(t, minerKey.PublicKey(), BlockReward(1)),
	})
	if err := bc.AddBlock(second); err != nil {
		t.Fatalf("AddBlock(second): %v", err)
	}

	if got := bc.UTXOCount(); got != 2 {
		t.Fatalf("UTXOCount = %d, want 2", got)
	}

	if err := bc.RebuildUTXOs(); err != nil {
		t.Fatalf("RebuildUTXOs: %v", err)
	}
	if got := bc.UTXOCount(); got != 2 {
		t.Fatalf("UTXOCount after rebuild = %d, want 2", got)
	}

	entries := bc.UTXOsForPubkey(minerKey.PublicKey())
	if len(entries) != 2 {
		t.Fatalf("UTXOsForPubkey = %d entries, want 2", len(entries))
	}
}

// spendableChain mines a genesis paying value to payer, returning the chain
// and the hash keying that output in the UTXO set.
func spendableChain(t *testing.T, payer *keys.PrivateKey, value uint64) (*Blockchain, types.Hash) {
	t.Helper()
	bc := New()
	genesis := mineBlock(t, types.ZeroHash, []types.Transaction{
		coinbaseTx(t, payer.PublicKey(), value),
	})
	if err := bc.AddBlock(genesis); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}
	outHash, err := serialization.HashOutput(&genesis.Transactions[0].Outputs[0])
	if err != nil {
		t.Fatalf("HashOutput: %v", err)
	}
	return bc, outHash
}

func spendTx(t *testing.T, payer *keys.PrivateKey, outHash types.Hash, to *keys.PublicKey, value uint64) types.Transaction {
	t.Helper()
	sig, err := payer.Sign(outHash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return types.Transaction{
		Inputs:  []types.TransactionInput{{PrevOutputHash: outHash, Signature: sig}},
		Outputs: []types.TransactionOutput{{Value: value, UniqueID: uuid.New(), Pubkey: to}},
	}
}

func TestMempoolReplaceByFee(t *testing.T) {
	payer := mustKey(t)
	recipient1 := mustKey(t)
	recipient2 := mustKey(t)

	bc, outHash := spendableChain(t, payer, BlockReward(0))

	tx1 := spendTx(t, payer, outHash, recipient1.PublicKey(), BlockReward(0))
	if err := bc.AddToMempool(tx1); err != nil {
		t.Fatalf("AddToMempool(tx1): %v", err)
	}

	// tx2 spends the same output with a higher fee (smaller output value).
	tx2 := spendTx(t, payer, outHash, recipient2.PublicKey(), BlockReward(0)/2)
	if err := bc.AddToMempool(tx2); err != nil {
		t.Fatalf("AddToMempool(tx2): %v", err)
	}

	snapshot := bc.MempoolSnapshot()
	if len(snapshot) != 1 {
		t.Fatalf("mempool length = %d, want 1 after replace-by-fee", len(snapshot))
	}
	tx2Hash, err := serialization.HashTransaction(&tx2)
	if err != nil {
		t.Fatalf("HashTransaction: %v", err)
	}
	gotHash, err := serialization.HashTransaction(&snapshot[0])
	if err != nil {
		t.Fatalf("HashTransaction: %v", err)
	}
	if gotHash != tx2Hash {
		t.Fatal("surviving mempool entry is not the replacing (higher-fee) transaction")
	}
}

func TestMempoolRejectsDoubleSpendOfUnknownOutput(t *testing.T) {
	bc := New()
	payer := mustKey(t)
	recipient := mustKey(t)

	tx := spendTx(t, payer, types.Hash{0x01}, recipient.PublicKey(), 1)
	if err := bc.AddToMempool(tx); err == nil {
		t.Fatal("expected rejection of a transaction referencing an unknown utxo")
	}
}

func TestBlockRewardHalving(t *testing.T) {
	cases := []struct {
		height uint64
		want   uint64
	}{
		{0, InitialReward * SatoshisPerCoin},
		{HalvingInterval - 1, InitialReward * SatoshisPerCoin},
		{HalvingInterval, InitialReward * SatoshisPerCoin / 2},
		{HalvingInterval * 2, InitialReward * SatoshisPerCoin / 4},
	}
	for _, c := range cases {
		if got := BlockReward(c.height); got != c.want {
			t.Errorf("BlockReward(%d) = %d, want %d", c.height, got, c.want)
		}
	}
}

func TestRetargetClampsToQuarterAndQuadruple(t *testing.T) {
	bc := New()
	initial := bc.target

	now := uint32(1_700_000_000)
	for i := 0; i < DifficultyUpdateInterval; i++ {
		bc.blocks = append(bc.blocks, types.Block{Header: types.BlockHeader{Timestamp: now}})
		now++ // blocks mined far faster than IdealBlockTimeSecs apart
	}

	bc.TryAdjustTarget()

	floor := new(uint256.Int).Div(initial, uint256.NewInt(4))
	if bc.target.Cmp(floor) < 0 {
		t.Fatalf("target dropped below the 1/4x clamp: got %s, floor %s", bc.target.Hex(), floor.Hex())
	}
	if !bc.target.Lt(initial) {
		t.Fatalf("target should have tightened after faster-than-ideal blocks, got %s", bc.target.Hex())
	}
}

func TestRetargetNeverRelaxesPastMinTarget(t *testing.T) {
	bc := New()
	bc.target = MinTarget()

	now := uint32(1_700_000_000)
	for i := 0; i < DifficultyUpdateInterval; i++ {
		bc.blocks = append(bc.blocks, types.Block{Header: types.BlockHeader{Timestamp: now}})
		now += IdealBlockTimeSecs * 10 // blocks mined far slower than ideal
	}

	bc.TryAdjustTarget()

	min := MinTarget()
	if bc.target.Cmp(min) > 0 {
		t.Fatalf("target relaxed past MinTarget: got %s, min %s", bc.target.Hex(), min.Hex())
	}
}
