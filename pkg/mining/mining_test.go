package mining

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/educhain/chainnode/pkg/serialization"
	"github.com/educhain/chainnode/pkg/types"
)

func easyTemplate() types.Block {
	return types.Block{
		Header: types.BlockHeader{
			Timestamp:     1_700_000_000,
			PrevBlockHash: types.ZeroHash,
			Target:        new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 255), uint256.NewInt(1)),
			MerkleRoot:    types.Hash{0x01},
		},
	}
}

func TestMineMeetsTarget(t *testing.T) {
	sealed, err := Mine(context.Background(), easyTemplate(), nil)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	hash, err := serialization.HashBlockHeader(&sealed.Header)
	if err != nil {
		t.Fatalf("HashBlockHeader: %v", err)
	}
	if !hash.MatchesTarget(sealed.Header.Target) {
		t.Fatalf("sealed header hash %s does not meet target %s", hash, sealed.Header.Target.Hex())
	}
}

func TestMineStopsOnContextCancel(t *testing.T) {
	block := easyTemplate()
	block.Header.Target = new(uint256.Int) // impossible to meet: only a zero hash matches

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Mine(ctx, block, nil); err == nil {
		t.Fatal("expected Mine to return an error for an already-canceled context")
	}
}

func TestMineReturnsOnTimeoutWithoutMeetingTarget(t *testing.T) {
	block := easyTemplate()
	block.Header.Target = new(uint256.Int) // unreachable: only a zero hash matches

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := Mine(ctx, block, nil); err == nil {
		t.Fatal("expected Mine to return an error once the context timed out")
	}
}
