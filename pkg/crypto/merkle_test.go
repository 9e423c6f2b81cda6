package crypto

import (
	"testing"

	"github.com/educhain/chainnode/pkg/types"
)

func mustHash(t *testing.T, s string) types.Hash {
	t.Helper()
	h, err := types.NewHashFromString(s)
	if err != nil {
		t.Fatalf("NewHashFromString(%q): %v", s, err)
	}
	return h
}

func TestMerkleRootEmpty(t *testing.T) {
	if root := ComputeMerkleRoot(nil); root != (types.Hash{}) {
		t.Errorf("empty input: got %s, want zero hash", root)
	}
}

func TestMerkleRootSingleTx(t *testing.T) {
	hash := mustHash(t, "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")
	root := ComputeMerkleRoot([]types.Hash{hash})
	if root != hash {
		t.Error("single transaction: merkle root should equal the transaction hash")
	}
}

func TestMerkleRootEvenCount(t *testing.T) {
	hash1 := mustHash(t, "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")
	hash2 := mustHash(t, "0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098")

	root := ComputeMerkleRoot([]types.Hash{hash1, hash2})

	combined := append(append([]byte{}, hash1[:]...), hash2[:]...)
	expected := DoubleSHA256(combined)

	if root != expected {
		t.Errorf("got %s, want %s", root, expected)
	}
}

func TestMerkleRootOddCountDuplicatesLast(t *testing.T) {
	hash1 := mustHash(t, "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")
	hash2 := mustHash(t, "0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098")
	hash3 := mustHash(t, "9b0fc92260312ce44e74ef369f5c66bbb85848f2eddd5a7a1cde251e54ccfdd5")

	root := ComputeMerkleRoot([]types.Hash{hash1, hash2, hash3})

	left := DoubleSHA256(append(append([]byte{}, hash1[:]...), hash2[:]...))
	right := DoubleSHA256(append(append([]byte{}, hash3[:]...), hash3[:]...))
	expected := DoubleSHA256(append(append([]byte{}, left[:]...), right[:]...))

	if root != expected {
		t.Errorf("got %s, want %s", root, expected)
	}
}

func TestDoubleSHA256Deterministic(t *testing.T) {
	data := []byte("chainnode")
	if DoubleSHA256(data) != DoubleSHA256(data) {
		t.Fatal("DoubleSHA256 is not deterministic")
	}
	if DoubleSHA256(data) == DoubleSHA256([]byte("chainnodX")) {
		t.Fatal("distinct inputs hashed to the same digest")
	}
}
