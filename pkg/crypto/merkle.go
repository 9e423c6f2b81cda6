package crypto

import "github.com/educhain/chainnode/pkg/types"

// ComputeMerkleRoot folds transaction hashes pairwise into a single root,
// duplicating the last hash at each level with an odd count.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	if len(txHashes) == 0 {
		return types.Hash{}
	}

	currentLevel := make([]types.Hash, len(txHashes))
	copy(currentLevel, txHashes)

	for len(currentLevel) > 1 {
		var nextLevel []types.Hash

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]

			right := left
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			}

			combined := append(append([]byte{}, left[:]...), right[:]...)
			nextLevel = append(nextLevel, DoubleSHA256(combined))
		}

		currentLevel = nextLevel
	}

	return currentLevel[0]
}
