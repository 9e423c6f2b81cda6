package node

import "github.com/educhain/chainnode/internal/storage"

// loadChain reads the chain file into the node's Blockchain if one exists,
// reporting whether it did.
func (n *Node) loadChain() (bool, error) {
	if n.Config.ChainFilePath == "" {
		return false, nil
	}

	snap, ok, err := storage.Load(n.Config.ChainFilePath)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	n.Chain.LoadBlocksAndTarget(snap.Blocks, snap.Target)
	return true, nil
}

// saveChain writes the current chain state to disk.
func (n *Node) saveChain() error {
	if n.Config.ChainFilePath == "" {
		return nil
	}
	blocks, target := n.Chain.BlocksAndTarget()
	return storage.Save(n.Config.ChainFilePath, storage.Snapshot{Blocks: blocks, Target: target})
}
