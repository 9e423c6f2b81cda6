package node

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/educhain/chainnode/pkg/protocol"
)

// syncOnStartup implements the startup algorithm: load a persisted chain if
// one exists, otherwise walk the seed list — discover peers, pick the one
// furthest ahead, and pull every block it has that we don't.
func (n *Node) syncOnStartup() error {
	loaded, err := n.loadChain()
	if err != nil {
		return fmt.Errorf("load chain file: %w", err)
	}
	if loaded {
		if err := n.Chain.RebuildUTXOs(); err != nil {
			return fmt.Errorf("rebuild utxos after load: %w", err)
		}
		n.Chain.TryAdjustTarget()
		return nil
	}

	if len(n.Config.SeedAddrs) == 0 {
		nodeLog.Infof("no seed peers configured, starting as a fresh seed node")
		return nil
	}

	for _, seed := range n.Config.SeedAddrs {
		if err := n.syncFromSeed(seed); err != nil {
			nodeLog.Warnf("sync from seed %s failed: %v", seed, err)
			continue
		}
	}

	if err := n.Chain.RebuildUTXOs(); err != nil {
		return fmt.Errorf("rebuild utxos after sync: %w", err)
	}
	n.Chain.TryAdjustTarget()
	return nil
}

func (n *Node) syncFromSeed(seed string) error {
	conn, err := net.DialTimeout("tcp", seed, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial %s: %w", seed, err)
	}
	defer conn.Close()

	rw := bufio.NewReader(conn)

	if err := protocol.WriteMessage(conn, protocol.DiscoverNodes{}); err != nil {
		return err
	}
	resp, err := protocol.ReadMessage(rw)
	if err != nil {
		return err
	}
	nodeList, ok := resp.(protocol.NodeList)
	if !ok {
		return fmt.Errorf("expected NodeList, got %T", resp)
	}

	known := map[string]struct{}{seed: {}}
	for _, addr := range nodeList.Addresses {
		if _, dup := known[addr]; dup {
			continue
		}
		known[addr] = struct{}{}
		go n.Connect(addr)
	}

	bestAddr := ""
	var bestDelta int32
	for addr := range known {
		delta, err := askDifference(addr)
		if err != nil {
			nodeLog.Debugf("AskDifference to %s failed: %v", addr, err)
			continue
		}
		if delta > bestDelta {
			bestDelta = delta
			bestAddr = addr
		}
	}

	if bestAddr == "" || bestDelta <= 0 {
		return nil
	}

	return n.fetchBlocksFrom(bestAddr, int(bestDelta))
}

func askDifference(addr string) (int32, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if err := protocol.WriteMessage(conn, protocol.AskDifference{Height: 0}); err != nil {
		return 0, err
	}
	resp, err := protocol.ReadMessage(bufio.NewReader(conn))
	if err != nil {
		return 0, err
	}
	diff, ok := resp.(protocol.Difference)
	if !ok {
		return 0, fmt.Errorf("expected Difference, got %T", resp)
	}
	return diff.Delta, nil
}

func (n *Node) fetchBlocksFrom(addr string, count int) error {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	rw := bufio.NewReader(conn)

	for i := 0; i < count; i++ {
		if err := protocol.WriteMessage(conn, protocol.FetchBlock{Height: uint64(i)}); err != nil {
			return err
		}
		resp, err := protocol.ReadMessage(rw)
		if err != nil {
			return fmt.Errorf("fetch block %d: %w", i, err)
		}
		block, ok := resp.(protocol.NewBlock)
		if !ok {
			return fmt.Errorf("expected NewBlock at height %d, got %T", i, resp)
		}
		if err := n.Chain.AddBlock(block.Block); err != nil {
			return fmt.Errorf("append synced block %d: %w", i, err)
		}
	}
	return nil
}
