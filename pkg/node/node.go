// Package node implements the P2P connection handler: one task per accepted
// or dialed connection, dispatching each framed message per the wire
// protocol's request/response table, plus the two periodic background
// tasks (mempool cleanup, chain persistence) that run alongside them.
package node

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/educhain/chainnode/internal/log"
	"github.com/educhain/chainnode/pkg/chain"
	"github.com/educhain/chainnode/pkg/peerconn"
	"github.com/educhain/chainnode/pkg/protocol"
)

var nodeLog = log.Disabled

// UseLogger installs the subsystem logger used for connection and task
// diagnostics.
func UseLogger(logger slog.Logger) {
	nodeLog = logger
}

// Config holds the settings a node needs to start serving connections.
type Config struct {
	ListenAddr             string
	SeedAddrs              []string
	MempoolCleanupInterval time.Duration
	ChainSaveInterval      time.Duration
	ChainFilePath          string
}

// Node owns the chain, the live peer table, and the listener.
type Node struct {
	Config Config
	Chain  *chain.Blockchain

	peers    map[string]*peerconn.Peer
	peerLock sync.RWMutex

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a node bound to an already-constructed blockchain.
func New(cfg Config, bc *chain.Blockchain) *Node {
	return &Node{
		Config: cfg,
		Chain:  bc,
		peers:  make(map[string]*peerconn.Peer),
		quit:   make(chan struct{}),
	}
}

// Start loads or syncs the chain, opens the listener, and launches the
// periodic background tasks. It returns once the listener is accepting.
func (n *Node) Start() error {
	if err := n.syncOnStartup(); err != nil {
		nodeLog.Errorf("startup sync failed: %v", err)
	}

	listener, err := net.Listen("tcp", n.Config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", n.Config.ListenAddr, err)
	}

	n.wg.Add(3)
	go n.acceptLoop(listener)
	go n.cleanupTask()
	go n.saveTask()

	nodeLog.Infof("listening on %s", n.Config.ListenAddr)
	return nil
}

// Stop terminates every connection and background task, then waits for
// them to exit.
func (n *Node) Stop() {
	close(n.quit)

	n.peerLock.Lock()
	for _, p := range n.peers {
		p.Stop()
	}
	n.peerLock.Unlock()

	n.wg.Wait()
}

// Connect dials a peer and registers it, blocking until the connection
// handler returns.
func (n *Node) Connect(address string) error {
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}
	n.handlePeer(conn, false)
	return nil
}

func (n *Node) acceptLoop(listener net.Listener) {
	defer n.wg.Done()
	defer listener.Close()

	for {
		select {
		case <-n.quit:
			return
		default:
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-n.quit:
				return
			default:
				nodeLog.Debugf("accept error: %v", err)
				continue
			}
		}
		go n.handlePeer(conn, true)
	}
}

func (n *Node) handlePeer(conn net.Conn, inbound bool) {
	p := peerconn.New(conn, inbound)

	n.peerLock.Lock()
	n.peers[p.Address()] = p
	n.peerLock.Unlock()

	nodeLog.Debugf("peer connected: %s (inbound=%v)", p.Address(), inbound)
	p.Start()

	n.handleMessages(p)

	n.peerLock.Lock()
	delete(n.peers, p.Address())
	n.peerLock.Unlock()
	p.Stop()
	nodeLog.Debugf("peer disconnected: %s", p.Address())
}

func (n *Node) handleMessages(p *peerconn.Peer) {
	for {
		select {
		case msg := <-p.Receive:
			if !n.dispatch(p, msg) {
				return
			}
		case <-p.Quit:
			return
		case <-n.quit:
			return
		}
	}
}

// dispatch handles one inbound message per the wire protocol's table,
// returning false when the connection must close.
func (n *Node) dispatch(p *peerconn.Peer, msg any) bool {
	switch m := msg.(type) {
	case protocol.DiscoverNodes:
		p.SendMessage(protocol.NodeList{Addresses: n.peerAddresses()})
		return true

	case protocol.AskDifference:
		delta := int32(n.Chain.Height()) - int32(m.Height)
		p.SendMessage(protocol.Difference{Delta: delta})
		return true

	case protocol.FetchBlock:
		block, ok := n.Chain.Block(int(m.Height))
		if !ok {
			return false
		}
		p.SendMessage(protocol.NewBlock{Block: block})
		return true

	case protocol.NewBlock:
		if err := n.Chain.AddBlock(m.Block); err != nil {
			nodeLog.Warnf("rejected gossiped block from %s: %v", p.Address(), err)
		}
		return true

	case protocol.NewTransaction:
		if err := n.Chain.AddToMempool(m.Tx); err != nil {
			nodeLog.Warnf("rejected gossiped transaction from %s: %v", p.Address(), err)
			return false
		}
		return true

	case protocol.SubmitTransaction:
		if err := n.Chain.AddToMempool(m.Tx); err != nil {
			nodeLog.Warnf("rejected submitted transaction from %s: %v", p.Address(), err)
			return false
		}
		n.broadcastExcept(p.Address(), protocol.SubmitTransaction{Tx: m.Tx})
		return true

	case protocol.SubmitTemplate:
		if err := n.Chain.AddBlock(m.Block); err != nil {
			nodeLog.Warnf("rejected submitted template from %s: %v", p.Address(), err)
			return false
		}
		if err := n.Chain.RebuildUTXOs(); err != nil {
			nodeLog.Errorf("rebuild utxos after submit: %v", err)
		}
		n.broadcastExcept(p.Address(), protocol.NewBlock{Block: m.Block})
		return true

	case protocol.FetchTemplate:
		block, err := n.Chain.BuildTemplate(m.Pubkey)
		if err != nil {
			nodeLog.Warnf("template construction failed for %s: %v", p.Address(), err)
			return true
		}
		p.SendMessage(protocol.Template{Block: block})
		return true

	case protocol.ValidateTemplate:
		valid, err := n.Chain.ValidateTemplate(m.Block)
		if err != nil {
			nodeLog.Warnf("validate template error for %s: %v", p.Address(), err)
			valid = false
		}
		p.SendMessage(protocol.TemplateValidity{Valid: valid})
		return true

	case protocol.FetchUTXOs:
		entries := n.Chain.UTXOsForPubkey(m.Pubkey)
		wire := make([]protocol.UTXOEntryWire, len(entries))
		for i, e := range entries {
			wire[i] = protocol.UTXOEntryWire{Output: e.Output, Marked: e.Marked}
		}
		p.SendMessage(protocol.UTXOs{Entries: wire})
		return true

	// Responses a node never receives inbound: the sender mistook this
	// connection's role and must be disconnected.
	case protocol.NodeList, protocol.Difference, protocol.Template,
		protocol.UTXOs, protocol.TemplateValidity:
		nodeLog.Debugf("peer %s sent a response-only message, closing", p.Address())
		return false

	default:
		nodeLog.Debugf("unhandled message %T from %s", msg, p.Address())
		return true
	}
}

func (n *Node) peerAddresses() []string {
	n.peerLock.RLock()
	defer n.peerLock.RUnlock()

	addrs := make([]string, 0, len(n.peers))
	for addr := range n.peers {
		addrs = append(addrs, addr)
	}
	return addrs
}

// broadcastExcept forwards msg to every known peer but the one it came
// from; forwarding failures are logged and never abort the caller.
func (n *Node) broadcastExcept(sourceAddr string, msg any) {
	n.peerLock.RLock()
	targets := make([]*peerconn.Peer, 0, len(n.peers))
	for addr, p := range n.peers {
		if addr != sourceAddr {
			targets = append(targets, p)
		}
	}
	n.peerLock.RUnlock()

	for _, p := range targets {
		p.SendMessage(msg)
	}
}

func (n *Node) cleanupTask() {
	defer n.wg.Done()
	interval := n.Config.MempoolCleanupInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.Chain.CleanupMempool()
		case <-n.quit:
			return
		}
	}
}

func (n *Node) saveTask() {
	defer n.wg.Done()
	interval := n.Config.ChainSaveInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := n.saveChain(); err != nil {
				nodeLog.Errorf("chain save failed: %v", err)
			}
		case <-n.quit:
			return
		}
	}
}
