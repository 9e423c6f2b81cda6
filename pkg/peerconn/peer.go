// Package peerconn wraps a single TCP connection to a peer with buffered
// send/receive channels and dedicated read/write loops, so a connection
// handler never blocks directly on socket I/O while holding chain state.
package peerconn

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/educhain/chainnode/internal/log"
	"github.com/educhain/chainnode/pkg/protocol"
)

var peerLog = log.Disabled

// UseLogger installs the subsystem logger used for connection errors.
func UseLogger(logger slog.Logger) {
	peerLog = logger
}

// Peer owns one TCP connection and its read/write pumps.
type Peer struct {
	Conn        net.Conn
	addr        string
	Inbound     bool
	ConnectedAt time.Time

	Send    chan any
	Receive chan any
	Quit    chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New wraps an already-accepted or already-dialed connection.
func New(conn net.Conn, inbound bool) *Peer {
	return &Peer{
		Conn:        conn,
		addr:        conn.RemoteAddr().String(),
		Inbound:     inbound,
		ConnectedAt: time.Now(),
		Send:        make(chan any, 32),
		Receive:     make(chan any, 32),
		Quit:        make(chan struct{}),
	}
}

// Start launches the read and write pumps.
func (p *Peer) Start() {
	p.wg.Add(2)
	go p.readLoop()
	go p.writeLoop()
}

// Stop closes the connection and waits for both pumps to exit.
func (p *Peer) Stop() {
	p.closeOnce.Do(func() { close(p.Quit) })
	p.Conn.Close()
	p.wg.Wait()
}

// SendMessage queues msg for the write pump; it never blocks past Stop.
func (p *Peer) SendMessage(msg any) {
	select {
	case p.Send <- msg:
	case <-p.Quit:
	}
}

// Address returns the peer's remote address, used as the peer table key.
func (p *Peer) Address() string {
	return p.addr
}

func (p *Peer) readLoop() {
	defer p.wg.Done()
	defer p.closeOnce.Do(func() { close(p.Quit) })

	reader := bufio.NewReader(p.Conn)

	for {
		msg, err := protocol.ReadMessage(reader)
		if err != nil {
			if err != io.EOF {
				peerLog.Debugf("peer %s read error: %v", p.addr, err)
			}
			return
		}

		select {
		case p.Receive <- msg:
		case <-p.Quit:
			return
		}
	}
}

func (p *Peer) writeLoop() {
	defer p.wg.Done()

	for {
		select {
		case msg := <-p.Send:
			if err := protocol.WriteMessage(p.Conn, msg); err != nil {
				peerLog.Debugf("peer %s write error: %v", p.addr, err)
				return
			}
		case <-p.Quit:
			return
		}
	}
}
