// Package client is the wallet and miner binaries' half of the wire
// protocol: one typed method per request/response round trip, each over
// its own short-lived connection, mirroring the teacher's RPC client
// shape but speaking the node's framed protocol instead of JSON-over-HTTP.
package client

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/protocol"
	"github.com/educhain/chainnode/pkg/types"
)

// Client talks to a single node address, dialing fresh for every call.
type Client struct {
	addr    string
	timeout time.Duration
}

// New returns a client targeting addr, dialing with the given timeout per
// call (5s if zero).
func New(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{addr: addr, timeout: timeout}
}

func (c *Client) roundTrip(req any) (any, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	if err := protocol.WriteMessage(conn, req); err != nil {
		return nil, fmt.Errorf("write %T: %w", req, err)
	}
	resp, err := protocol.ReadMessage(bufio.NewReader(conn))
	if err != nil {
		return nil, fmt.Errorf("read response to %T: %w", req, err)
	}
	return resp, nil
}

// FetchUTXOs returns every UTXO the node knows about for pubkey.
func (c *Client) FetchUTXOs(pubkey *keys.PublicKey) ([]protocol.UTXOEntryWire, error) {
	resp, err := c.roundTrip(protocol.FetchUTXOs{Pubkey: pubkey})
	if err != nil {
		return nil, err
	}
	utxos, ok := resp.(protocol.UTXOs)
	if !ok {
		return nil, fmt.Errorf("expected UTXOs, got %T", resp)
	}
	return utxos.Entries, nil
}

// SubmitTransaction sends tx for admission and gossip, returning an error
// if dialing or writing the message failed. It reads nothing back, so a
// rejection by the node (which closes its side of the connection) is not
// reported by this call.
func (c *Client) SubmitTransaction(tx types.Transaction) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	return protocol.WriteMessage(conn, protocol.SubmitTransaction{Tx: tx})
}

// FetchTemplate requests a fresh candidate block paying its reward to
// pubkey.
func (c *Client) FetchTemplate(pubkey *keys.PublicKey) (types.Block, error) {
	resp, err := c.roundTrip(protocol.FetchTemplate{Pubkey: pubkey})
	if err != nil {
		return types.Block{}, err
	}
	tmpl, ok := resp.(protocol.Template)
	if !ok {
		return types.Block{}, fmt.Errorf("expected Template, got %T", resp)
	}
	return tmpl.Block, nil
}

// ValidateTemplate asks whether block's prev hash still matches the
// node's tip, so the caller can drop stale work instead of submitting it.
func (c *Client) ValidateTemplate(block types.Block) (bool, error) {
	resp, err := c.roundTrip(protocol.ValidateTemplate{Block: block})
	if err != nil {
		return false, err
	}
	validity, ok := resp.(protocol.TemplateValidity)
	if !ok {
		return false, fmt.Errorf("expected TemplateValidity, got %T", resp)
	}
	return validity.Valid, nil
}

// SubmitTemplate sends a sealed candidate block for validation, append,
// and gossip.
func (c *Client) SubmitTemplate(block types.Block) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	return protocol.WriteMessage(conn, protocol.SubmitTemplate{Block: block})
}
