// Package wallet manages a set of keypairs and a locally cached UTXO view,
// and builds signed transactions against them. It never touches the
// network itself — cmd/wallet fetches UTXOs over the wire protocol and
// feeds them in, then submits the transaction this package returns.
package wallet

import (
	"sync"

	"github.com/educhain/chainnode/pkg/keys"
	"github.com/educhain/chainnode/pkg/types"
)

// FeeConfig selects how a wallet computes the fee for a send of a given
// amount: either a flat satoshi amount, or a percentage of the amount sent.
type FeeConfig struct {
	Fixed   uint64
	Percent float64
}

// Fee computes the fee owed for sending amount, preferring Fixed when set.
func (fc FeeConfig) Fee(amount uint64) uint64 {
	if fc.Fixed > 0 {
		return fc.Fixed
	}
	return uint64(float64(amount) * fc.Percent)
}

// OwnedUTXO is one entry of the wallet's locally cached UTXO view: the
// output itself plus the hash that keys it in the chain's UTXO set (the
// value a TransactionInput must reference to spend it).
type OwnedUTXO struct {
	OutputHash types.Hash
	Output     types.TransactionOutput
	Marked     bool
}

// Wallet holds private keys in insertion order and a cache of UTXOs known
// to belong to them.
type Wallet struct {
	mu        sync.RWMutex
	fee       FeeConfig
	keyOrder  []string
	keys      map[string]*keys.PrivateKey
	utxoCache []OwnedUTXO
}

// New returns an empty wallet configured with the given fee schedule.
func New(fee FeeConfig) *Wallet {
	return &Wallet{
		fee:  fee,
		keys: make(map[string]*keys.PrivateKey),
	}
}

// GenerateKey creates and stores a new keypair, returning its public key.
func (w *Wallet) GenerateKey() (*keys.PublicKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	priv, err := keys.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	w.storeKeyLocked(priv)
	return priv.PublicKey(), nil
}

// Import adds an existing private key to the wallet, as cmd/wallet does
// with a key supplied on the command line rather than generated fresh.
func (w *Wallet) Import(priv *keys.PrivateKey) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.storeKeyLocked(priv)
}

func (w *Wallet) storeKeyLocked(priv *keys.PrivateKey) {
	id := priv.PublicKey().String()
	if _, exists := w.keys[id]; exists {
		return
	}
	w.keys[id] = priv
	w.keyOrder = append(w.keyOrder, id)
}

// Keys returns every public key this wallet holds, in generation order.
func (w *Wallet) Keys() []*keys.PublicKey {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*keys.PublicKey, 0, len(w.keyOrder))
	for _, id := range w.keyOrder {
		out = append(out, w.keys[id].PublicKey())
	}
	return out
}

// Balance sums the value of every unmarked cached UTXO.
func (w *Wallet) Balance() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var total uint64
	for _, u := range w.utxoCache {
		if !u.Marked {
			total += u.Output.Value
		}
	}
	return total
}

// SetUTXOs replaces the wallet's cached UTXO view, normally called with the
// response to a FetchUTXOs round trip for each of the wallet's own keys.
func (w *Wallet) SetUTXOs(utxos []OwnedUTXO) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.utxoCache = utxos
}

// keyFor returns the private key owning pubkey, if this wallet holds it.
func (w *Wallet) keyFor(pubkey *keys.PublicKey) (*keys.PrivateKey, bool) {
	if pubkey == nil {
		return nil, false
	}
	k, ok := w.keys[pubkey.String()]
	return k, ok
}
