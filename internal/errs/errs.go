// Package errs defines the error taxonomy raised across chain validation,
// cryptography, and mempool admission. Each type wraps enough context to
// explain exactly what failed, matching the granularity of the original
// node's error enum.
package errs

import "fmt"

// InvalidTransaction reports a transaction that fails structural or
// balance validation.
type InvalidTransaction struct {
	Reason string
}

func (e *InvalidTransaction) Error() string {
	return fmt.Sprintf("invalid transaction: %s", e.Reason)
}

// InvalidBlock reports a block that fails header or linkage validation.
type InvalidBlock struct {
	Reason string
}

func (e *InvalidBlock) Error() string {
	return fmt.Sprintf("invalid block: %s", e.Reason)
}

// InvalidMerkleRoot reports a block whose committed Merkle root doesn't
// match its recomputed transaction set.
type InvalidMerkleRoot struct{}

func (e *InvalidMerkleRoot) Error() string {
	return "invalid merkle root"
}

// InvalidSignature reports a transaction input whose signature doesn't
// verify against the referenced output's public key.
type InvalidSignature struct{}

func (e *InvalidSignature) Error() string {
	return "invalid signature"
}

// InvalidPublicKey reports a malformed or unparsable public key.
type InvalidPublicKey struct {
	Reason string
}

func (e *InvalidPublicKey) Error() string {
	return fmt.Sprintf("invalid public key: %s", e.Reason)
}

// InvalidPrivateKey reports a malformed or unparsable private key.
type InvalidPrivateKey struct {
	Reason string
}

func (e *InvalidPrivateKey) Error() string {
	return fmt.Sprintf("invalid private key: %s", e.Reason)
}

// InvalidHash reports a hash that fails a length or parsing check.
type InvalidHash struct {
	Reason string
}

func (e *InvalidHash) Error() string {
	return fmt.Sprintf("invalid hash: %s", e.Reason)
}

// InsufficientFunds reports a wallet coin-selection pass that ran out of
// spendable outputs before reaching the target amount.
type InsufficientFunds struct {
	Have uint64
	Need uint64
}

func (e *InsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: have %d, need %d", e.Have, e.Need)
}
