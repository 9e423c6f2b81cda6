package chain

import "github.com/holiman/uint256"

// Tunable constants. Defaults match the original node; internal/config lets
// an operator override the few that are meant to be operator-facing
// (intervals, listen port, peer list) — these stay compile-time constants
// because changing them mid-network would fork the chain.
const (
	// InitialReward is the whole-coin coinbase reward at height 0.
	InitialReward = 50
	// SatoshisPerCoin converts whole coins to the integer unit transactions
	// actually carry.
	SatoshisPerCoin = 100_000_000
	// HalvingInterval is the number of blocks between reward halvings.
	HalvingInterval = 210
	// IdealBlockTimeSecs is the target average seconds between blocks.
	IdealBlockTimeSecs = 10
	// DifficultyUpdateInterval is the number of blocks between retargets.
	DifficultyUpdateInterval = 50
	// MaxMempoolTransactionAgeSecs is how long an admitted transaction may
	// sit in the mempool before CleanupMempool evicts it.
	MaxMempoolTransactionAgeSecs = 600
	// BlockTransactionCap bounds how many mempool transactions a template
	// may include, beyond the coinbase.
	BlockTransactionCap = 20
)

// MinTarget is the easiest allowed difficulty target: the absolute floor a
// retarget may never relax below. Top 16 bits zero, the rest ones.
func MinTarget() *uint256.Int {
	t := new(uint256.Int).SetAllOne()
	return t.Rsh(t, 16)
}

// BlockReward computes the coinbase reward at the given chain height,
// halving every HalvingInterval blocks.
func BlockReward(height uint64) uint64 {
	shift := height / HalvingInterval
	reward := uint64(InitialReward) * SatoshisPerCoin
	if shift >= 64 {
		return 0
	}
	return reward >> shift
}
