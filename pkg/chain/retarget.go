package chain

import "github.com/holiman/uint256"

// TryAdjustTarget runs the retarget check under the write lock. Exposed for
// callers outside AddBlock: chain-sync-on-startup (4.9) calls it directly
// after a bulk UTXO rebuild.
func (bc *Blockchain) TryAdjustTarget() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.tryAdjustTargetLocked()
}

// tryAdjustTargetLocked implements spec 4.4. It only fires every
// DifficultyUpdateInterval blocks, comparing actual elapsed time against
// ideal elapsed time and clamping the adjustment to [1/4x, 4x], finally
// never relaxing past MinTarget. Callers hold bc.mu for writing.
func (bc *Blockchain) tryAdjustTargetLocked() {
	n := len(bc.blocks)
	if n == 0 || n%DifficultyUpdateInterval != 0 {
		return
	}

	start := bc.blocks[n-DifficultyUpdateInterval].Header.Timestamp
	end := bc.blocks[n-1].Header.Timestamp
	actual := uint64(end - start)
	ideal := uint64(IdealBlockTimeSecs * DifficultyUpdateInterval)

	newTarget := new(uint256.Int).Mul(bc.target, uint256.NewInt(actual))
	newTarget.Div(newTarget, uint256.NewInt(ideal))

	floor := new(uint256.Int).Div(bc.target, uint256.NewInt(4))
	ceil := new(uint256.Int).Mul(bc.target, uint256.NewInt(4))

	if newTarget.Lt(floor) {
		newTarget = floor
	} else if newTarget.Gt(ceil) {
		newTarget = ceil
	}

	minTarget := MinTarget()
	if newTarget.Gt(minTarget) {
		newTarget = minTarget
	}

	bc.target = newTarget
	chainLog.Infof("retargeted to %s after %d blocks (actual=%ds ideal=%ds)",
		newTarget.Hex(), DifficultyUpdateInterval, actual, ideal)
}
