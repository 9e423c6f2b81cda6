// Package mining implements the miner's half of proof-of-work: grinding a
// nonce against a template handed back by a node's FetchTemplate response.
// The loop itself is intentionally trivial — an outer increment-and-hash
// over the template, the non-goal the original spec calls out explicitly.
package mining

import (
	"context"
	"fmt"
	"time"

	"github.com/educhain/chainnode/pkg/serialization"
	"github.com/educhain/chainnode/pkg/types"
)

// Stats reports grinding progress, surfaced by cmd/miner for operator
// visibility.
type Stats struct {
	StartTime time.Time
	Attempts  uint64
	Nonce     uint64
}

// HashRate returns attempts per second since StartTime.
func (s Stats) HashRate() float64 {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Attempts) / elapsed
}

// Mine grinds header.Nonce upward from zero until the header hash matches
// header.Target, or ctx is canceled. progress, if non-nil, is called
// periodically with the current stats.
func Mine(ctx context.Context, block types.Block, progress func(Stats)) (types.Block, error) {
	stats := Stats{StartTime: time.Now()}

	for nonce := uint64(0); ; nonce++ {
		select {
		case <-ctx.Done():
			return types.Block{}, ctx.Err()
		default:
		}

		block.Header.Nonce = nonce
		hash, err := serialization.HashBlockHeader(&block.Header)
		if err != nil {
			return types.Block{}, err
		}

		stats.Attempts++
		stats.Nonce = nonce

		if hash.MatchesTarget(block.Header.Target) {
			return block, nil
		}

		if progress != nil && stats.Attempts%100_000 == 0 {
			progress(stats)
		}

		if nonce == ^uint64(0) {
			return types.Block{}, fmt.Errorf("nonce space exhausted without meeting target")
		}
	}
}
