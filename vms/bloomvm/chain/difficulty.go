// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// maxAdjustment bounds a single retarget to a factor of four either way.
const maxAdjustment = 4

// expectedDifficulty returns the difficulty required of a child of [parent].
//
// Every RetargetInterval blocks the difficulty is scaled by the ratio of the
// expected to the observed time over the preceding interval. Between
// retargets the parent's difficulty carries forward.
func (c *Chain) expectedDifficulty(parent *node) uint32 {
	var (
		height   = parent.height + 1
		interval = c.cfg.RetargetInterval
		prev     = parent.header.Difficulty
	)
	if height < interval || height%interval != 0 {
		return prev
	}

	var firstHeight uint64
	if height > interval {
		firstHeight = height - 1 - interval
	}
	first := parent.ancestor(firstHeight)
	gaps := parent.height - first.height
	if gaps == 0 {
		return prev
	}

	targetSeconds := uint64(c.cfg.TargetBlockTime.Seconds())
	expected := gaps * targetSeconds
	actual := uint64(1)
	if parent.header.Timestamp > first.header.Timestamp {
		actual = uint64(parent.header.Timestamp - first.header.Timestamp)
	}
	return retarget(prev, expected, actual)
}

// retarget returns prev·expected/actual clamped to [prev/4, prev·4] and to
// [1, MaxUint32].
func retarget(prev uint32, expected, actual uint64) uint32 {
	next := uint256.NewInt(uint64(prev))
	next.Mul(next, uint256.NewInt(expected))
	next.Div(next, uint256.NewInt(max(actual, 1)))

	lower := uint256.NewInt(uint64(prev) / maxAdjustment)
	upper := uint256.NewInt(uint64(prev) * maxAdjustment)
	switch {
	case next.Lt(lower):
		next = lower
	case next.Gt(upper):
		next = upper
	}
	if !next.IsUint64() || next.Uint64() > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(max(next.Uint64(), 1))
}

// workFloat converts cumulative work for reporting.
func workFloat(w *uint256.Int) float64 {
	if w.IsUint64() {
		return float64(w.Uint64())
	}
	f, _ := new(big.Float).SetInt(w.ToBig()).Float64()
	return f
}
