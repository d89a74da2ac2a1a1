// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "errors"

var (
	ErrDuplicateBlock  = errors.New("duplicate block")
	ErrKnownInvalid    = errors.New("block previously marked invalid")
	ErrInvalidAncestor = errors.New("block descends from an invalid block")
	// ErrMissingAncestor is operational: the block is held until its parent
	// arrives.
	ErrMissingAncestor = errors.New("missing ancestor")
	// ErrPrevHashMismatch is returned when a block does not extend the tip.
	// AddBlock handles it by taking the fork path.
	ErrPrevHashMismatch = errors.New("previous block is not the tip")
	ErrReorgTooDeep     = errors.New("reorg exceeds maximum depth")
	ErrGenesisMismatch  = errors.New("database was initialized with a different genesis")
	ErrInvalidGenesis   = errors.New("invalid genesis block")

	ErrUnexpectedDifficulty   = errors.New("unexpected difficulty")
	ErrTimestampNotIncreasing = errors.New("timestamp is not after the parent's")
	// ErrFutureBlock does not mark the block invalid. It may be resubmitted
	// once the local clock catches up.
	ErrFutureBlock       = errors.New("timestamp too far in the future")
	ErrOscillatorCount   = errors.New("unexpected oscillator count")
	ErrTooManyTxs        = errors.New("too many transactions")
	ErrBlockSizeExceeded = errors.New("block exceeds the configured size")
)
