// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import "errors"

var (
	ErrMerkleMismatch     = errors.New("merkle root does not match transactions")
	ErrUnsupportedVersion = errors.New("unsupported block version")
	ErrNoTransactions     = errors.New("block has no transactions")
	ErrBlockTooLarge      = errors.New("block exceeds maximum size")

	errHeaderCertMismatch = errors.New("header does not match certificate")
)
