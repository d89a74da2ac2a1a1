// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
)

// MerkleRoot returns the root of a binary sha256 tree over [leaves]. A level
// with an odd count pairs its last hash with itself. No leaves yields
// ids.Empty.
func MerkleRoot(leaves []ids.ID) ids.ID {
	if len(leaves) == 0 {
		return ids.Empty
	}
	level := append([]ids.ID(nil), leaves...)
	var buf [2 * ids.IDLen]byte
	for len(level) > 1 {
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			left, right := level[i], level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			copy(buf[:ids.IDLen], left[:])
			copy(buf[ids.IDLen:], right[:])
			next = append(next, sha256.Sum256(buf[:]))
		}
		level = next
	}
	return level[0]
}
