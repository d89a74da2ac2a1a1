// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"fmt"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/constants"
	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/utils/compression"
	"github.com/luxfi/coherence/vms/bloomvm/block"
)

var _ BlockState = (*blockState)(nil)

// BlockState stores every block that passed stateless validation, canonical
// or not, keyed by ID.
type BlockState interface {
	GetBlock(blkID ids.ID) (*block.Block, error)
	PutBlock(blk *block.Block) error
	DeleteBlock(blkID ids.ID) error
}

type blockState struct {
	// Caches BlockID -> Block. If the Block is nil, that means the block is not
	// in storage.
	blkCache cache.Cacher[ids.ID, *block.Block]

	compressor compression.Compressor
	db         database.Database
}

func cachedBlockSize(_ ids.ID, blk *block.Block) int {
	if blk == nil {
		return ids.IDLen + constants.PointerOverhead
	}
	return ids.IDLen + len(blk.Bytes()) + 2*constants.PointerOverhead
}

// NewBlockState keeps up to [cacheSize] bytes of decoded blocks in memory.
func NewBlockState(db database.Database, cacheSize int) (BlockState, error) {
	compressor, err := compression.NewZstdCompressor(block.MaxSize)
	if err != nil {
		return nil, err
	}
	return &blockState{
		blkCache:   lru.NewSizedCache(cacheSize, cachedBlockSize),
		compressor: compressor,
		db:         db,
	}, nil
}

func (s *blockState) GetBlock(blkID ids.ID) (*block.Block, error) {
	if blk, found := s.blkCache.Get(blkID); found {
		if blk == nil {
			return nil, database.ErrNotFound
		}
		return blk, nil
	}

	compressed, err := s.db.Get(blkID[:])
	if errors.Is(err, database.ErrNotFound) {
		s.blkCache.Put(blkID, nil)
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	blkBytes, err := s.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: block %s: %w", ErrStateCorrupted, blkID, err)
	}
	blk, err := block.Parse(blkBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: block %s: %w", ErrStateCorrupted, blkID, err)
	}
	if blk.ID() != blkID {
		return nil, fmt.Errorf("%w: block stored under %s has ID %s", ErrStateCorrupted, blkID, blk.ID())
	}

	s.blkCache.Put(blkID, blk)
	return blk, nil
}

func (s *blockState) PutBlock(blk *block.Block) error {
	compressed, err := s.compressor.Compress(blk.Bytes())
	if err != nil {
		return err
	}

	blkID := blk.ID()
	s.blkCache.Put(blkID, blk)
	return s.db.Put(blkID[:], compressed)
}

func (s *blockState) DeleteBlock(blkID ids.ID) error {
	s.blkCache.Evict(blkID)
	return s.db.Delete(blkID[:])
}
