// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/coherence/vms/bloomvm/block"
)

// orphanPool holds blocks whose parent is unknown. When full, the least
// recently added orphan is dropped.
type orphanPool struct {
	blocks *lru.Cache
	// parent ID -> IDs of orphans naming it as parent
	children map[ids.ID]set.Set[ids.ID]
}

func newOrphanPool(size int) (*orphanPool, error) {
	p := &orphanPool{
		children: make(map[ids.ID]set.Set[ids.ID]),
	}
	// The callback runs on both eviction and Remove.
	blocks, err := lru.NewWithEvict(size, func(key, value interface{}) {
		p.unindex(key.(ids.ID), value.(*block.Block).Parent())
	})
	if err != nil {
		return nil, err
	}
	p.blocks = blocks
	return p, nil
}

// add returns true if another orphan was evicted to make room.
func (p *orphanPool) add(blk *block.Block) bool {
	blkID := blk.ID()
	if p.blocks.Contains(blkID) {
		return false
	}
	parentID := blk.Parent()
	children, ok := p.children[parentID]
	if !ok {
		children = set.NewSet[ids.ID](1)
		p.children[parentID] = children
	}
	children.Add(blkID)
	return p.blocks.Add(blkID, blk)
}

func (p *orphanPool) has(blkID ids.ID) bool {
	return p.blocks.Contains(blkID)
}

// take removes and returns the orphans whose parent is [parentID].
func (p *orphanPool) take(parentID ids.ID) []*block.Block {
	children := p.children[parentID]
	blks := make([]*block.Block, 0, children.Len())
	for _, blkID := range children.List() {
		if value, ok := p.blocks.Get(blkID); ok {
			blks = append(blks, value.(*block.Block))
		}
		p.blocks.Remove(blkID)
	}
	delete(p.children, parentID)
	return blks
}

func (p *orphanPool) len() int {
	return p.blocks.Len()
}

func (p *orphanPool) unindex(blkID, parentID ids.ID) {
	children, ok := p.children[parentID]
	if !ok {
		return
	}
	children.Remove(blkID)
	if children.Len() == 0 {
		delete(p.children, parentID)
	}
}
