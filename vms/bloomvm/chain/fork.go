// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"

	"github.com/luxfi/log"

	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

// commonAncestor returns the deepest node that is an ancestor of both [a]
// and [b].
func commonAncestor(a, b *node) *node {
	for a.height > b.height {
		a = a.parent
	}
	for b.height > a.height {
		b = b.parent
	}
	for a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// reorg makes [target] the tip. The canonical blocks above the common
// ancestor are disconnected and the branch up to [target] is connected, all
// in one staged write. If any block of the branch fails, nothing is written
// and the failing block and its descendants are dropped.
func (c *Chain) reorg(target *node) error {
	oldTip := c.tip
	fork := commonAncestor(oldTip, target)
	depth := oldTip.height - fork.height
	if c.cfg.MaxReorgDepth > 0 && depth > c.cfg.MaxReorgDepth {
		c.log.Warn("refusing deep reorg",
			log.Stringer("tipID", oldTip.id),
			log.Stringer("targetID", target.id),
			log.Uint64("depth", depth),
		)
		return fmt.Errorf("%w: %d > %d", ErrReorgTooDeep, depth, c.cfg.MaxReorgDepth)
	}

	var events []event
	for n := oldTip; n != fork; n = n.parent {
		blk, err := c.blocks.GetBlock(n.id)
		if err != nil {
			c.db.Abort()
			return err
		}
		if err := c.disconnect(blk, n.height); err != nil {
			c.db.Abort()
			return err
		}
		events = append(events, event{blk: blk, height: n.height})
	}

	branch := make([]*node, 0, target.height-fork.height)
	for n := target; n != fork; n = n.parent {
		branch = append(branch, n)
	}
	connected := make([]*block.Block, 0, len(branch))
	for i := len(branch) - 1; i >= 0; i-- {
		n := branch[i]
		blk, err := c.blocks.GetBlock(n.id)
		if err != nil {
			c.db.Abort()
			return err
		}
		if err := c.connect(blk, n.height); err != nil {
			c.db.Abort()
			if errors.Is(err, txs.ErrInvalidTransaction) {
				c.reject(n, err)
			}
			return err
		}
		connected = append(connected, blk)
	}
	if err := c.db.Commit(); err != nil {
		return err
	}

	for i, blk := range connected {
		n := branch[len(branch)-1-i]
		events = append(events, event{blk: blk, height: n.height, connected: true})
		c.metrics.MarkAccepted(n.height, workFloat(n.work), len(blk.Txs()))
	}
	c.tip = target
	c.pending = append(c.pending, events...)
	c.metrics.MarkReorg(depth)
	c.log.Info("reorganized chain",
		log.Stringer("oldTipID", oldTip.id),
		log.Stringer("newTipID", target.id),
		log.Stringer("forkID", fork.id),
		log.Uint64("depth", depth),
		log.Uint64("height", target.height),
	)
	return nil
}
