// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package miner

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/coherence/utils/timer/mockable"
	"github.com/luxfi/coherence/utils/wrappers"
	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/chain"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
	"github.com/luxfi/coherence/vms/bloomvm/txs/mempool"

	safemath "github.com/luxfi/coherence/utils/math"
)

var _ Chain = (*chain.Chain)(nil)

// Chain is the view of the chain a Builder needs.
type Chain interface {
	BuildContext() chain.BuildContext
	VerifyTx(tx *txs.Tx, index int, spent set.Set[txs.UTXOID]) (uint64, error)
}

// BuilderConfig holds the block limits and the coinbase recipient.
type BuilderConfig struct {
	RewardAddress  ids.ShortID
	MaxBlockSize   int
	MaxTxsPerBlock int
}

// Builder mines blocks on top of the current tip.
type Builder struct {
	cfg     BuilderConfig
	chain   Chain
	mempool *mempool.Mempool
	pool    *Pool
	clock   *mockable.Clock
	log     log.Logger

	// distinguishes repeated attempts on the same parent
	attempts uint64
}

func NewBuilder(
	cfg BuilderConfig,
	c Chain,
	m *mempool.Mempool,
	pool *Pool,
	clock *mockable.Clock,
	logger log.Logger,
) *Builder {
	return &Builder{
		cfg:     cfg,
		chain:   c,
		mempool: m,
		pool:    pool,
		clock:   clock,
		log:     logger,
	}
}

// Build runs one round of mining attempts on the tip. It returns false with
// a nil error if no attempt bloomed. Build is not safe for concurrent use.
func (b *Builder) Build(ctx context.Context) (*block.Block, bool, error) {
	bctx := b.chain.BuildContext()
	seed := b.seed(bctx)
	b.attempts++

	res, sealed, err := b.pool.Mine(ctx, seed)
	if err != nil || !sealed {
		return nil, false, err
	}
	cert := res.Certificate
	certBytes, err := cert.Bytes()
	if err != nil {
		return nil, false, err
	}

	// Reserve room for a coinbase with one output even if the subsidy is zero.
	placeholder, err := txs.NewCoinbase(bctx.Height, max(bctx.Subsidy, 1), b.cfg.RewardAddress)
	if err != nil {
		return nil, false, err
	}
	budget := b.cfg.MaxBlockSize - block.HeaderLen - 3*wrappers.IntLen - len(certBytes) - len(placeholder.Bytes())
	selected, fees, err := b.selectTxs(budget)
	if err != nil {
		return nil, false, err
	}

	reward, err := safemath.Add(bctx.Subsidy, fees)
	if err != nil {
		return nil, false, err
	}
	coinbase, err := txs.NewCoinbase(bctx.Height, reward, b.cfg.RewardAddress)
	if err != nil {
		return nil, false, err
	}
	timestamp := max(b.clock.Unix32(), bctx.ParentTimestamp+1)
	blk, err := block.Build(
		bctx.ParentID,
		timestamp,
		bctx.Difficulty,
		uint32(res.Seed),
		cert,
		append([]*txs.Tx{coinbase}, selected...),
	)
	if err != nil {
		return nil, false, err
	}

	r, _ := cert.Last()
	b.log.Info("built block",
		log.Stringer("blkID", blk.ID()),
		log.Stringer("parentID", bctx.ParentID),
		log.Uint64("height", bctx.Height),
		log.Uint64("seed", res.Seed),
		log.Uint32("rounds", res.Rounds),
		log.Reflect("orderParameter", r),
		log.Reflect("edwardsAnderson", res.EdwardsAnderson),
		log.Int("numTxs", len(selected)),
		log.Uint64("fees", fees),
	)
	return blk, true, nil
}

// selectTxs takes the highest fee mempool txs that are valid against the tip
// and fit in [budget] bytes. Txs that are no longer valid are dropped from
// the mempool.
func (b *Builder) selectTxs(budget int) ([]*txs.Tx, uint64, error) {
	var (
		candidates = b.mempool.Peek(b.cfg.MaxTxsPerBlock - 1)
		selected   = make([]*txs.Tx, 0, len(candidates))
		spent      = set.NewSet[txs.UTXOID](0)
		stale      []*txs.Tx
		fees       uint64
	)
	for _, tx := range candidates {
		size := wrappers.IntLen + len(tx.Bytes())
		if size > budget {
			continue
		}
		fee, err := b.chain.VerifyTx(tx, len(selected)+1, spent)
		if errors.Is(err, txs.ErrInvalidTransaction) {
			stale = append(stale, tx)
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to verify tx %s: %w", tx.ID(), err)
		}
		newFees, err := safemath.Add(fees, fee)
		if err != nil {
			continue
		}

		fees = newFees
		budget -= size
		spent = spent.Union(tx.InputIDs())
		selected = append(selected, tx)
	}
	if len(stale) > 0 {
		b.mempool.Remove(stale...)
		b.log.Debug("dropped stale txs from mempool",
			log.Int("numTxs", len(stale)),
		)
	}
	return selected, fees, nil
}

func (b *Builder) seed(bctx chain.BuildContext) uint64 {
	return binary.BigEndian.Uint64(bctx.ParentID[:]) ^ bctx.Height<<32 ^ b.attempts*uint64(b.pool.parallelism)
}
