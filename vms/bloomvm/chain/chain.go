// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain maintains the canonical chain of coherence blocks.
//
// A Chain validates incoming blocks, extends the tip, stores heavier or
// equal side branches, and reorganizes onto a branch once its cumulative work
// strictly exceeds the tip's. Blocks whose parent is unknown wait in a
// bounded orphan pool. All state lives behind one lock; listeners are
// notified after it is released.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/coherence/utils/timer/mockable"
	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/config"
	"github.com/luxfi/coherence/vms/bloomvm/metrics"
	"github.com/luxfi/coherence/vms/bloomvm/reward"
	"github.com/luxfi/coherence/vms/bloomvm/state"
	"github.com/luxfi/coherence/vms/bloomvm/txs"

	safemath "github.com/luxfi/coherence/utils/math"
)

const (
	// MaxFutureBlockTime is how far past the local clock a block timestamp
	// may be.
	MaxFutureBlockTime = 2 * time.Hour

	maxInvalidBlocks = 4096
)

var (
	statePrefix = []byte("state")
	blockPrefix = []byte("block")
)

// Listener is told about canonical chain changes. Calls are made in chain
// order without the chain lock held.
type Listener interface {
	Connected(blk *block.Block, height uint64)
	Disconnected(blk *block.Block, height uint64)
}

// Backend holds the collaborators of a Chain.
type Backend struct {
	Config   config.Config
	DB       database.Database
	Genesis  *block.Block
	Verifier txs.Verifier
	Clock    *mockable.Clock
	Log      log.Logger
	Metrics  metrics.Metrics
}

// BuildContext describes the next block on top of the tip.
type BuildContext struct {
	ParentID        ids.ID
	ParentTimestamp uint32
	Height          uint64
	Difficulty      uint32
	Subsidy         uint64
}

type node struct {
	id     ids.ID
	header block.Header
	height uint64
	// cumulative difficulty from genesis through this block
	work   *uint256.Int
	parent *node
}

func (n *node) ancestor(height uint64) *node {
	for n != nil && n.height > height {
		n = n.parent
	}
	return n
}

type event struct {
	blk       *block.Block
	height    uint64
	connected bool
}

type Chain struct {
	cfg      config.Config
	log      log.Logger
	metrics  metrics.Metrics
	clock    *mockable.Clock
	verifier txs.Verifier
	rewards  reward.Calculator

	lock sync.RWMutex
	// writes to [state] are staged here until a whole extend or reorg succeeds
	db        *versiondb.Database
	state     *state.State
	blocks    state.BlockState
	genesisID ids.ID

	nodes   map[ids.ID]*node
	tip     *node
	// least recently seen entries are forgotten first
	invalid *lru.Cache[ids.ID, struct{}]
	orphans *orphanPool

	pending   []event
	listeners []Listener
}

// New opens the chain stored in [b.DB], writing [b.Genesis] if the database
// is empty.
func New(b Backend) (*Chain, error) {
	if err := b.Config.Validate(); err != nil {
		return nil, err
	}
	orphans, err := newOrphanPool(b.Config.MaxOrphans)
	if err != nil {
		return nil, err
	}
	blocks, err := state.NewBlockState(prefixdb.New(blockPrefix, b.DB), b.Config.BlockCacheSize)
	if err != nil {
		return nil, err
	}
	if b.Clock == nil {
		b.Clock = &mockable.Clock{}
	}
	if b.Metrics == nil {
		b.Metrics = metrics.Noop
	}
	if b.Verifier == nil {
		b.Verifier = txs.ED25519Verifier{}
	}

	vdb := versiondb.New(b.DB)
	c := &Chain{
		cfg:      b.Config,
		log:      b.Log,
		metrics:  b.Metrics,
		clock:    b.Clock,
		verifier: b.Verifier,
		rewards: reward.NewCalculator(reward.Config{
			InitialSubsidy:  b.Config.InitialSubsidy,
			HalvingInterval: b.Config.HalvingInterval,
		}),
		db:        vdb,
		state:     state.New(prefixdb.New(statePrefix, vdb)),
		blocks:    blocks,
		genesisID: b.Genesis.ID(),
		nodes:     make(map[ids.ID]*node),
		invalid:   lru.NewCache[ids.ID, struct{}](maxInvalidBlocks),
		orphans:   orphans,
	}

	tipID, tipHeight, err := c.state.GetTip()
	switch {
	case errors.Is(err, database.ErrNotFound):
		err = c.initGenesis(b.Genesis)
	case err == nil:
		err = c.recover(tipID, tipHeight)
	}
	if err != nil {
		return nil, err
	}
	c.pending = nil

	c.log.Info("initialized chain",
		log.Stringer("genesisID", c.genesisID),
		log.Stringer("tipID", c.tip.id),
		log.Uint64("height", c.tip.height),
	)
	return c, nil
}

func (c *Chain) initGenesis(genesis *block.Block) error {
	if genesis.Parent() != ids.Empty {
		return fmt.Errorf("%w: parent %s", ErrInvalidGenesis, genesis.Parent())
	}
	if err := genesis.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGenesis, err)
	}
	if err := c.blocks.PutBlock(genesis); err != nil {
		return err
	}
	n := &node{
		id:     genesis.ID(),
		header: genesis.Header(),
		work:   uint256.NewInt(uint64(genesis.Difficulty())),
	}
	if err := c.connect(genesis, 0); err != nil {
		c.db.Abort()
		return fmt.Errorf("%w: %w", ErrInvalidGenesis, err)
	}
	if err := c.db.Commit(); err != nil {
		return err
	}
	c.nodes[n.id] = n
	c.tip = n
	return nil
}

// recover rebuilds the canonical path from the height index. Side branches
// are not reloaded.
func (c *Chain) recover(tipID ids.ID, tipHeight uint64) error {
	var parent *node
	for height := uint64(0); height <= tipHeight; height++ {
		blkID, err := c.state.GetBlockIDAtHeight(height)
		if err != nil {
			return fmt.Errorf("%w: height %d: %w", state.ErrStateCorrupted, height, err)
		}
		if height == 0 && blkID != c.genesisID {
			return fmt.Errorf("%w: stored %s, configured %s", ErrGenesisMismatch, blkID, c.genesisID)
		}
		blk, err := c.blocks.GetBlock(blkID)
		if err != nil {
			return fmt.Errorf("%w: block %s at height %d: %w", state.ErrStateCorrupted, blkID, height, err)
		}

		n := &node{
			id:     blkID,
			header: blk.Header(),
			height: height,
			work:   uint256.NewInt(uint64(blk.Difficulty())),
			parent: parent,
		}
		if parent != nil {
			if blk.Parent() != parent.id {
				return fmt.Errorf("%w: block %s does not extend %s", state.ErrStateCorrupted, blkID, parent.id)
			}
			n.work.Add(n.work, parent.work)
		}
		c.nodes[blkID] = n
		parent = n
	}
	if parent == nil || parent.id != tipID {
		return fmt.Errorf("%w: tip %s not at height %d", state.ErrStateCorrupted, tipID, tipHeight)
	}
	c.tip = parent
	return nil
}

// RegisterListener adds [l] to the listeners notified of canonical changes.
func (c *Chain) RegisterListener(l Listener) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.listeners = append(c.listeners, l)
}

// AddBlock validates [blk] and attaches it to the block tree.
//
// A block whose parent is unknown is held and ErrMissingAncestor is returned;
// it is connected automatically once the parent is added.
func (c *Chain) AddBlock(blk *block.Block) error {
	c.lock.Lock()
	err := c.addBlock(blk)
	events := c.pending
	c.pending = nil
	listeners := c.listeners
	c.lock.Unlock()

	for _, e := range events {
		for _, l := range listeners {
			if e.connected {
				l.Connected(e.blk, e.height)
			} else {
				l.Disconnected(e.blk, e.height)
			}
		}
	}
	return err
}

func (c *Chain) addBlock(blk *block.Block) error {
	blkID := blk.ID()
	switch {
	case c.nodes[blkID] != nil, c.orphans.has(blkID):
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, blkID)
	case c.isInvalid(blkID):
		return fmt.Errorf("%w: %s", ErrKnownInvalid, blkID)
	}

	// The header commits to the certificate only through r, ψ and N, and to
	// transactions only through their IDs, so a failure here may belong to a
	// mutated copy of a valid block and is not remembered.
	if err := blk.Validate(); err != nil {
		c.metrics.MarkInvalid()
		return err
	}

	parentID := blk.Parent()
	parent, ok := c.nodes[parentID]
	if !ok {
		if c.isInvalid(parentID) {
			c.markInvalid(blkID)
			return fmt.Errorf("%w: parent %s", ErrInvalidAncestor, parentID)
		}
		if c.orphans.add(blk) {
			c.metrics.MarkOrphanEvicted()
			c.log.Warn("orphan pool full, evicted oldest orphan")
		}
		c.metrics.SetOrphans(c.orphans.len())
		return fmt.Errorf("%w: %s", ErrMissingAncestor, parentID)
	}

	if err := c.attach(blk, parent); err != nil {
		return err
	}
	c.attachOrphans(blkID)
	return nil
}

// attachOrphans attaches every orphan descending from [parentID].
func (c *Chain) attachOrphans(parentID ids.ID) {
	queue := []ids.ID{parentID}
	for len(queue) > 0 {
		parentID, queue = queue[0], queue[1:]
		for _, orphan := range c.orphans.take(parentID) {
			parent, ok := c.nodes[parentID]
			if !ok {
				c.markInvalid(orphan.ID())
				continue
			}
			if err := c.attach(orphan, parent); err != nil {
				c.log.Debug("dropped orphan",
					log.Stringer("blkID", orphan.ID()),
					log.Err(err),
				)
				continue
			}
			queue = append(queue, orphan.ID())
		}
	}
	c.metrics.SetOrphans(c.orphans.len())
}

// attach adds [blk], whose parent is known, to the tree. It extends the tip
// directly when possible and otherwise takes the fork path.
func (c *Chain) attach(blk *block.Block, parent *node) error {
	blkID := blk.ID()
	if err := c.verifyContext(blk, parent); err != nil {
		if !errors.Is(err, ErrFutureBlock) {
			c.markInvalid(blkID)
		}
		return err
	}
	if err := c.blocks.PutBlock(blk); err != nil {
		return err
	}

	n := &node{
		id:     blkID,
		header: blk.Header(),
		height: parent.height + 1,
		work:   new(uint256.Int).Add(parent.work, uint256.NewInt(uint64(blk.Difficulty()))),
		parent: parent,
	}
	err := c.extend(blk, n)
	if !errors.Is(err, ErrPrevHashMismatch) {
		if errors.Is(err, txs.ErrInvalidTransaction) {
			c.reject(n, err)
		}
		return err
	}

	c.nodes[blkID] = n
	c.metrics.MarkSideBlock()
	if n.work.Cmp(c.tip.work) <= 0 {
		c.log.Debug("stored side block",
			log.Stringer("blkID", blkID),
			log.Uint64("height", n.height),
		)
		return nil
	}
	return c.reorg(n)
}

// extend connects [blk] on top of the tip. It returns ErrPrevHashMismatch if
// [blk] does not build on the tip.
func (c *Chain) extend(blk *block.Block, n *node) error {
	if blk.Parent() != c.tip.id {
		return fmt.Errorf("%w: parent %s, tip %s", ErrPrevHashMismatch, blk.Parent(), c.tip.id)
	}
	if err := c.connect(blk, n.height); err != nil {
		c.db.Abort()
		return err
	}
	if err := c.db.Commit(); err != nil {
		return err
	}
	c.nodes[n.id] = n
	c.tip = n
	c.pending = append(c.pending, event{blk: blk, height: n.height, connected: true})
	c.metrics.MarkAccepted(n.height, workFloat(n.work), len(blk.Txs()))
	c.log.Info("accepted block",
		log.Stringer("blkID", n.id),
		log.Uint64("height", n.height),
		log.Int("numTxs", len(blk.Txs())),
	)
	return nil
}

func (c *Chain) verifyContext(blk *block.Block, parent *node) error {
	header := blk.Header()
	if expected := c.expectedDifficulty(parent); header.Difficulty != expected {
		return fmt.Errorf("%w: %d != %d", ErrUnexpectedDifficulty, header.Difficulty, expected)
	}
	if header.Timestamp <= parent.header.Timestamp {
		return fmt.Errorf("%w: %d <= %d", ErrTimestampNotIncreasing, header.Timestamp, parent.header.Timestamp)
	}
	maxTimestamp := c.clock.Time().Add(MaxFutureBlockTime).Unix()
	if int64(header.Timestamp) > maxTimestamp {
		return fmt.Errorf("%w: %d > %d", ErrFutureBlock, header.Timestamp, maxTimestamp)
	}
	if n := blk.Certificate().N(); int(n) != c.cfg.Coherence.Oscillators {
		return fmt.Errorf("%w: %d != %d", ErrOscillatorCount, n, c.cfg.Coherence.Oscillators)
	}
	if numTxs := len(blk.Txs()); numTxs > c.cfg.MaxTxsPerBlock {
		return fmt.Errorf("%w: %d > %d", ErrTooManyTxs, numTxs, c.cfg.MaxTxsPerBlock)
	}
	if size := len(blk.Bytes()); size > c.cfg.MaxBlockSize {
		return fmt.Errorf("%w: %d > %d", ErrBlockSizeExceeded, size, c.cfg.MaxBlockSize)
	}
	return nil
}

// connect applies [blk] at [height] to the staged state: spends inputs,
// creates outputs, pays the coinbase and records the undo data.
func (c *Chain) connect(blk *block.Block, height uint64) error {
	var (
		blkID        = blk.ID()
		transactions = blk.Txs()
		spent        = set.NewSet[txs.UTXOID](0)
		undo         []*txs.UTXO
		fees         uint64
	)
	for i := 1; i < len(transactions); i++ {
		tx := transactions[i]
		fee, err := txs.VerifySpend(tx, i, c.state, spent, c.verifier)
		if err != nil {
			return err
		}
		fees, err = safemath.Add(fees, fee)
		if err != nil {
			return txs.NewError(tx.ID(), i, txs.ErrValueOverflow)
		}
		for _, in := range tx.Ins {
			utxo, err := c.state.GetUTXO(in.UTXOID)
			if err != nil {
				return err
			}
			if err := c.state.DeleteUTXO(utxo); err != nil {
				return err
			}
			spent.Add(in.UTXOID)
			undo = append(undo, utxo)
		}
		if err := c.putUTXOs(tx); err != nil {
			return err
		}
	}

	// The coinbase is applied last so its outputs can't be spent in the
	// block that creates them.
	coinbase := transactions[0]
	if err := txs.VerifyCoinbase(coinbase, height, c.rewards.Calculate(height), fees); err != nil {
		return err
	}
	if err := c.putUTXOs(coinbase); err != nil {
		return err
	}

	if err := c.state.PutUndo(blkID, undo); err != nil {
		return err
	}
	if err := c.state.PutBlockIDAtHeight(height, blkID); err != nil {
		return err
	}
	return c.state.PutTip(blkID, height)
}

// disconnect reverses connect for the canonical block [blk] at [height].
func (c *Chain) disconnect(blk *block.Block, height uint64) error {
	blkID := blk.ID()
	undo, err := c.state.GetUndo(blkID)
	if err != nil {
		return err
	}

	transactions := blk.Txs()
	if err := c.deleteUTXOs(transactions[0]); err != nil {
		return err
	}
	for i := len(transactions) - 1; i >= 1; i-- {
		tx := transactions[i]
		if err := c.deleteUTXOs(tx); err != nil {
			return err
		}
		for j := len(tx.Ins) - 1; j >= 0; j-- {
			if len(undo) == 0 {
				return fmt.Errorf("%w: undo for %s is short", state.ErrStateCorrupted, blkID)
			}
			utxo := undo[len(undo)-1]
			undo = undo[:len(undo)-1]
			if utxo.UTXOID != tx.Ins[j].UTXOID {
				return fmt.Errorf("%w: undo for %s restores %s, expected %s",
					state.ErrStateCorrupted, blkID, utxo.UTXOID, tx.Ins[j].UTXOID)
			}
			if err := c.state.PutUTXO(utxo); err != nil {
				return err
			}
		}
	}
	if len(undo) != 0 {
		return fmt.Errorf("%w: undo for %s has %d extra entries", state.ErrStateCorrupted, blkID, len(undo))
	}

	if err := c.state.DeleteUndo(blkID); err != nil {
		return err
	}
	if err := c.state.DeleteBlockIDAtHeight(height); err != nil {
		return err
	}
	return c.state.PutTip(blk.Parent(), height-1)
}

func (c *Chain) putUTXOs(tx *txs.Tx) error {
	for _, utxo := range tx.UTXOs() {
		if err := c.state.PutUTXO(utxo); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) deleteUTXOs(tx *txs.Tx) error {
	for _, utxo := range tx.UTXOs() {
		if err := c.state.DeleteUTXO(utxo); err != nil {
			return err
		}
	}
	return nil
}

// reject drops [n] after one of its transactions failed against the UTXO
// set. The block is remembered as invalid unless the failure was a bad
// authorization, which is outside the transaction IDs.
func (c *Chain) reject(n *node, err error) {
	permanent := !errors.Is(err, txs.ErrBadAuthorization)
	c.log.Warn("rejected block",
		log.Stringer("blkID", n.id),
		log.Uint64("height", n.height),
		log.Bool("permanent", permanent),
		log.Err(err),
	)
	c.metrics.MarkInvalid()
	c.prune(n, permanent)
}

// prune removes [n] and its descendants from the tree, the block store and
// the orphan pool.
func (c *Chain) prune(n *node, markInvalid bool) {
	removed := set.Of(n.id)
	delete(c.nodes, n.id)
	for changed := true; changed; {
		changed = false
		for blkID, other := range c.nodes {
			if other.parent != nil && removed.Contains(other.parent.id) {
				removed.Add(blkID)
				delete(c.nodes, blkID)
				changed = true
			}
		}
	}
	for _, blkID := range removed.List() {
		if err := c.blocks.DeleteBlock(blkID); err != nil {
			c.log.Warn("failed to delete pruned block",
				log.Stringer("blkID", blkID),
				log.Err(err),
			)
		}
		if markInvalid {
			c.markInvalid(blkID)
		}
	}
}

// markInvalid remembers [blkID] as invalid along with any orphans that
// descend from it.
func (c *Chain) markInvalid(blkID ids.ID) {
	queue := []ids.ID{blkID}
	for len(queue) > 0 {
		blkID, queue = queue[0], queue[1:]
		c.invalid.Put(blkID, struct{}{})
		for _, orphan := range c.orphans.take(blkID) {
			queue = append(queue, orphan.ID())
		}
	}
}

func (c *Chain) isInvalid(blkID ids.ID) bool {
	_, ok := c.invalid.Get(blkID)
	return ok
}

// Tip returns the ID of the canonical tip.
func (c *Chain) Tip() ids.ID {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.tip.id
}

// Height returns the height of the canonical tip.
func (c *Chain) Height() uint64 {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.tip.height
}

// Work returns the cumulative work of the canonical chain.
func (c *Chain) Work() *uint256.Int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return new(uint256.Int).Set(c.tip.work)
}

func (c *Chain) GenesisID() ids.ID {
	return c.genesisID
}

// GetBlock returns a block that is part of the block tree.
func (c *Chain) GetBlock(blkID ids.ID) (*block.Block, uint64, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	n, ok := c.nodes[blkID]
	if !ok {
		return nil, 0, database.ErrNotFound
	}
	blk, err := c.blocks.GetBlock(blkID)
	return blk, n.height, err
}

// GetBlockIDAtHeight returns the canonical block at [height].
func (c *Chain) GetBlockIDAtHeight(height uint64) (ids.ID, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.state.GetBlockIDAtHeight(height)
}

// IsCanonical reports whether [blkID] is on the canonical chain.
func (c *Chain) IsCanonical(blkID ids.ID) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	n, ok := c.nodes[blkID]
	return ok && c.tip.ancestor(n.height) == n
}

// GetUTXO returns an output that is unspent at the tip.
func (c *Chain) GetUTXO(utxoID txs.UTXOID) (*txs.UTXO, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.state.GetUTXO(utxoID)
}

// UTXOs returns up to [limit] outputs paying [owner] that are unspent at the
// tip.
func (c *Chain) UTXOs(owner ids.ShortID, limit int) ([]*txs.UTXO, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.state.UTXOs(owner, limit)
}

// VerifyTx checks [tx] against the tip state as if it were at [index] of the
// next block, after the outputs in [spent] are consumed. It returns the fee.
func (c *Chain) VerifyTx(tx *txs.Tx, index int, spent set.Set[txs.UTXOID]) (uint64, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return txs.VerifySpend(tx, index, c.state, spent, c.verifier)
}

// ExpectedDifficulty returns the difficulty required of a child of
// [parentID].
func (c *Chain) ExpectedDifficulty(parentID ids.ID) (uint32, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	parent, ok := c.nodes[parentID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingAncestor, parentID)
	}
	return c.expectedDifficulty(parent), nil
}

// ExpectedDifficultyAt returns the difficulty required of a canonical block
// at [height]. [height] may be at most one past the tip.
func (c *Chain) ExpectedDifficultyAt(height uint64) (uint32, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if height == 0 || height > c.tip.height+1 {
		return 0, fmt.Errorf("%w: height %d", database.ErrNotFound, height)
	}
	return c.expectedDifficulty(c.tip.ancestor(height - 1)), nil
}

// BuildContext returns what a block building on the tip needs to know.
func (c *Chain) BuildContext() BuildContext {
	c.lock.RLock()
	defer c.lock.RUnlock()

	height := c.tip.height + 1
	return BuildContext{
		ParentID:        c.tip.id,
		ParentTimestamp: c.tip.header.Timestamp,
		Height:          height,
		Difficulty:      c.expectedDifficulty(c.tip),
		Subsidy:         c.rewards.Calculate(height),
	}
}

// Supply returns the total subsidy paid through the tip.
func (c *Chain) Supply() uint64 {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.rewards.Supply(c.tip.height)
}

// Orphans returns the number of blocks waiting for their parent.
func (c *Chain) Orphans() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.orphans.len()
}
