// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bloomvm wires the coherence chain, its mempool, the miner and the
// JSON-RPC service into a single VM.
package bloomvm

import (
	"context"
	"errors"
	"net/http"

	"github.com/luxfi/database"
	"github.com/luxfi/database/corruptabledb"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/luxfi/coherence/utils/timer/mockable"
	"github.com/luxfi/coherence/vms/bloomvm/api"
	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/chain"
	"github.com/luxfi/coherence/vms/bloomvm/config"
	"github.com/luxfi/coherence/vms/bloomvm/genesis"
	"github.com/luxfi/coherence/vms/bloomvm/metrics"
	"github.com/luxfi/coherence/vms/bloomvm/miner"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
	"github.com/luxfi/coherence/vms/bloomvm/txs/mempool"
	"github.com/luxfi/coherence/vms/tracedvm"

	utilmetric "github.com/luxfi/coherence/utils/metric"
)

const (
	metricsNamespace = "bloomvm"
	tracerName       = "github.com/luxfi/coherence/vms/bloomvm"
)

var (
	_ chain.Listener = (*VM)(nil)

	errMiningDisabled = errors.New("mining is disabled")
)

type VM struct {
	config.Config

	log     log.Logger
	metrics metrics.Metrics

	// Used to check local time
	clock mockable.Clock

	registerer prometheus.Registerer
	db         database.Database

	chain   *chain.Chain
	adder   tracedvm.BlockAdder
	mempool *mempool.Mempool
	builder tracedvm.BlockBuilder
	service *api.Service
}

// Initialize opens the chain in [db]. Empty [genesisBytes] or [configBytes]
// select the defaults.
func (vm *VM) Initialize(
	_ context.Context,
	logger log.Logger,
	db database.Database,
	genesisBytes []byte,
	configBytes []byte,
	registerer prometheus.Registerer,
) error {
	cfg, err := config.Parse(configBytes)
	if err != nil {
		return err
	}
	g, err := genesis.Parse(genesisBytes)
	if err != nil {
		return err
	}
	genesisBlk, err := g.Block(cfg.InitialSubsidy)
	if err != nil {
		return err
	}

	vm.Config = cfg
	vm.log = logger
	vm.registerer = registerer
	vm.db = corruptabledb.New(db, logger)

	vm.metrics, err = metrics.New(metricsNamespace, registerer)
	if err != nil {
		return err
	}

	vm.chain, err = chain.New(chain.Backend{
		Config:   cfg,
		DB:       vm.db,
		Genesis:  genesisBlk,
		Verifier: txs.ED25519Verifier{},
		Clock:    &vm.clock,
		Log:      logger,
		Metrics:  vm.metrics,
	})
	if err != nil {
		return err
	}

	vm.mempool, err = mempool.New(cfg.MempoolSize)
	if err != nil {
		return err
	}

	pool, err := miner.NewPool(cfg.Coherence, cfg.MiningParallelism, logger, vm.metrics)
	if err != nil {
		return err
	}
	vm.builder = miner.NewBuilder(
		miner.BuilderConfig{
			RewardAddress:  cfg.RewardAddress,
			MaxBlockSize:   cfg.MaxBlockSize,
			MaxTxsPerBlock: cfg.MaxTxsPerBlock,
		},
		vm.chain,
		vm.mempool,
		pool,
		&vm.clock,
		logger,
	)
	vm.adder = vm.chain
	if cfg.TracingEnabled {
		tracer := otel.Tracer(tracerName)
		vm.builder = tracedvm.NewBuilder(vm.builder, tracer)
		vm.adder = tracedvm.NewAdder(vm.adder, tracer)
	}

	vm.chain.RegisterListener(vm)
	vm.service = api.NewService(logger, vm.chain, vm.mempool)

	logger.Info("initialized coherence vm",
		log.Stringer("genesisID", vm.chain.GenesisID()),
		log.Stringer("tipID", vm.chain.Tip()),
		log.Uint64("height", vm.chain.Height()),
		log.Bool("miningEnabled", cfg.MiningEnabled),
	)
	return nil
}

// CreateHandlers returns the JSON-RPC handler, mounted at the VM's base
// route.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	interceptor, err := utilmetric.NewAPIInterceptor(metricsNamespace+"_api", vm.registerer)
	if err != nil {
		return nil, err
	}
	handler, err := api.NewHandler(vm.service, interceptor)
	if err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"": handler,
	}, nil
}

// Chain exposes the block tree for read access.
func (vm *VM) Chain() *chain.Chain {
	return vm.chain
}

func (vm *VM) Mempool() *mempool.Mempool {
	return vm.mempool
}

// AddBlock submits a block mined elsewhere.
func (vm *VM) AddBlock(blk *block.Block) error {
	return vm.adder.AddBlock(blk)
}

// BuildBlock runs one round of mining attempts on the tip and adds the
// result. It returns false if no attempt bloomed.
func (vm *VM) BuildBlock(ctx context.Context) (*block.Block, bool, error) {
	blk, sealed, err := vm.builder.Build(ctx)
	if err != nil || !sealed {
		return nil, false, err
	}
	if err := vm.adder.AddBlock(blk); err != nil {
		return nil, false, err
	}
	return blk, true, nil
}

// Run mines on the tip until [ctx] is done. Blocks it produces that fail to
// attach are logged and mining continues.
func (vm *VM) Run(ctx context.Context) error {
	if !vm.MiningEnabled {
		return errMiningDisabled
	}

	vm.log.Info("mining started",
		log.Int("parallelism", vm.MiningParallelism),
		log.Stringer("rewardAddress", vm.RewardAddress),
	)
	for {
		_, _, err := vm.BuildBlock(ctx)
		switch {
		case ctx.Err() != nil:
			vm.log.Info("mining stopped",
				log.Uint64("height", vm.chain.Height()),
			)
			return nil
		case errors.Is(err, txs.ErrInvalidTransaction), errors.Is(err, chain.ErrDuplicateBlock):
			vm.log.Warn("dropping mined block",
				log.Err(err),
			)
		case err != nil:
			return err
		}
	}
}

// Connected drops the block's transactions, and any pending transaction
// that conflicts with them, from the mempool.
func (vm *VM) Connected(blk *block.Block, _ uint64) {
	transactions := blk.Txs()
	spent := set.NewSet[txs.UTXOID](0)
	for _, tx := range transactions {
		spent = spent.Union(tx.InputIDs())
	}
	vm.mempool.Remove(transactions...)
	if dropped := vm.mempool.RemoveConflicts(spent); len(dropped) > 0 {
		vm.log.Debug("dropped conflicting txs from mempool",
			log.Stringer("blkID", blk.ID()),
			log.Int("numTxs", len(dropped)),
		)
	}
	vm.metrics.SetMempoolSize(vm.mempool.Len())
}

// Disconnected returns the block's transactions to the mempool if they are
// still valid on the new tip.
func (vm *VM) Disconnected(blk *block.Block, _ uint64) {
	for _, tx := range blk.Txs()[1:] {
		fee, err := vm.chain.VerifyTx(tx, 1, set.Set[txs.UTXOID]{})
		if err != nil {
			continue
		}
		if err := vm.mempool.Add(tx, fee); err != nil {
			vm.log.Debug("failed to return tx to mempool",
				log.Stringer("txID", tx.ID()),
				log.Err(err),
			)
		}
	}
	vm.metrics.SetMempoolSize(vm.mempool.Len())
}

// Shutdown closes the database. It must not be called while Run is active.
func (vm *VM) Shutdown(context.Context) error {
	if vm.db == nil {
		return nil
	}
	return vm.db.Close()
}
