// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bloomvm

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/coherence/consensus/coherence"
	"github.com/luxfi/coherence/vms/bloomvm/api"
	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/config"
	"github.com/luxfi/coherence/vms/bloomvm/genesis"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

const testSubsidy = 1_000

var (
	minerAddr = ids.ShortID{1}
	payee     = ids.ShortID{2}
)

type testEnv struct {
	key     ed25519.PrivateKey
	genesis *block.Block
	vm      *VM
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Coherence.Spread = 0.05
	cfg.Coherence.Coupling = 10
	cfg.Coherence.TimeStep = 0.05
	cfg.Coherence.MaxRounds = 2000
	cfg.InitialSubsidy = testSubsidy
	cfg.MiningParallelism = 2
	cfg.RewardAddress = minerAddr
	return cfg
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	require := require.New(t)

	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize))
	g := genesis.Default()
	g.RewardAddress = txs.Address(key.Public().(ed25519.PublicKey))
	genesisBlk, err := g.Block(cfg.InitialSubsidy)
	require.NoError(err)

	genesisBytes, err := json.Marshal(g)
	require.NoError(err)
	configBytes, err := json.Marshal(cfg)
	require.NoError(err)

	vm := &VM{}
	require.NoError(vm.Initialize(
		context.Background(),
		log.NewNoOpLogger(),
		memdb.New(),
		genesisBytes,
		configBytes,
		prometheus.NewRegistry(),
	))
	t.Cleanup(func() {
		require.NoError(vm.Shutdown(context.Background()))
	})

	require.Equal(genesisBlk.ID(), vm.Chain().GenesisID())
	return &testEnv{
		key:     key,
		genesis: genesisBlk,
		vm:      vm,
	}
}

func (e *testEnv) spendGenesis(t *testing.T, amount uint64) *txs.Tx {
	tx, err := txs.NewTx(
		0,
		[]txs.Input{{UTXOID: txs.UTXOID{TxID: e.genesis.Coinbase().ID()}}},
		[]txs.Output{{Amount: amount, Recipient: payee}},
	)
	require.NoError(t, err)
	require.NoError(t, tx.Sign([]ed25519.PrivateKey{e.key}))
	return tx
}

func (e *testEnv) issue(t *testing.T, tx *txs.Tx) {
	fee, err := e.vm.Chain().VerifyTx(tx, 1, nil)
	require.NoError(t, err)
	require.NoError(t, e.vm.Mempool().Add(tx, fee))
}

func balance(t *testing.T, vm *VM, owner ids.ShortID) uint64 {
	utxos, err := vm.Chain().UTXOs(owner, math.MaxInt)
	require.NoError(t, err)
	var total uint64
	for _, utxo := range utxos {
		total += utxo.Amount
	}
	return total
}

func TestInitializeInvalid(t *testing.T) {
	tests := []struct {
		name        string
		genesis     string
		config      string
		expectedErr error
	}{
		{
			name:        "invalid config",
			config:      `{"miningParallelism":0}`,
			expectedErr: config.ErrInvalidParallelism,
		},
		{
			name:        "invalid genesis",
			genesis:     `{"orderParameter":0.5}`,
			expectedErr: genesis.ErrInvalidOrderParameter,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			vm := &VM{}
			err := vm.Initialize(
				context.Background(),
				log.NewNoOpLogger(),
				memdb.New(),
				[]byte(test.genesis),
				[]byte(test.config),
				prometheus.NewRegistry(),
			)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestBuildBlock(t *testing.T) {
	require := require.New(t)

	e := newTestEnv(t, testConfig())
	tx := e.spendGenesis(t, testSubsidy-10)
	e.issue(t, tx)

	blk, sealed, err := e.vm.BuildBlock(context.Background())
	require.NoError(err)
	require.True(sealed)
	require.Equal(blk.ID(), e.vm.Chain().Tip())
	require.Equal(uint64(1), e.vm.Chain().Height())
	require.Len(blk.Txs(), 2)

	require.Zero(e.vm.Mempool().Len())
	require.Equal(uint64(testSubsidy-10), balance(t, e.vm, payee))
	require.Equal(uint64(testSubsidy+10), balance(t, e.vm, minerAddr))
	require.NoError(blk.Certificate().Verify())
	require.GreaterOrEqual(blk.Certificate().Duration(), uint32(coherence.L4))
}

func TestListenerUpdatesMempool(t *testing.T) {
	require := require.New(t)

	e := newTestEnv(t, testConfig())
	tx := e.spendGenesis(t, testSubsidy-10)

	cert, err := coherence.StaticCertificate(0, coherence.L4, coherence.DefaultOscillators, 0.9)
	require.NoError(err)
	coinbase, err := txs.NewCoinbase(1, testSubsidy+10, minerAddr)
	require.NoError(err)
	blk, err := block.Build(
		e.genesis.ID(),
		e.genesis.Header().Timestamp+1,
		e.genesis.Difficulty(),
		0,
		cert,
		[]*txs.Tx{coinbase, tx},
	)
	require.NoError(err)

	// Disconnecting a block returns its still valid txs to the mempool.
	e.vm.Disconnected(blk, 1)
	require.True(e.vm.Mempool().Has(tx.ID()))
	require.False(e.vm.Mempool().Has(coinbase.ID()))

	// Connecting a block drops its txs and anything spending the same
	// inputs. Unrelated txs stay.
	conflict := e.spendGenesis(t, testSubsidy-20)
	e.vm.Mempool().Remove(tx)
	e.issue(t, conflict)

	unrelated, err := txs.NewTx(
		0,
		[]txs.Input{{UTXOID: txs.UTXOID{TxID: ids.GenerateTestID()}}},
		[]txs.Output{{Amount: 1, Recipient: payee}},
	)
	require.NoError(err)
	require.NoError(e.vm.Mempool().Add(unrelated, 1))
	require.Equal(2, e.vm.Mempool().Len())

	e.vm.Connected(blk, 1)
	require.False(e.vm.Mempool().Has(conflict.ID()))
	require.True(e.vm.Mempool().Has(unrelated.ID()))
	require.Equal(1, e.vm.Mempool().Len())
}

func TestRun(t *testing.T) {
	require := require.New(t)

	e := newTestEnv(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.vm.Run(ctx)
	}()

	require.Eventually(func() bool {
		return e.vm.Chain().Height() >= 2
	}, 30*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(<-done)

	height := e.vm.Chain().Height()
	require.Equal(height*testSubsidy, balance(t, e.vm, minerAddr))
}

func TestRunMiningDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MiningEnabled = false
	e := newTestEnv(t, cfg)

	err := e.vm.Run(context.Background())
	require.ErrorIs(t, err, errMiningDisabled)
}

func TestCreateHandlers(t *testing.T) {
	require := require.New(t)

	e := newTestEnv(t, testConfig())
	handlers, err := e.vm.CreateHandlers(context.Background())
	require.NoError(err)
	handler, ok := handlers[""]
	require.True(ok)

	body, err := json2.EncodeClientRequest(api.ServiceName+".getTip", struct{}{})
	require.NoError(err)
	req := httptest.NewRequest(http.MethodPost, "/ext/bloom", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(http.StatusOK, w.Code)

	reply := api.GetTipReply{}
	require.NoError(json2.DecodeClientResponse(w.Body, &reply))
	require.Equal(e.genesis.ID(), reply.BlockID)
}
