// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/coherence/utils/json"
	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/txs"

	safemath "github.com/luxfi/coherence/utils/math"
)

// MaxUTXOs bounds the outputs returned by a single getUTXOs call.
const MaxUTXOs = 1024

var (
	errNoBlockSelector = errors.New("either blockID or height must be given")
	errBothSelectors   = errors.New("only one of blockID or height may be given")
)

// Chain is the read and verify surface of the chain that the API needs.
type Chain interface {
	Tip() ids.ID
	Height() uint64
	Work() *uint256.Int
	GetBlock(blkID ids.ID) (*block.Block, uint64, error)
	GetBlockIDAtHeight(height uint64) (ids.ID, error)
	IsCanonical(blkID ids.ID) bool
	UTXOs(owner ids.ShortID, limit int) ([]*txs.UTXO, error)
	VerifyTx(tx *txs.Tx, index int, spent set.Set[txs.UTXOID]) (uint64, error)
	Supply() uint64
	Orphans() int
}

// Mempool accepts verified transactions.
type Mempool interface {
	Add(tx *txs.Tx, fee uint64) error
	Len() int
}

// Service is the coherence JSON-RPC service.
type Service struct {
	log     log.Logger
	chain   Chain
	mempool Mempool
}

func NewService(logger log.Logger, chain Chain, mempool Mempool) *Service {
	return &Service{
		log:     logger,
		chain:   chain,
		mempool: mempool,
	}
}

type GetHeightReply struct {
	Height json.Uint64 `json:"height"`
}

// GetHeight returns the height of the canonical tip.
func (s *Service) GetHeight(_ *http.Request, _ *struct{}, reply *GetHeightReply) error {
	s.log.Debug("API called",
		log.String("service", "coherence"),
		log.String("method", "getHeight"),
	)

	reply.Height = json.Uint64(s.chain.Height())
	return nil
}

type GetTipReply struct {
	BlockID ids.ID      `json:"blockID"`
	Height  json.Uint64 `json:"height"`
	Work    string      `json:"work"`
	Orphans int         `json:"orphans"`
	Mempool int         `json:"mempool"`
}

// GetTip returns the canonical tip and its cumulative work.
func (s *Service) GetTip(_ *http.Request, _ *struct{}, reply *GetTipReply) error {
	s.log.Debug("API called",
		log.String("service", "coherence"),
		log.String("method", "getTip"),
	)

	reply.BlockID = s.chain.Tip()
	reply.Height = json.Uint64(s.chain.Height())
	reply.Work = s.chain.Work().ToBig().String()
	reply.Orphans = s.chain.Orphans()
	reply.Mempool = s.mempool.Len()
	return nil
}

// GetBlockArgs selects a block by ID or by canonical height.
type GetBlockArgs struct {
	BlockID *ids.ID      `json:"blockID"`
	Height  *json.Uint64 `json:"height"`
}

type GetBlockReply struct {
	BlockID         ids.ID      `json:"blockID"`
	ParentID        ids.ID      `json:"parentID"`
	Height          json.Uint64 `json:"height"`
	Canonical       bool        `json:"canonical"`
	Timestamp       json.Uint32 `json:"timestamp"`
	Difficulty      json.Uint32 `json:"difficulty"`
	OrderParameter  float32     `json:"orderParameter"`
	MeanPhase       float32     `json:"meanPhase"`
	OscillatorCount json.Uint32 `json:"oscillatorCount"`
	BloomDuration   json.Uint32 `json:"bloomDuration"`
	TxIDs           []ids.ID    `json:"txIDs"`
	Block           string      `json:"block"`
}

// GetBlock returns a stored block, canonical or not, and its summary.
func (s *Service) GetBlock(_ *http.Request, args *GetBlockArgs, reply *GetBlockReply) error {
	s.log.Debug("API called",
		log.String("service", "coherence"),
		log.String("method", "getBlock"),
	)

	var blkID ids.ID
	switch {
	case args.BlockID != nil && args.Height != nil:
		return errBothSelectors
	case args.BlockID != nil:
		blkID = *args.BlockID
	case args.Height != nil:
		var err error
		blkID, err = s.chain.GetBlockIDAtHeight(uint64(*args.Height))
		if err != nil {
			return fmt.Errorf("couldn't get block at height %d: %w", *args.Height, err)
		}
	default:
		return errNoBlockSelector
	}

	blk, height, err := s.chain.GetBlock(blkID)
	if err != nil {
		return fmt.Errorf("couldn't get block %s: %w", blkID, err)
	}

	header := blk.Header()
	reply.BlockID = blk.ID()
	reply.ParentID = blk.Parent()
	reply.Height = json.Uint64(height)
	reply.Canonical = s.chain.IsCanonical(blkID)
	reply.Timestamp = json.Uint32(header.Timestamp)
	reply.Difficulty = json.Uint32(header.Difficulty)
	reply.OrderParameter = header.OrderParameter
	reply.MeanPhase = header.MeanPhase
	reply.OscillatorCount = json.Uint32(header.OscillatorCount)
	reply.BloomDuration = json.Uint32(blk.Certificate().Duration())
	for _, tx := range blk.Txs() {
		reply.TxIDs = append(reply.TxIDs, tx.ID())
	}
	reply.Block = encode(blk.Bytes())
	return nil
}

type AddressArgs struct {
	Address ids.ShortID `json:"address"`
}

type GetBalanceReply struct {
	Balance json.Uint64 `json:"balance"`
	UTXOs   int         `json:"utxos"`
}

// GetBalance sums the unspent outputs paying [Address] at the canonical tip.
func (s *Service) GetBalance(_ *http.Request, args *AddressArgs, reply *GetBalanceReply) error {
	s.log.Debug("API called",
		log.String("service", "coherence"),
		log.String("method", "getBalance"),
		log.Stringer("address", args.Address),
	)

	utxos, err := s.chain.UTXOs(args.Address, math.MaxInt)
	if err != nil {
		return fmt.Errorf("couldn't get utxos: %w", err)
	}
	var balance uint64
	for _, utxo := range utxos {
		balance, err = safemath.Add(balance, utxo.Amount)
		if err != nil {
			return err
		}
	}
	reply.Balance = json.Uint64(balance)
	reply.UTXOs = len(utxos)
	return nil
}

type GetUTXOsReply struct {
	UTXOs []*txs.UTXO `json:"utxos"`
}

// GetUTXOs returns up to MaxUTXOs unspent outputs paying [Address].
func (s *Service) GetUTXOs(_ *http.Request, args *AddressArgs, reply *GetUTXOsReply) error {
	s.log.Debug("API called",
		log.String("service", "coherence"),
		log.String("method", "getUTXOs"),
		log.Stringer("address", args.Address),
	)

	utxos, err := s.chain.UTXOs(args.Address, MaxUTXOs)
	if err != nil {
		return fmt.Errorf("couldn't get utxos: %w", err)
	}
	reply.UTXOs = utxos
	return nil
}

type IssueTxArgs struct {
	Tx string `json:"tx"`
}

type IssueTxReply struct {
	TxID ids.ID      `json:"txID"`
	Fee  json.Uint64 `json:"fee"`
}

// IssueTx verifies a hex encoded transaction against the tip state and adds
// it to the mempool.
func (s *Service) IssueTx(_ *http.Request, args *IssueTxArgs, reply *IssueTxReply) error {
	txBytes, err := decode(args.Tx)
	if err != nil {
		return fmt.Errorf("problem decoding transaction: %w", err)
	}
	tx, err := txs.Parse(txBytes)
	if err != nil {
		return err
	}
	if tx.IsCoinbase() {
		return txs.ErrCoinbaseSpent
	}
	if err := tx.SyntacticVerify(); err != nil {
		return err
	}

	fee, err := s.chain.VerifyTx(tx, 1, set.Set[txs.UTXOID]{})
	if err != nil {
		return err
	}
	if err := s.mempool.Add(tx, fee); err != nil {
		return err
	}

	s.log.Info("issued tx to mempool over API",
		log.Stringer("txID", tx.ID()),
		log.Uint64("fee", fee),
	)
	reply.TxID = tx.ID()
	reply.Fee = json.Uint64(fee)
	return nil
}

type GetSupplyReply struct {
	Supply json.Uint64 `json:"supply"`
}

// GetSupply returns the subsidy minted by the canonical chain.
func (s *Service) GetSupply(_ *http.Request, _ *struct{}, reply *GetSupplyReply) error {
	s.log.Debug("API called",
		log.String("service", "coherence"),
		log.String("method", "getSupply"),
	)

	reply.Supply = json.Uint64(s.chain.Supply())
	return nil
}

func encode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func decode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
