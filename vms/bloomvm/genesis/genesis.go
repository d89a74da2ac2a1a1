// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package genesis builds the first block of a coherence chain.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/consensus/coherence"
	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

var (
	ErrInvalidOrderParameter = errors.New("genesis order parameter must be in [z_c, 1]")
	ErrInvalidDifficulty     = errors.New("genesis difficulty must be positive")
	ErrInvalidTimestamp      = errors.New("genesis timestamp must be positive")
)

// Genesis describes the genesis block. Its certificate is synthetic: a
// window of L4 rounds over DefaultOscillators phases arranged to produce
// OrderParameter.
type Genesis struct {
	Timestamp      uint32      `json:"timestamp"`
	RewardAddress  ids.ShortID `json:"rewardAddress"`
	OrderParameter float64     `json:"orderParameter"`
	Difficulty     uint32      `json:"difficulty"`
}

func Default() Genesis {
	return Genesis{
		Timestamp:      1_700_000_000,
		OrderParameter: 0.95,
		Difficulty:     1,
	}
}

// Parse overlays the JSON in [b] on Default and validates the result.
func Parse(b []byte) (Genesis, error) {
	g := Default()
	if len(b) > 0 {
		if err := json.Unmarshal(b, &g); err != nil {
			return Genesis{}, fmt.Errorf("failed to parse genesis: %w", err)
		}
	}
	return g, g.Validate()
}

func (g Genesis) Validate() error {
	switch {
	case g.Timestamp == 0:
		return ErrInvalidTimestamp
	case g.Difficulty == 0:
		return ErrInvalidDifficulty
	case !(g.OrderParameter >= coherence.ZC && g.OrderParameter <= 1):
		return fmt.Errorf("%w: %v", ErrInvalidOrderParameter, g.OrderParameter)
	}
	return nil
}

// Block returns the genesis block, whose coinbase pays [subsidy] to
// RewardAddress. The result depends only on [g] and [subsidy].
func (g Genesis) Block(subsidy uint64) (*block.Block, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	cert, err := coherence.StaticCertificate(0, coherence.L4, coherence.DefaultOscillators, g.OrderParameter)
	if err != nil {
		return nil, err
	}
	coinbase, err := txs.NewCoinbase(0, subsidy, g.RewardAddress)
	if err != nil {
		return nil, err
	}
	blk, err := block.Build(ids.Empty, g.Timestamp, g.Difficulty, 0, cert, []*txs.Tx{coinbase})
	if err != nil {
		return nil, err
	}
	return blk, blk.Validate()
}
