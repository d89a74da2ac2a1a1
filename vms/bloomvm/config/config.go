// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration types for the coherence chain VM.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/constants"
	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/consensus/coherence"
)

var (
	ErrInvalidSubsidy          = errors.New("initial subsidy must be positive")
	ErrInvalidHalvingInterval  = errors.New("halving interval must be positive")
	ErrInvalidTargetBlockTime  = errors.New("target block time must be at least one second")
	ErrInvalidRetargetInterval = errors.New("retarget interval must be positive")
	ErrInvalidDifficulty       = errors.New("initial difficulty must be positive")
	ErrInvalidBlockLimits      = errors.New("block limits must be positive")
	ErrInvalidParallelism      = errors.New("mining parallelism must be positive")
	ErrInvalidAPIConnections   = errors.New("api connection limit must not be negative")
)

// Config contains configuration parameters for the coherence chain VM.
type Config struct {
	// Coherence tunes the miner's oscillator network.
	Coherence coherence.Params `json:"coherence"`

	// InitialSubsidy is the coinbase reward at height 0.
	InitialSubsidy uint64 `json:"initialSubsidy"`
	// HalvingInterval is the number of blocks between subsidy halvings.
	HalvingInterval uint64 `json:"halvingInterval"`

	// Difficulty retargeting
	TargetBlockTime   time.Duration `json:"targetBlockTime"`
	RetargetInterval  uint64        `json:"retargetInterval"`
	InitialDifficulty uint32        `json:"initialDifficulty"`

	// MaxReorgDepth bounds how many canonical blocks a reorg may disconnect.
	// Zero means unbounded.
	MaxReorgDepth uint64 `json:"maxReorgDepth"`
	// MaxOrphans bounds blocks held while waiting for their parent.
	MaxOrphans int `json:"maxOrphans"`
	// BlockCacheSize is the number of bytes of decoded blocks kept in memory.
	BlockCacheSize int `json:"blockCacheSize"`

	// Block configuration
	MaxBlockSize   int `json:"maxBlockSize"`
	MaxTxsPerBlock int `json:"maxTxsPerBlock"`
	MempoolSize    int `json:"mempoolSize"`

	// Mining
	MiningEnabled     bool        `json:"miningEnabled"`
	MiningParallelism int         `json:"miningParallelism"`
	RewardAddress     ids.ShortID `json:"rewardAddress"`

	// TracingEnabled wraps block building and insertion in OpenTelemetry
	// spans reported to the global tracer provider.
	TracingEnabled bool `json:"tracingEnabled"`

	// API
	APIAddress     string   `json:"apiAddress"`
	AllowedOrigins []string `json:"allowedOrigins"`
	// APIMaxConnections bounds concurrently served API connections. Zero
	// means unbounded.
	APIMaxConnections int `json:"apiMaxConnections"`
}

// DefaultConfig returns the default configuration for the coherence chain VM.
func DefaultConfig() Config {
	return Config{
		Coherence: coherence.DefaultParams(),

		InitialSubsidy:  50_0000_0000,
		HalvingInterval: 210_000,

		TargetBlockTime:   10 * time.Second,
		RetargetInterval:  144,
		InitialDifficulty: 1,

		MaxReorgDepth:  0,
		MaxOrphans:     256,
		BlockCacheSize: 64 * constants.MiB,

		MaxBlockSize:   2 * constants.MiB,
		MaxTxsPerBlock: 4096,
		MempoolSize:    16_384,

		MiningEnabled:     true,
		MiningParallelism: 4,

		APIAddress:        "127.0.0.1:9650",
		AllowedOrigins:    []string{"*"},
		APIMaxConnections: 64,
	}
}

// Validate checks Config invariants.
func (c Config) Validate() error {
	if err := c.Coherence.Validate(); err != nil {
		return fmt.Errorf("coherence: %w", err)
	}
	switch {
	case c.InitialSubsidy == 0:
		return ErrInvalidSubsidy
	case c.HalvingInterval == 0:
		return ErrInvalidHalvingInterval
	case c.TargetBlockTime < time.Second:
		return fmt.Errorf("%w: %s", ErrInvalidTargetBlockTime, c.TargetBlockTime)
	case c.RetargetInterval == 0:
		return ErrInvalidRetargetInterval
	case c.InitialDifficulty == 0:
		return ErrInvalidDifficulty
	case c.MaxBlockSize <= 0, c.MaxTxsPerBlock <= 0, c.MaxOrphans <= 0,
		c.BlockCacheSize <= 0, c.MempoolSize <= 0:
		return ErrInvalidBlockLimits
	case c.MiningParallelism <= 0:
		return ErrInvalidParallelism
	case c.APIMaxConnections < 0:
		return ErrInvalidAPIConnections
	}
	return nil
}

// Parse overlays the JSON in [b] on DefaultConfig and validates the result.
// Empty input yields the defaults.
func Parse(b []byte) (Config, error) {
	c := DefaultConfig()
	if len(b) > 0 {
		if err := json.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
