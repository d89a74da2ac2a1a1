// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reward computes the block subsidy schedule.
package reward

// maxHalvings is the point past which a right shift of a uint64 is zero.
const maxHalvings = 64

type Config struct {
	// InitialSubsidy is paid to the coinbase of every block before the first
	// halving.
	InitialSubsidy uint64 `json:"initialSubsidy"`
	// HalvingInterval is the number of blocks between halvings.
	HalvingInterval uint64 `json:"halvingInterval"`
}

type Calculator interface {
	// Calculate returns the subsidy for the block at [height].
	Calculate(height uint64) uint64
	// Supply returns the total subsidy paid by blocks 0 through [height].
	Supply(height uint64) uint64
}

type calculator struct {
	initial  uint64
	interval uint64
}

func NewCalculator(c Config) Calculator {
	return &calculator{
		initial:  c.InitialSubsidy,
		interval: c.HalvingInterval,
	}
}

// Calculate halves the initial subsidy once per completed interval.
func (c *calculator) Calculate(height uint64) uint64 {
	if c.interval == 0 {
		return c.initial
	}
	halvings := height / c.interval
	if halvings >= maxHalvings {
		return 0
	}
	return c.initial >> halvings
}

// Supply returns the total subsidy paid by blocks 0 through [height].
func (c *calculator) Supply(height uint64) uint64 {
	if c.interval == 0 {
		return c.initial * (height + 1)
	}
	var total uint64
	for start := uint64(0); start <= height; start += c.interval {
		subsidy := c.Calculate(start)
		if subsidy == 0 {
			break
		}
		end := min(start+c.interval-1, height)
		total += subsidy * (end - start + 1)
		if end == height {
			break
		}
	}
	return total
}
