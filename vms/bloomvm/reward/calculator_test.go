// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var defaultConfig = Config{
	InitialSubsidy:  50_0000_0000,
	HalvingInterval: 210_000,
}

func TestCalculate(t *testing.T) {
	c := NewCalculator(defaultConfig)
	tests := []struct {
		height   uint64
		expected uint64
	}{
		{
			height:   0,
			expected: 50_0000_0000,
		},
		{
			height:   209_999,
			expected: 50_0000_0000,
		},
		{
			height:   210_000,
			expected: 25_0000_0000,
		},
		{
			height:   420_000,
			expected: 12_5000_0000,
		},
		{
			height:   63 * 210_000,
			expected: 0,
		},
		{
			height:   64 * 210_000,
			expected: 0,
		},
		{
			height:   math.MaxUint64,
			expected: 0,
		},
	}
	for _, test := range tests {
		require.Equal(t, test.expected, c.Calculate(test.height), "height %d", test.height)
	}
}

func TestCalculateNoHalving(t *testing.T) {
	c := NewCalculator(Config{InitialSubsidy: 7})
	require.Equal(t, uint64(7), c.Calculate(math.MaxUint64))
}

func TestSupply(t *testing.T) {
	require := require.New(t)

	c := NewCalculator(Config{InitialSubsidy: 8, HalvingInterval: 2})
	require.Equal(uint64(8), c.Supply(0))
	require.Equal(uint64(16), c.Supply(1))
	require.Equal(uint64(20), c.Supply(2))
	require.Equal(uint64(8+8+4+4+2+2+1+1), c.Supply(1000))
}
