// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/coherence/consensus/coherence"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		json        string
		check       func(*require.Assertions, Config)
		expectedErr error
	}{
		{
			name: "empty",
			json: "",
			check: func(require *require.Assertions, c Config) {
				require.Equal(DefaultConfig(), c)
			},
		},
		{
			name: "overlay",
			json: `{"retargetInterval":10,"coherence":{"coupling":4}}`,
			check: func(require *require.Assertions, c Config) {
				require.Equal(uint64(10), c.RetargetInterval)
				require.Equal(4.0, c.Coherence.Coupling)
				require.Equal(coherence.DefaultOscillators, c.Coherence.Oscillators)
				require.Equal(10*time.Second, c.TargetBlockTime)
			},
		},
		{
			name:        "invalid coherence",
			json:        `{"coherence":{"spread":0}}`,
			expectedErr: coherence.ErrInvalidSpread,
		},
		{
			name:        "zero subsidy",
			json:        `{"initialSubsidy":0}`,
			expectedErr: ErrInvalidSubsidy,
		},
		{
			name:        "sub-second target",
			json:        `{"targetBlockTime":1000}`,
			expectedErr: ErrInvalidTargetBlockTime,
		},
		{
			name:        "zero parallelism",
			json:        `{"miningParallelism":0}`,
			expectedErr: ErrInvalidParallelism,
		},
		{
			name:        "negative api connections",
			json:        `{"apiMaxConnections":-1}`,
			expectedErr: ErrInvalidAPIConnections,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			c, err := Parse([]byte(test.json))
			require.ErrorIs(err, test.expectedErr)
			if test.check != nil {
				test.check(require, c)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("{"))
	require.Error(t, err)
}
