// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetarget(t *testing.T) {
	tests := []struct {
		name     string
		prev     uint32
		expected uint64
		actual   uint64
		want     uint32
	}{
		{
			name:     "on target",
			prev:     100,
			expected: 1440,
			actual:   1440,
			want:     100,
		},
		{
			name:     "twice as fast",
			prev:     100,
			expected: 1440,
			actual:   720,
			want:     200,
		},
		{
			name:     "twice as slow",
			prev:     100,
			expected: 1440,
			actual:   2880,
			want:     50,
		},
		{
			name:     "clamped up",
			prev:     100,
			expected: 1440,
			actual:   1,
			want:     400,
		},
		{
			name:     "clamped down",
			prev:     100,
			expected: 1,
			actual:   1440,
			want:     25,
		},
		{
			name:     "never below one",
			prev:     1,
			expected: 1,
			actual:   1000,
			want:     1,
		},
		{
			name:     "saturates",
			prev:     math.MaxUint32,
			expected: 2,
			actual:   1,
			want:     math.MaxUint32,
		},
		{
			name:     "zero actual",
			prev:     10,
			expected: 10,
			actual:   0,
			want:     40,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, retarget(test.prev, test.expected, test.actual))
		})
	}
}
