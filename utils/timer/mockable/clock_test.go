// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mockable

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockSet(t *testing.T) {
	require := require.New(t)

	var c Clock
	pinned := time.Unix(1_700_000_000, 0)
	c.Set(pinned)
	require.Equal(pinned, c.Time())
	require.Equal(uint32(1_700_000_000), c.Unix32())

	c.Advance(10 * time.Second)
	require.Equal(uint32(1_700_000_010), c.Unix32())

	c.Sync()
	require.WithinDuration(time.Now(), c.Time(), time.Minute)
}

func TestClockUnix32Saturates(t *testing.T) {
	require := require.New(t)

	var c Clock
	c.Set(time.Unix(-5, 0))
	require.Zero(c.Unix32())

	c.Set(time.Unix(math.MaxUint32+10, 0))
	require.Equal(uint32(math.MaxUint32), c.Unix32())
}
