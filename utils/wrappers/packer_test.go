// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestPackerFixedWidth(t *testing.T) {
	require := require.New(t)

	p := Packer{MaxSize: 1024}
	p.PackInt(0x01020304)
	p.PackLong(math.MaxUint64)
	p.PackFloat32(float32(math.Sqrt(3) / 2))
	require.NoError(p.Err)
	require.Equal([]byte{0x01, 0x02, 0x03, 0x04}, p.Bytes[:4])

	u := Packer{Bytes: p.Bytes}
	require.Equal(uint32(0x01020304), u.UnpackInt())
	require.Equal(uint64(math.MaxUint64), u.UnpackLong())
	require.Equal(float32(math.Sqrt(3)/2), u.UnpackFloat32())
	u.Done()
	require.NoError(u.Err)
}

func TestPackerIDs(t *testing.T) {
	require := require.New(t)

	id := ids.GenerateTestID()
	short := ids.GenerateTestShortID()

	p := Packer{MaxSize: 1024}
	p.PackID(id)
	p.PackShortID(short)
	require.NoError(p.Err)
	require.Len(p.Bytes, ids.IDLen+ShortIDLen)

	u := Packer{Bytes: p.Bytes}
	require.Equal(id, u.UnpackID())
	require.Equal(short, u.UnpackShortID())
	require.Zero(u.Remaining())
}

func TestPackerStickyError(t *testing.T) {
	require := require.New(t)

	u := Packer{Bytes: []byte{0x00, 0x01}}
	require.Zero(u.UnpackInt())
	require.ErrorIs(u.Err, ErrInsufficientLength)

	// Later reads keep the first error and return zero values.
	require.Zero(u.UnpackLong())
	require.ErrorIs(u.Err, ErrInsufficientLength)
}

func TestPackerMaxSize(t *testing.T) {
	p := Packer{MaxSize: 3}
	p.PackInt(1)
	require.ErrorIs(t, p.Err, ErrInsufficientLength)
}

func TestPackerFloat32sCountBound(t *testing.T) {
	u := Packer{Bytes: make([]byte, 8)}
	require.Nil(t, u.UnpackFloat32s(math.MaxUint32))
	require.ErrorIs(t, u.Err, ErrInsufficientLength)
}

func TestPackerLimitedBytes(t *testing.T) {
	require := require.New(t)

	p := Packer{MaxSize: 64}
	p.PackBytes([]byte("bloom"))
	require.NoError(p.Err)

	u := Packer{Bytes: p.Bytes}
	require.Nil(u.UnpackLimitedBytes(4))
	require.ErrorIs(u.Err, errOversized)

	u = Packer{Bytes: p.Bytes}
	require.Equal([]byte("bloom"), u.UnpackLimitedBytes(5))
}

func TestPackerTrailingBytes(t *testing.T) {
	u := Packer{Bytes: []byte{0, 0, 0, 1, 0xff}}
	u.UnpackInt()
	u.Done()
	require.ErrorIs(t, u.Err, ErrTrailingBytes)
}
