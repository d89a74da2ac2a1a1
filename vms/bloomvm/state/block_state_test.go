// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/constants"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/consensus/coherence"
	"github.com/luxfi/coherence/vms/bloomvm/block"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

func newTestBlock(t *testing.T, parent ids.ID, height uint64) *block.Block {
	require := require.New(t)

	cert, err := coherence.StaticCertificate(0, coherence.L4, coherence.DefaultOscillators, 0.95)
	require.NoError(err)
	coinbase, err := txs.NewCoinbase(height, 50, ids.GenerateTestShortID())
	require.NoError(err)
	blk, err := block.Build(parent, uint32(height+1), 1, 0, cert, []*txs.Tx{coinbase})
	require.NoError(err)
	return blk
}

func TestBlockState(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	bs, err := NewBlockState(db, constants.MiB)
	require.NoError(err)

	blk := newTestBlock(t, ids.Empty, 0)
	_, err = bs.GetBlock(blk.ID())
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(bs.PutBlock(blk))
	got, err := bs.GetBlock(blk.ID())
	require.NoError(err)
	require.Equal(blk.Bytes(), got.Bytes())

	// A fresh store over the same database decodes the compressed bytes.
	bs, err = NewBlockState(db, constants.MiB)
	require.NoError(err)
	got, err = bs.GetBlock(blk.ID())
	require.NoError(err)
	require.Equal(blk.ID(), got.ID())
	require.Equal(blk.Bytes(), got.Bytes())
	require.NoError(got.Validate())

	require.NoError(bs.DeleteBlock(blk.ID()))
	_, err = bs.GetBlock(blk.ID())
	require.ErrorIs(err, database.ErrNotFound)
}

func TestBlockStateCompressesAtRest(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	bs, err := NewBlockState(db, constants.MiB)
	require.NoError(err)

	blk := newTestBlock(t, ids.GenerateTestID(), 3)
	require.NoError(bs.PutBlock(blk))

	blkID := blk.ID()
	stored, err := db.Get(blkID[:])
	require.NoError(err)
	require.NotEqual(blk.Bytes(), stored)
}

func TestBlockStateCorrupt(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	blkID := ids.GenerateTestID()
	require.NoError(db.Put(blkID[:], []byte("not zstd")))

	bs, err := NewBlockState(db, constants.MiB)
	require.NoError(err)
	_, err = bs.GetBlock(blkID)
	require.ErrorIs(err, ErrStateCorrupted)
}
