// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

func newUTXO(owner ids.ShortID, amount uint64) *txs.UTXO {
	return &txs.UTXO{
		UTXOID: txs.UTXOID{
			TxID:        ids.GenerateTestID(),
			OutputIndex: 1,
		},
		Output: txs.Output{
			Amount:    amount,
			Recipient: owner,
		},
	}
}

func TestUTXOLifecycle(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New())
	owner := ids.GenerateTestShortID()
	utxo := newUTXO(owner, 42)

	_, err := s.GetUTXO(utxo.UTXOID)
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(s.PutUTXO(utxo))
	got, err := s.GetUTXO(utxo.UTXOID)
	require.NoError(err)
	require.Equal(utxo, got)

	owned, err := s.UTXOs(owner, 10)
	require.NoError(err)
	require.Equal([]*txs.UTXO{utxo}, owned)

	require.NoError(s.DeleteUTXO(utxo))
	_, err = s.GetUTXO(utxo.UTXOID)
	require.ErrorIs(err, database.ErrNotFound)

	owned, err = s.UTXOs(owner, 10)
	require.NoError(err)
	require.Empty(owned)
}

func TestUTXOsByOwner(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New())
	alice := ids.GenerateTestShortID()
	bob := ids.GenerateTestShortID()

	for i := 0; i < 3; i++ {
		require.NoError(s.PutUTXO(newUTXO(alice, uint64(i+1))))
	}
	require.NoError(s.PutUTXO(newUTXO(bob, 100)))

	owned, err := s.UTXOs(alice, 10)
	require.NoError(err)
	require.Len(owned, 3)
	for _, utxo := range owned {
		require.Equal(alice, utxo.Recipient)
	}

	owned, err = s.UTXOs(alice, 2)
	require.NoError(err)
	require.Len(owned, 2)

	owned, err = s.UTXOs(bob, 10)
	require.NoError(err)
	require.Len(owned, 1)
	require.Equal(uint64(100), owned[0].Amount)
}

func TestUndo(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New())
	blkID := ids.GenerateTestID()
	owner := ids.GenerateTestShortID()
	spent := []*txs.UTXO{
		newUTXO(owner, 1),
		newUTXO(owner, 2),
	}

	_, err := s.GetUndo(blkID)
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(s.PutUndo(blkID, spent))
	got, err := s.GetUndo(blkID)
	require.NoError(err)
	require.Equal(spent, got)

	require.NoError(s.PutUndo(blkID, nil))
	got, err = s.GetUndo(blkID)
	require.NoError(err)
	require.Empty(got)

	require.NoError(s.DeleteUndo(blkID))
	_, err = s.GetUndo(blkID)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestHeightIndexAndTip(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New())
	_, _, err := s.GetTip()
	require.ErrorIs(err, database.ErrNotFound)

	blkID := ids.GenerateTestID()
	require.NoError(s.PutBlockIDAtHeight(5, blkID))
	require.NoError(s.PutTip(blkID, 5))

	got, err := s.GetBlockIDAtHeight(5)
	require.NoError(err)
	require.Equal(blkID, got)

	tip, height, err := s.GetTip()
	require.NoError(err)
	require.Equal(blkID, tip)
	require.Equal(uint64(5), height)

	require.NoError(s.DeleteBlockIDAtHeight(5))
	_, err = s.GetBlockIDAtHeight(5)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestAbortDiscardsWrites(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	vdb := versiondb.New(base)
	s := New(vdb)
	utxo := newUTXO(ids.GenerateTestShortID(), 7)
	require.NoError(s.PutUTXO(utxo))
	vdb.Abort()

	_, err := New(base).GetUTXO(utxo.UTXOID)
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(s.PutUTXO(utxo))
	require.NoError(vdb.Commit())
	got, err := New(base).GetUTXO(utxo.UTXOID)
	require.NoError(err)
	require.Equal(utxo, got)
}

func TestCorruptTip(t *testing.T) {
	db := memdb.New()
	s := New(db)
	require.NoError(t, s.meta.Put(tipKey, []byte{1, 2, 3}))

	_, _, err := s.GetTip()
	require.ErrorIs(t, err, ErrStateCorrupted)
}
