// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists the UTXO index and the canonical chain.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/constants"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/utils/wrappers"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

const (
	utxoKeyLen  = ids.IDLen + wrappers.IntLen
	heightLen   = wrappers.LongLen
	maxUndoSize = 16 * constants.MiB
)

var (
	ErrStateCorrupted = errors.New("state corrupted")

	_ txs.UTXOReader = (*State)(nil)

	utxoPrefix   = []byte("utxo")
	ownerPrefix  = []byte("owner")
	undoPrefix   = []byte("undo")
	heightPrefix = []byte("height")
	metaPrefix   = []byte("meta")

	tipKey = []byte("tip")
)

// State is a view of the UTXO index, undo records and canonical height
// index over a database. It holds no caches, so a State built over a
// versiondb can be discarded with the versiondb on abort.
type State struct {
	utxos   database.Database
	owners  database.Database
	undo    database.Database
	heights database.Database
	meta    database.Database
}

func New(db database.Database) *State {
	return &State{
		utxos:   prefixdb.New(utxoPrefix, db),
		owners:  prefixdb.New(ownerPrefix, db),
		undo:    prefixdb.New(undoPrefix, db),
		heights: prefixdb.New(heightPrefix, db),
		meta:    prefixdb.New(metaPrefix, db),
	}
}

func utxoKey(utxoID txs.UTXOID) []byte {
	key := make([]byte, utxoKeyLen)
	copy(key, utxoID.TxID[:])
	binary.BigEndian.PutUint32(key[ids.IDLen:], utxoID.OutputIndex)
	return key
}

func ownerKey(owner ids.ShortID, utxoID txs.UTXOID) []byte {
	key := make([]byte, 0, len(owner)+utxoKeyLen)
	key = append(key, owner[:]...)
	return append(key, utxoKey(utxoID)...)
}

func heightKey(height uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, height)
}

// GetUTXO returns database.ErrNotFound if the output is spent or unknown.
func (s *State) GetUTXO(utxoID txs.UTXOID) (*txs.UTXO, error) {
	b, err := s.utxos.Get(utxoKey(utxoID))
	if err != nil {
		return nil, err
	}
	return txs.ParseUTXO(b)
}

func (s *State) PutUTXO(utxo *txs.UTXO) error {
	if err := s.utxos.Put(utxoKey(utxo.UTXOID), utxo.Bytes()); err != nil {
		return err
	}
	return s.owners.Put(ownerKey(utxo.Recipient, utxo.UTXOID), nil)
}

func (s *State) DeleteUTXO(utxo *txs.UTXO) error {
	if err := s.utxos.Delete(utxoKey(utxo.UTXOID)); err != nil {
		return err
	}
	return s.owners.Delete(ownerKey(utxo.Recipient, utxo.UTXOID))
}

// UTXOs returns up to [limit] unspent outputs paying [owner].
func (s *State) UTXOs(owner ids.ShortID, limit int) ([]*txs.UTXO, error) {
	it := s.owners.NewIteratorWithPrefix(owner[:])
	defer it.Release()

	var utxos []*txs.UTXO
	for len(utxos) < limit && it.Next() {
		key := it.Key()
		if len(key) != len(owner)+utxoKeyLen {
			return nil, fmt.Errorf("%w: owner key length %d", ErrStateCorrupted, len(key))
		}
		var utxoID txs.UTXOID
		copy(utxoID.TxID[:], key[len(owner):])
		utxoID.OutputIndex = binary.BigEndian.Uint32(key[len(owner)+ids.IDLen:])

		utxo, err := s.GetUTXO(utxoID)
		if err != nil {
			return nil, fmt.Errorf("%w: indexed utxo %s: %w", ErrStateCorrupted, utxoID, err)
		}
		utxos = append(utxos, utxo)
	}
	return utxos, it.Error()
}

// GetUndo returns the outputs spent by [blkID], in the order they were spent.
func (s *State) GetUndo(blkID ids.ID) ([]*txs.UTXO, error) {
	b, err := s.undo.Get(blkID[:])
	if err != nil {
		return nil, err
	}
	p := wrappers.Packer{Bytes: b}
	count := p.UnpackInt()
	if !p.Errored() && uint64(count)*wrappers.IntLen > uint64(p.Remaining()) {
		p.Add(wrappers.ErrInsufficientLength)
	}
	var spent []*txs.UTXO
	for i := uint32(0); i < count && !p.Errored(); i++ {
		utxo, err := txs.ParseUTXO(p.UnpackLimitedBytes(uint32(len(b))))
		if err != nil {
			p.Add(err)
			break
		}
		spent = append(spent, utxo)
	}
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("%w: undo for %s: %w", ErrStateCorrupted, blkID, p.Err)
	}
	return spent, nil
}

func (s *State) PutUndo(blkID ids.ID, spent []*txs.UTXO) error {
	p := wrappers.Packer{MaxSize: maxUndoSize}
	p.PackInt(uint32(len(spent)))
	for _, utxo := range spent {
		p.PackBytes(utxo.Bytes())
	}
	if p.Err != nil {
		return p.Err
	}
	return s.undo.Put(blkID[:], p.Bytes)
}

func (s *State) DeleteUndo(blkID ids.ID) error {
	return s.undo.Delete(blkID[:])
}

// GetBlockIDAtHeight returns the canonical block at [height].
func (s *State) GetBlockIDAtHeight(height uint64) (ids.ID, error) {
	return database.GetID(s.heights, heightKey(height))
}

func (s *State) PutBlockIDAtHeight(height uint64, blkID ids.ID) error {
	return database.PutID(s.heights, heightKey(height), blkID)
}

func (s *State) DeleteBlockIDAtHeight(height uint64) error {
	return s.heights.Delete(heightKey(height))
}

// GetTip returns the canonical tip and its height, or database.ErrNotFound
// before genesis has been written.
func (s *State) GetTip() (ids.ID, uint64, error) {
	b, err := s.meta.Get(tipKey)
	if err != nil {
		return ids.Empty, 0, err
	}
	if len(b) != ids.IDLen+heightLen {
		return ids.Empty, 0, fmt.Errorf("%w: tip record length %d", ErrStateCorrupted, len(b))
	}
	var tip ids.ID
	copy(tip[:], b)
	return tip, binary.BigEndian.Uint64(b[ids.IDLen:]), nil
}

func (s *State) PutTip(blkID ids.ID, height uint64) error {
	b := make([]byte, 0, ids.IDLen+heightLen)
	b = append(b, blkID[:]...)
	b = binary.BigEndian.AppendUint64(b, height)
	return s.meta.Put(tipKey, b)
}
