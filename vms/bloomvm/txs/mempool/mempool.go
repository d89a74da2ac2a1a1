// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

const defaultTreeDegree = 2

var (
	ErrDuplicateTx  = errors.New("duplicate tx")
	ErrConflictTx   = errors.New("tx spends an input already spent by a pending tx")
	ErrCoinbaseTx   = errors.New("coinbase txs can not be issued")
	ErrMempoolFull  = errors.New("mempool is full")
	errFeeTooLow    = errors.New("fee too low to evict pending txs")
	errInvalidLimit = errors.New("mempool size must be positive")
)

var _ btree.LessFunc[*entry] = (*entry).Less

type entry struct {
	tx  *txs.Tx
	fee uint64
	seq uint64
}

// Less orders higher fees first, then earlier arrivals.
func (e *entry) Less(than *entry) bool {
	if e.fee != than.fee {
		return e.fee > than.fee
	}
	return e.seq < than.seq
}

// Mempool holds verified transactions waiting to be mined, ordered by fee.
// No two pending transactions consume the same output.
type Mempool struct {
	lock sync.RWMutex

	maxSize  int
	seq      uint64
	byID     map[ids.ID]*entry
	ordered  *btree.BTreeG[*entry]
	consumed map[txs.UTXOID]ids.ID
}

func New(maxSize int) (*Mempool, error) {
	if maxSize <= 0 {
		return nil, errInvalidLimit
	}
	return &Mempool{
		maxSize:  maxSize,
		byID:     make(map[ids.ID]*entry),
		ordered:  btree.NewG(defaultTreeDegree, (*entry).Less),
		consumed: make(map[txs.UTXOID]ids.ID),
	}, nil
}

// Add inserts tx paying [fee]. When full, the lowest fee tx is evicted if tx
// pays strictly more.
func (m *Mempool) Add(tx *txs.Tx, fee uint64) error {
	if tx.IsCoinbase() {
		return ErrCoinbaseTx
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	txID := tx.ID()
	if _, ok := m.byID[txID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTx, txID)
	}
	for _, in := range tx.Ins {
		if other, ok := m.consumed[in.UTXOID]; ok {
			return fmt.Errorf("%w: %s spent by %s", ErrConflictTx, in.UTXOID, other)
		}
	}
	if len(m.byID) >= m.maxSize {
		lowest, _ := m.ordered.Max()
		if fee <= lowest.fee {
			return fmt.Errorf("%w: %w", ErrMempoolFull, errFeeTooLow)
		}
		m.remove(lowest.tx.ID())
	}

	e := &entry{
		tx:  tx,
		fee: fee,
		seq: m.seq,
	}
	m.seq++
	m.byID[txID] = e
	m.ordered.ReplaceOrInsert(e)
	for _, in := range tx.Ins {
		m.consumed[in.UTXOID] = txID
	}
	return nil
}

func (m *Mempool) Has(txID ids.ID) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	_, ok := m.byID[txID]
	return ok
}

func (m *Mempool) Get(txID ids.ID) (*txs.Tx, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	e, ok := m.byID[txID]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

func (m *Mempool) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return len(m.byID)
}

// Peek returns up to n transactions, highest fee first.
func (m *Mempool) Peek(n int) []*txs.Tx {
	m.lock.RLock()
	defer m.lock.RUnlock()

	result := make([]*txs.Tx, 0, min(n, len(m.byID)))
	m.ordered.Ascend(func(e *entry) bool {
		if len(result) >= n {
			return false
		}
		result = append(result, e.tx)
		return true
	})
	return result
}

// Remove drops the given transactions if present.
func (m *Mempool) Remove(txs ...*txs.Tx) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, tx := range txs {
		m.remove(tx.ID())
	}
}

// RemoveConflicts drops every pending tx that consumes one of [spent] and
// returns their IDs.
func (m *Mempool) RemoveConflicts(spent set.Set[txs.UTXOID]) []ids.ID {
	m.lock.Lock()
	defer m.lock.Unlock()

	var dropped []ids.ID
	for utxoID := range spent {
		txID, ok := m.consumed[utxoID]
		if !ok {
			continue
		}
		m.remove(txID)
		dropped = append(dropped, txID)
	}
	return dropped
}

func (m *Mempool) remove(txID ids.ID) {
	e, ok := m.byID[txID]
	if !ok {
		return
	}
	delete(m.byID, txID)
	m.ordered.Delete(e)
	for _, in := range e.tx.Ins {
		delete(m.consumed, in.UTXOID)
	}
}
