// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"crypto/sha256"
	"fmt"

	"github.com/luxfi/constants"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/coherence/utils/wrappers"

	safemath "github.com/luxfi/coherence/utils/math"
)

const (
	MaxTxSize   = constants.MiB
	MaxInputs   = 1024
	MaxOutputs  = 1024
	MaxAuthSize = 256

	inputFixedLen = ids.IDLen + 2*wrappers.IntLen
	outputLen     = wrappers.LongLen + wrappers.ShortIDLen
	minTxLen      = wrappers.LongLen + 2*wrappers.IntLen
)

// UTXOID names an output by the transaction that created it and its index.
type UTXOID struct {
	TxID        ids.ID `json:"txID"`
	OutputIndex uint32 `json:"outputIndex"`
}

func (u UTXOID) String() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.OutputIndex)
}

// Input spends the output named by UTXOID. Auth is opaque to the chain and
// checked by a Verifier against the output's recipient.
type Input struct {
	UTXOID `json:"utxoID"`
	Auth   []byte `json:"auth"`
}

type Output struct {
	Amount    uint64      `json:"amount"`
	Recipient ids.ShortID `json:"recipient"`
}

// Tx moves value from Ins to Outs. A Tx with no inputs is a coinbase, whose
// Nonce must equal the height of the block it is mined in.
type Tx struct {
	Nonce uint64   `json:"nonce"`
	Ins   []Input  `json:"inputs"`
	Outs  []Output `json:"outputs"`

	id    ids.ID
	bytes []byte
}

// NewTx returns an initialized transaction.
func NewTx(nonce uint64, ins []Input, outs []Output) (*Tx, error) {
	tx := &Tx{
		Nonce: nonce,
		Ins:   ins,
		Outs:  outs,
	}
	return tx, tx.Initialize()
}

// NewCoinbase returns the coinbase for [height] paying [amount] to [to]. A
// zero [amount] yields a coinbase with no outputs.
func NewCoinbase(height, amount uint64, to ids.ShortID) (*Tx, error) {
	var outs []Output
	if amount > 0 {
		outs = []Output{{Amount: amount, Recipient: to}}
	}
	return NewTx(height, nil, outs)
}

// Initialize caches the transaction's bytes and ID. It must be called again
// after any field is modified.
func (tx *Tx) Initialize() error {
	unsigned, err := tx.marshal(false)
	if err != nil {
		return err
	}
	signed, err := tx.marshal(true)
	if err != nil {
		return err
	}
	tx.id = sha256.Sum256(unsigned)
	tx.bytes = signed
	return nil
}

// ID is the sha256 of the transaction's bytes with every Auth left empty,
// so signing an input does not change the ID being signed.
func (tx *Tx) ID() ids.ID {
	return tx.id
}

func (tx *Tx) Bytes() []byte {
	return tx.bytes
}

func (tx *Tx) IsCoinbase() bool {
	return len(tx.Ins) == 0
}

// InputIDs returns the set of outputs consumed by tx.
func (tx *Tx) InputIDs() set.Set[UTXOID] {
	s := set.NewSet[UTXOID](len(tx.Ins))
	for _, in := range tx.Ins {
		s.Add(in.UTXOID)
	}
	return s
}

// OutputsValue returns the sum of every output amount.
func (tx *Tx) OutputsValue() (uint64, error) {
	var total uint64
	for _, out := range tx.Outs {
		var err error
		total, err = safemath.Add(total, out.Amount)
		if err != nil {
			return 0, ErrValueOverflow
		}
	}
	return total, nil
}

// UTXOs returns the outputs tx creates, keyed by their UTXOID.
func (tx *Tx) UTXOs() []*UTXO {
	utxos := make([]*UTXO, len(tx.Outs))
	for i, out := range tx.Outs {
		utxos[i] = &UTXO{
			UTXOID: UTXOID{
				TxID:        tx.id,
				OutputIndex: uint32(i),
			},
			Output: out,
		}
	}
	return utxos
}

// SyntacticVerify checks everything that does not depend on chain state. A
// coinbase may have no outputs once the subsidy and fees it claims are zero.
func (tx *Tx) SyntacticVerify() error {
	switch {
	case len(tx.Outs) == 0 && !tx.IsCoinbase():
		return ErrNoOutputs
	case len(tx.Ins) > MaxInputs:
		return fmt.Errorf("%w: %d > %d", ErrTooManyInputs, len(tx.Ins), MaxInputs)
	case len(tx.Outs) > MaxOutputs:
		return fmt.Errorf("%w: %d > %d", ErrTooManyOutputs, len(tx.Outs), MaxOutputs)
	}

	consumed := set.NewSet[UTXOID](len(tx.Ins))
	for _, in := range tx.Ins {
		if consumed.Contains(in.UTXOID) {
			return fmt.Errorf("%w: %s", ErrDuplicateInput, in.UTXOID)
		}
		consumed.Add(in.UTXOID)
		if len(in.Auth) > MaxAuthSize {
			return fmt.Errorf("%w: %d > %d", ErrAuthTooLarge, len(in.Auth), MaxAuthSize)
		}
	}
	for i, out := range tx.Outs {
		if out.Amount == 0 {
			return fmt.Errorf("%w: output %d", ErrZeroOutput, i)
		}
	}
	_, err := tx.OutputsValue()
	return err
}

func (tx *Tx) marshal(withAuth bool) ([]byte, error) {
	size := minTxLen + len(tx.Ins)*inputFixedLen + len(tx.Outs)*outputLen
	if withAuth {
		for _, in := range tx.Ins {
			size += len(in.Auth)
		}
	}
	p := wrappers.Packer{
		MaxSize: MaxTxSize,
		Bytes:   make([]byte, 0, size),
	}
	p.PackLong(tx.Nonce)
	p.PackInt(uint32(len(tx.Ins)))
	for _, in := range tx.Ins {
		p.PackID(in.TxID)
		p.PackInt(in.OutputIndex)
		if withAuth {
			p.PackBytes(in.Auth)
		} else {
			p.PackInt(0)
		}
	}
	p.PackInt(uint32(len(tx.Outs)))
	for _, out := range tx.Outs {
		p.PackLong(out.Amount)
		p.PackShortID(out.Recipient)
	}
	return p.Bytes, p.Err
}

// Parse decodes and initializes a transaction.
func Parse(b []byte) (*Tx, error) {
	if len(b) > MaxTxSize {
		return nil, fmt.Errorf("%w: %d > %d", wrappers.ErrInsufficientLength, len(b), MaxTxSize)
	}
	p := wrappers.Packer{Bytes: b}
	tx := &Tx{Nonce: p.UnpackLong()}

	numIns := p.UnpackInt()
	if !p.Errored() && uint64(numIns)*inputFixedLen > uint64(p.Remaining()) {
		p.Add(wrappers.ErrInsufficientLength)
	}
	if !p.Errored() && numIns > 0 {
		tx.Ins = make([]Input, numIns)
		for i := range tx.Ins {
			tx.Ins[i].TxID = p.UnpackID()
			tx.Ins[i].OutputIndex = p.UnpackInt()
			if auth := p.UnpackLimitedBytes(MaxAuthSize); len(auth) > 0 {
				tx.Ins[i].Auth = append([]byte(nil), auth...)
			}
		}
	}

	numOuts := p.UnpackInt()
	if !p.Errored() && uint64(numOuts)*outputLen > uint64(p.Remaining()) {
		p.Add(wrappers.ErrInsufficientLength)
	}
	if !p.Errored() && numOuts > 0 {
		tx.Outs = make([]Output, numOuts)
		for i := range tx.Outs {
			tx.Outs[i].Amount = p.UnpackLong()
			tx.Outs[i].Recipient = p.UnpackShortID()
		}
	}
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("failed to parse tx: %w", p.Err)
	}
	return tx, tx.Initialize()
}
