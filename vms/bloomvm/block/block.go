// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package block implements the block structure of the coherence chain.
package block

import (
	"fmt"
	"time"

	"github.com/luxfi/constants"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/coherence/consensus/coherence"
	"github.com/luxfi/coherence/utils/wrappers"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

// MaxSize bounds a serialized block.
const MaxSize = 8 * constants.MiB

// Block is a header, the certificate it commits to, and its transactions.
// The first transaction is the coinbase. Blocks are immutable once built.
type Block struct {
	header Header
	cert   *coherence.Certificate
	txs    []*txs.Tx

	id    ids.ID
	bytes []byte
}

// Build assembles a block, filling the header fields that are derived from
// [cert] and [transactions].
func Build(
	prevID ids.ID,
	timestamp uint32,
	difficulty uint32,
	nonce uint32,
	cert *coherence.Certificate,
	transactions []*txs.Tx,
) (*Block, error) {
	r, psi := cert.Last()
	header := Header{
		Version:         Version,
		PrevID:          prevID,
		MerkleRoot:      MerkleRoot(txIDs(transactions)),
		Timestamp:       timestamp,
		Difficulty:      difficulty,
		Nonce:           nonce,
		OrderParameter:  r,
		MeanPhase:       psi,
		OscillatorCount: cert.N(),
	}
	return New(header, cert, transactions)
}

// New returns a block with exactly the given header. It does not validate.
func New(header Header, cert *coherence.Certificate, transactions []*txs.Tx) (*Block, error) {
	b := &Block{
		header: header,
		cert:   cert,
		txs:    append([]*txs.Tx(nil), transactions...),
		id:     header.ID(),
	}
	certBytes, err := cert.Bytes()
	if err != nil {
		return nil, err
	}

	p := wrappers.Packer{
		MaxSize: MaxSize,
		Bytes:   make([]byte, 0, HeaderLen+2*wrappers.IntLen+len(certBytes)),
	}
	p.PackFixedBytes(header.Bytes())
	p.PackBytes(certBytes)
	p.PackInt(uint32(len(b.txs)))
	for _, tx := range b.txs {
		p.PackBytes(tx.Bytes())
	}
	if p.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBlockTooLarge, p.Err)
	}
	b.bytes = p.Bytes
	return b, nil
}

// Parse decodes a block. The result still needs Validate.
func Parse(bytes []byte) (*Block, error) {
	if len(bytes) > MaxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBlockTooLarge, len(bytes), MaxSize)
	}
	p := wrappers.Packer{Bytes: bytes}
	header := unpackHeader(&p)
	certBytes := p.UnpackLimitedBytes(coherence.MaxCertificateSize)
	numTxs := p.UnpackInt()
	if !p.Errored() && uint64(numTxs)*wrappers.IntLen > uint64(p.Remaining()) {
		p.Add(wrappers.ErrInsufficientLength)
	}
	var txBytes [][]byte
	if !p.Errored() {
		txBytes = make([][]byte, numTxs)
		for i := range txBytes {
			txBytes[i] = p.UnpackLimitedBytes(txs.MaxTxSize)
		}
	}
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("failed to parse block: %w", p.Err)
	}

	cert, err := coherence.ParseCertificate(certBytes)
	if err != nil {
		return nil, err
	}
	b := &Block{
		header: header,
		cert:   cert,
		txs:    make([]*txs.Tx, len(txBytes)),
		id:     header.ID(),
		bytes:  bytes,
	}
	for i, raw := range txBytes {
		tx, err := txs.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		b.txs[i] = tx
	}
	return b, nil
}

func (b *Block) ID() ids.ID { return b.id }

func (b *Block) Parent() ids.ID { return b.header.PrevID }

// Header returns a copy of the header.
func (b *Block) Header() Header { return b.header }

func (b *Block) Certificate() *coherence.Certificate { return b.cert }

// Txs returns the block's transactions, coinbase first.
func (b *Block) Txs() []*txs.Tx { return append([]*txs.Tx(nil), b.txs...) }

func (b *Block) Coinbase() *txs.Tx {
	if len(b.txs) == 0 {
		return nil
	}
	return b.txs[0]
}

func (b *Block) Bytes() []byte { return b.bytes }

func (b *Block) Timestamp() time.Time {
	return time.Unix(int64(b.header.Timestamp), 0)
}

func (b *Block) Difficulty() uint32 { return b.header.Difficulty }

// Validate runs every check that needs no chain state, in order, and returns
// the first failure.
func (b *Block) Validate() error {
	if b.header.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, b.header.Version)
	}
	if err := b.cert.Verify(); err != nil {
		return err
	}
	if r := b.header.OrderParameter; !(float64(r) >= coherence.ZC) {
		return fmt.Errorf("%w: header r=%v", coherence.ErrThresholdNotMet, r)
	}
	if d := b.cert.Duration(); d < coherence.L4 {
		return fmt.Errorf("%w: %d < %d", coherence.ErrInsufficientBloomDuration, d, coherence.L4)
	}
	if err := b.verifyBinding(); err != nil {
		return err
	}
	if root := MerkleRoot(txIDs(b.txs)); root != b.header.MerkleRoot {
		return fmt.Errorf("%w: computed %s, header %s", ErrMerkleMismatch, root, b.header.MerkleRoot)
	}
	return b.verifyTxs()
}

func (b *Block) verifyBinding() error {
	r, psi := b.cert.Last()
	switch {
	case b.header.OscillatorCount != b.cert.N():
		return fmt.Errorf("%w: %w: oscillator count %d != %d",
			coherence.ErrInvalidCertificate, errHeaderCertMismatch, b.header.OscillatorCount, b.cert.N())
	case b.header.OrderParameter != r:
		return fmt.Errorf("%w: %w: r %v != %v",
			coherence.ErrInvalidCertificate, errHeaderCertMismatch, b.header.OrderParameter, r)
	case b.header.MeanPhase != psi:
		return fmt.Errorf("%w: %w: psi %v != %v",
			coherence.ErrInvalidCertificate, errHeaderCertMismatch, b.header.MeanPhase, psi)
	}
	return nil
}

// verifyTxs checks that the block holds exactly one coinbase at index 0,
// that every tx is well formed and that no output is spent twice.
func (b *Block) verifyTxs() error {
	if len(b.txs) == 0 {
		return ErrNoTransactions
	}
	consumed := set.Set[txs.UTXOID]{}
	for i, tx := range b.txs {
		switch {
		case i == 0 && !tx.IsCoinbase():
			return txs.NewError(tx.ID(), i, txs.ErrMissingCoinbase)
		case i > 0 && tx.IsCoinbase():
			return txs.NewError(tx.ID(), i, txs.ErrExtraCoinbase)
		}
		if err := tx.SyntacticVerify(); err != nil {
			return txs.NewError(tx.ID(), i, err)
		}
		inputs := tx.InputIDs()
		if consumed.Overlaps(inputs) {
			return txs.NewError(tx.ID(), i, txs.ErrDoubleSpend)
		}
		consumed = consumed.Union(inputs)
	}
	return nil
}

func txIDs(transactions []*txs.Tx) []ids.ID {
	txIDs := make([]ids.ID, len(transactions))
	for i, tx := range transactions {
		txIDs[i] = tx.ID()
	}
	return txIDs
}
