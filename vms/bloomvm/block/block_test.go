// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/consensus/coherence"
	"github.com/luxfi/coherence/vms/bloomvm/txs"
)

func newCert(t *testing.T, end uint32) *coherence.Certificate {
	t.Helper()

	cert, err := coherence.StaticCertificate(0, end, coherence.DefaultOscillators, 0.95)
	require.NoError(t, err)
	return cert
}

func newCoinbase(t *testing.T, height uint64) *txs.Tx {
	t.Helper()

	tx, err := txs.NewCoinbase(height, 50, ids.GenerateTestShortID())
	require.NoError(t, err)
	return tx
}

func newSpend(t *testing.T, ins ...txs.UTXOID) *txs.Tx {
	t.Helper()

	inputs := make([]txs.Input, len(ins))
	for i, in := range ins {
		inputs[i] = txs.Input{UTXOID: in}
	}
	tx, err := txs.NewTx(0, inputs, []txs.Output{{Amount: 1, Recipient: ids.GenerateTestShortID()}})
	require.NoError(t, err)
	return tx
}

func newBlock(t *testing.T, cert *coherence.Certificate, transactions ...*txs.Tx) *Block {
	t.Helper()

	blk, err := Build(ids.GenerateTestID(), 1_700_000_000, 3, 9, cert, transactions)
	require.NoError(t, err)
	return blk
}

func TestHeaderBytes(t *testing.T) {
	require := require.New(t)

	h := Header{
		Version:         Version,
		PrevID:          ids.GenerateTestID(),
		MerkleRoot:      ids.GenerateTestID(),
		Timestamp:       1_700_000_000,
		Difficulty:      12,
		Nonce:           3,
		OrderParameter:  0.95,
		MeanPhase:       1.25,
		OscillatorCount: coherence.DefaultOscillators,
	}
	b := h.Bytes()
	require.Len(b, 92)
	require.Equal(ids.ID(sha256.Sum256(b)), h.ID())

	parsed, err := ParseHeader(b)
	require.NoError(err)
	require.Equal(h, parsed)

	_, err = ParseHeader(b[:HeaderLen-1])
	require.Error(err)
	_, err = ParseHeader(append(b, 0))
	require.Error(err)
}

func TestBlockParse(t *testing.T) {
	for _, end := range []uint32{coherence.L4, 1000} {
		require := require.New(t)

		blk := newBlock(t, newCert(t, end), newCoinbase(t, 1), newSpend(t, txs.UTXOID{TxID: ids.GenerateTestID()}))
		require.NoError(blk.Validate())

		parsed, err := Parse(blk.Bytes())
		require.NoError(err)
		require.Equal(blk.ID(), parsed.ID())
		require.Equal(blk.Header(), parsed.Header())
		require.Equal(blk.Certificate(), parsed.Certificate())
		require.Equal(blk.Txs(), parsed.Txs())
		require.Equal(blk.Bytes(), parsed.Bytes())
		require.Equal(uint32(coherence.DefaultOscillators), parsed.Header().OscillatorCount)
		require.NoError(parsed.Validate())
	}
}

func TestBlockAccessors(t *testing.T) {
	require := require.New(t)

	coinbase := newCoinbase(t, 1)
	blk := newBlock(t, newCert(t, coherence.L4), coinbase)
	require.Equal(coinbase, blk.Coinbase())
	require.Equal(uint32(3), blk.Difficulty())
	require.Equal(int64(1_700_000_000), blk.Timestamp().Unix())
	require.Equal(blk.Header().PrevID, blk.Parent())

	blk.Txs()[0] = nil
	require.Equal(coinbase, blk.Coinbase())
}

func TestParseErrors(t *testing.T) {
	require := require.New(t)

	blk := newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1))
	b := blk.Bytes()

	_, err := Parse(b[:len(b)-1])
	require.Error(err)
	_, err = Parse(append(append([]byte(nil), b...), 0))
	require.Error(err)
	_, err = Parse(make([]byte, MaxSize+1))
	require.ErrorIs(err, ErrBlockTooLarge)
}

func TestBlockValidate(t *testing.T) {
	spent := txs.UTXOID{TxID: ids.GenerateTestID()}

	tests := []struct {
		name        string
		block       func(*testing.T) *Block
		expectedErr error
		invalidTx   bool
	}{
		{
			name: "valid",
			block: func(t *testing.T) *Block {
				return newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1), newSpend(t, spent))
			},
		},
		{
			name: "unknown version",
			block: func(t *testing.T) *Block {
				blk := newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1))
				h := blk.Header()
				h.Version = 2
				return mustNew(t, h, blk)
			},
			expectedErr: ErrUnsupportedVersion,
		},
		{
			name: "short bloom",
			block: func(t *testing.T) *Block {
				return newBlock(t, newCert(t, coherence.L4-1), newCoinbase(t, 1))
			},
			expectedErr: coherence.ErrInsufficientBloomDuration,
		},
		{
			name: "tampered certificate",
			block: func(t *testing.T) *Block {
				c := newCert(t, coherence.L4)
				phases := c.Phases()
				phases[0] = 2
				tampered := coherence.NewCertificate(c.Start(), c.End(), c.R(), c.Psi(), phases)
				return newBlock(t, tampered, newCoinbase(t, 1))
			},
			expectedErr: coherence.ErrInvalidCertificate,
		},
		{
			name: "header below threshold",
			block: func(t *testing.T) *Block {
				blk := newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1))
				h := blk.Header()
				h.OrderParameter = 0.5
				return mustNew(t, h, blk)
			},
			expectedErr: coherence.ErrThresholdNotMet,
		},
		{
			name: "header r differs from certificate",
			block: func(t *testing.T) *Block {
				blk := newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1))
				h := blk.Header()
				h.OrderParameter = 0.99
				return mustNew(t, h, blk)
			},
			expectedErr: errHeaderCertMismatch,
		},
		{
			name: "header oscillator count differs",
			block: func(t *testing.T) *Block {
				blk := newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1))
				h := blk.Header()
				h.OscillatorCount = 64
				return mustNew(t, h, blk)
			},
			expectedErr: coherence.ErrInvalidCertificate,
		},
		{
			name: "merkle mismatch",
			block: func(t *testing.T) *Block {
				blk := newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1))
				h := blk.Header()
				h.MerkleRoot = ids.GenerateTestID()
				return mustNew(t, h, blk)
			},
			expectedErr: ErrMerkleMismatch,
		},
		{
			name: "no transactions",
			block: func(t *testing.T) *Block {
				return newBlock(t, newCert(t, coherence.L4))
			},
			expectedErr: ErrNoTransactions,
		},
		{
			name: "missing coinbase",
			block: func(t *testing.T) *Block {
				return newBlock(t, newCert(t, coherence.L4), newSpend(t, spent))
			},
			expectedErr: txs.ErrMissingCoinbase,
			invalidTx:   true,
		},
		{
			name: "second coinbase",
			block: func(t *testing.T) *Block {
				return newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1), newCoinbase(t, 2))
			},
			expectedErr: txs.ErrExtraCoinbase,
			invalidTx:   true,
		},
		{
			name: "double spend across txs",
			block: func(t *testing.T) *Block {
				return newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1), newSpend(t, spent), newSpend(t, spent))
			},
			expectedErr: txs.ErrDoubleSpend,
			invalidTx:   true,
		},
		{
			name: "double spend after unrelated spend",
			block: func(t *testing.T) *Block {
				other := txs.UTXOID{TxID: ids.GenerateTestID()}
				return newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1), newSpend(t, spent), newSpend(t, other), newSpend(t, other, spent))
			},
			expectedErr: txs.ErrDoubleSpend,
			invalidTx:   true,
		},
		{
			name: "malformed tx",
			block: func(t *testing.T) *Block {
				bad := &txs.Tx{
					Ins:  []txs.Input{{UTXOID: spent}},
					Outs: []txs.Output{{Amount: 0}},
				}
				require.NoError(t, bad.Initialize())
				return newBlock(t, newCert(t, coherence.L4), newCoinbase(t, 1), bad)
			},
			expectedErr: txs.ErrZeroOutput,
			invalidTx:   true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.block(t).Validate()
			require.ErrorIs(t, err, test.expectedErr)
			if test.invalidTx {
				require.ErrorIs(t, err, txs.ErrInvalidTransaction)
			}
		})
	}
}

// TestValidateReportsDurationBeforeInvalid covers a block whose certificate
// spans only six rounds.
func TestValidateReportsDurationBeforeInvalid(t *testing.T) {
	blk := newBlock(t, newCert(t, 6), newCoinbase(t, 1))
	err := blk.Validate()
	require.ErrorIs(t, err, coherence.ErrInsufficientBloomDuration)
	require.NotErrorIs(t, err, coherence.ErrInvalidCertificate)
}

func mustNew(t *testing.T, h Header, blk *Block) *Block {
	t.Helper()

	b, err := New(h, blk.Certificate(), blk.Txs())
	require.NoError(t, err)
	return b
}
