// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/utils/wrappers"
)

func newTestTx(t *testing.T) *Tx {
	t.Helper()

	tx, err := NewTx(
		7,
		[]Input{
			{
				UTXOID: UTXOID{TxID: ids.GenerateTestID(), OutputIndex: 1},
				Auth:   []byte{1, 2, 3},
			},
			{
				UTXOID: UTXOID{TxID: ids.GenerateTestID(), OutputIndex: 0},
			},
		},
		[]Output{
			{Amount: 10, Recipient: ids.GenerateTestShortID()},
			{Amount: 20, Recipient: ids.GenerateTestShortID()},
		},
	)
	require.NoError(t, err)
	return tx
}

func TestTxParse(t *testing.T) {
	require := require.New(t)

	tx := newTestTx(t)
	require.Len(tx.Bytes(), minTxLen+2*inputFixedLen+3+2*outputLen)

	parsed, err := Parse(tx.Bytes())
	require.NoError(err)
	require.Equal(tx, parsed)
	require.Equal(tx.ID(), parsed.ID())
}

func TestTxIDIgnoresAuth(t *testing.T) {
	require := require.New(t)

	tx := newTestTx(t)
	id := tx.ID()
	bytes := tx.Bytes()

	tx.Ins[0].Auth = []byte("a different authorization")
	require.NoError(tx.Initialize())
	require.Equal(id, tx.ID())
	require.NotEqual(bytes, tx.Bytes())

	tx.Nonce++
	require.NoError(tx.Initialize())
	require.NotEqual(id, tx.ID())
}

func TestCoinbaseIDsDifferByHeight(t *testing.T) {
	require := require.New(t)

	to := ids.GenerateTestShortID()
	a, err := NewCoinbase(1, 50, to)
	require.NoError(err)
	b, err := NewCoinbase(2, 50, to)
	require.NoError(err)

	require.True(a.IsCoinbase())
	require.NotEqual(a.ID(), b.ID())

	empty, err := NewCoinbase(3, 0, to)
	require.NoError(err)
	require.True(empty.IsCoinbase())
	require.Empty(empty.Outs)
	require.NoError(empty.SyntacticVerify())

	parsed, err := Parse(empty.Bytes())
	require.NoError(err)
	require.Equal(empty.ID(), parsed.ID())
}

func TestParseErrors(t *testing.T) {
	tx := newTestTx(t)
	b := tx.Bytes()

	tests := []struct {
		name        string
		bytes       []byte
		expectedErr error
	}{
		{
			name:        "empty",
			bytes:       nil,
			expectedErr: wrappers.ErrInsufficientLength,
		},
		{
			name:        "truncated",
			bytes:       b[:len(b)-1],
			expectedErr: wrappers.ErrInsufficientLength,
		},
		{
			name:        "trailing",
			bytes:       append(append([]byte(nil), b...), 0),
			expectedErr: wrappers.ErrTrailingBytes,
		},
		{
			name:        "huge input count",
			bytes:       []byte{0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff},
			expectedErr: wrappers.ErrInsufficientLength,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.bytes)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestSyntacticVerify(t *testing.T) {
	utxoID := UTXOID{TxID: ids.GenerateTestID()}
	to := ids.GenerateTestShortID()

	tests := []struct {
		name        string
		tx          *Tx
		expectedErr error
	}{
		{
			name: "valid",
			tx: &Tx{
				Ins:  []Input{{UTXOID: utxoID}},
				Outs: []Output{{Amount: 1, Recipient: to}},
			},
		},
		{
			name: "valid coinbase",
			tx: &Tx{
				Outs: []Output{{Amount: 1, Recipient: to}},
			},
		},
		{
			name: "no outputs",
			tx: &Tx{
				Ins: []Input{{UTXOID: utxoID}},
			},
			expectedErr: ErrNoOutputs,
		},
		{
			name: "coinbase without outputs",
			tx:   &Tx{},
		},
		{
			name: "zero coinbase output",
			tx: &Tx{
				Outs: []Output{{Amount: 0, Recipient: to}},
			},
			expectedErr: ErrZeroOutput,
		},
		{
			name: "zero output",
			tx: &Tx{
				Ins:  []Input{{UTXOID: utxoID}},
				Outs: []Output{{Amount: 0, Recipient: to}},
			},
			expectedErr: ErrZeroOutput,
		},
		{
			name: "duplicate input",
			tx: &Tx{
				Ins:  []Input{{UTXOID: utxoID}, {UTXOID: utxoID}},
				Outs: []Output{{Amount: 1, Recipient: to}},
			},
			expectedErr: ErrDuplicateInput,
		},
		{
			name: "output overflow",
			tx: &Tx{
				Ins: []Input{{UTXOID: utxoID}},
				Outs: []Output{
					{Amount: math.MaxUint64, Recipient: to},
					{Amount: 1, Recipient: to},
				},
			},
			expectedErr: ErrValueOverflow,
		},
		{
			name: "oversized auth",
			tx: &Tx{
				Ins:  []Input{{UTXOID: utxoID, Auth: make([]byte, MaxAuthSize+1)}},
				Outs: []Output{{Amount: 1, Recipient: to}},
			},
			expectedErr: ErrAuthTooLarge,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.ErrorIs(t, test.tx.SyntacticVerify(), test.expectedErr)
		})
	}
}

func TestUTXOs(t *testing.T) {
	require := require.New(t)

	tx := newTestTx(t)
	utxos := tx.UTXOs()
	require.Len(utxos, 2)
	for i, utxo := range utxos {
		require.Equal(tx.ID(), utxo.TxID)
		require.Equal(uint32(i), utxo.OutputIndex)
		require.Equal(tx.Outs[i], utxo.Output)

		parsed, err := ParseUTXO(utxo.Bytes())
		require.NoError(err)
		require.Equal(utxo, parsed)
	}
	require.Equal(2, tx.InputIDs().Len())
}

func TestErrorMatchesBoth(t *testing.T) {
	require := require.New(t)

	var err error = NewError(ids.GenerateTestID(), 3, ErrDoubleSpend)
	require.ErrorIs(err, ErrInvalidTransaction)
	require.ErrorIs(err, ErrDoubleSpend)
	require.NotErrorIs(err, ErrMissingInput)

	var txErr *Error
	require.True(errors.As(err, &txErr))
	require.Equal(3, txErr.Index)
}
