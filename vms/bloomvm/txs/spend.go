// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/math/set"

	safemath "github.com/luxfi/coherence/utils/math"
)

// VerifySpend checks the non-coinbase tx at [index] of a block against
// [utxos] and returns its fee. [spent] holds the outputs consumed earlier in
// the same block. Rule violations are returned as *Error; any other error is
// from [utxos].
func VerifySpend(
	tx *Tx,
	index int,
	utxos UTXOReader,
	spent set.Set[UTXOID],
	verifier Verifier,
) (uint64, error) {
	if tx.IsCoinbase() {
		return 0, NewError(tx.id, index, ErrExtraCoinbase)
	}

	var consumed uint64
	for i, in := range tx.Ins {
		if spent.Contains(in.UTXOID) {
			return 0, NewError(tx.id, index, fmt.Errorf("%w: %s", ErrDoubleSpend, in.UTXOID))
		}
		utxo, err := utxos.GetUTXO(in.UTXOID)
		if errors.Is(err, database.ErrNotFound) {
			return 0, NewError(tx.id, index, fmt.Errorf("%w: %s", ErrMissingInput, in.UTXOID))
		}
		if err != nil {
			return 0, fmt.Errorf("failed to fetch utxo %s: %w", in.UTXOID, err)
		}
		if err := verifier.Verify(tx.id[:], utxo.Recipient, in.Auth); err != nil {
			return 0, NewError(tx.id, index, fmt.Errorf("%w: input %d: %w", ErrBadAuthorization, i, err))
		}
		consumed, err = safemath.Add(consumed, utxo.Amount)
		if err != nil {
			return 0, NewError(tx.id, index, ErrValueOverflow)
		}
	}

	produced, err := tx.OutputsValue()
	if err != nil {
		return 0, NewError(tx.id, index, err)
	}
	fee, err := safemath.Sub(consumed, produced)
	if err != nil {
		return 0, NewError(tx.id, index, fmt.Errorf("%w: %d < %d", ErrInsufficientValue, consumed, produced))
	}
	return fee, nil
}

// VerifyCoinbase checks that the coinbase of the block at [height] pays
// exactly [subsidy] plus [fees].
func VerifyCoinbase(tx *Tx, height, subsidy, fees uint64) error {
	if !tx.IsCoinbase() {
		return NewError(tx.id, 0, ErrMissingCoinbase)
	}
	if tx.Nonce != height {
		return NewError(tx.id, 0, fmt.Errorf("%w: %d != %d", ErrCoinbaseNonce, tx.Nonce, height))
	}
	expected, err := safemath.Add(subsidy, fees)
	if err != nil {
		return NewError(tx.id, 0, ErrValueOverflow)
	}
	paid, err := tx.OutputsValue()
	if err != nil {
		return NewError(tx.id, 0, err)
	}
	if paid != expected {
		return NewError(tx.id, 0, fmt.Errorf("%w: paid %d, expected %d", ErrSubsidyMismatch, paid, expected))
	}
	return nil
}
