// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")

	ErrMissingInput      = errors.New("input does not exist")
	ErrDoubleSpend       = errors.New("input already spent in this block")
	ErrInsufficientValue = errors.New("outputs exceed inputs")
	ErrBadAuthorization  = errors.New("authorization failed")
	ErrSubsidyMismatch   = errors.New("coinbase value does not equal subsidy plus fees")

	ErrNoInputs         = errors.New("transaction has no inputs")
	ErrNoOutputs        = errors.New("transaction has no outputs")
	ErrZeroOutput       = errors.New("output amount is zero")
	ErrDuplicateInput   = errors.New("input spent twice")
	ErrValueOverflow    = errors.New("value overflows uint64")
	ErrMissingCoinbase  = errors.New("first transaction is not a coinbase")
	ErrExtraCoinbase    = errors.New("coinbase after the first transaction")
	ErrCoinbaseNonce    = errors.New("coinbase nonce does not equal block height")
	ErrCoinbaseSpent    = errors.New("coinbase transactions cannot be issued")
	ErrTooManyInputs    = errors.New("too many inputs")
	ErrTooManyOutputs   = errors.New("too many outputs")
	ErrAuthTooLarge     = errors.New("authorization too large")
	ErrMalformedAddress = errors.New("malformed address")
)

// Error reports why the transaction at Index of a block was rejected. It
// matches both ErrInvalidTransaction and Reason under errors.Is.
type Error struct {
	TxID   ids.ID
	Index  int
	Reason error
}

// NewError wraps [reason] for the transaction at [index].
func NewError(txID ids.ID, index int, reason error) *Error {
	return &Error{
		TxID:   txID,
		Index:  index,
		Reason: reason,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: tx %s at index %d: %s", ErrInvalidTransaction, e.TxID, e.Index, e.Reason)
}

func (e *Error) Unwrap() []error {
	return []error{ErrInvalidTransaction, e.Reason}
}
