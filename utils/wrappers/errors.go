// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wrappers provides the fixed width codec used for headers,
// certificates and transactions.
package wrappers

const (
	// IntLen is the number of bytes per uint32
	IntLen = 4
	// LongLen is the number of bytes per uint64
	LongLen = 8
	// Float32Len is the number of bytes per float32
	Float32Len = 4
	// ShortIDLen is the number of bytes per ids.ShortID
	ShortIDLen = 20
)

// Errs collects errors during a series of operations.
type Errs struct {
	Err error
}

// Errored returns true if an error has been recorded.
func (errs *Errs) Errored() bool {
	return errs.Err != nil
}

// Add records the first non-nil error.
func (errs *Errs) Add(errors ...error) {
	if errs.Err == nil {
		for _, err := range errors {
			if err != nil {
				errs.Err = err
				break
			}
		}
	}
}
