// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"fmt"

	"github.com/luxfi/coherence/utils/wrappers"
)

const utxoLen = inputFixedLen - wrappers.IntLen + outputLen

// UTXO is an unspent output.
type UTXO struct {
	UTXOID `json:"utxoID"`
	Output `json:"output"`
}

// UTXOReader looks up unspent outputs. A missing output is reported as
// database.ErrNotFound.
type UTXOReader interface {
	GetUTXO(utxoID UTXOID) (*UTXO, error)
}

func (u *UTXO) Bytes() []byte {
	p := wrappers.Packer{
		MaxSize: utxoLen,
		Bytes:   make([]byte, 0, utxoLen),
	}
	p.PackID(u.TxID)
	p.PackInt(u.OutputIndex)
	p.PackLong(u.Amount)
	p.PackShortID(u.Recipient)
	return p.Bytes
}

func ParseUTXO(b []byte) (*UTXO, error) {
	p := wrappers.Packer{Bytes: b}
	u := &UTXO{}
	u.TxID = p.UnpackID()
	u.OutputIndex = p.UnpackInt()
	u.Amount = p.UnpackLong()
	u.Recipient = p.UnpackShortID()
	p.Done()
	if p.Err != nil {
		return nil, fmt.Errorf("failed to parse utxo: %w", p.Err)
	}
	return u, nil
}
