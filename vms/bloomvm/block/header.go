// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"crypto/sha256"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/utils/wrappers"
)

const (
	// Version is the only header version currently produced and accepted.
	Version uint32 = 1

	// HeaderLen is the size of a serialized Header.
	HeaderLen = 5*wrappers.IntLen + 2*ids.IDLen + 2*wrappers.Float32Len
)

// Header commits to a block's parent, transactions and coherence proof.
type Header struct {
	Version         uint32  `json:"version"`
	PrevID          ids.ID  `json:"prevID"`
	MerkleRoot      ids.ID  `json:"merkleRoot"`
	Timestamp       uint32  `json:"timestamp"`
	Difficulty      uint32  `json:"difficulty"`
	Nonce           uint32  `json:"nonce"`
	OrderParameter  float32 `json:"orderParameter"`
	MeanPhase       float32 `json:"meanPhase"`
	OscillatorCount uint32  `json:"oscillatorCount"`
}

// Bytes returns the fixed size big-endian encoding of h.
func (h *Header) Bytes() []byte {
	p := wrappers.Packer{
		MaxSize: HeaderLen,
		Bytes:   make([]byte, 0, HeaderLen),
	}
	p.PackInt(h.Version)
	p.PackID(h.PrevID)
	p.PackID(h.MerkleRoot)
	p.PackInt(h.Timestamp)
	p.PackInt(h.Difficulty)
	p.PackInt(h.Nonce)
	p.PackFloat32(h.OrderParameter)
	p.PackFloat32(h.MeanPhase)
	p.PackInt(h.OscillatorCount)
	return p.Bytes
}

// ID is the sha256 of the header bytes.
func (h *Header) ID() ids.ID {
	return sha256.Sum256(h.Bytes())
}

// ParseHeader decodes exactly HeaderLen bytes.
func ParseHeader(b []byte) (Header, error) {
	p := wrappers.Packer{Bytes: b}
	h := unpackHeader(&p)
	p.Done()
	if p.Err != nil {
		return Header{}, fmt.Errorf("failed to parse header: %w", p.Err)
	}
	return h, nil
}

func unpackHeader(p *wrappers.Packer) Header {
	return Header{
		Version:         p.UnpackInt(),
		PrevID:          p.UnpackID(),
		MerkleRoot:      p.UnpackID(),
		Timestamp:       p.UnpackInt(),
		Difficulty:      p.UnpackInt(),
		Nonce:           p.UnpackInt(),
		OrderParameter:  p.UnpackFloat32(),
		MeanPhase:       p.UnpackFloat32(),
		OscillatorCount: p.UnpackInt(),
	}
}
