// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/luxfi/ids"
)

var (
	ErrInsufficientLength = errors.New("packer has insufficient length for input")
	ErrTrailingBytes      = errors.New("unexpected trailing bytes")
	errNegativeOffset     = errors.New("negative offset")
	errInvalidInput       = errors.New("input does not match expected format")
	errOversized          = errors.New("size is larger than limit")
)

// Packer packs and unpacks a byte array from/to fixed width big-endian values.
//
// The first error encountered is sticky: every later call becomes a no-op and
// returns a zero value, so callers check Err once after a run of operations.
type Packer struct {
	Errs

	// The largest allowed size of expanding the byte array
	MaxSize int
	// The current byte array
	Bytes []byte
	// The offset that is being written to in the byte array
	Offset int
}

// PackInt appends a uint32 to the byte array
func (p *Packer) PackInt(val uint32) {
	p.expand(IntLen)
	if p.Errored() {
		return
	}

	binary.BigEndian.PutUint32(p.Bytes[p.Offset:], val)
	p.Offset += IntLen
}

// UnpackInt unpacks a uint32 from the byte array
func (p *Packer) UnpackInt() uint32 {
	p.checkSpace(IntLen)
	if p.Errored() {
		return 0
	}

	val := binary.BigEndian.Uint32(p.Bytes[p.Offset:])
	p.Offset += IntLen
	return val
}

// PackLong appends a uint64 to the byte array
func (p *Packer) PackLong(val uint64) {
	p.expand(LongLen)
	if p.Errored() {
		return
	}

	binary.BigEndian.PutUint64(p.Bytes[p.Offset:], val)
	p.Offset += LongLen
}

// UnpackLong unpacks a uint64 from the byte array
func (p *Packer) UnpackLong() uint64 {
	p.checkSpace(LongLen)
	if p.Errored() {
		return 0
	}

	val := binary.BigEndian.Uint64(p.Bytes[p.Offset:])
	p.Offset += LongLen
	return val
}

// PackFloat32 appends the IEEE 754 bits of a float32.
func (p *Packer) PackFloat32(val float32) {
	p.PackInt(math.Float32bits(val))
}

// UnpackFloat32 unpacks a float32 written by PackFloat32.
func (p *Packer) UnpackFloat32() float32 {
	return math.Float32frombits(p.UnpackInt())
}

// PackFloat32s appends every value with no length descriptor.
func (p *Packer) PackFloat32s(vals []float32) {
	for _, v := range vals {
		p.PackFloat32(v)
	}
}

// UnpackFloat32s unpacks [count] float32 values. The remaining length is
// checked up front so a corrupt count can't force a large allocation.
func (p *Packer) UnpackFloat32s(count uint32) []float32 {
	if uint64(count)*Float32Len > uint64(len(p.Bytes)-p.Offset) {
		p.Add(ErrInsufficientLength)
		return nil
	}
	vals := make([]float32, count)
	for i := range vals {
		vals[i] = p.UnpackFloat32()
	}
	return vals
}

// PackID appends a 32 byte identifier.
func (p *Packer) PackID(id ids.ID) {
	p.PackFixedBytes(id[:])
}

// UnpackID unpacks a 32 byte identifier.
func (p *Packer) UnpackID() ids.ID {
	var id ids.ID
	copy(id[:], p.UnpackFixedBytes(ids.IDLen))
	return id
}

// PackShortID appends a 20 byte identifier.
func (p *Packer) PackShortID(id ids.ShortID) {
	p.PackFixedBytes(id[:])
}

// UnpackShortID unpacks a 20 byte identifier.
func (p *Packer) UnpackShortID() ids.ShortID {
	var id ids.ShortID
	copy(id[:], p.UnpackFixedBytes(ShortIDLen))
	return id
}

// PackFixedBytes appends a byte slice with no length descriptor to the byte array
func (p *Packer) PackFixedBytes(bytes []byte) {
	p.expand(len(bytes))
	if p.Errored() {
		return
	}

	copy(p.Bytes[p.Offset:], bytes)
	p.Offset += len(bytes)
}

// UnpackFixedBytes unpacks a byte slice with no length descriptor from the byte array
func (p *Packer) UnpackFixedBytes(size int) []byte {
	p.checkSpace(size)
	if p.Errored() {
		return nil
	}

	bytes := p.Bytes[p.Offset : p.Offset+size]
	p.Offset += size
	return bytes
}

// PackBytes appends a length prefixed byte slice to the byte array
func (p *Packer) PackBytes(bytes []byte) {
	p.PackInt(uint32(len(bytes)))
	p.PackFixedBytes(bytes)
}

// UnpackLimitedBytes unpacks a length prefixed byte slice. If the size of the
// slice is greater than limit, adds errOversized to the packer and returns nil.
func (p *Packer) UnpackLimitedBytes(limit uint32) []byte {
	size := p.UnpackInt()
	if size > limit {
		p.Add(errOversized)
		return nil
	}
	return p.UnpackFixedBytes(int(size))
}

// Remaining returns the number of bytes not yet unpacked.
func (p *Packer) Remaining() int {
	return len(p.Bytes) - p.Offset
}

// Done records ErrTrailingBytes if anything is left to unpack.
func (p *Packer) Done() {
	if !p.Errored() && p.Remaining() != 0 {
		p.Add(ErrTrailingBytes)
	}
}

// checkSpace requires that there is at least bytes of write space left in the
// byte array. If this is not true, an error is added to the packer.
func (p *Packer) checkSpace(bytes int) {
	switch {
	case p.Offset < 0:
		p.Add(errNegativeOffset)
	case bytes < 0:
		p.Add(errInvalidInput)
	case len(p.Bytes)-p.Offset < bytes:
		p.Add(ErrInsufficientLength)
	}
}

// expand ensures that there is bytes bytes left of space in the byte slice.
// If this is not allowed due to the maximum size, an error is added to the packer.
func (p *Packer) expand(bytes int) {
	neededSize := bytes + p.Offset
	switch {
	case neededSize <= len(p.Bytes):
		return
	case neededSize > p.MaxSize:
		p.Add(ErrInsufficientLength)
		return
	case neededSize <= cap(p.Bytes):
		p.Bytes = p.Bytes[:neededSize]
		return
	default:
		p.Bytes = append(p.Bytes[:cap(p.Bytes)], make([]byte, neededSize-cap(p.Bytes))...)
	}
}
