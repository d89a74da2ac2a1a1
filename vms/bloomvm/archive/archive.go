// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package archive reads and writes the canonical chain as a zstd stream of
// length prefixed blocks, genesis first.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/luxfi/ids"

	"github.com/luxfi/coherence/utils/wrappers"
	"github.com/luxfi/coherence/vms/bloomvm/block"
)

const maxFrameSize = uint32(block.MaxSize)

var ErrFrameTooLarge = errors.New("archived block exceeds the maximum block size")

// Chain is the canonical chain being exported.
type Chain interface {
	Height() uint64
	GetBlockIDAtHeight(height uint64) (ids.ID, error)
	GetBlock(blkID ids.ID) (*block.Block, uint64, error)
}

// Export writes blocks 0 through the tip height of [c] to [w] and returns
// the number written.
func Export(w io.Writer, c Chain) (uint64, error) {
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return 0, err
	}

	height := c.Height()
	for h := uint64(0); h <= height; h++ {
		blkID, err := c.GetBlockIDAtHeight(h)
		if err != nil {
			_ = encoder.Close()
			return h, fmt.Errorf("failed to get block at height %d: %w", h, err)
		}
		blk, _, err := c.GetBlock(blkID)
		if err != nil {
			_ = encoder.Close()
			return h, fmt.Errorf("failed to get block %s: %w", blkID, err)
		}
		if err := writeFrame(encoder, blk.Bytes()); err != nil {
			_ = encoder.Close()
			return h, err
		}
	}
	return height + 1, encoder.Close()
}

// Import parses each archived block in order and passes it to [add]. It
// returns the number of blocks passed.
func Import(r io.Reader, add func(*block.Block) error) (uint64, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer decoder.Close()

	var (
		count  uint64
		header [wrappers.IntLen]byte
	)
	for {
		_, err := io.ReadFull(decoder, header[:])
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		size := binary.BigEndian.Uint32(header[:])
		if size > maxFrameSize {
			return count, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, maxFrameSize)
		}
		blkBytes := make([]byte, size)
		if _, err := io.ReadFull(decoder, blkBytes); err != nil {
			return count, err
		}
		blk, err := block.Parse(blkBytes)
		if err != nil {
			return count, err
		}
		if err := add(blk); err != nil {
			return count, fmt.Errorf("failed to add block %s: %w", blk.ID(), err)
		}
		count++
	}
}

func writeFrame(w io.Writer, b []byte) error {
	p := wrappers.Packer{
		MaxSize: wrappers.IntLen + block.MaxSize,
		Bytes:   make([]byte, 0, wrappers.IntLen+len(b)),
	}
	p.PackBytes(b)
	if p.Err != nil {
		return p.Err
	}
	_, err := w.Write(p.Bytes)
	return err
}
