// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package compression compresses block bytes before they are written to disk.
package compression

// Compressor compresses and decompresses messages.
type Compressor interface {
	// Compress [msg] and returns the compressed bytes.
	Compress(msg []byte) ([]byte, error)
	// Decompress [msg] and returns the decompressed bytes.
	Decompress(msg []byte) ([]byte, error)
}
