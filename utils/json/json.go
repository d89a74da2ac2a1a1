// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package json provides integer types that marshal as decimal strings so
// large values survive JavaScript clients.
package json

import "strconv"

const Null = "null"

// Uint32 is a uint32 that can be JSON marshaled as a string.
type Uint32 uint32

func (u Uint32) MarshalJSON() ([]byte, error) {
	return quote(uint64(u)), nil
}

func (u *Uint32) UnmarshalJSON(b []byte) error {
	val, err := parse(b, 32)
	if err == nil {
		*u = Uint32(val)
	}
	return err
}

// Uint64 is a uint64 that can be JSON marshaled as a string.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return quote(uint64(u)), nil
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	val, err := parse(b, 64)
	if err == nil {
		*u = Uint64(val)
	}
	return err
}

func quote(v uint64) []byte {
	b := make([]byte, 0, 22)
	b = append(b, '"')
	b = strconv.AppendUint(b, v, 10)
	return append(b, '"')
}

// parse accepts a quoted or bare decimal. null leaves the value unset.
func parse(b []byte, bitSize int) (uint64, error) {
	str := string(b)
	if str == Null {
		return 0, nil
	}
	if len(str) >= 2 {
		if last := len(str) - 1; str[0] == '"' && str[last] == '"' {
			str = str[1:last]
		}
	}
	return strconv.ParseUint(str, 10, bitSize)
}
