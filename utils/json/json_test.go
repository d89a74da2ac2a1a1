// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package json

import (
	stdjson "encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64(t *testing.T) {
	require := require.New(t)

	b, err := stdjson.Marshal(Uint64(math.MaxUint64))
	require.NoError(err)
	require.Equal(`"18446744073709551615"`, string(b))

	var u Uint64
	require.NoError(stdjson.Unmarshal(b, &u))
	require.Equal(Uint64(math.MaxUint64), u)

	require.NoError(stdjson.Unmarshal([]byte(`12`), &u))
	require.Equal(Uint64(12), u)

	require.NoError(stdjson.Unmarshal([]byte(Null), &u))
	require.Equal(Uint64(12), u)

	require.Error(stdjson.Unmarshal([]byte(`"-1"`), &u)) //nolint:forbidigo // strconv returns a *NumError
}

func TestUint32(t *testing.T) {
	require := require.New(t)

	var u Uint32
	require.NoError(stdjson.Unmarshal([]byte(`"4294967295"`), &u))
	require.Equal(Uint32(math.MaxUint32), u)

	require.Error(stdjson.Unmarshal([]byte(`"4294967296"`), &u)) //nolint:forbidigo // strconv returns a *NumError
	require.Equal(Uint32(math.MaxUint32), u)
}
