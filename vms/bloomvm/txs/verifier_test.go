// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func newKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return key
}

func TestED25519Verifier(t *testing.T) {
	key := newKey(t)
	owner := Address(key.Public().(ed25519.PublicKey))
	msg := []byte("spend")
	auth := Authorize(key, msg)

	tests := []struct {
		name        string
		msg         []byte
		owner       ids.ShortID
		auth        []byte
		expectedErr error
	}{
		{
			name:  "valid",
			msg:   msg,
			owner: owner,
			auth:  auth,
		},
		{
			name:        "wrong owner",
			msg:         msg,
			owner:       ids.GenerateTestShortID(),
			auth:        auth,
			expectedErr: errWrongOwner,
		},
		{
			name:        "wrong message",
			msg:         []byte("other"),
			owner:       owner,
			auth:        auth,
			expectedErr: errInvalidSignature,
		},
		{
			name:        "truncated",
			msg:         msg,
			owner:       owner,
			auth:        auth[:AuthLen-1],
			expectedErr: errMalformedAuth,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ED25519Verifier{}.Verify(test.msg, test.owner, test.auth)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestTxSign(t *testing.T) {
	require := require.New(t)

	keys := []ed25519.PrivateKey{newKey(t), newKey(t)}
	tx := newTestTx(t)
	id := tx.ID()

	require.ErrorIs(tx.Sign(keys[:1]), errMissingKey)
	require.NoError(tx.Sign(keys))
	require.Equal(id, tx.ID())

	for i, in := range tx.Ins {
		owner := Address(keys[i].Public().(ed25519.PublicKey))
		require.NoError(ED25519Verifier{}.Verify(id[:], owner, in.Auth))
	}

	parsed, err := Parse(tx.Bytes())
	require.NoError(err)
	require.Equal(tx.Ins, parsed.Ins)
}
