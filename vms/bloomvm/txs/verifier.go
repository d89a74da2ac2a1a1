// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/luxfi/ids"
)

//go:generate mockgen -package=txsmock -destination=txsmock/verifier.go -mock_names=Verifier=Verifier . Verifier

var (
	_ Verifier = ED25519Verifier{}

	errMalformedAuth    = errors.New("malformed authorization")
	errWrongOwner       = errors.New("public key does not match owner")
	errInvalidSignature = errors.New("invalid signature")
	errMissingKey       = errors.New("missing key for input")
)

// AuthLen is the size of an ed25519 authorization: public key then signature.
const AuthLen = ed25519.PublicKeySize + ed25519.SignatureSize

// Verifier checks that [auth] authorizes spending an output owned by [owner].
// [msg] is the ID of the spending transaction.
type Verifier interface {
	Verify(msg []byte, owner ids.ShortID, auth []byte) error
}

// ED25519Verifier accepts auth = pubkey || sig where the owner address is
// the 160-bit blake2b digest of pubkey.
type ED25519Verifier struct{}

func (ED25519Verifier) Verify(msg []byte, owner ids.ShortID, auth []byte) error {
	if len(auth) != AuthLen {
		return fmt.Errorf("%w: %d bytes", errMalformedAuth, len(auth))
	}
	pub := ed25519.PublicKey(auth[:ed25519.PublicKeySize])
	if addr := Address(pub); addr != owner {
		return fmt.Errorf("%w: %s != %s", errWrongOwner, addr, owner)
	}
	if !ed25519.Verify(pub, msg, auth[ed25519.PublicKeySize:]) {
		return errInvalidSignature
	}
	return nil
}

// Address returns the owner address of [pub].
func Address(pub ed25519.PublicKey) ids.ShortID {
	h, _ := blake2b.New(len(ids.ShortEmpty), nil)
	_, _ = h.Write(pub)
	var addr ids.ShortID
	copy(addr[:], h.Sum(nil))
	return addr
}

// Authorize returns the auth token for [msg] signed by [key].
func Authorize(key ed25519.PrivateKey, msg []byte) []byte {
	auth := make([]byte, 0, AuthLen)
	auth = append(auth, key.Public().(ed25519.PublicKey)...)
	return append(auth, ed25519.Sign(key, msg)...)
}

// Sign sets the auth of input i using keys[i] and re-initializes tx.
func (tx *Tx) Sign(keys []ed25519.PrivateKey) error {
	if len(keys) != len(tx.Ins) {
		return fmt.Errorf("%w: have %d keys for %d inputs", errMissingKey, len(keys), len(tx.Ins))
	}
	if err := tx.Initialize(); err != nil {
		return err
	}
	for i, key := range keys {
		tx.Ins[i].Auth = Authorize(key, tx.id[:])
	}
	return tx.Initialize()
}
