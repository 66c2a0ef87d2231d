// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/clearsign"
)

// ErrVerification reports a signature that does not check out against
// the given public key.
var ErrVerification = errors.New("signature verification failed")

// VerifyClearSigned checks an InRelease-style document against an
// armored public key and returns the signed text.
func VerifyClearSigned(signed, publicKey []byte) ([]byte, error) {
	keyring, err := readPublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	block, _ := clearsign.Decode(signed)
	if block == nil {
		return nil, fmt.Errorf("%w: no cleartext signature block found", ErrVerification)
	}
	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(block.Bytes), block.ArmoredSignature.Body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return block.Plaintext, nil
}

// VerifyDetached checks an armored detached signature over data.
func VerifyDetached(data, signature, publicKey []byte) error {
	keyring, err := readPublicKey(publicKey)
	if err != nil {
		return err
	}
	if _, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature)); err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return nil
}

func readPublicKey(publicKey []byte) (openpgp.EntityList, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(publicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: reading public key: %w", ErrVerification, err)
	}
	return keyring, nil
}
