// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"bytes"
	"crypto"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/clearsign"
	"golang.org/x/crypto/openpgp/packet"

	"github.com/bureau-foundation/debrepo/lib/clock"
)

// Key is a loaded secret signing key.
type Key struct {
	entity *openpgp.Entity
	clock  clock.Clock
}

// Fingerprint returns the uppercase hex fingerprint of the primary key.
func (k *Key) Fingerprint() string {
	return strings.ToUpper(fmt.Sprintf("%x", k.entity.PrimaryKey.Fingerprint))
}

// KeyID returns the 16 hex digit long key ID.
func (k *Key) KeyID() string {
	return k.entity.PrimaryKey.KeyIdString()
}

// UserIDs returns the bound user ID strings in sorted order.
func (k *Key) UserIDs() []string {
	ids := make([]string, 0, len(k.entity.Identities))
	for name := range k.entity.Identities {
		ids = append(ids, name)
	}
	slices.Sort(ids)
	return ids
}

// ExportPublicKey returns the ASCII-armored public key block.
func (k *Key) ExportPublicKey() ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := armor.Encode(&buffer, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: armoring public key: %w", ErrSigning, err)
	}
	if err := k.entity.Serialize(writer); err != nil {
		return nil, fmt.Errorf("%w: serializing public key: %w", ErrSigning, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: armoring public key: %w", ErrSigning, err)
	}
	return buffer.Bytes(), nil
}

// ClearSign returns data wrapped in an armored cleartext signature, the
// InRelease form.
func (k *Key) ClearSign(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	plaintext, err := clearsign.Encode(&buffer, k.entity.PrivateKey, k.packetConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: clearsign: %w", ErrSigning, err)
	}
	if _, err := plaintext.Write(data); err != nil {
		return nil, fmt.Errorf("%w: clearsign: %w", ErrSigning, err)
	}
	if err := plaintext.Close(); err != nil {
		return nil, fmt.Errorf("%w: clearsign: %w", ErrSigning, err)
	}
	return buffer.Bytes(), nil
}

// DetachSign returns an armored detached signature over data, the
// Release.gpg form.
func (k *Key) DetachSign(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buffer, k.entity, bytes.NewReader(data), k.packetConfig()); err != nil {
		return nil, fmt.Errorf("%w: detached signature: %w", ErrSigning, err)
	}
	return buffer.Bytes(), nil
}

func (k *Key) packetConfig() *packet.Config {
	return &packet.Config{
		DefaultHash: crypto.SHA256,
		Time:        k.clock.Now,
	}
}
