// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/packet"

	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/sealed"
)

// ErrSigning is the class of every key management and signing failure.
var ErrSigning = errors.New("signing failed")

const (
	// DefaultRSABits is the key size for newly generated keys.
	DefaultRSABits = 4096

	secretKeyringName = "secring.gpg"
	sealedKeyringName = "keyring.age"
	lockName          = ".lock"
)

// Identity is the OpenPGP user ID bound to the signing key. Email is
// the lookup key: a keyring entry matches when one of its user IDs
// carries this address.
type Identity struct {
	Name    string
	Comment string
	Email   string
}

// Config configures a Keyring.
type Config struct {
	// Dir holds the keyring files. Created with mode 0700 if missing.
	Dir string

	Identity Identity

	// RSABits is the size of generated keys. Zero means DefaultRSABits.
	RSABits int

	// SealRecipients, when non-empty, age-encrypt the keyring on disk
	// to these age1... recipients.
	SealRecipients []string

	// SealIdentityFile is the age identity used to open a sealed
	// keyring. Required when the directory holds keyring.age.
	SealIdentityFile string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Keyring is a persistent set of secret keys in a directory.
type Keyring struct {
	config Config
	clock  clock.Clock
	logger *slog.Logger
}

// Open validates the configuration and prepares the keyring directory.
// No key is read or generated until EnsureKey.
func Open(config Config) (*Keyring, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("%w: keyring directory is required", ErrSigning)
	}
	if config.Identity.Email == "" {
		return nil, fmt.Errorf("%w: signing identity email is required", ErrSigning)
	}
	if config.RSABits == 0 {
		config.RSABits = DefaultRSABits
	}
	for _, recipient := range config.SealRecipients {
		if _, err := sealed.ParseRecipient(recipient); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSigning, err)
		}
	}
	if err := os.MkdirAll(config.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating keyring directory: %w", ErrSigning, err)
	}

	keyring := &Keyring{
		config: config,
		clock:  config.Clock,
		logger: config.Logger,
	}
	if keyring.clock == nil {
		keyring.clock = clock.Real()
	}
	if keyring.logger == nil {
		keyring.logger = slog.Default()
	}
	return keyring, nil
}

// Dir returns the keyring directory.
func (r *Keyring) Dir() string { return r.config.Dir }

// EnsureKey returns the signing key for the configured identity,
// generating it if the keyring has none. Safe to call from concurrent
// processes sharing the directory.
func (r *Keyring) EnsureKey(ctx context.Context) (*Key, error) {
	unlock, err := lockDir(ctx, r.clock, filepath.Join(r.config.Dir, lockName))
	if err != nil {
		return nil, fmt.Errorf("%w: locking keyring: %w", ErrSigning, err)
	}
	defer unlock()

	entities, err := r.load()
	if err != nil {
		return nil, err
	}
	if entity := findIdentity(entities, r.config.Identity.Email); entity != nil {
		return r.key(entity), nil
	}

	r.logger.Info("generating signing key",
		"email", r.config.Identity.Email,
		"rsa_bits", r.config.RSABits,
		"dir", r.config.Dir,
	)
	entity, err := openpgp.NewEntity(
		r.config.Identity.Name,
		r.config.Identity.Comment,
		r.config.Identity.Email,
		r.packetConfig(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: generating key: %w", ErrSigning, err)
	}

	var serialized bytes.Buffer
	for _, existing := range entities {
		if err := existing.SerializePrivate(&serialized, r.packetConfig()); err != nil {
			return nil, fmt.Errorf("%w: serializing existing key: %w", ErrSigning, err)
		}
	}
	if err := entity.SerializePrivate(&serialized, r.packetConfig()); err != nil {
		return nil, fmt.Errorf("%w: serializing new key: %w", ErrSigning, err)
	}
	if err := r.store(serialized.Bytes()); err != nil {
		return nil, err
	}

	// Re-read so the returned entity carries exactly the persisted
	// self-signatures.
	entities, err = r.load()
	if err != nil {
		return nil, err
	}
	reloaded := findIdentity(entities, r.config.Identity.Email)
	if reloaded == nil {
		return nil, fmt.Errorf("%w: generated key for %s not found after write", ErrSigning, r.config.Identity.Email)
	}
	key := r.key(reloaded)
	r.logger.Info("signing key created", "fingerprint", key.Fingerprint())
	return key, nil
}

func (r *Keyring) key(entity *openpgp.Entity) *Key {
	return &Key{entity: entity, clock: r.clock}
}

func (r *Keyring) packetConfig() *packet.Config {
	return &packet.Config{
		DefaultHash: crypto.SHA256,
		RSABits:     r.config.RSABits,
		Time:        r.clock.Now,
	}
}

// load reads every entity from whichever keyring file exists. A missing
// keyring is an empty list.
func (r *Keyring) load() (openpgp.EntityList, error) {
	data, err := r.readKeyringFile()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entities, err := openpgp.ReadKeyRing(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing keyring: %w", ErrSigning, err)
	}
	return entities, nil
}

func (r *Keyring) readKeyringFile() ([]byte, error) {
	sealedPath := filepath.Join(r.config.Dir, sealedKeyringName)
	ciphertext, err := os.ReadFile(sealedPath)
	if err == nil {
		if r.config.SealIdentityFile == "" {
			return nil, fmt.Errorf("%w: %s is sealed but no identity file is configured", ErrSigning, sealedPath)
		}
		identity, err := sealed.ReadIdentityFile(r.config.SealIdentityFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSigning, err)
		}
		plaintext, err := sealed.Open(ciphertext, identity)
		if err != nil {
			return nil, fmt.Errorf("%w: opening sealed keyring: %w", ErrSigning, err)
		}
		return plaintext, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: reading sealed keyring: %w", ErrSigning, err)
	}

	data, err := os.ReadFile(filepath.Join(r.config.Dir, secretKeyringName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: reading keyring: %w", ErrSigning, err)
	}
	return data, err
}

// store writes the serialized keyring atomically, sealed when
// recipients are configured.
func (r *Keyring) store(serialized []byte) error {
	name := secretKeyringName
	data := serialized
	if len(r.config.SealRecipients) > 0 {
		ciphertext, err := sealed.Seal(serialized, r.config.SealRecipients)
		if err != nil {
			return fmt.Errorf("%w: sealing keyring: %w", ErrSigning, err)
		}
		name = sealedKeyringName
		data = ciphertext
	}

	target := filepath.Join(r.config.Dir, name)
	temporary, err := os.CreateTemp(r.config.Dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating keyring file: %w", ErrSigning, err)
	}
	defer os.Remove(temporary.Name())

	if err := temporary.Chmod(0o600); err != nil {
		temporary.Close()
		return fmt.Errorf("%w: %w", ErrSigning, err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("%w: writing keyring: %w", ErrSigning, err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("%w: writing keyring: %w", ErrSigning, err)
	}
	if err := os.Rename(temporary.Name(), target); err != nil {
		return fmt.Errorf("%w: installing keyring: %w", ErrSigning, err)
	}
	return nil
}

// findIdentity returns the first entity holding a secret key and a
// user ID with the given email.
func findIdentity(entities openpgp.EntityList, email string) *openpgp.Entity {
	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		for _, identity := range entity.Identities {
			if identity.UserId != nil && identity.UserId.Email == email {
				return entity
			}
		}
	}
	return nil
}
