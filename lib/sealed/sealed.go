// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// Keypair is an age X25519 keypair in its string encodings.
type Keypair struct {
	// Identity is the secret key in AGE-SECRET-KEY-1... form.
	Identity string

	// Recipient is the public key in age1... form.
	Recipient string
}

// GenerateKeypair creates a fresh X25519 keypair.
func GenerateKeypair() (Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return Keypair{}, fmt.Errorf("generating age keypair: %w", err)
	}
	return Keypair{
		Identity:  identity.String(),
		Recipient: identity.Recipient().String(),
	}, nil
}

// Seal encrypts plaintext to every recipient. At least one recipient
// is required.
func Seal(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, errors.New("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := ParseRecipient(key)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Open decrypts ciphertext produced by Seal with the given identity.
func Open(ciphertext []byte, identityKey string) ([]byte, error) {
	identity, err := ParseIdentity(identityKey)
	if err != nil {
		return nil, err
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted data: %w", err)
	}
	return plaintext, nil
}

// ParseRecipient validates an age1... public key.
func ParseRecipient(key string) (*age.X25519Recipient, error) {
	recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
	}
	return recipient, nil
}

// ParseIdentity validates an AGE-SECRET-KEY-1... secret key. The key is
// never echoed in the error.
func ParseIdentity(key string) (*age.X25519Identity, error) {
	identity, err := age.ParseX25519Identity(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}
	return identity, nil
}

// ReadIdentityFile returns the first identity in an age-keygen style
// file. Blank lines and lines starting with '#' are skipped.
func ReadIdentityFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := ParseIdentity(line); err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading identity file: %w", err)
	}
	return "", fmt.Errorf("%s: no age identity found", path)
}
