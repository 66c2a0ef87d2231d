// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts the repository signing keyring at rest with
// age (filippo.io/age).
//
// A keyring directory may hold either a plaintext secring.gpg or an
// age-encrypted keyring.age. The signing package reads the identity
// file named by the configuration, opens the sealed keyring into
// memory and never writes the plaintext secret key to disk.
package sealed
