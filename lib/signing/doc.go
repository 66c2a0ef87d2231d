// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signing owns the repository's OpenPGP signing key.
//
// A Keyring is a directory outside any build tree that holds one or
// more secret keys. EnsureKey finds the key whose user ID email matches
// the configured identity, generating and persisting it on first use,
// and always returns the key as re-read from disk so that every build
// exports byte-identical public key material. Concurrent builds on the
// same host coordinate through an exclusive flock on the directory.
//
// The returned Key produces the two signature forms an APT Release
// needs: a cleartext-signed InRelease and an armored detached
// Release.gpg. VerifyClearSigned and VerifyDetached check them against
// an exported public key.
//
// Keys are stored without a passphrase. When seal recipients are
// configured the keyring file is age-encrypted instead (see package
// sealed).
package signing
