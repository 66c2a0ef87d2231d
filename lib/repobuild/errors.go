// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repobuild

import (
	"errors"

	"github.com/bureau-foundation/debrepo/lib/publish"
	"github.com/bureau-foundation/debrepo/lib/signing"
)

var (
	// ErrValidation marks a malformed build request.
	ErrValidation = errors.New("invalid build request")

	// ErrUpstreamFetch marks a failure listing releases or downloading
	// an asset.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrNoReleases means the upstream had nothing buildable: no
	// releases with packages, or none of the packages inspected
	// cleanly for a configured architecture.
	ErrNoReleases = errors.New("no releases with packages")

	// ErrInspection marks a package whose metadata could not be read.
	// Builds log and skip such packages; it surfaces only from
	// [Inspect] and [Builder.InspectFile].
	ErrInspection = errors.New("package inspection failed")

	// ErrSigning is signing.ErrSigning.
	ErrSigning = signing.ErrSigning

	// ErrStorage is publish.ErrStorage.
	ErrStorage = publish.ErrStorage
)

// Class returns the sentinel err belongs to, or nil for an unclassified
// error. Used for status reporting.
func Class(err error) error {
	for _, sentinel := range []error{
		ErrValidation,
		ErrUpstreamFetch,
		ErrNoReleases,
		ErrInspection,
		ErrSigning,
		ErrStorage,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}
