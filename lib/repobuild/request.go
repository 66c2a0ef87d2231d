// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repobuild

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultLimit is the number of releases built when a request does not
// say.
const DefaultLimit = 1

// MaxLimit bounds the releases one build will download.
const MaxLimit = 100

// nameComponent matches a GitHub owner or repository name.
var nameComponent = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Request names the repository to build.
type Request struct {
	Owner string
	Repo  string

	// Limit is the number of most recent releases with packages to
	// include. Zero means DefaultLimit.
	Limit int
}

// Name is "owner/repo".
func (request Request) Name() string {
	return request.Owner + "/" + request.Repo
}

// Normalize fills defaults and validates the request.
func (request Request) Normalize() (Request, error) {
	if request.Owner == "" || request.Repo == "" {
		return request, fmt.Errorf("%w: owner and repo are required", ErrValidation)
	}
	for _, component := range []string{request.Owner, request.Repo} {
		if !nameComponent.MatchString(component) || component == "." || component == ".." {
			return request, fmt.Errorf("%w: invalid name %q", ErrValidation, component)
		}
	}
	if request.Limit == 0 {
		request.Limit = DefaultLimit
	}
	if request.Limit < 0 || request.Limit > MaxLimit {
		return request, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, MaxLimit)
	}
	return request, nil
}

// Summary describes a finished build.
type Summary struct {
	Owner         string           `json:"owner"`
	Repo          string           `json:"repo"`
	Namespace     string           `json:"namespace"`
	Codename      string           `json:"codename"`
	Releases      []string         `json:"releases"`
	Architectures []string         `json:"architectures"`
	Packages      []PackageSummary `json:"packages"`

	// Skipped lists asset names that failed inspection.
	Skipped []string `json:"skipped,omitempty"`

	Fingerprint string `json:"fingerprint"`

	// Published is false for local-only builds.
	Published bool  `json:"published"`
	Uploaded  int   `json:"uploaded"`
	Bytes     int64 `json:"bytes"`

	// Root is the local tree when it was kept.
	Root string `json:"root,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// PackageSummary is one package placed in the pool.
type PackageSummary struct {
	Package      string `json:"package"`
	Version      string `json:"version"`
	Architecture string `json:"architecture"`
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
}
