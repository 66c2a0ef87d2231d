// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"mime"
	"path"

	"github.com/bureau-foundation/debrepo/lib/layout"
	"github.com/bureau-foundation/debrepo/lib/objectstore"
)

const (
	// NoCache is the Cache-Control value for metadata objects.
	NoCache = "no-cache, no-store, must-revalidate"

	// ExpiresImmediately is the Expires value for metadata objects.
	ExpiresImmediately = "0"

	defaultContentType = "application/octet-stream"
)

// uncachedNames are the mutable metadata files a client must always
// re-fetch.
var uncachedNames = map[string]bool{
	layout.ReleaseName:       true,
	layout.InReleaseName:     true,
	layout.IndexName:         true,
	layout.IndexName + ".gz": true,
	layout.IndexName + ".xz": true,
}

var contentTypes = map[string]string{
	".deb": "application/vnd.debian.binary-package",
	".gz":  "application/gzip",
	".xz":  "application/x-xz",
	".gpg": "application/pgp-signature",
}

// ContentType returns the Content-Type for a file name.
func ContentType(name string) string {
	base := path.Base(name)
	if base == layout.PublicKeyFileName {
		return "application/pgp-keys"
	}
	extension := path.Ext(base)
	if contentType, ok := contentTypes[extension]; ok {
		return contentType
	}
	if extension != "" {
		if contentType := mime.TypeByExtension(extension); contentType != "" {
			return contentType
		}
	}
	return defaultContentType
}

// MetadataFor returns the headers an object with the given key is
// uploaded with.
func MetadataFor(key string) objectstore.Metadata {
	metadata := objectstore.Metadata{ContentType: ContentType(key)}
	if uncachedNames[path.Base(key)] {
		metadata.CacheControl = NoCache
		metadata.Expires = ExpiresImmediately
	}
	return metadata
}
