// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers shared by the GitHub client
// and the trigger service.
//
// The body helpers (ReadResponse, DecodeResponse, ErrorBody) bound
// reads at MaxResponseSize. They are for JSON API bodies, not release
// asset downloads, which are streamed with io.Copy.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds JSON body reads: 32 MB. A several-hundred
// release listing page is well under a megabyte.
const MaxResponseSize int64 = 32 << 20

// ReadResponse reads a JSON API body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON API body (up to MaxResponseSize bytes)
// and decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an error response body for use in a diagnostic
// message. Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}
