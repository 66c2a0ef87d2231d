// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address a request came from. With trustProxy
// set, the left-most X-Forwarded-For entry (then X-Real-IP) wins over
// the socket peer; set it only behind a proxy that overwrites those
// headers.
func ClientIP(request *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := request.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if realIP := strings.TrimSpace(request.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
