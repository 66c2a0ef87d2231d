// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PageIterator lazily fetches pages of results from a paginated GitHub
// API endpoint. Each call to Next fetches the next page and returns the
// items. Returns nil, nil when all pages have been consumed.
//
// The iterator is not safe for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
	done    bool
}

// Next fetches the next page of results. Returns nil, nil when no more
// pages are available. Each page fetch goes through the same rate
// limiting, retry, and ETag handling as any other API call.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.done || iterator.nextURL == "" {
		return nil, nil
	}

	body, header, err := iterator.client.doWithRetry(ctx, iterator.nextURL, false)
	if err != nil {
		return nil, err
	}

	items := []T{}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("github: decoding page: %w", err)
	}

	iterator.nextURL = parseLinkNext(header.Get("Link"))
	if iterator.nextURL == "" {
		iterator.done = true
	}
	return items, nil
}

// Collect fetches all remaining pages and returns all items concatenated.
// Convenience method for callers that need all results at once.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for {
		items, err := iterator.Next(ctx)
		if err != nil {
			return all, err
		}
		if items == nil {
			return all, nil
		}
		all = append(all, items...)
	}
}

// parseLinkNext returns the target of the rel="next" link in an
// RFC 8288 Link header, or "" when there is none. GitHub sends
//
//	<https://api.github.com/repos/o/r/releases?page=2>; rel="next", <...>; rel="last"
//
// but the links may come in any order, parameters may carry extra
// whitespace, and rel may hold several space-separated relation types.
func parseLinkNext(header string) string {
	for _, link := range strings.Split(header, ",") {
		target, parameters, ok := strings.Cut(link, ";")
		if !ok {
			continue
		}
		target = strings.TrimSpace(target)
		if len(target) < 2 || target[0] != '<' || target[len(target)-1] != '>' {
			continue
		}
		for _, parameter := range strings.Split(parameters, ";") {
			key, value, ok := strings.Cut(parameter, "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			for _, relation := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
				if strings.EqualFold(relation, "next") {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}
