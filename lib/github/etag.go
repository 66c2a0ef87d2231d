// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	etagCacheCapacity = 512
	etagCacheTTL      = time.Hour
)

type etagEntry struct {
	etag string
	body []byte
}

// etagCache maps URL to the last ETag-validated response. Requests for
// a cached URL send If-None-Match, and a 304 reply is answered from
// the cache without spending rate limit quota. Entries expire after
// etagCacheTTL and the least recently used entry is evicted once the
// cache reaches etagCacheCapacity.
type etagCache struct {
	entries *ttlcache.Cache[string, etagEntry]
}

func newETagCache() *etagCache {
	return &etagCache{
		entries: ttlcache.New[string, etagEntry](
			ttlcache.WithTTL[string, etagEntry](etagCacheTTL),
			ttlcache.WithCapacity[string, etagEntry](etagCacheCapacity),
		),
	}
}

// get returns the cached ETag for url, or "".
func (cache *etagCache) get(url string) string {
	item := cache.entries.Get(url)
	if item == nil {
		return ""
	}
	return item.Value().etag
}

// body returns the cached body for url, or nil.
func (cache *etagCache) body(url string) []byte {
	item := cache.entries.Get(url)
	if item == nil {
		return nil
	}
	return item.Value().body
}

func (cache *etagCache) put(url string, etag string, body []byte) {
	if etag == "" {
		return
	}
	cache.entries.Set(url, etagEntry{etag: etag, body: body}, ttlcache.DefaultTTL)
}
