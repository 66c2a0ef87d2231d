// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Object is a stored object held by Memory.
type Object struct {
	Data     []byte
	Metadata Metadata
}

// Memory is a Store that keeps objects in a map. Safe for concurrent
// use.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Object
	puts    []string

	beforePut func(key string) error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(ctx context.Context, key string, body io.Reader, size int64, metadata Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if hook := m.hook(); hook != nil {
		if err := hook(key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return &Error{Op: "put", Key: key, Err: err}
	}
	if int64(len(data)) != size {
		return &Error{Op: "put", Key: key, Err: fmt.Errorf("body has %d bytes, declared %d", len(data), size)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: data, Metadata: metadata}
	m.puts = append(m.puts, key)
	return nil
}

func (m *Memory) hook() func(string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beforePut
}

func (m *Memory) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	prefix = DirectoryPrefix(prefix)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = DirectoryPrefix(prefix)

	m.mu.Lock()
	defer m.mu.Unlock()
	var infos []ObjectInfo
	for key, object := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ObjectInfo{Key: key, Size: int64(len(object.Data)), Metadata: object.Metadata})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Get returns a copy of the object stored under key.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	object, ok := m.objects[key]
	if !ok {
		return Object{}, false
	}
	return Object{Data: bytes.Clone(object.Data), Metadata: object.Metadata}, true
}

// PutOrder returns every successfully stored key in completion order.
func (m *Memory) PutOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.puts...)
}

// SetBeforePut installs a hook called before each Put is applied. A
// non-nil return fails that Put without storing anything.
func (m *Memory) SetBeforePut(hook func(key string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beforePut = hook
}
