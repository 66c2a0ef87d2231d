// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsstore is an objectstore.Store backed by a local directory.
// Publishing to it produces a tree any static web server can expose as
// an APT source. Object metadata is not persisted; the serving web
// server decides response headers.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bureau-foundation/debrepo/lib/objectstore"
)

// Store writes objects as files under Root.
type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("fsstore: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: %w", err)
	}
	return &Store{root: root}, nil
}

// localPath maps a slash-separated key to a path under the root.
// Keys escaping the root are rejected.
func (s *Store) localPath(key string) (string, error) {
	cleaned := path.Clean(key)
	if key == "" || !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", fmt.Errorf("fsstore: key %q escapes the store root", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, metadata objectstore.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := s.localPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &objectstore.Error{Op: "put", Key: key, Err: err}
	}

	temporary, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return &objectstore.Error{Op: "put", Key: key, Err: err}
	}
	defer os.Remove(temporary.Name())

	written, err := io.Copy(temporary, body)
	if closeErr := temporary.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return &objectstore.Error{Op: "put", Key: key, Err: err}
	}
	if written != size {
		return &objectstore.Error{Op: "put", Key: key, Err: fmt.Errorf("body has %d bytes, declared %d", written, size)}
	}
	if err := os.Chmod(temporary.Name(), 0o644); err != nil {
		return &objectstore.Error{Op: "put", Key: key, Err: err}
	}
	if err := os.Rename(temporary.Name(), target); err != nil {
		return &objectstore.Error{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for _, object := range objects {
		local, err := s.localPath(object.Key)
		if err != nil {
			return 0, err
		}
		if err := os.Remove(local); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, &objectstore.Error{Op: "delete", Key: object.Key, Err: err}
		}
	}

	if trimmed := objectstore.DirectoryPrefix(prefix); trimmed != "" {
		directory, err := s.localPath(trimmed)
		if err != nil {
			return 0, err
		}
		if err := os.RemoveAll(directory); err != nil {
			return 0, &objectstore.Error{Op: "delete", Key: prefix, Err: err}
		}
	}
	return len(objects), nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := s.root
	if trimmed := objectstore.DirectoryPrefix(prefix); trimmed != "" {
		var err error
		if start, err = s.localPath(trimmed); err != nil {
			return nil, err
		}
	}

	var objects []objectstore.ObjectInfo
	err := filepath.WalkDir(start, func(local string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && local == start {
				return filepath.SkipDir
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(s.root, local)
		if err != nil {
			return err
		}
		objects = append(objects, objectstore.ObjectInfo{Key: filepath.ToSlash(relative), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, &objectstore.Error{Op: "list", Key: prefix, Err: err}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}
