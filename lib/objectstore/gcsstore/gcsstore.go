// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gcsstore is an objectstore.Store backed by a Google Cloud
// Storage bucket.
//
// GCS has no per-object Expires header; metadata objects rely on their
// Cache-Control value alone.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bureau-foundation/debrepo/lib/objectstore"
)

// Config selects the bucket and credentials.
type Config struct {
	Bucket string

	// CredentialsFile is a service account JSON key. Empty uses
	// application default credentials.
	CredentialsFile string

	// Endpoint overrides the API endpoint, for emulators.
	Endpoint string
}

// Store uploads to one bucket.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// New creates a storage client for the configured bucket.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("gcsstore: bucket is required")
	}
	var options []option.ClientOption
	if config.CredentialsFile != "" {
		options = append(options, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		options = append(options, option.WithEndpoint(config.Endpoint))
	}
	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("gcsstore: failed to initialize storage client: %w", err)
	}
	return &Store{client: client, bucket: client.Bucket(config.Bucket)}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, metadata objectstore.Metadata) error {
	// Cancelling the writer's context abandons the upload; Close is
	// what materializes the object.
	ctx, abort := context.WithCancel(ctx)
	defer abort()

	writer := s.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = metadata.ContentType
	writer.CacheControl = metadata.CacheControl

	written, err := io.Copy(writer, body)
	if err != nil {
		return classify("put", key, err)
	}
	if written != size {
		return &objectstore.Error{Op: "put", Key: key, Err: fmt.Errorf("body has %d bytes, declared %d", written, size)}
	}
	if err := writer.Close(); err != nil {
		return classify("put", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	var objects []objectstore.ObjectInfo
	iter := s.bucket.Objects(ctx, &storage.Query{Prefix: objectstore.DirectoryPrefix(prefix)})
	for {
		attrs, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify("list", prefix, err)
		}
		objects = append(objects, objectstore.ObjectInfo{
			Key:  attrs.Name,
			Size: attrs.Size,
			Metadata: objectstore.Metadata{
				ContentType:  attrs.ContentType,
				CacheControl: attrs.CacheControl,
			},
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, object := range objects {
		err := s.bucket.Object(object.Key).Delete(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			continue
		}
		if err != nil {
			return removed, classify("delete", object.Key, err)
		}
		removed++
	}
	return removed, nil
}

func classify(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	storeError := &objectstore.Error{Op: op, Key: key, Err: err}
	var apiError *googleapi.Error
	if errors.As(err, &apiError) {
		storeError.StatusCode = apiError.Code
		if apiError.Code == http.StatusTooManyRequests {
			storeError.Code = "SlowDown"
		}
	}
	return storeError
}
