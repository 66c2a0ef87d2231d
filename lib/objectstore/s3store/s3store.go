// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package s3store is an objectstore.Store for S3-compatible services,
// including Cloudflare R2, built on minio-go.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bureau-foundation/debrepo/lib/objectstore"
)

// Config selects the endpoint, bucket and credentials.
type Config struct {
	// Endpoint is host[:port] without scheme, for R2
	// "<account>.r2.cloudflarestorage.com".
	Endpoint string
	Bucket   string

	// Region defaults to "auto", which R2 requires.
	Region string

	AccessKeyID     string
	SecretAccessKey string

	// Insecure selects plain HTTP. Only for local test servers.
	Insecure bool
}

// Store uploads to one bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects a client. No request is made until the first
// operation.
func New(config Config) (*Store, error) {
	if config.Endpoint == "" || config.Bucket == "" {
		return nil, errors.New("s3store: endpoint and bucket are required")
	}
	region := config.Region
	if region == "" {
		region = "auto"
	}
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: !config.Insecure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: creating client: %w", err)
	}
	return &Store{client: client, bucket: config.Bucket}, nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, metadata objectstore.Metadata) error {
	options := minio.PutObjectOptions{
		ContentType:  metadata.ContentType,
		CacheControl: metadata.CacheControl,
	}
	if metadata.Expires != "" {
		options.UserMetadata = map[string]string{"Expires": metadata.Expires}
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, body, size, options); err != nil {
		return classify("put", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]objectstore.ObjectInfo, error) {
	var objects []objectstore.ObjectInfo
	listing := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    objectstore.DirectoryPrefix(prefix),
		Recursive: true,
	})
	for object := range listing {
		if object.Err != nil {
			return nil, classify("list", prefix, object.Err)
		}
		objects = append(objects, objectstore.ObjectInfo{
			Key:  object.Key,
			Size: object.Size,
			Metadata: objectstore.Metadata{
				ContentType: object.ContentType,
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
	if len(objects) == 0 {
		return 0, nil
	}

	pending := make(chan minio.ObjectInfo)
	go func() {
		defer close(pending)
		for _, object := range objects {
			select {
			case pending <- minio.ObjectInfo{Key: object.Key}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var failures []error
	for result := range s.client.RemoveObjects(ctx, s.bucket, pending, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			failures = append(failures, classify("delete", result.ObjectName, result.Err))
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(failures) > 0 {
		return len(objects) - len(failures), errors.Join(failures...)
	}
	return len(objects), nil
}

// classify maps a minio error response onto objectstore.Error so the
// publisher can tell throttling from permanent failures.
func classify(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	response := minio.ToErrorResponse(err)
	return &objectstore.Error{
		Op:         op,
		Key:        key,
		StatusCode: response.StatusCode,
		Code:       response.Code,
		Err:        err,
	}
}
