// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"500", &Error{Op: "put", StatusCode: 500}, true},
		{"503", &Error{Op: "put", StatusCode: 503}, true},
		{"429", &Error{Op: "put", StatusCode: 429}, true},
		{"403", &Error{Op: "put", StatusCode: 403, Code: "AccessDenied"}, false},
		{"404", &Error{Op: "put", StatusCode: 404, Code: "NoSuchBucket"}, false},
		{"InternalError code", &Error{Op: "put", Code: "InternalError"}, true},
		{"SlowDown code", &Error{Op: "put", StatusCode: 400, Code: "SlowDown"}, true},
		{"wrapped", fmt.Errorf("uploading: %w", &Error{Op: "put", StatusCode: 502}), true},
		{"cancelled", fmt.Errorf("%w", context.Canceled), false},
		{"cancelled inside store error", &Error{Op: "put", StatusCode: 500, Err: context.Canceled}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsTransient(test.err); got != test.want {
				t.Errorf("IsTransient(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "put", Key: "a/b", StatusCode: 503, Code: "SlowDown", Err: errors.New("reduce rate")}
	want := "objectstore: put a/b (HTTP 503 SlowDown): reduce rate"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDirectoryPrefix(t *testing.T) {
	for input, want := range map[string]string{
		"":           "",
		"/":          "",
		"repos/o/r":  "repos/o/r/",
		"repos/o/r/": "repos/o/r/",
		"/repos":     "repos/",
	} {
		if got := DirectoryPrefix(input); got != want {
			t.Errorf("DirectoryPrefix(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMemoryPrefixIsDirectoryScoped(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	for _, key := range []string{"repos/o/r/pool/a.deb", "repos/o/r/dists/stable/Release", "repos/o/r2/pool/b.deb"} {
		if err := store.Put(ctx, key, strings.NewReader(key), int64(len(key)), Metadata{ContentType: "x"}); err != nil {
			t.Fatalf("Put(%s): %v", key, err)
		}
	}

	listed, err := store.List(ctx, "repos/o/r")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 || listed[0].Key != "repos/o/r/dists/stable/Release" {
		t.Errorf("List = %v", listed)
	}

	removed, err := store.DeletePrefix(ctx, "repos/o/r")
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed %d objects, want 2", removed)
	}
	if _, ok := store.Get("repos/o/r2/pool/b.deb"); !ok {
		t.Error("DeletePrefix removed a sibling namespace")
	}
}

func TestMemoryPutRejectsShortBody(t *testing.T) {
	store := NewMemory()
	err := store.Put(context.Background(), "k", strings.NewReader("abc"), 10, Metadata{})
	if err == nil {
		t.Fatal("Put accepted a body shorter than its declared size")
	}
	if _, ok := store.Get("k"); ok {
		t.Error("failed Put stored an object")
	}
}

func TestMemoryBeforePut(t *testing.T) {
	store := NewMemory()
	store.SetBeforePut(func(key string) error {
		if key == "deny" {
			return &Error{Op: "put", Key: key, StatusCode: 403}
		}
		return nil
	})
	ctx := context.Background()
	if err := store.Put(ctx, "deny", strings.NewReader(""), 0, Metadata{}); err == nil {
		t.Error("hook did not fail the Put")
	}
	if err := store.Put(ctx, "allow", strings.NewReader(""), 0, Metadata{}); err != nil {
		t.Errorf("Put(allow): %v", err)
	}
	if order := store.PutOrder(); len(order) != 1 || order[0] != "allow" {
		t.Errorf("PutOrder = %v", order)
	}
}
