// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/debrepo/lib/clock"
)

// newTestClient creates a token-authenticated Client backed by server.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    server.URL,
		Token:      "test-token",
		HTTPClient: server.Client(),
		Clock:      clock.Real(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClient_HTTPSEnforcement(t *testing.T) {
	_, err := NewClient(Config{
		BaseURL: "http://api.github.com",
		Token:   "test",
	})
	if err == nil {
		t.Fatal("expected error for HTTP URL")
	}
	if got := err.Error(); got != `github: API client requires HTTPS (got "http://api.github.com")` {
		t.Errorf("unexpected error: %s", got)
	}
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.baseURL != "https://api.github.com" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
}

func TestClient_AuthHeaderInjection(t *testing.T) {
	var receivedAuth string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		receivedAuth = request.Header.Get("Authorization")
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"tag_name":"v1.0.0"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.GetRelease(context.Background(), "owner", "repo", "v1.0.0"); err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if receivedAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", receivedAuth, "Bearer test-token")
	}
}

func TestClient_AnonymousSendsNoAuthorization(t *testing.T) {
	var hadAuth bool
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, hadAuth = request.Header["Authorization"]
		writer.Write([]byte(`{"tag_name":"v1.0.0"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.GetRelease(context.Background(), "owner", "repo", "v1.0.0"); err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if hadAuth {
		t.Error("anonymous client sent an Authorization header")
	}
}

func TestClient_GitHubHeaders(t *testing.T) {
	var receivedAccept, receivedVersion, receivedAgent string
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		receivedAccept = request.Header.Get("Accept")
		receivedVersion = request.Header.Get("X-GitHub-Api-Version")
		receivedAgent = request.Header.Get("User-Agent")
		writer.Write([]byte(`{"tag_name":"v1"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.GetRelease(context.Background(), "owner", "repo", "v1"); err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if receivedAccept != "application/vnd.github+json" {
		t.Errorf("Accept = %q, want %q", receivedAccept, "application/vnd.github+json")
	}
	if receivedVersion != "2022-11-28" {
		t.Errorf("X-GitHub-Api-Version = %q, want %q", receivedVersion, "2022-11-28")
	}
	if receivedAgent != "debrepo" {
		t.Errorf("User-Agent = %q, want %q", receivedAgent, "debrepo")
	}
}

func TestClient_RateLimitBackoff(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	var requestCount atomic.Int32
	resetTime := fakeClock.Now().Add(30 * time.Second)

	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if requestCount.Add(1) == 1 {
			writer.Header().Set("X-RateLimit-Remaining", "0")
			writer.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
			writer.Header().Set("Retry-After", "30")
			writer.WriteHeader(http.StatusForbidden)
			json.NewEncoder(writer).Encode(map[string]string{
				"message": "API rate limit exceeded",
			})
			return
		}
		writer.Header().Set("X-RateLimit-Limit", "5000")
		writer.Header().Set("X-RateLimit-Remaining", "4999")
		writer.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Add(time.Hour).Unix(), 10))
		writer.Write([]byte(`{"tag_name":"v4.2.0"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BaseURL:    server.URL,
		Token:      "test-token",
		HTTPClient: server.Client(),
		Clock:      fakeClock,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	done := make(chan error, 1)
	var release *Release
	go func() {
		var requestErr error
		release, requestErr = client.GetRelease(context.Background(), "owner", "repo", "v4.2.0")
		done <- requestErr
	}()

	// The retry path blocks on clock.After. The preemptive wait sees
	// Remaining=0 too, but on retry the reset time has passed.
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(31 * time.Second)

	if err := <-done; err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if got := requestCount.Load(); got != 2 {
		t.Errorf("expected 2 requests (rate limited + retry), got %d", got)
	}
	if release == nil || release.TagName != "v4.2.0" {
		t.Errorf("release = %+v", release)
	}

	state := client.RateLimit()
	if !state.Known || state.Limit != 5000 || state.Remaining != 4999 {
		t.Errorf("RateLimit() = %+v", state)
	}
}

func TestClient_PermissionDeniedNotRetried(t *testing.T) {
	var requestCount atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestCount.Add(1)
		writer.Header().Set("Retry-After", "30")
		writer.WriteHeader(http.StatusForbidden)
		writer.Write([]byte(`{"message":"Resource not accessible by integration"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetRelease(context.Background(), "owner", "repo", "v1")
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if IsRateLimited(err) {
		t.Errorf("permission 403 classified as rate limited: %v", err)
	}
	if got := requestCount.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestClient_ETagCaching(t *testing.T) {
	var requestCount atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestCount.Add(1)
		if request.Header.Get("If-None-Match") == `"etag-123"` {
			writer.WriteHeader(http.StatusNotModified)
			return
		}
		writer.Header().Set("ETag", `"etag-123"`)
		writer.Write([]byte(`{"tag_name":"v1","name":"Cached Release"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()

	first, err := client.GetRelease(ctx, "owner", "repo", "v1")
	if err != nil {
		t.Fatalf("first GetRelease: %v", err)
	}
	second, err := client.GetRelease(ctx, "owner", "repo", "v1")
	if err != nil {
		t.Fatalf("second GetRelease: %v", err)
	}
	if first.Name != "Cached Release" || second.Name != "Cached Release" {
		t.Errorf("names = %q, %q", first.Name, second.Name)
	}
	if got := requestCount.Load(); got != 2 {
		t.Errorf("expected 2 HTTP requests, got %d", got)
	}
}

func TestClient_ErrorParsing(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		json.NewEncoder(writer).Encode(map[string]any{
			"message":           "Not Found",
			"documentation_url": "https://docs.github.com/rest",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetRelease(context.Background(), "owner", "repo", "missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got: %v", err)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		writer.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetRelease(context.Background(), "owner", "repo", "v1")
	if got, want := err.Error(), "github: HTTP 502: upstream unavailable"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}
