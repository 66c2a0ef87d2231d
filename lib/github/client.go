// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/netutil"
)

// githubAPIVersion pins the REST API version header.
const githubAPIVersion = "2022-11-28"

// defaultBaseURL is the base URL for the public GitHub API.
const defaultBaseURL = "https://api.github.com"

const (
	acceptJSON   = "application/vnd.github+json"
	acceptBinary = "application/octet-stream"
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to
	// "https://api.github.com". Must use HTTPS.
	BaseURL string

	// Token is a personal access token or fine-grained token. Empty
	// sends requests anonymously.
	Token string

	// UserAgent is sent on every request. Defaults to "debrepo".
	UserAgent string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed GitHub REST API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	auth       authenticator
	rateLimit  *rateLimitTracker
	etagCache  *etagCache
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates a GitHub API client from the given configuration.
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "debrepo"
	}

	var auth authenticator = anonymousAuth{}
	if config.Token != "" {
		auth = newTokenAuth(config.Token)
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		auth:       auth,
		rateLimit:  newRateLimitTracker(clk),
		etagCache:  newETagCache(),
		clock:      clk,
		logger:     logger,
	}, nil
}

// RateLimit returns the most recently observed rate limit state.
func (client *Client) RateLimit() RateLimit {
	return client.rateLimit.snapshot()
}

// do executes a GET against a path relative to the base URL and
// returns the response body. 304 responses are served from the ETag
// cache. A rate-limited response is retried once after the advertised
// backoff. Non-2xx responses return *APIError.
func (client *Client) do(ctx context.Context, path string) ([]byte, http.Header, error) {
	return client.doWithRetry(ctx, client.baseURL+path, false)
}

func (client *Client) doWithRetry(ctx context.Context, url string, isRetry bool) ([]byte, http.Header, error) {
	response, err := client.doRaw(ctx, url, acceptJSON)
	if err != nil {
		return nil, nil, err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotModified {
		if cached := client.etagCache.body(url); cached != nil {
			return cached, response.Header, nil
		}
	}

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("github: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		if !isRetry && isRateLimitResponse(response.StatusCode, body) {
			if retryDuration := client.rateLimit.retryAfter(response.Header); retryDuration > 0 {
				client.logger.Info("rate limited, backing off",
					"duration", retryDuration,
					"url", url,
				)
				if err := clock.Sleep(ctx, client.clock, retryDuration); err != nil {
					return nil, nil, err
				}
				return client.doWithRetry(ctx, url, true)
			}
		}
		return nil, nil, parseAPIErrorFromBody(response.StatusCode, body)
	}

	if etag := response.Header.Get("ETag"); etag != "" {
		client.etagCache.put(url, etag, body)
	}
	return body, response.Header, nil
}

// doRaw sends an authenticated GET after any preemptive rate limit
// wait. The caller closes the response body.
func (client *Client) doRaw(ctx context.Context, url, accept string) (*http.Response, error) {
	if err := client.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}

	authHeader, err := client.auth.AuthorizationHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("github: authentication: %w", err)
	}
	if authHeader != "" {
		request.Header.Set("Authorization", authHeader)
	}
	request.Header.Set("Accept", accept)
	request.Header.Set("User-Agent", client.userAgent)
	request.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

	if accept == acceptJSON {
		if etag := client.etagCache.get(url); etag != "" {
			request.Header.Set("If-None-Match", etag)
		}
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: GET %s: %w", url, err)
	}
	client.rateLimit.update(response.Header)
	return response, nil
}

// get decodes a single JSON object from path into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	body, _, err := client.do(ctx, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// download streams a binary response into w and returns the byte
// count.
func (client *Client) download(ctx context.Context, url string, w io.Writer) (int64, error) {
	response, err := client.doRaw(ctx, url, acceptBinary)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return 0, parseAPIError(response)
	}
	written, err := io.Copy(w, response.Body)
	if err != nil {
		return written, fmt.Errorf("github: downloading %s: %w", url, err)
	}
	return written, nil
}

// list creates a PageIterator for a paginated GET endpoint.
func list[T any](client *Client, path string) *PageIterator[T] {
	return &PageIterator[T]{
		client:  client,
		nextURL: client.baseURL + path,
	}
}

// parseAPIError reads a GitHub API error from an HTTP response.
func parseAPIError(response *http.Response) *APIError {
	body, _ := netutil.ReadResponse(response.Body)
	return parseAPIErrorFromBody(response.StatusCode, body)
}

// parseAPIErrorFromBody parses a GitHub API error from a status code
// and response body.
func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
		apiError.DocumentationURL = wireError.DocumentationURL
	} else {
		apiError.Message = string(body)
	}
	return apiError
}
