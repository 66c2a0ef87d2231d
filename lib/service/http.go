// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Defaults for zero HTTPServerConfig fields.
const (
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultRequestTimeout    = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
)

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address. ":0" or "127.0.0.1:0" picks
	// a free port; Addr reports it once Ready is closed.
	Address string
	Handler http.Handler

	// ShutdownTimeout bounds the drain of in-flight requests after
	// the Serve context is cancelled.
	ShutdownTimeout time.Duration

	// RequestTimeout bounds reading a whole request and writing its
	// response. Webhook bodies are the largest thing served.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// HTTPServer serves one handler on a TCP listener until its context
// ends.
type HTTPServer struct {
	config HTTPServerConfig
	ready  chan struct{}
	addr   net.Addr
}

// NewHTTPServer checks config and fills in defaults. Nothing listens
// until Serve.
func NewHTTPServer(config HTTPServerConfig) (*HTTPServer, error) {
	var problems []error
	if config.Address == "" {
		problems = append(problems, errors.New("Address is required"))
	}
	if config.Handler == nil {
		problems = append(problems, errors.New("Handler is required"))
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("service: %w", errors.Join(problems...))
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &HTTPServer{config: config, ready: make(chan struct{})}, nil
}

// Ready is closed once the listener is bound.
func (s *HTTPServer) Ready() <-chan struct{} { return s.ready }

// Addr is the bound address. Valid only after Ready is closed.
func (s *HTTPServer) Addr() net.Addr { return s.addr }

// Serve listens and serves until ctx is cancelled, then stops
// accepting and waits up to ShutdownTimeout for active requests. It
// returns nil after a clean shutdown.
func (s *HTTPServer) Serve(ctx context.Context) error {
	var listenConfig net.ListenConfig
	listener, err := listenConfig.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("service: listening on %s: %w", s.config.Address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.config.Handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       s.config.RequestTimeout,
		WriteTimeout:      s.config.RequestTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.config.Logger.Handler(), slog.LevelWarn),
	}
	logger := s.config.Logger.With("address", s.addr.String())
	logger.Info("http server listening")

	served := make(chan error, 1)
	go func() { served <- server.Serve(listener) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("service: serving: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		server.Close()
		return fmt.Errorf("service: shutdown after %s: %w", s.config.ShutdownTimeout, err)
	}
	logger.Info("http server stopped")
	return nil
}
