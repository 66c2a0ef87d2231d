// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// WriteJSON writes value as a JSON response with the given status.
func WriteJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes {"error": message} with the given status.
func WriteError(writer http.ResponseWriter, status int, message string) {
	WriteJSON(writer, status, ErrorResponse{Error: message})
}

// statusRecorder captures the response status for access logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(status int) {
	recorder.status = status
	recorder.ResponseWriter.WriteHeader(status)
}

// AccessLog logs one line per request at Info level, Debug for
// requests to quietPaths (health checks).
func AccessLog(logger *slog.Logger, next http.Handler, quietPaths ...string) http.Handler {
	quiet := make(map[string]bool, len(quietPaths))
	for _, path := range quietPaths {
		quiet[path] = true
	}
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
		next.ServeHTTP(recorder, request)

		level := slog.LevelInfo
		if quiet[request.URL.Path] {
			level = slog.LevelDebug
		}
		logger.Log(request.Context(), level, "http request",
			"method", request.Method,
			"path", request.URL.Path,
			"status", recorder.status,
			"duration", time.Since(start),
			"remote_addr", request.RemoteAddr,
		)
	})
}
