package client

import (
	"strings"

	"github.com/rs/zerolog"
)

// Traces are written without a level so the debug flag alone enables them,
// whatever the configured log level.

// isReportingPath reports whether path belongs to the reporting endpoints,
// the only ones traced in debug mode.
func isReportingPath(path string) bool {
	return strings.Contains(path, "/reports/") || strings.Contains(path, "/reporting/")
}

// traceRequest logs the request shape. Payload values are never logged.
func traceRequest(logger zerolog.Logger, method string, req Request) {
	_, tokenInQuery := req.Query["pageToken"]
	_, tokenInBody := req.Body["pageToken"]

	logger.Log().
		Str("trace", "reporting").
		Str("method", method).
		Str("path", req.Path).
		Int("query_params", len(req.Query)).
		Int("body_fields", len(req.Body)).
		Bool("has_page_token", tokenInQuery || tokenInBody).
		Msg("Reporting request")
}

// traceResponse logs item counts and pagination presence of a response.
func traceResponse(logger zerolog.Logger, method, path string, status int, env Envelope) {
	counts := zerolog.Dict()
	for k, n := range env.arrayLengths() {
		counts.Int(k, n)
	}

	logger.Log().
		Str("trace", "reporting").
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dict("item_counts", counts).
		Bool("has_next_page_token", env.NextPageToken() != "").
		Strs("fields", env.Keys()).
		Msg("Reporting response")
}
