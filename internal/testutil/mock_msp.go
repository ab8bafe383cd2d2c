// Package testutil provides testing utilities for the MSP client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// Test credentials accepted by the mock token endpoint.
const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
	TokenPath    = "/msp/auth/v1/token"
)

// MockResponse defines one scripted response of the mock MSP API.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// RecordedRequest is a page request as the mock server received it.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         url.Values
	Body          map[string]any
	RawBody       string
	Authorization string
}

// MockMSP is a configurable mock MSP API server for testing.
type MockMSP struct {
	server *httptest.Server

	mu        sync.Mutex
	handlers  map[string]func(w http.ResponseWriter, r *http.Request)
	scripts   map[string][]MockResponse
	requests  []RecordedRequest
	tokenHits int
}

// NewMockMSP creates a new mock MSP API server.
func NewMockMSP() *MockMSP {
	mock := &MockMSP{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		scripts:  make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == TokenPath {
			mock.mu.Lock()
			mock.tokenHits++
			handler, custom := mock.handlers[TokenPath]
			mock.mu.Unlock()

			if custom {
				handler(w, r)
				return
			}
			mock.tokenHandler(w, r)
			return
		}

		raw, _ := io.ReadAll(r.Body)
		rec := RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			RawBody:       string(raw),
			Authorization: r.Header.Get("Authorization"),
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, rec)
		handler, custom := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if custom {
			handler(w, r)
			return
		}
		mock.scriptedHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockMSP) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockMSP) Close() {
	m.server.Close()
}

// Reset clears recorded requests and token counters. Scripts are kept.
func (m *MockMSP) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.tokenHits = 0
}

// SetHandler sets a custom handler for a specific path. TokenPath may be
// overridden as well.
func (m *MockMSP) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetPages scripts the responses for path. Each request consumes the next
// response; requests beyond the script get a 500.
func (m *MockMSP) SetPages(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = append([]MockResponse(nil), responses...)
}

// Requests returns every recorded non-token request in arrival order.
func (m *MockMSP) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestCount returns the number of non-token requests received.
func (m *MockMSP) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// TokenCount returns the number of token grant requests received.
func (m *MockMSP) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenHits
}

func (m *MockMSP) tokenHandler(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if !ok || id != ClientID || secret != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_client"}`)
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, `{"error":"unsupported_grant_type"}`)
		return
	}

	m.mu.Lock()
	n := m.tokenHits
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, fmt.Sprintf(`{"access_token":"token-%d","token_type":"bearer","expires_in":3600}`, n))
}

func (m *MockMSP) scriptedHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	script := m.scripts[r.URL.Path]
	var resp MockResponse
	found := len(script) > 0
	if found {
		resp = script[0]
		m.scripts[r.URL.Path] = script[1:]
	}
	m.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusInternalServerError, `{"message":"unexpected request"}`)
		return
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != "" {
		w.Write([]byte(body))
	}
}

// Items returns n records {"id": start..start+n-1}.
func Items(start, n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{"id": start + i})
	}
	return items
}

// Page builds a 200 response carrying items under itemsKey and, when next is
// non-empty, a nextPageToken.
func Page(itemsKey string, items []map[string]any, next string) MockResponse {
	body := map[string]any{itemsKey: items}
	if next != "" {
		body["nextPageToken"] = next
	}
	data, _ := json.Marshal(body)
	return MockResponse{StatusCode: http.StatusOK, Body: string(data)}
}

// Error builds an error response with an MSP-style message body.
func Error(status int, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"message":%q}`, message),
	}
}
