// Package testutil provides mock source and destination servers for tests.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockResponse defines the reply for one cursor value.
type MockResponse struct {
	StatusCode int
	Body       string
}

// MockSource is a paginated source API keyed by the cursor query parameter.
type MockSource struct {
	server    *httptest.Server
	mu        sync.RWMutex
	responses map[string]MockResponse

	// Tracking
	cursors           []string
	lastRequestHeader http.Header
}

// NewMockSource creates a new mock source server.
func NewMockSource() *MockSource {
	mock := &MockSource{
		responses: make(map[string]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")

		mock.mu.Lock()
		mock.cursors = append(mock.cursors, cursor)
		mock.lastRequestHeader = r.Header.Clone()
		resp, exists := mock.responses[cursor]
		mock.mu.Unlock()

		if !exists {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "unknown cursor"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSource) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSource) Close() {
	m.server.Close()
}

// SetPage serves body with 200 OK for cursor.
func (m *MockSource) SetPage(cursor, body string) {
	m.SetResponse(cursor, MockResponse{StatusCode: http.StatusOK, Body: body})
}

// SetResponse configures the reply for cursor.
func (m *MockSource) SetResponse(cursor string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cursor] = resp
}

// Cursors returns the cursor values received, in request order.
func (m *MockSource) Cursors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.cursors...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSource) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cursors)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockSource) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// MockDestination records every POSTed body.
type MockDestination struct {
	server     *httptest.Server
	mu         sync.RWMutex
	bodies     [][]byte
	statusCode int
	failAfter  int
}

// NewMockDestination creates a destination that accepts every request with 200.
func NewMockDestination() *MockDestination {
	mock := &MockDestination{statusCode: http.StatusOK, failAfter: -1}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.bodies = append(mock.bodies, body)
		status := mock.statusCode
		if mock.failAfter >= 0 && len(mock.bodies) > mock.failAfter {
			status = http.StatusInternalServerError
		}
		mock.mu.Unlock()

		w.WriteHeader(status)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockDestination) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockDestination) Close() {
	m.server.Close()
}

// SetStatus sets the status returned for every request.
func (m *MockDestination) SetStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCode = code
}

// FailAfter makes every request after the first n answer 500.
func (m *MockDestination) FailAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

// Bodies returns the received request bodies in order.
func (m *MockDestination) Bodies() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]byte(nil), m.bodies...)
}
