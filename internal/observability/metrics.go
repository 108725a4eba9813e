package observability

import (
	"sync"
	"time"
)

// RequestKey identifies a request counter bucket.
type RequestKey struct {
	Path   string
	Method string
	Status int
}

// ErrorKey identifies an error counter bucket by domain error code.
type ErrorKey struct {
	Path   string
	Method string
	Code   string
}

// Metrics provides basic in-memory counters for the service's route set.
type Metrics struct {
	mu        sync.Mutex
	requests  map[RequestKey]int64
	durations map[RequestKey]time.Duration
	errors    map[ErrorKey]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests:  make(map[RequestKey]int64),
		durations: make(map[RequestKey]time.Duration),
		errors:    make(map[ErrorKey]int64),
	}
}

// RecordRequest increments the counter for the route/status bucket and
// accumulates its total handling time.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := RequestKey{Path: path, Method: method, Status: status}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[key]++
	m.durations[key] += duration
}

// RecordError increments the counter for the route/error-code bucket.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := ErrorKey{Path: path, Method: method, Code: code}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key]++
}

// RequestCount returns the number of requests recorded for the bucket.
func (m *Metrics) RequestCount(path, method string, status int) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[RequestKey{Path: path, Method: method, Status: status}]
}

// ErrorCount returns the number of errors recorded for the bucket.
func (m *Metrics) ErrorCount(path, method, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[ErrorKey{Path: path, Method: method, Code: code}]
}
