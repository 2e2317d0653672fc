package relay

import (
	"net/http"
	"sync"
	"time"
)

// MockTransport is a configurable Transport for tests. Queued outcomes
// are consumed in order; once the queue is drained the stubbed default
// applies to every remaining attempt.
type MockTransport struct {
	mu          sync.Mutex
	queue       []mockOutcome
	defaultResp *mockOutcome
	requests    []*Request
}

type mockOutcome struct {
	status int
	header http.Header
	body   string
	err    error
	delay  time.Duration
}

// NewMockTransport creates a MockTransport with a 200 "" default.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		defaultResp: &mockOutcome{status: http.StatusOK, header: make(http.Header)},
	}
}

// StubResponse sets the default outcome for attempts beyond the queue.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp = &mockOutcome{status: statusCode, header: make(http.Header), body: body}
	return m
}

// StubError sets the default outcome to a failure.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp = &mockOutcome{err: err}
	return m
}

// StubHeader adds a header to the default outcome.
func (m *MockTransport) StubHeader(key, value string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.defaultResp.header == nil {
		m.defaultResp.header = make(http.Header)
	}
	m.defaultResp.header.Set(key, value)
	return m
}

// QueueResponse appends a one-shot response outcome.
func (m *MockTransport) QueueResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockOutcome{
		status: statusCode,
		header: make(http.Header),
		body:   body,
	})
	return m
}

// QueueJSON appends a one-shot response outcome with a JSON content
// type.
func (m *MockTransport) QueueJSON(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	m.queue = append(m.queue, mockOutcome{status: statusCode, header: header, body: body})
	return m
}

// QueueError appends a one-shot failure outcome.
func (m *MockTransport) QueueError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockOutcome{err: err})
	return m
}

// Delay makes attempts that use the default outcome sleep before
// resolving, for concurrency tests. Queued outcomes resolve at once.
func (m *MockTransport) Delay(d time.Duration) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp.delay = d
	return m
}

// Calls returns how many times Execute ran.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of the request views seen, in order.
func (m *MockTransport) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Execute implements Transport.
func (m *MockTransport) Execute(c *Context) error {
	m.mu.Lock()
	outcome := *m.defaultResp
	if len(m.queue) > 0 {
		outcome = m.queue[0]
		m.queue = m.queue[1:]
	}
	snapshot := *c.Req
	snapshot.Header = c.Req.Header.Clone()
	m.requests = append(m.requests, &snapshot)
	m.mu.Unlock()

	if outcome.delay > 0 {
		select {
		case <-time.After(outcome.delay):
		case <-c.Context().Done():
			return newTimeoutError(c.Req.Method, c.Req.URL)
		}
	}

	if outcome.err != nil {
		return outcome.err
	}

	header := outcome.header
	if header == nil {
		header = make(http.Header)
	}
	res := &Response{
		StatusCode: outcome.status,
		Header:     header,
		Body:       outcome.body,
	}
	if c.TimeEnabled() {
		res.Elapsed = outcome.delay
	}
	c.Res = res
	return nil
}
