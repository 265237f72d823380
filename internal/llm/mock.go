package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the Client interface.
// It can also be used for dry-run mode.
type MockClient struct {
	Response *Response
	Err      error

	mu    sync.Mutex
	Calls [][]Message // records transcripts sent
	Opts  []Options
}

// Generate records the call and returns the mock response.
func (m *MockClient) Generate(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Message, len(messages))
	copy(cp, messages)
	m.Calls = append(m.Calls, cp)
	m.Opts = append(m.Opts, opts)
	return m.Response, m.Err
}

// CallCount returns the number of Generate calls so far.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
