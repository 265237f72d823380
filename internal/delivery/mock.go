package delivery

import (
	"context"
	"sync"
)

// Sent is one message recorded by MockDeliverer.
type Sent struct {
	To   string // user id for Push, reply token for Reply
	Text string
	Push bool
}

// MockDeliverer is a test double for the Deliverer interface.
type MockDeliverer struct {
	Err error

	mu   sync.Mutex
	sent []Sent
}

// Push records the message and returns Err.
func (m *MockDeliverer) Push(ctx context.Context, userID, text string) error {
	return m.record(Sent{To: userID, Text: text, Push: true})
}

// Reply records the message and returns Err.
func (m *MockDeliverer) Reply(ctx context.Context, replyToken, text string) error {
	return m.record(Sent{To: replyToken, Text: text})
}

func (m *MockDeliverer) record(s Sent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
	return m.Err
}

// Sent returns a copy of every recorded message.
func (m *MockDeliverer) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sent, len(m.sent))
	copy(out, m.sent)
	return out
}
