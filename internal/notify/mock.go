package notify

import (
	"context"
	"sync"
)

// MockMailer records sent email for dev mode and tests.
type MockMailer struct {
	mu   sync.Mutex
	Sent []Email
}

func (m *MockMailer) Send(ctx context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, email)
	return nil
}

func (m *MockMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
