package mail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inboxpilot/backend/internal/models"
	"github.com/inboxpilot/backend/internal/utils"
)

// MockSource serves a small deterministic inbox for dev mode, when no
// mailbox token is configured. MarkRead removes messages so repeated
// runs drain the box like a real inbox.
type MockSource struct {
	mu       sync.Mutex
	messages map[string]models.Message
	seeded   bool
}

func NewMockSource() *MockSource {
	return &MockSource{messages: map[string]models.Message{}}
}

var mockBodies = []struct {
	subject string
	body    string
}{
	{"Question about my credit report", "Hi, could you explain the new item on my report from last week? Thanks!"},
	{"URGENT - need help immediately", "This is an emergency, my dispute was rejected and I have a closing on Friday."},
	{"Cancel my subscription", "I want to cancel. Nothing has improved in three months and I'm very frustrated."},
	{"Gracias por la ayuda", "¿Pueden revisar mi cuenta? Necesito ayuda con el reporte, por favor."},
}

func (m *MockSource) ListUnread(ctx context.Context) ([]Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seeded {
		m.seed()
		m.seeded = true
	}
	out := make([]Handle, 0, len(m.messages))
	for id, msg := range m.messages {
		out = append(out, Handle{ID: id, ThreadID: msg.ThreadID})
	}
	return out, nil
}

func (m *MockSource) FetchFull(ctx context.Context, id string) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return models.Message{}, fmt.Errorf("mock mailbox: message %s not found", id)
	}
	return msg, nil
}

func (m *MockSource) MarkRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	return nil
}

func (m *MockSource) seed() {
	base := time.Now().UTC()
	for i, b := range mockBodies {
		id := fmt.Sprintf("mock-%d-%d", base.UnixNano(), i)
		h := utils.HashStringToUint64(id)
		m.messages[id] = models.Message{
			ID:       id,
			ThreadID: fmt.Sprintf("thread-%d", h%1000),
			From:     fmt.Sprintf("client%d@example.com", h%8),
			To:       "support@inboxpilot.app",
			Subject:  b.subject,
			Body:     b.body,
			Date:     base.Add(-time.Duration(i) * time.Hour),
		}
	}
}
