package mailbox

import (
	"context"
	"sync"

	"internflow-engine/internal/domain"
)

// Memory is an in-process mailbox. The zero value is empty and ready to use.
type Memory struct {
	mu       sync.Mutex
	msgs     []domain.InboundMessage
	seen     map[string]bool
	FetchErr error
}

func NewMemory(msgs ...domain.InboundMessage) *Memory {
	m := &Memory{}
	m.Deliver(msgs...)
	return m
}

func (m *Memory) Deliver(msgs ...domain.InboundMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msgs...)
}

func (m *Memory) FetchUnseen(ctx context.Context, max int) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	var out []domain.InboundMessage
	for _, msg := range m.msgs {
		if max > 0 && len(out) >= max {
			break
		}
		if !m.seen[msg.ID] {
			out = append(out, msg)
		}
	}
	return NewBatch(out, m.markSeen), nil
}

func (m *Memory) markSeen(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	for _, id := range ids {
		m.seen[id] = true
	}
	return nil
}

func (m *Memory) Seen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[id]
}
