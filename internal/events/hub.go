package events

import (
	"context"
	"sync"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/logging"

	"github.com/jonboulle/clockwork"
)

// Hub fans events out to SSE subscribers. Slow subscribers miss events
// rather than block publishers.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	clock   clockwork.Clock
}

func NewHub(clock clockwork.Clock) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Hub{clients: make(map[chan string]struct{}), clock: clock}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 10)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Publish(evt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}

// Emit builds a versioned event stamped with the hub clock and publishes it.
// The request ID is taken from ctx when present.
func (h *Hub) Emit(ctx context.Context, typ string, data any) {
	reqID, _ := logging.RequestID(ctx)
	h.Publish(MakeEvent(h.clock.Now(), reqID, typ, 1, data))
}

// FollowUpDue hands a due follow-up to whoever is listening. It never sends
// email, so it always reports the follow-up as not sent.
func (h *Hub) FollowUpDue(ctx context.Context, c domain.FollowUpCandidate) (bool, error) {
	h.Emit(ctx, TypeFollowUpDue, c)
	return false, nil
}
