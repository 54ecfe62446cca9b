package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/logging"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_EmitStampsClockAndRequestID(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	h := NewHub(clock)
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	ctx := logging.WithRequestID(context.Background(), "req-1")
	h.Emit(ctx, TypeCycleFinished, map[string]int{"recorded": 2})

	var e Event
	require.NoError(t, json.Unmarshal([]byte(<-ch), &e))
	assert.Equal(t, TypeCycleFinished, e.Type)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, "req-1", e.RequestID)
	assert.True(t, e.At.Equal(clock.Now()))
	assert.JSONEq(t, `{"recorded":2}`, string(e.Data))
}

func TestHub_DropsForSlowSubscriber(t *testing.T) {
	h := NewHub(nil)
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < 25; i++ {
		h.Publish("x")
	}
	assert.Len(t, ch, cap(ch))
}

func TestHub_FollowUpDueNeverReportsSent(t *testing.T) {
	h := NewHub(nil)
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	sent, err := h.FollowUpDue(context.Background(), domain.FollowUpCandidate{ApplicationID: 7, CompanyName: "Acme"})
	require.NoError(t, err)
	assert.False(t, sent)

	var e Event
	require.NoError(t, json.Unmarshal([]byte(<-ch), &e))
	assert.Equal(t, TypeFollowUpDue, e.Type)
	assert.Contains(t, string(e.Data), `"applicationId":7`)
}
