// Package mailbox hands unseen inbound messages to the lifecycle engine and
// acknowledges the ones it handled. Acknowledging is deferred to the end of
// a cycle so that unmatched mail stays unseen for manual triage.
package mailbox

import (
	"context"

	"internflow-engine/internal/domain"
)

// Provider fetches at most max unseen messages. The returned Batch must be
// finalized exactly once, even when the caller gives up on it.
type Provider interface {
	FetchUnseen(ctx context.Context, max int) (*Batch, error)
}

type Batch struct {
	Messages []domain.InboundMessage

	finalize func(ctx context.Context, handled []string) error
}

func NewBatch(msgs []domain.InboundMessage, finalize func(ctx context.Context, handled []string) error) *Batch {
	return &Batch{Messages: msgs, finalize: finalize}
}

// Finalize marks the handled message IDs as seen and releases the session.
// Passing no IDs only releases it.
func (b *Batch) Finalize(ctx context.Context, handled []string) error {
	if b == nil || b.finalize == nil {
		return nil
	}
	f := b.finalize
	b.finalize = nil
	return f(ctx, handled)
}
