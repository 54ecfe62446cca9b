// Package reconcile maps inbound mailbox messages to the outstanding
// application they answer. Identity is the sender address only; subject and
// body never take part in matching.
package reconcile

import (
	"internflow-engine/internal/domain"
)

// Index is an immutable snapshot of outstanding applications keyed by the
// normalized company address.
type Index struct {
	byEmail map[string]domain.OutstandingApplication
}

// NewIndex keeps, per address, the most recently sent application. Ties on
// sent time go to the higher application ID.
func NewIndex(outstanding []domain.OutstandingApplication) *Index {
	idx := &Index{byEmail: make(map[string]domain.OutstandingApplication, len(outstanding))}
	for _, o := range outstanding {
		key := domain.NormalizeEmail(o.CompanyEmail)
		if key == "" {
			continue
		}
		cur, ok := idx.byEmail[key]
		if !ok || newer(o, cur) {
			idx.byEmail[key] = o
		}
	}
	return idx
}

func newer(a, b domain.OutstandingApplication) bool {
	if a.SentAt.Equal(b.SentAt) {
		return a.ApplicationID > b.ApplicationID
	}
	return a.SentAt.After(b.SentAt)
}

// Match returns the application a message from sender answers.
func (idx *Index) Match(sender string) (domain.OutstandingApplication, bool) {
	key := domain.NormalizeEmail(sender)
	if key == "" {
		return domain.OutstandingApplication{}, false
	}
	o, ok := idx.byEmail[key]
	return o, ok
}

func (idx *Index) Len() int { return len(idx.byEmail) }

// Match is the one-shot form of NewIndex(outstanding).Match(msg.From).
func Match(msg domain.InboundMessage, outstanding []domain.OutstandingApplication) (int64, bool) {
	o, ok := NewIndex(outstanding).Match(msg.From)
	if !ok {
		return 0, false
	}
	return o.ApplicationID, true
}
