// Package store owns the lifecycle entities (companies, applications,
// responses, job posts) and keeps their invariants. Every mutation runs in a
// single transaction.
package store

import (
	"sync/atomic"

	"internflow-engine/internal/followup"

	"github.com/jonboulle/clockwork"
)

type Store struct {
	db     *DB
	clock  clockwork.Clock
	policy atomic.Pointer[followup.Policy]
}

func NewStore(db *DB, policy followup.Policy, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Store{db: db, clock: clock}
	s.SetPolicy(policy)
	return s
}

func (s *Store) Policy() followup.Policy { return *s.policy.Load() }

// SetPolicy replaces the follow-up policy. Due dates already stored keep
// their value; the new interval applies from the next computation.
func (s *Store) SetPolicy(p followup.Policy) {
	p = p.Normalize()
	s.policy.Store(&p)
}

func (s *Store) DB() *DB { return s.db }
