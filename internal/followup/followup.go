// Package followup decides when an unanswered application is due for a
// follow-up. Everything here is a pure function of stored timestamps and a
// caller-supplied "now"; there are no timers, so a late poll simply finds
// more applications due.
package followup

import "time"

const (
	DefaultInterval     = 7 * 24 * time.Hour
	DefaultMaxFollowUps = 3
)

type Eligibility string

const (
	NotDue    Eligibility = "not_due"
	Due       Eligibility = "due"
	Exhausted Eligibility = "exhausted"
)

type Policy struct {
	Interval     time.Duration
	MaxFollowUps int
}

func DefaultPolicy() Policy {
	return Policy{Interval: DefaultInterval, MaxFollowUps: DefaultMaxFollowUps}
}

// Normalize fills zero fields with the defaults.
func (p Policy) Normalize() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.MaxFollowUps <= 0 {
		p.MaxFollowUps = DefaultMaxFollowUps
	}
	return p
}

// State is the part of an application the policy looks at.
type State struct {
	Responded     bool
	NextDue       *time.Time
	FollowUpCount int
}

// Evaluate classifies an application. The cap wins over everything else, so
// an application at the cap is Exhausted even if its date has passed.
func (p Policy) Evaluate(s State, now time.Time) Eligibility {
	p = p.Normalize()
	if s.FollowUpCount >= p.MaxFollowUps {
		return Exhausted
	}
	if s.Responded || s.NextDue == nil {
		return NotDue
	}
	if !s.NextDue.After(now) {
		return Due
	}
	return NotDue
}

// NextDue returns the due date that follows an action taken at from, given
// the follow-up count after that action. Nil means no further follow-up will
// ever be due.
func (p Policy) NextDue(from time.Time, countAfter int) *time.Time {
	p = p.Normalize()
	if countAfter >= p.MaxFollowUps {
		return nil
	}
	t := from.Add(p.Interval)
	return &t
}
