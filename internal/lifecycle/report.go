package lifecycle

import (
	"context"

	"internflow-engine/internal/domain"
)

const recentPositiveLimit = 3

func (e *Engine) Statistics(ctx context.Context) (domain.Statistics, error) {
	return e.store.Statistics(ctx, e.clock.Now())
}

// FollowUpQueue lists the follow-ups due now, most urgent first.
func (e *Engine) FollowUpQueue(ctx context.Context) ([]domain.FollowUpCandidate, error) {
	q, err := e.store.CompaniesNeedingFollowUp(ctx, e.clock.Now())
	if q == nil && err == nil {
		q = []domain.FollowUpCandidate{}
	}
	return q, err
}

func (e *Engine) ApplicationTimeline(ctx context.Context, days int) ([]domain.TimelinePoint, error) {
	return e.store.ApplicationTimeline(ctx, e.clock.Now(), days)
}

func (e *Engine) ResponseTimeStats(ctx context.Context) (domain.ResponseTimeStats, error) {
	return e.store.ResponseTimeStats(ctx)
}

// Report bundles statistics, response times, the latest positive replies,
// the 30-day timeline and the follow-up queue, all as of one instant.
func (e *Engine) Report(ctx context.Context) (domain.Report, error) {
	now := e.clock.Now()
	var (
		r   domain.Report
		err error
	)
	if r.Statistics, err = e.store.Statistics(ctx, now); err != nil {
		return r, err
	}
	if r.ResponseTimes, err = e.store.ResponseTimeStats(ctx); err != nil {
		return r, err
	}
	if r.RecentPositive, err = e.store.RecentPositiveResponses(ctx, recentPositiveLimit); err != nil {
		return r, err
	}
	if r.Timeline, err = e.store.ApplicationTimeline(ctx, now, 30); err != nil {
		return r, err
	}
	if r.FollowUpsQueued, err = e.store.CompaniesNeedingFollowUp(ctx, now); err != nil {
		return r, err
	}
	if r.FollowUpsQueued == nil {
		r.FollowUpsQueued = []domain.FollowUpCandidate{}
	}
	return r, nil
}
