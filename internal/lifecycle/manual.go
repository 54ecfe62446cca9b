package lifecycle

import (
	"context"
	"fmt"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/followup"
	"internflow-engine/internal/metrics"
)

// RecordFollowUpSent records a follow-up the user sent by hand. The
// application must be due right now; otherwise the error wraps
// domain.ErrConstraint and nothing changes.
func (e *Engine) RecordFollowUpSent(ctx context.Context, applicationID int64) (domain.Application, error) {
	a, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return domain.Application{}, err
	}

	st := followup.State{Responded: a.ResponseReceived, NextDue: a.NextFollowUpDate, FollowUpCount: a.FollowUpCount}
	switch e.settings.Load().Policy.Evaluate(st, e.clock.Now()) {
	case followup.Due:
	case followup.Exhausted:
		return a, fmt.Errorf("application %d: %w", applicationID, domain.ErrFollowUpCapReached)
	default:
		if a.ResponseReceived {
			return a, fmt.Errorf("application %d: %w", applicationID, domain.ErrAlreadyResponded)
		}
		return a, fmt.Errorf("application %d: %w", applicationID, domain.ErrFollowUpNotDue)
	}

	out, err := e.store.AdvanceFollowUp(ctx, applicationID)
	if err != nil {
		return a, err
	}
	metrics.FollowUpsTotal.WithLabelValues("advanced").Inc()
	e.log.InfoContext(ctx, "follow-up recorded", "application_id", applicationID, "follow_up_count", out.FollowUpCount)
	return out, nil
}

// RecordResponse records a reply triaged by hand, classifying it like a
// polled one.
func (e *Engine) RecordResponse(ctx context.Context, applicationID int64, subject, body string) (domain.ResponseOutcome, error) {
	out, err := e.store.MarkResponseReceived(ctx, applicationID, domain.ResponseInput{
		Subject:   subject,
		Body:      body,
		Sentiment: e.classify(ctx, e.settings.Load().Classifier, subject+" "+body),
	})
	if err != nil {
		return out, err
	}
	e.log.InfoContext(ctx, "reply recorded manually", "application_id", applicationID, "transitioned", out.Transitioned)
	return out, nil
}
