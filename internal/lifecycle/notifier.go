package lifecycle

import (
	"context"
	"log/slog"

	"internflow-engine/internal/domain"
)

// Notifier is told about every follow-up that is due. It reports sent=true
// only when the follow-up email actually went out; the engine then records
// it. Handing off to a human means sent=false.
type Notifier interface {
	FollowUpDue(ctx context.Context, c domain.FollowUpCandidate) (sent bool, err error)
}

type NotifierFunc func(ctx context.Context, c domain.FollowUpCandidate) (bool, error)

func (f NotifierFunc) FollowUpDue(ctx context.Context, c domain.FollowUpCandidate) (bool, error) {
	return f(ctx, c)
}

// LogNotifier only logs due follow-ups.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) FollowUpDue(ctx context.Context, c domain.FollowUpCandidate) (bool, error) {
	l := n.Log
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "follow-up due",
		"application_id", c.ApplicationID,
		"company", c.CompanyName,
		"email", c.Email,
		"follow_up_count", c.FollowUpCount,
		"days_ago", c.DaysAgo,
	)
	return false, nil
}
