// Package lifecycle runs the application lifecycle: it reconciles inbound
// replies against outstanding applications, drives follow-ups, and answers
// reporting queries. All time comes from the injected clock.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/followup"
	"internflow-engine/internal/logging"
	"internflow-engine/internal/mailbox"
	"internflow-engine/internal/metrics"
	"internflow-engine/internal/reconcile"
	"internflow-engine/internal/sentiment"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Store is the persistence the engine needs.
type Store interface {
	OutstandingApplications(ctx context.Context) ([]domain.OutstandingApplication, error)
	MarkResponseReceived(ctx context.Context, applicationID int64, in domain.ResponseInput) (domain.ResponseOutcome, error)
	CompaniesNeedingFollowUp(ctx context.Context, asOf time.Time) ([]domain.FollowUpCandidate, error)
	AdvanceFollowUp(ctx context.Context, applicationID int64) (domain.Application, error)
	GetApplication(ctx context.Context, id int64) (domain.Application, error)

	Statistics(ctx context.Context, asOf time.Time) (domain.Statistics, error)
	ApplicationTimeline(ctx context.Context, asOf time.Time, days int) ([]domain.TimelinePoint, error)
	ResponseTimeStats(ctx context.Context) (domain.ResponseTimeStats, error)
	RecentPositiveResponses(ctx context.Context, limit int) ([]domain.PositiveResponse, error)
}

type Options struct {
	// Mailbox may be nil, in which case cycles only handle follow-ups.
	Mailbox    mailbox.Provider
	Classifier sentiment.Classifier
	Notifier   Notifier
	Policy     followup.Policy
	Lock       *CycleLock
	Clock      clockwork.Clock
	Log        *slog.Logger

	// BatchSize caps the messages read per cycle.
	BatchSize int
	// FetchTimeout bounds the mailbox fetch.
	FetchTimeout time.Duration
}

// Settings are the engine options that can change while it runs.
type Settings struct {
	Mailbox      mailbox.Provider
	Classifier   sentiment.Classifier
	Policy       followup.Policy
	BatchSize    int
	FetchTimeout time.Duration
}

func (s Settings) normalize() *Settings {
	if s.Classifier == nil {
		s.Classifier = sentiment.NewKeywordClassifier(nil, nil)
	}
	s.Policy = s.Policy.Normalize()
	if s.BatchSize <= 0 {
		s.BatchSize = 50
	}
	if s.FetchTimeout <= 0 {
		s.FetchTimeout = 60 * time.Second
	}
	return &s
}

type Engine struct {
	store    Store
	notifier Notifier
	lock     *CycleLock
	clock    clockwork.Clock
	log      *slog.Logger

	settings atomic.Pointer[Settings]
}

func New(store Store, opts Options) *Engine {
	e := &Engine{
		store:    store,
		notifier: opts.Notifier,
		lock:     opts.Lock,
		clock:    opts.Clock,
		log:      opts.Log,
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.notifier == nil {
		e.notifier = LogNotifier{Log: e.log}
	}
	if e.lock == nil {
		e.lock, _ = NewCycleLock("")
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	e.Reconfigure(Settings{
		Mailbox:      opts.Mailbox,
		Classifier:   opts.Classifier,
		Policy:       opts.Policy,
		BatchSize:    opts.BatchSize,
		FetchTimeout: opts.FetchTimeout,
	})
	return e
}

// Reconfigure swaps the mailbox, classifier, policy and batch limits. A
// cycle already running finishes with the settings it started with.
func (e *Engine) Reconfigure(s Settings) {
	e.settings.Store(s.normalize())
}

// Settings returns the settings in effect.
func (e *Engine) Settings() Settings { return *e.settings.Load() }

// CycleReport summarises one RunCycle. On an aborted cycle it reflects the
// work completed before the abort.
type CycleReport struct {
	CycleID    string    `json:"cycleId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Fetched      int `json:"fetched"`
	Matched      int `json:"matched"`
	Recorded     int `json:"recorded"`
	Transitioned int `json:"transitioned"`
	Duplicates   int `json:"duplicates"`
	Unmatched    int `json:"unmatched"`
	DecodeErrors int `json:"decodeErrors"`
	StoreErrors  int `json:"storeErrors"`

	FollowUpsDue      int `json:"followUpsDue"`
	FollowUpsNotified int `json:"followUpsNotified"`
	FollowUpsAdvanced int `json:"followUpsAdvanced"`

	Aborted bool   `json:"aborted"`
	Error   string `json:"error,omitempty"`
}

// RunCycle performs one poll: fetch unseen mail, record replies from known
// companies, acknowledge what was handled, then work the follow-up queue.
// A mailbox or store outage aborts the rest of the cycle; writes already
// committed stay. Overlapping calls fail with ErrCycleInProgress.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	release, err := e.lock.TryAcquire()
	if err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			metrics.CyclesTotal.WithLabelValues("busy").Inc()
		}
		return CycleReport{}, err
	}
	defer release()

	rep := CycleReport{CycleID: uuid.NewString(), StartedAt: e.clock.Now()}
	ctx = logging.WithCycleID(ctx, rep.CycleID)
	e.log.DebugContext(ctx, "cycle started")

	set := e.settings.Load()
	err = e.reconcile(ctx, set, &rep)
	if err == nil {
		err = e.followUps(ctx, set, &rep)
	}

	rep.FinishedAt = e.clock.Now()
	metrics.CycleDuration.Observe(rep.FinishedAt.Sub(rep.StartedAt).Seconds())

	if err != nil {
		rep.Aborted = true
		rep.Error = err.Error()
		metrics.CyclesTotal.WithLabelValues("aborted").Inc()
		e.log.WarnContext(ctx, "cycle aborted", "err", err, "recorded", rep.Recorded)
		return rep, err
	}
	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	e.log.InfoContext(ctx, "cycle finished",
		"fetched", rep.Fetched,
		"recorded", rep.Recorded,
		"transitioned", rep.Transitioned,
		"unmatched", rep.Unmatched,
		"followups_due", rep.FollowUpsDue,
		"followups_advanced", rep.FollowUpsAdvanced,
	)
	return rep, nil
}

func (e *Engine) reconcile(ctx context.Context, set *Settings, rep *CycleReport) error {
	if set.Mailbox == nil {
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, set.FetchTimeout)
	batch, err := set.Mailbox.FetchUnseen(fctx, set.BatchSize)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch unseen: %w", unavailable(err))
	}

	var handled []string
	defer func() {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), set.FetchTimeout)
		defer cancel()
		if err := batch.Finalize(actx, handled); err != nil {
			e.log.WarnContext(ctx, "acknowledge messages failed", "err", err, "count", len(handled))
		}
	}()

	rep.Fetched = len(batch.Messages)
	if rep.Fetched == 0 {
		return nil
	}

	// snapshot for the whole cycle: a second reply from the same sender is
	// still matched to the application the first reply just closed
	outstanding, err := e.store.OutstandingApplications(ctx)
	if err != nil {
		return fmt.Errorf("outstanding applications: %w", err)
	}
	idx := reconcile.NewIndex(outstanding)

	for _, msg := range batch.Messages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reconcile: %w", unavailable(err))
		}

		app, ok := idx.Match(msg.From)
		if !ok {
			rep.Unmatched++
			metrics.MessagesTotal.WithLabelValues("unmatched").Inc()
			continue
		}
		rep.Matched++

		if msg.DecodeErr != nil {
			rep.DecodeErrors++
			metrics.MessagesTotal.WithLabelValues("decode_error").Inc()
			e.log.WarnContext(ctx, "skipping undecodable reply",
				"message_id", msg.ID, "application_id", app.ApplicationID, "err", msg.DecodeErr)
			continue
		}

		out, err := e.store.MarkResponseReceived(ctx, app.ApplicationID, domain.ResponseInput{
			MessageID: msg.ID,
			Subject:   msg.Subject,
			Body:      msg.Body,
			Sentiment: e.classify(ctx, set.Classifier, msg.Subject+" "+msg.Body),
		})
		if err != nil {
			if errors.Is(err, domain.ErrUnavailable) {
				return fmt.Errorf("record response: %w", err)
			}
			rep.StoreErrors++
			metrics.MessagesTotal.WithLabelValues("store_error").Inc()
			e.log.ErrorContext(ctx, "record response failed",
				"message_id", msg.ID, "application_id", app.ApplicationID, "err", err)
			continue
		}

		handled = append(handled, msg.ID)
		if out.Duplicate {
			rep.Duplicates++
			metrics.MessagesTotal.WithLabelValues("duplicate").Inc()
			continue
		}
		rep.Recorded++
		metrics.MessagesTotal.WithLabelValues("recorded").Inc()
		if out.Transitioned {
			rep.Transitioned++
		}
		e.log.InfoContext(ctx, "reply recorded",
			"message_id", msg.ID, "application_id", app.ApplicationID, "transitioned", out.Transitioned)
	}
	return nil
}

func (e *Engine) classify(ctx context.Context, c sentiment.Classifier, text string) domain.Sentiment {
	s, err := c.Classify(ctx, text)
	if err != nil {
		metrics.ClassifierFallbacks.Inc()
		e.log.WarnContext(ctx, "classifier failed, using Neutral", "err", err)
		return domain.SentimentNeutral
	}
	return domain.ParseSentiment(string(s))
}

func (e *Engine) followUps(ctx context.Context, set *Settings, rep *CycleReport) error {
	now := e.clock.Now()
	due, err := e.store.CompaniesNeedingFollowUp(ctx, now)
	if err != nil {
		return fmt.Errorf("follow-up queue: %w", err)
	}

	for _, c := range due {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("follow-ups: %w", unavailable(err))
		}

		st := followup.State{NextDue: c.NextFollowUpDate, FollowUpCount: c.FollowUpCount}
		if set.Policy.Evaluate(st, now) != followup.Due {
			metrics.FollowUpsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		rep.FollowUpsDue++

		sent, err := e.notifier.FollowUpDue(ctx, c)
		if err != nil {
			metrics.FollowUpsTotal.WithLabelValues("error").Inc()
			e.log.WarnContext(ctx, "notifier failed", "application_id", c.ApplicationID, "err", err)
			continue
		}
		rep.FollowUpsNotified++
		metrics.FollowUpsTotal.WithLabelValues("notified").Inc()
		if !sent {
			continue
		}

		if _, err := e.store.AdvanceFollowUp(ctx, c.ApplicationID); err != nil {
			if errors.Is(err, domain.ErrUnavailable) {
				return fmt.Errorf("advance follow-up: %w", err)
			}
			metrics.FollowUpsTotal.WithLabelValues("error").Inc()
			e.log.WarnContext(ctx, "advance follow-up failed", "application_id", c.ApplicationID, "err", err)
			continue
		}
		rep.FollowUpsAdvanced++
		metrics.FollowUpsTotal.WithLabelValues("advanced").Inc()
	}
	return nil
}

// unavailable tags cancellations and timeouts as an outage so callers can
// treat them like a dropped connection.
func unavailable(err error) error {
	if errors.Is(err, domain.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return err
}
