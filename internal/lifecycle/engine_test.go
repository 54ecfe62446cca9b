package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/followup"
	"internflow-engine/internal/mailbox"
	"internflow-engine/internal/metrics"
	"internflow-engine/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *store.Store
	clock *clockwork.FakeClock
	box   *mailbox.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	clock := clockwork.NewFakeClockAt(t0)
	return &fixture{
		store: store.NewStore(db, followup.DefaultPolicy(), clock),
		clock: clock,
		box:   mailbox.NewMemory(),
	}
}

func (f *fixture) engine(opts Options) *Engine {
	if opts.Mailbox == nil {
		opts.Mailbox = f.box
	}
	opts.Clock = f.clock
	opts.Policy = followup.DefaultPolicy()
	return New(f.store, opts)
}

func (f *fixture) apply(t *testing.T, email string, priority domain.Priority) int64 {
	t.Helper()
	ctx := context.Background()
	cid, err := f.store.AddCompany(ctx, domain.NewCompany{Name: "Co " + email, Email: email, Priority: priority})
	require.NoError(t, err)
	id, err := f.store.LogApplication(ctx, domain.NewApplication{CompanyID: cid, Subject: "Application"})
	require.NoError(t, err)
	return id
}

type sentNotifier struct {
	sent  bool
	calls []int64
}

func (n *sentNotifier) FollowUpDue(_ context.Context, c domain.FollowUpCandidate) (bool, error) {
	n.calls = append(n.calls, c.ApplicationID)
	return n.sent, nil
}

func TestRunCycle_RecordsMatchedReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appID := f.apply(t, "hr@acme.com", 2)

	f.box.Deliver(
		domain.InboundMessage{ID: "m1", From: "HR Team <HR@acme.com>", Subject: "Re: Application", Body: "We are excited to invite you to an interview"},
		domain.InboundMessage{ID: "m2", From: "newsletter@spam.io", Subject: "Deals"},
		domain.InboundMessage{ID: "m3", From: "hr@acme.com", Subject: "Also", Body: "one more thing"},
	)

	rep, err := f.engine(Options{}).RunCycle(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rep.CycleID)
	assert.Equal(t, 3, rep.Fetched)
	assert.Equal(t, 2, rep.Matched)
	assert.Equal(t, 2, rep.Recorded)
	assert.Equal(t, 1, rep.Transitioned)
	assert.Equal(t, 1, rep.Unmatched)
	assert.False(t, rep.Aborted)

	assert.True(t, f.box.Seen("m1"))
	assert.True(t, f.box.Seen("m3"))
	assert.False(t, f.box.Seen("m2"), "unmatched mail stays unseen")

	a, err := f.store.GetApplication(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResponded, a.Status)

	rs, err := f.store.ListResponses(ctx, appID)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, domain.SentimentPositive, rs[0].Sentiment)
	assert.Equal(t, "m1", rs[0].MessageID)

	// next cycle sees only the unmatched message again
	rep, err = f.engine(Options{}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Fetched)
	assert.Equal(t, 0, rep.Recorded)
}

func TestRunCycle_NewestApplicationWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := f.apply(t, "hr@acme.com", 3)
	f.clock.Advance(time.Hour)
	first, err := f.store.GetApplication(ctx, older)
	require.NoError(t, err)
	newer, err := f.store.LogApplication(ctx, domain.NewApplication{CompanyID: first.CompanyID, Subject: "Second try"})
	require.NoError(t, err)

	f.box.Deliver(domain.InboundMessage{ID: "m1", From: "hr@acme.com", Body: "thanks"})
	_, err = f.engine(Options{}).RunCycle(ctx)
	require.NoError(t, err)

	got, err := f.store.GetApplication(ctx, newer)
	require.NoError(t, err)
	assert.True(t, got.ResponseReceived)
	got, err = f.store.GetApplication(ctx, older)
	require.NoError(t, err)
	assert.False(t, got.ResponseReceived)
}

func TestRunCycle_DuplicateMessageIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appID := f.apply(t, "hr@acme.com", 3)

	_, err := f.store.MarkResponseReceived(ctx, appID, domain.ResponseInput{MessageID: "m1", Body: "hi"})
	require.NoError(t, err)

	f.box.Deliver(domain.InboundMessage{ID: "m1", From: "hr@acme.com", Body: "hi"})
	rep, err := f.engine(Options{}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 0, rep.Recorded)
	assert.True(t, f.box.Seen("m1"))
}

func TestRunCycle_DecodeFailureSkipsOnlyThatMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.apply(t, "hr@acme.com", 3)
	f.apply(t, "jobs@beta.io", 3)

	f.box.Deliver(
		domain.InboundMessage{ID: "bad", From: "hr@acme.com", DecodeErr: fmt.Errorf("%w: bad base64", domain.ErrDecode)},
		domain.InboundMessage{ID: "good", From: "jobs@beta.io", Body: "hello"},
	)
	rep, err := f.engine(Options{}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.DecodeErrors)
	assert.Equal(t, 1, rep.Recorded)
	assert.False(t, f.box.Seen("bad"))
	assert.True(t, f.box.Seen("good"))
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string) (domain.Sentiment, error) {
	return "", fmt.Errorf("%w: nlp down", domain.ErrUnavailable)
}

func TestRunCycle_ClassifierFailureFallsBackToNeutral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appID := f.apply(t, "hr@acme.com", 3)
	f.box.Deliver(domain.InboundMessage{ID: "m1", From: "hr@acme.com", Body: "We are excited to offer you an interview"})

	before := testutil.ToFloat64(metrics.ClassifierFallbacks)
	rep, err := f.engine(Options{Classifier: failingClassifier{}}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Recorded)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ClassifierFallbacks))

	rs, err := f.store.ListResponses(ctx, appID)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, domain.SentimentNeutral, rs[0].Sentiment)
}

func TestRunCycle_FetchFailureAbortsCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.apply(t, "hr@acme.com", 3)
	f.clock.Advance(8 * 24 * time.Hour)

	f.box.FetchErr = fmt.Errorf("imap dial: %w", domain.ErrUnavailable)
	n := &sentNotifier{sent: true}
	rep, err := f.engine(Options{Notifier: n}).RunCycle(ctx)
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.True(t, rep.Aborted)
	assert.Empty(t, n.calls, "follow-ups are not worked after an abort")
}

// flakyStore fails MarkResponseReceived with an outage after okCalls
// successful calls.
type flakyStore struct {
	*store.Store
	okCalls int
}

func (s *flakyStore) MarkResponseReceived(ctx context.Context, id int64, in domain.ResponseInput) (domain.ResponseOutcome, error) {
	if s.okCalls == 0 {
		return domain.ResponseOutcome{}, fmt.Errorf("insert response: %w", domain.ErrUnavailable)
	}
	s.okCalls--
	return s.Store.MarkResponseReceived(ctx, id, in)
}

func TestRunCycle_StoreOutageKeepsCompletedWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.apply(t, "a@x.io", 3)
	second := f.apply(t, "b@x.io", 3)
	f.box.Deliver(
		domain.InboundMessage{ID: "m1", From: "a@x.io", Body: "one"},
		domain.InboundMessage{ID: "m2", From: "b@x.io", Body: "two"},
	)

	e := New(&flakyStore{Store: f.store, okCalls: 1}, Options{Mailbox: f.box, Clock: f.clock})
	rep, err := e.RunCycle(ctx)
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.True(t, rep.Aborted)
	assert.Equal(t, 1, rep.Recorded)

	a, err := f.store.GetApplication(ctx, first)
	require.NoError(t, err)
	assert.True(t, a.ResponseReceived)
	a, err = f.store.GetApplication(ctx, second)
	require.NoError(t, err)
	assert.False(t, a.ResponseReceived)

	assert.True(t, f.box.Seen("m1"))
	assert.False(t, f.box.Seen("m2"))
}

func TestRunCycle_FollowUps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	low := f.apply(t, "low@x.io", 5)
	high := f.apply(t, "high@x.io", 1)
	answered := f.apply(t, "answered@x.io", 1)
	_, err := f.store.MarkResponseReceived(ctx, answered, domain.ResponseInput{Body: "thanks"})
	require.NoError(t, err)

	n := &sentNotifier{}
	f.clock.Advance(6 * 24 * time.Hour)
	rep, err := f.engine(Options{Notifier: n}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.FollowUpsDue)

	f.clock.Advance(24 * time.Hour)
	rep, err = f.engine(Options{Notifier: n}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.FollowUpsDue)
	assert.Equal(t, 2, rep.FollowUpsNotified)
	assert.Zero(t, rep.FollowUpsAdvanced)
	assert.Equal(t, []int64{high, low}, n.calls)

	// a notifier that actually sends moves the applications forward
	n = &sentNotifier{sent: true}
	rep, err = f.engine(Options{Notifier: n}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.FollowUpsAdvanced)

	a, err := f.store.GetApplication(ctx, high)
	require.NoError(t, err)
	assert.Equal(t, 1, a.FollowUpCount)
	assert.Equal(t, domain.StatusFollowedUp, a.Status)
	require.NotNil(t, a.NextFollowUpDate)
	assert.WithinDuration(t, f.clock.Now().Add(7*24*time.Hour), *a.NextFollowUpDate, 0)

	// not due again until another interval has passed
	rep, err = f.engine(Options{Notifier: n}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.FollowUpsDue)
}

func TestRunCycle_FollowUpsStopAtCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appID := f.apply(t, "hr@acme.com", 3)
	n := &sentNotifier{sent: true}

	for i := 0; i < 5; i++ {
		f.clock.Advance(7 * 24 * time.Hour)
		_, err := f.engine(Options{Notifier: n}).RunCycle(ctx)
		require.NoError(t, err)
	}
	assert.Len(t, n.calls, 3)

	a, err := f.store.GetApplication(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, 3, a.FollowUpCount)
	assert.Nil(t, a.NextFollowUpDate)
}

func TestRunCycle_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	lock, err := NewCycleLock("")
	require.NoError(t, err)
	release, err := lock.TryAcquire()
	require.NoError(t, err)
	defer release()

	_, err = f.engine(Options{Lock: lock}).RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)
}

func TestCycleLock_FileLockAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "cycle.lock")
	a, err := NewCycleLock(path)
	require.NoError(t, err)
	b, err := NewCycleLock(path)
	require.NoError(t, err)

	release, err := a.TryAcquire()
	require.NoError(t, err)

	_, err = b.TryAcquire()
	assert.ErrorIs(t, err, ErrCycleInProgress)

	release()
	release, err = b.TryAcquire()
	require.NoError(t, err)
	release()
}

func TestRunCycle_NoMailbox(t *testing.T) {
	f := newFixture(t)
	f.apply(t, "hr@acme.com", 3)
	f.clock.Advance(7 * 24 * time.Hour)

	e := New(f.store, Options{Clock: f.clock, Notifier: &sentNotifier{}})
	rep, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Fetched)
	assert.Equal(t, 1, rep.FollowUpsDue)
}

func TestRecordFollowUpSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appID := f.apply(t, "hr@acme.com", 3)
	e := f.engine(Options{})

	_, err := e.RecordFollowUpSent(ctx, appID)
	require.ErrorIs(t, err, domain.ErrFollowUpNotDue)
	require.ErrorIs(t, err, domain.ErrConstraint)

	for i := 1; i <= 3; i++ {
		f.clock.Advance(7 * 24 * time.Hour)
		a, err := e.RecordFollowUpSent(ctx, appID)
		require.NoError(t, err)
		assert.Equal(t, i, a.FollowUpCount)
	}

	f.clock.Advance(7 * 24 * time.Hour)
	_, err = e.RecordFollowUpSent(ctx, appID)
	assert.ErrorIs(t, err, domain.ErrFollowUpCapReached)

	_, err = e.RecordFollowUpSent(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordFollowUpSent_Responded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appID := f.apply(t, "hr@acme.com", 3)
	e := f.engine(Options{})

	out, err := e.RecordResponse(ctx, appID, "Re: Application", "Unfortunately the position is filled")
	require.NoError(t, err)
	assert.True(t, out.Transitioned)

	rs, err := f.store.ListResponses(ctx, appID)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, domain.SentimentNegative, rs[0].Sentiment)

	f.clock.Advance(30 * 24 * time.Hour)
	_, err = e.RecordFollowUpSent(ctx, appID)
	assert.ErrorIs(t, err, domain.ErrAlreadyResponded)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.apply(t, "a@x.io", 1)
	f.apply(t, "b@x.io", 2)
	e := f.engine(Options{})

	f.clock.Advance(2 * 24 * time.Hour)
	_, err := e.RecordResponse(ctx, a1, "Interview invite", "We are pleased to invite you")
	require.NoError(t, err)
	f.clock.Advance(5 * 24 * time.Hour)

	r, err := e.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Statistics.Total)
	assert.Equal(t, 1, r.Statistics.Positive)
	assert.Equal(t, 50.0, r.Statistics.ResponseRate)
	assert.Equal(t, 1, r.Statistics.FollowUpsNeeded)
	assert.Equal(t, 2, r.ResponseTimes.MinDays)
	require.Len(t, r.RecentPositive, 1)
	assert.Equal(t, "Interview invite", r.RecentPositive[0].Subject)
	require.Len(t, r.Timeline, 1)
	assert.Equal(t, 2, r.Timeline[0].Count)
	require.Len(t, r.FollowUpsQueued, 1)
	assert.Equal(t, 7, r.FollowUpsQueued[0].DaysAgo)

	q, err := e.FollowUpQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, q, 1)
}

func TestUnavailableTagsTimeouts(t *testing.T) {
	err := unavailable(fmt.Errorf("fetch: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.NotErrorIs(t, unavailable(errors.New("x")), domain.ErrUnavailable)
}

func TestReconfigure_NextCycleUsesNewSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appID := f.apply(t, "hr@acme.com", 2)

	e := New(f.store, Options{Clock: f.clock})
	f.box.Deliver(domain.InboundMessage{ID: "m1", From: "hr@acme.com", Body: "We regret to say no"})

	rep, err := e.RunCycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Fetched, "no mailbox configured yet")

	e.Reconfigure(Settings{Mailbox: f.box, Classifier: fixedClassifier(domain.SentimentPositive)})
	assert.Equal(t, 50, e.Settings().BatchSize)

	rep, err = e.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Recorded)

	rs, err := f.store.ListResponses(ctx, appID)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, domain.SentimentPositive, rs[0].Sentiment)
}

type fixedClassifier domain.Sentiment

func (c fixedClassifier) Classify(context.Context, string) (domain.Sentiment, error) {
	return domain.Sentiment(c), nil
}
