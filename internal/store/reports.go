package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"internflow-engine/internal/domain"
)

// Statistics aggregates the whole application history. FollowUpsNeeded uses
// the same predicate as CompaniesNeedingFollowUp at asOf.
func (s *Store) Statistics(ctx context.Context, asOf time.Time) (domain.Statistics, error) {
	var st domain.Statistics

	err := s.db.Pool.QueryRowContext(ctx, s.db.rebind(`
SELECT
  (SELECT COUNT(*) FROM applications),
  (SELECT COUNT(*) FROM applications WHERE response_received = TRUE),
  (SELECT COUNT(*) FROM responses WHERE sentiment = ?),
  (SELECT COUNT(DISTINCT company_id) FROM applications),
  (SELECT COUNT(*) FROM applications
     WHERE response_received = FALSE
       AND next_follow_up_date IS NOT NULL
       AND next_follow_up_date <= ?
       AND follow_up_count < ?);`),
		string(domain.SentimentPositive), formatTS(asOf), s.Policy().MaxFollowUps,
	).Scan(&st.Total, &st.Responded, &st.Positive, &st.CompaniesContacted, &st.FollowUpsNeeded)
	if err != nil {
		return st, classify("statistics", err)
	}

	st.Pending = st.Total - st.Responded
	if st.Total > 0 {
		st.ResponseRate = math.Round(float64(st.Responded)/float64(st.Total)*100*100) / 100
	}
	return st, nil
}

// ApplicationTimeline counts applications per UTC day over the last days
// days, newest day first. Days without applications are omitted.
func (s *Store) ApplicationTimeline(ctx context.Context, asOf time.Time, days int) ([]domain.TimelinePoint, error) {
	if days <= 0 {
		days = 30
	}
	since := asOf.AddDate(0, 0, -days)

	rows, err := s.db.Pool.QueryContext(ctx, s.db.rebind(`
SELECT substr(sent_at, 1, 10) AS day, COUNT(*)
FROM applications
WHERE sent_at >= ?
GROUP BY substr(sent_at, 1, 10)
ORDER BY day DESC;`), formatTS(since))
	if err != nil {
		return nil, classify("timeline", err)
	}
	defer rows.Close()

	out := []domain.TimelinePoint{}
	for rows.Next() {
		var p domain.TimelinePoint
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, classify("scan timeline", err)
		}
		out = append(out, p)
	}
	return out, classify("timeline", rows.Err())
}

// ResponseTimeStats reports whole days between sending and the first reply.
// Day differences are computed here rather than in SQL so both engines
// agree.
func (s *Store) ResponseTimeStats(ctx context.Context) (domain.ResponseTimeStats, error) {
	var st domain.ResponseTimeStats

	rows, err := s.db.Pool.QueryContext(ctx, `
SELECT sent_at, response_date
FROM applications
WHERE response_received = TRUE AND response_date IS NOT NULL;`)
	if err != nil {
		return st, classify("response times", err)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var sentRaw, respRaw string
		if err := rows.Scan(&sentRaw, &respRaw); err != nil {
			return st, classify("scan response time", err)
		}
		sent, err := parseTS(sentRaw)
		if err != nil {
			return st, fmt.Errorf("sent_at: %w", err)
		}
		resp, err := parseTS(respRaw)
		if err != nil {
			return st, fmt.Errorf("response_date: %w", err)
		}

		d := int(resp.Sub(sent).Hours() / 24)
		if st.Count == 0 || d < st.MinDays {
			st.MinDays = d
		}
		if st.Count == 0 || d > st.MaxDays {
			st.MaxDays = d
		}
		total += d
		st.Count++
	}
	if err := rows.Err(); err != nil {
		return st, classify("response times", err)
	}
	if st.Count > 0 {
		st.AvgDays = math.Round(float64(total)/float64(st.Count)*10) / 10
	}
	return st, nil
}
