package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"internflow-engine/internal/domain"
)

// MaxResponseBody is the number of characters of a reply body that is kept.
const MaxResponseBody = 500

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// MarkResponseReceived stores a reply and, for the first reply only, flips the
// application to Responded. A reply whose message ID is already stored is
// reported as a duplicate and nothing is written.
func (s *Store) MarkResponseReceived(ctx context.Context, applicationID int64, in domain.ResponseInput) (domain.ResponseOutcome, error) {
	now := s.clock.Now()
	sentiment := domain.ParseSentiment(string(in.Sentiment))

	var out domain.ResponseOutcome
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.db.rebind(`SELECT 1 FROM applications WHERE id = ?;`), applicationID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("application %d: %w", applicationID, domain.ErrNotFound)
		}
		if err != nil {
			return classify("lookup application", err)
		}

		err = tx.QueryRowContext(ctx, s.db.rebind(`
INSERT INTO responses (application_id, message_id, received_at, subject, body, sentiment)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (message_id) DO NOTHING
RETURNING id;`),
			applicationID, nullString(in.MessageID), formatTS(now),
			nullString(in.Subject), nullString(clip(in.Body, MaxResponseBody)), string(sentiment),
		).Scan(&out.ResponseID)
		if errors.Is(err, sql.ErrNoRows) {
			out.Duplicate = true
			return nil
		}
		if err != nil {
			return classify("insert response", err)
		}

		res, err := tx.ExecContext(ctx, s.db.rebind(`
UPDATE applications
SET response_received = TRUE,
    response_date = ?,
    status = ?,
    next_follow_up_date = NULL
WHERE id = ? AND response_received = FALSE;`),
			formatTS(now), string(domain.StatusResponded), applicationID,
		)
		if err != nil {
			return classify("mark responded", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return classify("mark responded", err)
		}
		out.Transitioned = n == 1
		return nil
	})
	if err != nil {
		return domain.ResponseOutcome{}, err
	}
	return out, nil
}

// ListResponses returns the replies recorded for one application, oldest
// first.
func (s *Store) ListResponses(ctx context.Context, applicationID int64) ([]domain.Response, error) {
	rows, err := s.db.Pool.QueryContext(ctx, s.db.rebind(`
SELECT id, application_id, message_id, received_at, subject, body, sentiment
FROM responses
WHERE application_id = ?
ORDER BY received_at ASC, id ASC;`), applicationID)
	if err != nil {
		return nil, classify("list responses", err)
	}
	defer rows.Close()

	var out []domain.Response
	for rows.Next() {
		var (
			r                                  domain.Response
			msgID, subject, body, sentimentCol sql.NullString
			receivedAt                         string
		)
		if err := rows.Scan(&r.ID, &r.ApplicationID, &msgID, &receivedAt, &subject, &body, &sentimentCol); err != nil {
			return nil, classify("scan response", err)
		}
		r.MessageID, r.Subject, r.Body = msgID.String, subject.String, body.String
		r.Sentiment = domain.ParseSentiment(sentimentCol.String)
		if r.ReceivedAt, err = parseTS(receivedAt); err != nil {
			return nil, fmt.Errorf("response %d received_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, classify("list responses", rows.Err())
}

// RecentPositiveResponses returns the newest positive replies with the
// company they came from.
func (s *Store) RecentPositiveResponses(ctx context.Context, limit int) ([]domain.PositiveResponse, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.Pool.QueryContext(ctx, s.db.rebind(`
SELECT c.company_name, r.subject, r.received_at
FROM responses r
JOIN applications a ON a.id = r.application_id
JOIN companies c ON c.id = a.company_id
WHERE r.sentiment = ?
ORDER BY r.received_at DESC, r.id DESC
LIMIT ?;`), string(domain.SentimentPositive), limit)
	if err != nil {
		return nil, classify("recent positive", err)
	}
	defer rows.Close()

	out := []domain.PositiveResponse{}
	for rows.Next() {
		var (
			p          domain.PositiveResponse
			subject    sql.NullString
			receivedAt string
		)
		if err := rows.Scan(&p.CompanyName, &subject, &receivedAt); err != nil {
			return nil, classify("scan positive", err)
		}
		p.Subject = subject.String
		if p.ReceivedAt, err = parseTS(receivedAt); err != nil {
			return nil, fmt.Errorf("positive response received_at: %w", err)
		}
		out = append(out, p)
	}
	return out, classify("recent positive", rows.Err())
}
