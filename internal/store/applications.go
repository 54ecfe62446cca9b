package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"internflow-engine/internal/domain"
)

// LogApplication records an application sent now and schedules its first
// follow-up one interval later.
func (s *Store) LogApplication(ctx context.Context, a domain.NewApplication) (int64, error) {
	now := s.clock.Now()
	next := s.Policy().NextDue(now, 0)

	var id int64
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.db.rebind(`SELECT 1 FROM companies WHERE id = ?;`), a.CompanyID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("company %d: %w", a.CompanyID, domain.ErrNotFound)
		}
		if err != nil {
			return classify("lookup company", err)
		}

		err = tx.QueryRowContext(ctx, s.db.rebind(`
INSERT INTO applications (company_id, subject, email_body, sent_at, status, follow_up_count, next_follow_up_date, ai_reviewed)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)
RETURNING id;`),
			a.CompanyID, nullString(a.Subject), nullString(a.Body), formatTS(now),
			string(domain.StatusSent), nullTS(next), a.AIReviewed,
		).Scan(&id)
		return classify("insert application", err)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

const applicationColumns = `id, company_id, subject, email_body, sent_at, status, response_received,
  response_date, follow_up_count, next_follow_up_date, ai_reviewed`

func scanApplication(sc interface{ Scan(...any) error }) (domain.Application, error) {
	var (
		a                      domain.Application
		subject, body          sql.NullString
		sentAt, status         string
		responseDate, nextDate sql.NullString
	)
	if err := sc.Scan(&a.ID, &a.CompanyID, &subject, &body, &sentAt, &status, &a.ResponseReceived,
		&responseDate, &a.FollowUpCount, &nextDate, &a.AIReviewed); err != nil {
		return a, err
	}
	a.Subject, a.Body, a.Status = subject.String, body.String, domain.Status(status)

	var err error
	if a.SentAt, err = parseTS(sentAt); err != nil {
		return a, fmt.Errorf("application %d sent_at: %w", a.ID, err)
	}
	if a.ResponseDate, err = parseNullTS(responseDate); err != nil {
		return a, fmt.Errorf("application %d response_date: %w", a.ID, err)
	}
	if a.NextFollowUpDate, err = parseNullTS(nextDate); err != nil {
		return a, fmt.Errorf("application %d next_follow_up_date: %w", a.ID, err)
	}
	return a, nil
}

func (s *Store) GetApplication(ctx context.Context, id int64) (domain.Application, error) {
	return s.getApplication(ctx, s.db.Pool, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getApplication(ctx context.Context, q queryRower, id int64) (domain.Application, error) {
	row := q.QueryRowContext(ctx, s.db.rebind(`SELECT `+applicationColumns+` FROM applications WHERE id = ?;`), id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("application %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return a, classify("get application", err)
	}
	return a, nil
}

// ListApplications returns the newest applications first.
func (s *Store) ListApplications(ctx context.Context, limit int) ([]domain.Application, error) {
	if limit <= 0 || limit > 5000 {
		limit = 500
	}
	rows, err := s.db.Pool.QueryContext(ctx, s.db.rebind(`
SELECT `+applicationColumns+`
FROM applications
ORDER BY sent_at DESC, id DESC
LIMIT ?;`), limit)
	if err != nil {
		return nil, classify("list applications", err)
	}
	defer rows.Close()

	var out []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, classify("scan application", err)
		}
		out = append(out, a)
	}
	return out, classify("list applications", rows.Err())
}

// OutstandingApplications is the reconciliation snapshot: every application
// still waiting for a reply, with its company address.
func (s *Store) OutstandingApplications(ctx context.Context) ([]domain.OutstandingApplication, error) {
	rows, err := s.db.Pool.QueryContext(ctx, `
SELECT a.id, c.id, c.email, a.sent_at
FROM applications a
JOIN companies c ON c.id = a.company_id
WHERE a.response_received = FALSE;`)
	if err != nil {
		return nil, classify("outstanding applications", err)
	}
	defer rows.Close()

	var out []domain.OutstandingApplication
	for rows.Next() {
		var (
			o      domain.OutstandingApplication
			sentAt string
		)
		if err := rows.Scan(&o.ApplicationID, &o.CompanyID, &o.CompanyEmail, &sentAt); err != nil {
			return nil, classify("scan outstanding", err)
		}
		if o.SentAt, err = parseTS(sentAt); err != nil {
			return nil, fmt.Errorf("application %d sent_at: %w", o.ApplicationID, err)
		}
		out = append(out, o)
	}
	return out, classify("outstanding applications", rows.Err())
}

// AdvanceFollowUp records one more follow-up. It is a no-op returning an
// error wrapping domain.ErrConstraint when the application is capped or
// already answered; callers are expected to check eligibility first.
func (s *Store) AdvanceFollowUp(ctx context.Context, id int64) (domain.Application, error) {
	now := s.clock.Now()
	policy := s.Policy()
	limit := policy.MaxFollowUps

	var out domain.Application
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.getApplication(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.ResponseReceived {
			return fmt.Errorf("application %d: %w", id, domain.ErrAlreadyResponded)
		}
		if cur.FollowUpCount >= limit {
			return fmt.Errorf("application %d: %w", id, domain.ErrFollowUpCapReached)
		}

		next := policy.NextDue(now, cur.FollowUpCount+1)
		// guarded again in SQL so a concurrent writer cannot push past the cap
		res, err := tx.ExecContext(ctx, s.db.rebind(`
UPDATE applications
SET follow_up_count = follow_up_count + 1,
    next_follow_up_date = ?,
    status = ?
WHERE id = ? AND response_received = FALSE AND follow_up_count = ? AND follow_up_count < ?;`),
			nullTS(next), string(domain.StatusFollowedUp), id, cur.FollowUpCount, limit,
		)
		if err != nil {
			return classify("advance follow-up", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("application %d changed concurrently: %w", id, domain.ErrConstraint)
		}

		out, err = s.getApplication(ctx, tx, id)
		return err
	})
	return out, err
}

// CompaniesNeedingFollowUp lists applications due for a follow-up at asOf:
// unanswered, due date reached, below the cap. Most urgent priority comes
// first, then the longest-waiting application.
func (s *Store) CompaniesNeedingFollowUp(ctx context.Context, asOf time.Time) ([]domain.FollowUpCandidate, error) {
	rows, err := s.db.Pool.QueryContext(ctx, s.db.rebind(`
SELECT a.id, c.id, c.company_name, c.email, c.contact_name, c.priority,
       a.subject, a.sent_at, a.follow_up_count, a.next_follow_up_date
FROM applications a
JOIN companies c ON c.id = a.company_id
WHERE a.response_received = FALSE
  AND a.next_follow_up_date IS NOT NULL
  AND a.next_follow_up_date <= ?
  AND a.follow_up_count < ?
ORDER BY c.priority ASC, a.sent_at ASC, a.id ASC;`),
		formatTS(asOf), s.Policy().MaxFollowUps,
	)
	if err != nil {
		return nil, classify("follow-up queue", err)
	}
	defer rows.Close()

	var out []domain.FollowUpCandidate
	for rows.Next() {
		var (
			fc               domain.FollowUpCandidate
			contact, subject sql.NullString
			priority         int
			sentAt           string
			nextDate         sql.NullString
		)
		if err := rows.Scan(&fc.ApplicationID, &fc.CompanyID, &fc.CompanyName, &fc.Email, &contact, &priority,
			&subject, &sentAt, &fc.FollowUpCount, &nextDate); err != nil {
			return nil, classify("scan follow-up", err)
		}
		fc.ContactName, fc.Subject = contact.String, subject.String
		if fc.ContactName == "" {
			fc.ContactName = "Hiring Manager"
		}
		fc.Priority = domain.Priority(priority)
		if fc.SentAt, err = parseTS(sentAt); err != nil {
			return nil, fmt.Errorf("application %d sent_at: %w", fc.ApplicationID, err)
		}
		if fc.NextFollowUpDate, err = parseNullTS(nextDate); err != nil {
			return nil, fmt.Errorf("application %d next_follow_up_date: %w", fc.ApplicationID, err)
		}
		fc.DaysAgo = int(asOf.Sub(fc.SentAt).Hours() / 24)
		out = append(out, fc)
	}
	return out, classify("follow-up queue", rows.Err())
}
