package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"internflow-engine/internal/domain"
)

// AddJobPost stores a scraped posting. A URL that is already stored is not
// an error: added is false and id is zero.
func (s *Store) AddJobPost(ctx context.Context, j domain.NewJobPost) (id int64, added bool, err error) {
	url := strings.TrimSpace(j.URL)
	if url == "" {
		return 0, false, fmt.Errorf("%w: job post url is required", domain.ErrConstraint)
	}

	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		e := tx.QueryRowContext(ctx, s.db.rebind(`
INSERT INTO job_posts (title, company_name, location, description, url, posted_date, source, scraped_at, applied)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE)
ON CONFLICT (url) DO NOTHING
RETURNING id;`),
			nullString(j.Title), nullString(j.CompanyName), nullString(j.Location), nullString(j.Description),
			url, nullTS(j.PostedDate), nullString(j.Source), formatTS(s.clock.Now()),
		).Scan(&id)
		if errors.Is(e, sql.ErrNoRows) {
			return nil
		}
		if e != nil {
			return classify("insert job post", e)
		}
		added = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, added, nil
}

const jobPostColumns = `id, title, company_name, location, description, url, posted_date, source, scraped_at, applied`

func scanJobPost(sc interface{ Scan(...any) error }) (domain.JobPost, error) {
	var (
		j                                           domain.JobPost
		title, company, location, desc, src, posted sql.NullString
		scrapedAt                                   string
	)
	if err := sc.Scan(&j.ID, &title, &company, &location, &desc, &j.URL, &posted, &src, &scrapedAt, &j.Applied); err != nil {
		return j, err
	}
	j.Title, j.CompanyName, j.Location, j.Description, j.Source =
		title.String, company.String, location.String, desc.String, src.String

	var err error
	if j.PostedDate, err = parseNullTS(posted); err != nil {
		return j, fmt.Errorf("job post %d posted_date: %w", j.ID, err)
	}
	if j.ScrapedAt, err = parseTS(scrapedAt); err != nil {
		return j, fmt.Errorf("job post %d scraped_at: %w", j.ID, err)
	}
	return j, nil
}

// UnappliedJobPosts returns postings not yet marked applied, newest scrape
// first.
func (s *Store) UnappliedJobPosts(ctx context.Context, limit int) ([]domain.JobPost, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	rows, err := s.db.Pool.QueryContext(ctx, s.db.rebind(`
SELECT `+jobPostColumns+`
FROM job_posts
WHERE applied = FALSE
ORDER BY scraped_at DESC, id DESC
LIMIT ?;`), limit)
	if err != nil {
		return nil, classify("unapplied job posts", err)
	}
	defer rows.Close()

	out := []domain.JobPost{}
	for rows.Next() {
		j, err := scanJobPost(rows)
		if err != nil {
			return nil, classify("scan job post", err)
		}
		out = append(out, j)
	}
	return out, classify("unapplied job posts", rows.Err())
}

func (s *Store) MarkJobApplied(ctx context.Context, id int64) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.db.rebind(`UPDATE job_posts SET applied = TRUE WHERE id = ?;`), id)
		if err != nil {
			return classify("mark job applied", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("job post %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}
