package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"internflow-engine/internal/domain"
)

// AddCompany inserts a company keyed by its normalized email. An existing
// email yields domain.ErrDuplicate and writes nothing.
func (s *Store) AddCompany(ctx context.Context, c domain.NewCompany) (int64, error) {
	email := domain.NormalizeEmail(c.Email)
	name := strings.TrimSpace(c.Name)
	if email == "" || name == "" {
		return 0, fmt.Errorf("%w: company name and email are required", domain.ErrConstraint)
	}
	if c.Priority == 0 {
		c.Priority = domain.PriorityDefault
	}
	if !c.Priority.Valid() {
		return 0, domain.ErrInvalidPriority
	}

	var id int64
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, s.db.rebind(`
INSERT INTO companies (company_name, email, contact_name, website, field, priority, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email) DO NOTHING
RETURNING id;`),
			name, email, nullString(c.ContactName), nullString(c.Website), nullString(c.Field),
			int(c.Priority), nullString(c.Notes), formatTS(s.clock.Now()),
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("company %s: %w", email, domain.ErrDuplicate)
		}
		return classify("insert company", err)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

const companyColumns = `id, company_name, email, contact_name, website, field, priority, notes, created_at`

func scanCompany(sc interface{ Scan(...any) error }) (domain.Company, error) {
	var (
		c                              domain.Company
		contact, website, field, notes sql.NullString
		priority                       int
		createdAt                      string
	)
	if err := sc.Scan(&c.ID, &c.Name, &c.Email, &contact, &website, &field, &priority, &notes, &createdAt); err != nil {
		return c, err
	}
	c.ContactName, c.Website, c.Field, c.Notes = contact.String, website.String, field.String, notes.String
	c.Priority = domain.Priority(priority)
	t, err := parseTS(createdAt)
	if err != nil {
		return c, fmt.Errorf("company %d created_at: %w", c.ID, err)
	}
	c.CreatedAt = t
	return c, nil
}

func (s *Store) GetCompany(ctx context.Context, id int64) (domain.Company, error) {
	row := s.db.Pool.QueryRowContext(ctx, s.db.rebind(`SELECT `+companyColumns+` FROM companies WHERE id = ?;`), id)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("company %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return c, classify("get company", err)
	}
	return c, nil
}

// ListCompanies returns every company, most urgent first and newest first
// within a priority.
func (s *Store) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.db.Pool.QueryContext(ctx, `
SELECT `+companyColumns+`
FROM companies
ORDER BY priority ASC, created_at DESC, id DESC;`)
	if err != nil {
		return nil, classify("list companies", err)
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, classify("scan company", err)
		}
		out = append(out, c)
	}
	return out, classify("list companies", rows.Err())
}
