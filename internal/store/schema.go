package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// Migrate creates the schema. It is idempotent on both engines; on SQLite the
// applied version is also recorded in PRAGMA user_version.
func (d *DB) Migrate(ctx context.Context) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if d.driver == DriverSQLite {
			var v int
			if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
				return classify("read schema version", err)
			}
			if v >= schemaVersion {
				return nil
			}
		}

		for _, stmt := range d.schema() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return classify("migrate", err)
			}
		}

		if d.driver == DriverSQLite {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
				return classify("mark schema version", err)
			}
		}
		return nil
	})
}

func (d *DB) schema() []string {
	id, ref := "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER"
	if d.driver == DriverPostgres {
		id, ref = "BIGSERIAL PRIMARY KEY", "BIGINT"
	}

	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS companies (
  id %s,
  company_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  contact_name TEXT,
  website TEXT,
  field TEXT,
  priority INTEGER NOT NULL DEFAULT 3 CHECK (priority >= 1 AND priority <= 5),
  notes TEXT,
  created_at TEXT NOT NULL
);`, id),

		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS applications (
  id %s,
  company_id %s NOT NULL REFERENCES companies(id),
  subject TEXT,
  email_body TEXT,
  sent_at TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'Sent',
  response_received BOOLEAN NOT NULL DEFAULT FALSE,
  response_date TEXT,
  follow_up_count INTEGER NOT NULL DEFAULT 0 CHECK (follow_up_count >= 0),
  next_follow_up_date TEXT,
  ai_reviewed BOOLEAN NOT NULL DEFAULT FALSE,
  CHECK (response_received = FALSE OR response_date IS NOT NULL)
);`, id, ref),

		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS responses (
  id %s,
  application_id %s NOT NULL REFERENCES applications(id),
  message_id TEXT UNIQUE,
  received_at TEXT NOT NULL,
  subject TEXT,
  body TEXT,
  sentiment TEXT
);`, id, ref),

		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS job_posts (
  id %s,
  title TEXT,
  company_name TEXT,
  location TEXT,
  description TEXT,
  url TEXT NOT NULL UNIQUE,
  posted_date TEXT,
  source TEXT,
  scraped_at TEXT NOT NULL,
  applied BOOLEAN NOT NULL DEFAULT FALSE
);`, id),

		`CREATE INDEX IF NOT EXISTS idx_applications_company_id ON applications(company_id);`,
		`CREATE INDEX IF NOT EXISTS idx_applications_response_received ON applications(response_received);`,
		`CREATE INDEX IF NOT EXISTS idx_applications_next_follow_up ON applications(next_follow_up_date);`,
		`CREATE INDEX IF NOT EXISTS idx_responses_application_id ON responses(application_id);`,
		`CREATE INDEX IF NOT EXISTS idx_job_posts_scraped_at ON job_posts(scraped_at);`,
	}
}
