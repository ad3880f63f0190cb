package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// GetCompanyDomain returns the homepage domain found by an earlier lookup, or
// "" when there is none. A known company whose homepage was entered by hand
// counts as a hit.
func (d *DB) GetCompanyDomain(ctx context.Context, company string) (string, error) {
	key := companyKey(company)
	if key == "" {
		return "", nil
	}

	var domain string
	err := d.q.QueryRowContext(ctx, `
SELECT domain FROM company_domains WHERE company = ?
UNION ALL
SELECT homepage FROM companies WHERE lower(name) = ? AND homepage != ''
LIMIT 1;`, key, key).Scan(&domain)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", err
	}
	return hostOnly(domain), nil
}

// UpsertCompanyDomain caches a looked-up domain and fills in the company's
// homepage when it has none yet.
func (d *DB) UpsertCompanyDomain(ctx context.Context, company, domain string) error {
	key := companyKey(company)
	domain = hostOnly(domain)
	if key == "" || domain == "" {
		return nil
	}

	return d.WithTx(ctx, func(tx *DB) error {
		if _, err := tx.q.ExecContext(ctx, `
INSERT INTO company_domains(company, domain, fetched_at)
VALUES(?,?,?)
ON CONFLICT(company) DO UPDATE SET
  domain = excluded.domain,
  fetched_at = excluded.fetched_at;`,
			key, domain, formatTime(time.Now())); err != nil {
			return err
		}
		_, err := tx.q.ExecContext(ctx,
			`UPDATE companies SET homepage = ? WHERE lower(name) = ? AND homepage = '';`,
			"https://"+domain, key)
		return err
	})
}

func companyKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// hostOnly reduces "https://Acme.com/about" to "acme.com".
func hostOnly(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	s, _, _ = strings.Cut(s, "/")
	return s
}
