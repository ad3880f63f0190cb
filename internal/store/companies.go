package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobglob-engine/internal/domain"
)

// AddCompany inserts a company or returns the existing one with the same name.
func (d *DB) AddCompany(ctx context.Context, name, homepage string) (domain.Company, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return domain.Company{}, errors.New("company name is required")
	}

	_, err := d.q.ExecContext(ctx, `
INSERT INTO companies(name, homepage, created_at)
VALUES(?,?,?)
ON CONFLICT(name) DO NOTHING;`,
		name, strings.TrimSpace(homepage), formatTime(time.Now()))
	if err != nil {
		return domain.Company{}, fmt.Errorf("insert company: %w", err)
	}
	return d.CompanyByName(ctx, name)
}

func (d *DB) CompanyByName(ctx context.Context, name string) (domain.Company, error) {
	return d.scanCompany(d.q.QueryRowContext(ctx,
		`SELECT id, name, homepage, created_at FROM companies WHERE name = ? COLLATE NOCASE;`,
		strings.Join(strings.Fields(name), " ")))
}

func (d *DB) CompanyByID(ctx context.Context, id int64) (domain.Company, error) {
	return d.scanCompany(d.q.QueryRowContext(ctx,
		`SELECT id, name, homepage, created_at FROM companies WHERE id = ?;`, id))
}

func (d *DB) scanCompany(row *sql.Row) (domain.Company, error) {
	var c domain.Company
	var created string
	err := row.Scan(&c.ID, &c.Name, &c.Homepage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Company{}, ErrNotFound
	}
	if err != nil {
		return domain.Company{}, err
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

func (d *DB) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := d.q.QueryContext(ctx, `
SELECT id, name, homepage, created_at
FROM companies
ORDER BY name COLLATE NOCASE;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &c.Homepage, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) SetHomepage(ctx context.Context, companyID int64, homepage string) error {
	res, err := d.q.ExecContext(ctx, `UPDATE companies SET homepage = ? WHERE id = ?;`,
		strings.TrimSpace(homepage), companyID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
