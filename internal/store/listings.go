package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobglob-engine/internal/domain"
)

type ListingFilter struct {
	CompanyID int64
	Alive     *bool
	Limit     int
}

const listingColumns = `l.id, l.company_id, c.name, l.position, l.location, l.url, l.alive, l.created_at, l.removed_at`

// CompanyListings returns every listing ever recorded for a company, dead or alive.
func (d *DB) CompanyListings(ctx context.Context, companyID int64) ([]domain.Listing, error) {
	return d.queryListings(ctx, `WHERE l.company_id = ? ORDER BY l.id`, companyID)
}

func (d *DB) AliveListings(ctx context.Context) ([]domain.Listing, error) {
	return d.queryListings(ctx, `WHERE l.alive = 1 ORDER BY l.id`)
}

func (d *DB) ListListings(ctx context.Context, f ListingFilter) ([]domain.Listing, error) {
	var where []string
	var args []any
	if f.CompanyID > 0 {
		where = append(where, "l.company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.Alive != nil {
		where = append(where, "l.alive = ?")
		args = append(args, boolInt(*f.Alive))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	if f.Limit <= 0 || f.Limit > 50000 {
		f.Limit = 50000
	}
	args = append(args, f.Limit)
	return d.queryListings(ctx, clause+` ORDER BY l.created_at DESC, l.id DESC LIMIT ?`, args...)
}

// InsertListing stores l as alive and sets l.ID. It returns
// domain.ErrDuplicateURL when the company already has the URL.
func (d *DB) InsertListing(ctx context.Context, l *domain.Listing) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.URL = domain.NormalizeURL(l.URL)
	l.Alive = true
	l.RemovedAt = nil

	res, err := d.q.ExecContext(ctx, `
INSERT INTO listings(company_id, position, location, url, url_key, alive, created_at)
VALUES(?,?,?,?,?,1,?)
ON CONFLICT(company_id, url_key) DO NOTHING;`,
		l.CompanyID, l.Position, l.Location, l.URL, domain.URLKey(l.URL), formatTime(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDuplicateURL
	}
	l.ID, _ = res.LastInsertId()
	return nil
}

func (d *DB) MarkDead(ctx context.Context, listingID int64, at time.Time) error {
	res, err := d.q.ExecContext(ctx,
		`UPDATE listings SET alive = 0, removed_at = ? WHERE id = ?;`,
		formatTime(at), listingID)
	if err != nil {
		return fmt.Errorf("mark dead: %w", err)
	}
	return requireRow(res)
}

func (d *DB) Resurrect(ctx context.Context, listingID int64) error {
	res, err := d.q.ExecContext(ctx,
		`UPDATE listings SET alive = 1, removed_at = NULL WHERE id = ?;`, listingID)
	if err != nil {
		return fmt.Errorf("resurrect: %w", err)
	}
	return requireRow(res)
}

func (d *DB) DeleteListing(ctx context.Context, listingID int64) error {
	res, err := d.q.ExecContext(ctx, `DELETE FROM listings WHERE id = ?;`, listingID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (d *DB) queryListings(ctx context.Context, tail string, args ...any) ([]domain.Listing, error) {
	rows, err := d.q.QueryContext(ctx, `
SELECT `+listingColumns+`
FROM listings l
JOIN companies c ON c.id = l.company_id
`+tail+`;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var alive int
		var created string
		var removed sql.NullString
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.Company, &l.Position, &l.Location, &l.URL, &alive, &created, &removed); err != nil {
			return nil, err
		}
		l.Alive = alive == 1
		l.CreatedAt = parseTime(created)
		l.RemovedAt = parseNullTime(removed)
		out = append(out, l)
	}
	return out, rows.Err()
}
