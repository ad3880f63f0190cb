package store

import (
	"context"
	"fmt"
	"time"

	"jobglob-engine/internal/domain"
)

func (d *DB) AddApplication(ctx context.Context, listingID int64, at time.Time) (domain.Application, error) {
	res, err := d.q.ExecContext(ctx,
		`INSERT INTO applications(listing_id, applied_at) VALUES(?,?);`,
		listingID, formatTime(at))
	if err != nil {
		return domain.Application{}, fmt.Errorf("insert application: %w", err)
	}
	id, _ := res.LastInsertId()
	return domain.Application{ID: id, ListingID: listingID, AppliedAt: at.UTC().Truncate(time.Second)}, nil
}

// RejectApplication is a no-op for applications that are already rejected.
func (d *DB) RejectApplication(ctx context.Context, applicationID int64, at time.Time) error {
	var one int
	if err := d.q.QueryRowContext(ctx, `SELECT 1 FROM applications WHERE id = ?;`, applicationID).Scan(&one); err != nil {
		return ErrNotFound
	}
	_, err := d.q.ExecContext(ctx, `
INSERT INTO rejections(application_id, rejected_at)
VALUES(?,?)
ON CONFLICT(application_id) DO NOTHING;`, applicationID, formatTime(at))
	return err
}

// RejectStaleApplications rejects every open application submitted before cutoff.
func (d *DB) RejectStaleApplications(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := d.q.ExecContext(ctx, `
INSERT INTO rejections(application_id, rejected_at)
SELECT a.id, ?
FROM applications a
LEFT JOIN rejections r ON r.application_id = a.id
WHERE r.id IS NULL AND a.applied_at < ?;`, formatTime(now), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("reject stale applications: %w", err)
	}
	return res.RowsAffected()
}

func (d *DB) ListApplications(ctx context.Context) ([]domain.Application, error) {
	rows, err := d.q.QueryContext(ctx, `
SELECT a.id, a.listing_id, a.applied_at, r.id IS NOT NULL
FROM applications a
LEFT JOIN rejections r ON r.application_id = a.id
ORDER BY a.applied_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Application
	for rows.Next() {
		var a domain.Application
		var applied string
		if err := rows.Scan(&a.ID, &a.ListingID, &applied, &a.Rejected); err != nil {
			return nil, err
		}
		a.AppliedAt = parseTime(applied)
		out = append(out, a)
	}
	return out, rows.Err()
}
