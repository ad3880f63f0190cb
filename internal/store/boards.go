package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobglob-engine/internal/domain"
)

// AddBoard records a board for a company and makes it the company's only
// active board. Re-adding a known URL reactivates it.
func (d *DB) AddBoard(ctx context.Context, companyID int64, url, vendor string) (domain.Board, error) {
	url = domain.NormalizeURL(url)
	if url == "" {
		return domain.Board{}, errors.New("board url is required")
	}

	var out domain.Board
	err := d.WithTx(ctx, func(tx *DB) error {
		_, err := tx.q.ExecContext(ctx, `
INSERT INTO boards(company_id, url, vendor, active, created_at)
VALUES(?,?,?,1,?)
ON CONFLICT(url) DO UPDATE SET
  active = 1,
  vendor = CASE WHEN excluded.vendor != '' THEN excluded.vendor ELSE boards.vendor END;`,
			companyID, url, vendor, formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("insert board: %w", err)
		}

		rows, err := tx.queryBoards(ctx, `WHERE b.url = ? COLLATE NOCASE`, url)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNotFound
		}
		out = rows[0]
		return tx.deactivateSiblings(ctx, out.CompanyID, out.ID)
	})
	return out, err
}

// SaveDiscovered records a company with the boards found for it in one
// transaction. Each board needs URL and Vendor; the stored boards are returned.
// The first board is left as the company's active one.
func (d *DB) SaveDiscovered(ctx context.Context, company, homepage string, boards []domain.Board) ([]domain.Board, error) {
	var out []domain.Board
	err := d.WithTx(ctx, func(tx *DB) error {
		c, err := tx.AddCompany(ctx, company, homepage)
		if err != nil {
			return err
		}
		if c.Homepage == "" && homepage != "" {
			if err := tx.SetHomepage(ctx, c.ID, homepage); err != nil {
				return err
			}
		}
		for _, b := range boards {
			saved, err := tx.AddBoard(ctx, c.ID, b.URL, b.Vendor)
			if err != nil {
				return err
			}
			out = append(out, saved)
		}
		if len(out) == 0 {
			return nil
		}
		if err := tx.SetBoardActive(ctx, out[0].ID, true); err != nil {
			return err
		}
		for i := range out {
			out[i].Active = i == 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) ActiveBoards(ctx context.Context) ([]domain.Board, error) {
	return d.queryBoards(ctx, `WHERE b.active = 1`)
}

func (d *DB) ListBoards(ctx context.Context) ([]domain.Board, error) {
	return d.queryBoards(ctx, "")
}

// SetBoardActive toggles a board. Activating one deactivates the company's
// other boards, since reconciliation compares a snapshot against every listing
// the company has.
func (d *DB) SetBoardActive(ctx context.Context, boardID int64, active bool) error {
	return d.WithTx(ctx, func(tx *DB) error {
		res, err := tx.q.ExecContext(ctx, `UPDATE boards SET active = ? WHERE id = ?;`, boolInt(active), boardID)
		if err != nil {
			return err
		}
		if err := requireRow(res); err != nil {
			return err
		}
		if !active {
			return nil
		}
		var companyID int64
		if err := tx.q.QueryRowContext(ctx, `SELECT company_id FROM boards WHERE id = ?;`, boardID).Scan(&companyID); err != nil {
			return err
		}
		return tx.deactivateSiblings(ctx, companyID, boardID)
	})
}

func (d *DB) deactivateSiblings(ctx context.Context, companyID, keepID int64) error {
	_, err := d.q.ExecContext(ctx, `UPDATE boards SET active = 0 WHERE company_id = ? AND id != ? AND active = 1;`, companyID, keepID)
	if err != nil {
		return fmt.Errorf("deactivate boards: %w", err)
	}
	return nil
}

func (d *DB) queryBoards(ctx context.Context, where string, args ...any) ([]domain.Board, error) {
	rows, err := d.q.QueryContext(ctx, `
SELECT b.id, b.company_id, c.name, b.url, b.vendor, b.active, b.created_at
FROM boards b
JOIN companies c ON c.id = b.company_id
`+where+`
ORDER BY c.name COLLATE NOCASE, b.id;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Board
	for rows.Next() {
		var b domain.Board
		var active int
		var created string
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.Company, &b.URL, &b.Vendor, &active, &created); err != nil {
			return nil, err
		}
		b.Active = active == 1
		b.CreatedAt = parseTime(created)
		out = append(out, b)
	}
	return out, rows.Err()
}

