package store

import (
	"context"

	"jobglob-engine/internal/domain"
)

func (d *DB) RecordOutcome(ctx context.Context, o domain.ScrapeOutcome) error {
	_, err := d.q.ExecContext(ctx, `
INSERT INTO scrape_outcomes(run_id, board_id, company, board_url, category, detail, at)
VALUES(?,?,?,?,?,?,?);`,
		o.RunID, o.BoardID, o.Company, o.BoardURL, string(o.Category), o.Detail, formatTime(o.At))
	return err
}

// LatestOutcomes returns the outcomes of the most recent poll run.
func (d *DB) LatestOutcomes(ctx context.Context) ([]domain.ScrapeOutcome, error) {
	rows, err := d.q.QueryContext(ctx, `
SELECT run_id, board_id, company, board_url, category, detail, at
FROM scrape_outcomes
WHERE run_id = (SELECT run_id FROM scrape_outcomes ORDER BY id DESC LIMIT 1)
ORDER BY category, company;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScrapeOutcome
	for rows.Next() {
		var o domain.ScrapeOutcome
		var cat, at string
		if err := rows.Scan(&o.RunID, &o.BoardID, &o.Company, &o.BoardURL, &cat, &o.Detail, &at); err != nil {
			return nil, err
		}
		o.Category = domain.OutcomeCategory(cat)
		o.At = parseTime(at)
		out = append(out, o)
	}
	return out, rows.Err()
}
