package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/readyrobots/leadengine/internal/leads"
)

const upsertScoreSQL = `
INSERT INTO scores (
	company_id, automation, labor_pain, expansion, market_fit, overall,
	tier, reasons, is_junk, junk_reason, computed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (company_id) DO UPDATE SET
	automation = EXCLUDED.automation,
	labor_pain = EXCLUDED.labor_pain,
	expansion = EXCLUDED.expansion,
	market_fit = EXCLUDED.market_fit,
	overall = EXCLUDED.overall,
	tier = EXCLUDED.tier,
	reasons = EXCLUDED.reasons,
	is_junk = EXCLUDED.is_junk,
	junk_reason = EXCLUDED.junk_reason,
	computed_at = EXCLUDED.computed_at`

func (s *Store) UpsertScore(ctx context.Context, sc leads.Score) error {
	_, err := s.pool.Exec(ctx, upsertScoreSQL,
		sc.CompanyID, sc.Automation, sc.LaborPain, sc.Expansion, sc.MarketFit,
		sc.Overall, string(sc.Tier), sc.Reasons, sc.Junk, sc.JunkReason, sc.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", mapError(err))
	}
	return nil
}

const selectScoreSQL = `
SELECT company_id, automation, labor_pain, expansion, market_fit, overall,
	tier, reasons, is_junk, junk_reason, computed_at
FROM scores`

func (s *Store) GetScore(ctx context.Context, companyID string) (leads.Score, error) {
	sc, err := scanScore(s.pool.QueryRow(ctx, selectScoreSQL+` WHERE company_id = $1`, companyID))
	if err != nil {
		return leads.Score{}, fmt.Errorf("get score: %w", mapError(err))
	}
	return sc, nil
}

func (s *Store) ListScores(ctx context.Context) ([]leads.Score, error) {
	rows, err := s.pool.Query(ctx, selectScoreSQL+` ORDER BY overall DESC, company_id`)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", mapError(err))
	}
	defer rows.Close()

	var out []leads.Score
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func scanScore(row pgx.Row) (leads.Score, error) {
	var (
		sc   leads.Score
		tier string
	)
	err := row.Scan(&sc.CompanyID, &sc.Automation, &sc.LaborPain, &sc.Expansion,
		&sc.MarketFit, &sc.Overall, &tier, &sc.Reasons, &sc.Junk, &sc.JunkReason,
		&sc.ComputedAt)
	if err != nil {
		return leads.Score{}, err
	}
	sc.Tier = leads.Tier(tier)
	return sc, nil
}
