package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/store"
)

const insertTargetSQL = `
INSERT INTO scrape_targets (
	id, url, label, kind, industries, signal_hints, cadence, active, notes, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *Store) CreateTarget(ctx context.Context, t leads.ScrapeTarget) error {
	_, err := s.pool.Exec(ctx, insertTargetSQL,
		t.ID, t.URL, t.Label, string(t.Kind), t.Industries, hintsToStrings(t.SignalHints),
		string(t.Cadence), t.Active, t.Notes, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert target: %w", mapError(err))
	}
	return nil
}

const selectTargetSQL = `
SELECT id, url, label, kind, industries, signal_hints, cadence, active, notes, created_at, last_run_at
FROM scrape_targets`

func (s *Store) GetTargetByURL(ctx context.Context, url string) (leads.ScrapeTarget, error) {
	row := s.pool.QueryRow(ctx, selectTargetSQL+` WHERE url = $1`, url)
	t, err := scanTarget(row)
	if err != nil {
		return leads.ScrapeTarget{}, fmt.Errorf("get target: %w", mapError(err))
	}
	return t, nil
}

func (s *Store) ListTargets(ctx context.Context, f store.TargetFilter) ([]leads.ScrapeTarget, error) {
	query := selectTargetSQL + ` WHERE ($1 = '' OR kind = $1)
  AND ($2 = '' OR $2 = ANY(industries))
  AND (NOT $3 OR active)
ORDER BY url`
	rows, err := s.pool.Query(ctx, query, string(f.Kind), f.Industry, f.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", mapError(err))
	}
	defer rows.Close()

	var out []leads.ScrapeTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SetTargetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scrape_targets SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set target active: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) MarkTargetRun(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scrape_targets SET last_run_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark target run: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanTarget(row pgx.Row) (leads.ScrapeTarget, error) {
	var (
		t         leads.ScrapeTarget
		kind      string
		cadence   string
		hints     []string
		lastRunAt *time.Time
	)
	err := row.Scan(&t.ID, &t.URL, &t.Label, &kind, &t.Industries, &hints,
		&cadence, &t.Active, &t.Notes, &t.CreatedAt, &lastRunAt)
	if err != nil {
		return leads.ScrapeTarget{}, err
	}
	t.Kind = leads.ScraperKind(kind)
	t.Cadence = leads.Cadence(cadence)
	t.SignalHints = stringsToHints(hints)
	t.LastRunAt = lastRunAt
	return t, nil
}

func hintsToStrings(hints []leads.SignalType) []string {
	out := make([]string, len(hints))
	for i, h := range hints {
		out[i] = string(h)
	}
	return out
}

func stringsToHints(ss []string) []leads.SignalType {
	if len(ss) == 0 {
		return nil
	}
	out := make([]leads.SignalType, len(ss))
	for i, s := range ss {
		out[i] = leads.SignalType(s)
	}
	return out
}
