package postgres

import (
	"context"
	"fmt"

	"github.com/readyrobots/leadengine/internal/leads"
)

const insertSignalSQL = `
INSERT INTO signals (
	id, company_id, signal_type, strength, raw_text, source_url, dedup_key, discovered_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// InsertSignal relies on the unique index on dedup_key for atomic
// check-and-insert.
func (s *Store) InsertSignal(ctx context.Context, sig leads.Signal) error {
	_, err := s.pool.Exec(ctx, insertSignalSQL,
		sig.ID, sig.CompanyID, string(sig.Type), sig.Strength, sig.RawText,
		sig.SourceURL, sig.DedupKey, sig.DiscoveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", mapError(err))
	}
	return nil
}

const selectSignalSQL = `
SELECT id, company_id, signal_type, strength, raw_text, source_url, dedup_key, discovered_at
FROM signals`

func (s *Store) ListSignalsByCompany(ctx context.Context, companyID string) ([]leads.Signal, error) {
	rows, err := s.pool.Query(ctx,
		selectSignalSQL+` WHERE company_id = $1 ORDER BY discovered_at, id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list signals by company: %w", mapError(err))
	}
	return collectSignals(rows)
}

func (s *Store) ListSignals(ctx context.Context) ([]leads.Signal, error) {
	rows, err := s.pool.Query(ctx, selectSignalSQL+` ORDER BY discovered_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", mapError(err))
	}
	return collectSignals(rows)
}

func collectSignals(rows interface {
	Next() bool
	Scan(...any) error
	Close()
	Err() error
}) ([]leads.Signal, error) {
	defer rows.Close()
	var out []leads.Signal
	for rows.Next() {
		var (
			sig leads.Signal
			typ string
		)
		if err := rows.Scan(&sig.ID, &sig.CompanyID, &typ, &sig.Strength,
			&sig.RawText, &sig.SourceURL, &sig.DedupKey, &sig.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Type = leads.SignalType(typ)
		out = append(out, sig)
	}
	return out, rows.Err()
}
