package postgres

import (
	"context"
	"fmt"

	"github.com/readyrobots/leadengine/internal/leads"
)

const upsertHealthSQL = `
INSERT INTO url_health (
	url, attempts, successes, failures, consecutive_failures,
	consecutive_successes, circuit_open, opened_at, last_success,
	last_error, restart_count
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (url) DO UPDATE SET
	attempts = EXCLUDED.attempts,
	successes = EXCLUDED.successes,
	failures = EXCLUDED.failures,
	consecutive_failures = EXCLUDED.consecutive_failures,
	consecutive_successes = EXCLUDED.consecutive_successes,
	circuit_open = EXCLUDED.circuit_open,
	opened_at = EXCLUDED.opened_at,
	last_success = EXCLUDED.last_success,
	last_error = EXCLUDED.last_error,
	restart_count = EXCLUDED.restart_count`

func (s *Store) UpsertHealth(ctx context.Context, rec leads.HealthRecord) error {
	_, err := s.pool.Exec(ctx, upsertHealthSQL,
		rec.URL, rec.Attempts, rec.Successes, rec.Failures,
		rec.ConsecutiveFailures, rec.ConsecutiveSuccesses, rec.CircuitOpen,
		rec.OpenedAt, rec.LastSuccess, rec.LastError, rec.RestartCount,
	)
	if err != nil {
		return fmt.Errorf("upsert url health: %w", mapError(err))
	}
	return nil
}

func (s *Store) ListHealth(ctx context.Context) ([]leads.HealthRecord, error) {
	rows, err := s.pool.Query(ctx, `
SELECT url, attempts, successes, failures, consecutive_failures,
	consecutive_successes, circuit_open, opened_at, last_success,
	last_error, restart_count
FROM url_health ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("list url health: %w", mapError(err))
	}
	defer rows.Close()

	var out []leads.HealthRecord
	for rows.Next() {
		var rec leads.HealthRecord
		if err := rows.Scan(&rec.URL, &rec.Attempts, &rec.Successes, &rec.Failures,
			&rec.ConsecutiveFailures, &rec.ConsecutiveSuccesses, &rec.CircuitOpen,
			&rec.OpenedAt, &rec.LastSuccess, &rec.LastError, &rec.RestartCount); err != nil {
			return nil, fmt.Errorf("scan url health: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
