package postgres

import (
	"context"
	"fmt"

	"github.com/readyrobots/leadengine/internal/leads"
)

const insertCompanySQL = `
INSERT INTO companies (
	id, name, name_key, industry, website, location_city, location_state,
	employee_estimate, source, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *Store) CreateCompany(ctx context.Context, c leads.Company) error {
	_, err := s.pool.Exec(ctx, insertCompanySQL,
		c.ID, c.Name, c.NameKey, c.Industry, c.Website, c.LocationCity,
		c.LocationState, c.EmployeeEstimate, c.Source, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert company: %w", mapError(err))
	}
	return nil
}

const selectCompanySQL = `
SELECT id, name, name_key, industry, website, location_city, location_state,
	employee_estimate, source, created_at
FROM companies`

func (s *Store) GetCompany(ctx context.Context, id string) (leads.Company, error) {
	var c leads.Company
	err := s.pool.QueryRow(ctx, selectCompanySQL+` WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.NameKey, &c.Industry, &c.Website, &c.LocationCity,
		&c.LocationState, &c.EmployeeEstimate, &c.Source, &c.CreatedAt,
	)
	if err != nil {
		return leads.Company{}, fmt.Errorf("get company: %w", mapError(err))
	}
	return c, nil
}

func (s *Store) GetCompanyByNameKey(ctx context.Context, nameKey string) (leads.Company, error) {
	var c leads.Company
	err := s.pool.QueryRow(ctx, selectCompanySQL+` WHERE name_key = $1`, nameKey).Scan(
		&c.ID, &c.Name, &c.NameKey, &c.Industry, &c.Website, &c.LocationCity,
		&c.LocationState, &c.EmployeeEstimate, &c.Source, &c.CreatedAt,
	)
	if err != nil {
		return leads.Company{}, fmt.Errorf("get company by name key: %w", mapError(err))
	}
	return c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]leads.Company, error) {
	rows, err := s.pool.Query(ctx, selectCompanySQL+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", mapError(err))
	}
	defer rows.Close()

	var out []leads.Company
	for rows.Next() {
		var c leads.Company
		if err := rows.Scan(
			&c.ID, &c.Name, &c.NameKey, &c.Industry, &c.Website, &c.LocationCity,
			&c.LocationState, &c.EmployeeEstimate, &c.Source, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
