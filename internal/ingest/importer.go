package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/lexicon"
	"github.com/readyrobots/leadengine/internal/store"
)

// CompanyInput is one row of a bulk company import.
type CompanyInput struct {
	Name             string `json:"name"`
	Industry         string `json:"industry,omitempty"`
	Website          string `json:"website,omitempty"`
	LocationCity     string `json:"location_city,omitempty"`
	LocationState    string `json:"location_state,omitempty"`
	EmployeeEstimate int    `json:"employee_estimate,omitempty"`
}

// ImportSkip explains why one input row was not imported.
type ImportSkip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult itemizes a bulk import. Duplicates and invalid rows are
// skipped, never fatal.
type ImportResult struct {
	Created    []leads.Company `json:"created"`
	Skipped    []ImportSkip    `json:"skipped"`
	CreatedIDs []string        `json:"-"`
}

// ImportCompanies inserts the given rows, skipping blanks and rows whose
// normalized name already exists.
func (n *Normalizer) ImportCompanies(ctx context.Context, rows []CompanyInput) (ImportResult, error) {
	var res ImportResult
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := strings.TrimSpace(row.Name)
		if name == "" {
			res.Skipped = append(res.Skipped, ImportSkip{Reason: "empty name"})
			continue
		}
		key := lexicon.NormalizeName(name)
		if key == "" {
			res.Skipped = append(res.Skipped, ImportSkip{Name: name, Reason: "name reduces to empty key"})
			continue
		}

		id, err := n.ids.NewID()
		if err != nil {
			return res, fmt.Errorf("generating company id: %w", err)
		}
		company := leads.Company{
			ID:               id,
			Name:             name,
			NameKey:          key,
			Industry:         strings.TrimSpace(row.Industry),
			Website:          strings.TrimSpace(row.Website),
			LocationCity:     strings.TrimSpace(row.LocationCity),
			LocationState:    strings.TrimSpace(row.LocationState),
			EmployeeEstimate: row.EmployeeEstimate,
			Source:           "import",
			CreatedAt:        n.clock.Now(),
		}
		err = n.companies.CreateCompany(ctx, company)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			res.Skipped = append(res.Skipped, ImportSkip{Name: name, Reason: "already exists"})
			continue
		case err != nil:
			return res, fmt.Errorf("inserting company %q: %w", name, err)
		}
		res.Created = append(res.Created, company)
		res.CreatedIDs = append(res.CreatedIDs, company.ID)
	}

	n.log.Info("company import complete",
		zap.Int("rows", len(rows)),
		zap.Int("created", len(res.Created)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}
