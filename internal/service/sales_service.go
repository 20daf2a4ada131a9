package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/salesledger/internal/cache"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/store"
)

// SaleInput is the client payload for creating or editing a sale.
type SaleInput struct {
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	Branch      string   `json:"branch" validate:"required"`
	Amount      *float64 `json:"amount" validate:"required,gte=0"`
	Description string   `json:"description"`
	Notes       string   `json:"notes"`
}

type ImportOptions struct {
	// Overwrite replaces the amount of an existing (date, branch) sale instead
	// of skipping the row.
	Overwrite bool `json:"overwrite" form:"overwrite"`
}

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Imported int               `json:"imported"`
	Updated  int               `json:"updated"`
	Skipped  int               `json:"skipped"`
	Errors   []ImportRowError  `json:"errors"`
	Write    store.WriteResult `json:"write"`
}

type SalesService struct {
	store *store.Store
	cache cache.ReportCache
	now   func() time.Time
}

func NewSalesService(st *store.Store, cacheImpl cache.ReportCache) *SalesService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &SalesService{store: st, cache: cacheImpl, now: time.Now}
}

// List returns the sales matching f, newest first.
func (s *SalesService) List(ctx context.Context, f domain.SalesFilter) ([]domain.SaleRecord, error) {
	sales, err := s.store.Sales.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SaleRecord, 0, len(sales))
	for _, sale := range sales {
		if f.Match(sale) {
			out = append(out, sale)
		}
	}
	sortSales(out)
	return out, nil
}

func (s *SalesService) Get(ctx context.Context, id string) (domain.SaleRecord, error) {
	return getByID(ctx, s.store.Sales, "sale", id)
}

func (s *SalesService) Create(ctx context.Context, in SaleInput) (*Saved[domain.SaleRecord], error) {
	if err := validateStruct(in).OrNil(); err != nil {
		return nil, err
	}
	branches, err := s.store.Branches.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sale := domain.SaleRecord{
		ID:          uuid.NewString(),
		Date:        in.Date,
		Branch:      canonicalBranch(branches, in.Branch),
		Amount:      *in.Amount,
		Description: strings.TrimSpace(in.Description),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.store.Sales.Update(ctx, func(sales []domain.SaleRecord) ([]domain.SaleRecord, error) {
		if err := checkDuplicateSale(sales, sale); err != nil {
			return nil, err
		}
		return append(sales, sale), nil
	})
	if err != nil {
		return nil, err
	}
	invalidateReports(ctx, s.cache)
	return &Saved[domain.SaleRecord]{Record: sale, Write: res}, nil
}

func (s *SalesService) Update(ctx context.Context, id string, in SaleInput) (*Saved[domain.SaleRecord], error) {
	if err := validateStruct(in).OrNil(); err != nil {
		return nil, err
	}
	branches, err := s.store.Branches.Get(ctx)
	if err != nil {
		return nil, err
	}

	var updated domain.SaleRecord
	res, err := s.store.Sales.Update(ctx, func(sales []domain.SaleRecord) ([]domain.SaleRecord, error) {
		i, ok := findByID(sales, id)
		if !ok {
			return nil, fmt.Errorf("sale %s: %w", id, domain.ErrNotFound)
		}
		updated = sales[i]
		updated.Date = in.Date
		updated.Branch = canonicalBranch(branches, in.Branch)
		updated.Amount = *in.Amount
		updated.Description = strings.TrimSpace(in.Description)
		updated.Notes = strings.TrimSpace(in.Notes)
		updated.UpdatedAt = s.now()
		if err := checkDuplicateSale(sales, updated); err != nil {
			return nil, err
		}
		sales[i] = updated
		return sales, nil
	})
	if err != nil {
		return nil, err
	}
	invalidateReports(ctx, s.cache)
	return &Saved[domain.SaleRecord]{Record: updated, Write: res}, nil
}

func (s *SalesService) Delete(ctx context.Context, id string) (store.WriteResult, error) {
	res, err := deleteByID(ctx, s.store.Sales, "sale", id)
	if err != nil {
		return res, err
	}
	invalidateReports(ctx, s.cache)
	return res, nil
}

// Import adds many sales in one write. Invalid rows are reported and skipped;
// duplicates are skipped unless opts.Overwrite is set.
func (s *SalesService) Import(ctx context.Context, records []domain.SaleRecord, opts ImportOptions) (*ImportResult, error) {
	branches, err := s.store.Branches.Get(ctx)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]ImportRowError, 0)}
	res, err := s.store.Sales.Update(ctx, func(sales []domain.SaleRecord) ([]domain.SaleRecord, error) {
		*result = ImportResult{Errors: make([]ImportRowError, 0)}
		now := s.now()
		for i, rec := range records {
			row := i + 1
			rec.Branch = canonicalBranch(branches, rec.Branch)
			if err := validateStruct(rec).OrNil(); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, ImportRowError{Row: row, Error: err.Error()})
				continue
			}

			if j, dup := findSale(sales, rec.Date, rec.Branch); dup {
				if !opts.Overwrite {
					result.Skipped++
					result.Errors = append(result.Errors, ImportRowError{Row: row, Error: domain.ErrDuplicateSale.Error()})
					continue
				}
				sales[j].Amount = rec.Amount
				if rec.Description != "" {
					sales[j].Description = rec.Description
				}
				if rec.Notes != "" {
					sales[j].Notes = rec.Notes
				}
				sales[j].UpdatedAt = now
				result.Updated++
				continue
			}

			if rec.ID == "" {
				rec.ID = uuid.NewString()
			} else if _, taken := findByID(sales, rec.ID); taken {
				rec.ID = uuid.NewString()
			}
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = now
			}
			rec.UpdatedAt = now
			sales = append(sales, rec)
			result.Imported++
		}
		return sales, nil
	})
	if err != nil {
		return nil, err
	}
	result.Write = res
	if result.Imported+result.Updated > 0 {
		invalidateReports(ctx, s.cache)
	}
	return result, nil
}

// checkDuplicateSale enforces one sale per (date, branch), ignoring the record
// itself.
func checkDuplicateSale(sales []domain.SaleRecord, sale domain.SaleRecord) error {
	for _, existing := range sales {
		if existing.ID != sale.ID && existing.Date == sale.Date && existing.Branch == sale.Branch {
			return fmt.Errorf("%w: %s on %s", domain.ErrDuplicateSale, sale.Branch, sale.Date)
		}
	}
	return nil
}

func findSale(sales []domain.SaleRecord, date, branch string) (int, bool) {
	for i, s := range sales {
		if s.Date == date && s.Branch == branch {
			return i, true
		}
	}
	return -1, false
}

// canonicalBranch trims name and, when it matches a registered branch after
// normalization, returns that branch's stored spelling.
func canonicalBranch(branches []domain.Branch, name string) string {
	name = strings.TrimSpace(name)
	key := domain.NormalizeBranchName(name)
	for _, b := range branches {
		if domain.NormalizeBranchName(b.Name) == key {
			return b.Name
		}
	}
	return name
}

func sortSales(sales []domain.SaleRecord) {
	sort.SliceStable(sales, func(i, j int) bool {
		if sales[i].Date != sales[j].Date {
			return sales[i].Date > sales[j].Date
		}
		return sales[i].Branch < sales[j].Branch
	})
}
