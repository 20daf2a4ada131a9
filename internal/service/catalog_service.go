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

// CatalogService manages branches, products, units, product lists, POS
// terminals, cashiers and the treasury label definitions.
type CatalogService struct {
	store *store.Store
	cache cache.ReportCache
	now   func() time.Time
}

func NewCatalogService(st *store.Store, cacheImpl cache.ReportCache) *CatalogService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &CatalogService{store: st, cache: cacheImpl, now: time.Now}
}

// Branches

func (s *CatalogService) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	branches, err := s.store.Branches.Get(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// BranchName resolves a branch id to its name.
func (s *CatalogService) BranchName(ctx context.Context, id string) (string, error) {
	b, err := getByID(ctx, s.store.Branches, "branch", id)
	if err != nil {
		return "", err
	}
	return b.Name, nil
}

func (s *CatalogService) SaveBranch(ctx context.Context, b domain.Branch) (*Saved[domain.Branch], error) {
	b.Name = strings.TrimSpace(b.Name)
	b.Description = strings.TrimSpace(b.Description)
	if err := validateStruct(b).OrNil(); err != nil {
		return nil, err
	}

	res, err := s.store.Branches.Update(ctx, func(branches []domain.Branch) ([]domain.Branch, error) {
		key := domain.NormalizeBranchName(b.Name)
		for _, other := range branches {
			if other.ID != b.ID && domain.NormalizeBranchName(other.Name) == key {
				return nil, fmt.Errorf("branch %q: %w", b.Name, domain.ErrAlreadyExists)
			}
		}
		return upsert(branches, &b, func(r *domain.Branch, id string) { r.ID = id }, func(r *domain.Branch, prev domain.Branch) {
			r.CreatedAt = prev.CreatedAt
		}, func(r *domain.Branch) { r.CreatedAt = s.now() })
	})
	if err != nil {
		return nil, err
	}
	invalidateReports(ctx, s.cache)
	return &Saved[domain.Branch]{Record: b, Write: res}, nil
}

func (s *CatalogService) DeleteBranch(ctx context.Context, id string) (store.WriteResult, error) {
	res, err := deleteByID(ctx, s.store.Branches, "branch", id)
	if err == nil {
		invalidateReports(ctx, s.cache)
	}
	return res, err
}

// Products

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.store.Products.Get(ctx)
}

func (s *CatalogService) SaveProduct(ctx context.Context, p domain.Product) (*Saved[domain.Product], error) {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	if err := validateStruct(p).OrNil(); err != nil {
		return nil, err
	}
	res, err := s.store.Products.Update(ctx, func(products []domain.Product) ([]domain.Product, error) {
		for _, other := range products {
			if other.ID != p.ID && strings.EqualFold(other.Code, p.Code) {
				return nil, fmt.Errorf("product code %q: %w", p.Code, domain.ErrAlreadyExists)
			}
		}
		return upsert(products, &p, func(r *domain.Product, id string) { r.ID = id }, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.Product]{Record: p, Write: res}, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) (store.WriteResult, error) {
	return deleteByID(ctx, s.store.Products, "product", id)
}

// Units

func (s *CatalogService) ListUnits(ctx context.Context) ([]domain.Unit, error) {
	return s.store.Units.Get(ctx)
}

func (s *CatalogService) SaveUnit(ctx context.Context, u domain.Unit) (*Saved[domain.Unit], error) {
	u.Name = strings.TrimSpace(u.Name)
	if err := validateStruct(u).OrNil(); err != nil {
		return nil, err
	}
	res, err := s.store.Units.Update(ctx, func(units []domain.Unit) ([]domain.Unit, error) {
		return upsert(units, &u, func(r *domain.Unit, id string) { r.ID = id }, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.Unit]{Record: u, Write: res}, nil
}

func (s *CatalogService) DeleteUnit(ctx context.Context, id string) (store.WriteResult, error) {
	return deleteByID(ctx, s.store.Units, "unit", id)
}

// Product lists

func (s *CatalogService) ListProductLists(ctx context.Context, category domain.ListCategory) ([]domain.ProductList, error) {
	lists, err := s.store.Lists.Get(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return lists, nil
	}
	out := make([]domain.ProductList, 0, len(lists))
	for _, l := range lists {
		if l.Category == category {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *CatalogService) SaveProductList(ctx context.Context, l domain.ProductList) (*Saved[domain.ProductList], error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Status == "" {
		l.Status = domain.ListStatusActive
	}
	if l.Items == nil {
		l.Items = []domain.ListItem{}
	}
	if err := validateStruct(l).OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	res, err := s.store.Lists.Update(ctx, func(lists []domain.ProductList) ([]domain.ProductList, error) {
		return upsert(lists, &l, func(r *domain.ProductList, id string) { r.ID = id },
			func(r *domain.ProductList, prev domain.ProductList) {
				r.CreatedAt = prev.CreatedAt
				r.UpdatedAt = now
			},
			func(r *domain.ProductList) {
				r.CreatedAt = now
				r.UpdatedAt = now
			})
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.ProductList]{Record: l, Write: res}, nil
}

func (s *CatalogService) DeleteProductList(ctx context.Context, id string) (store.WriteResult, error) {
	return deleteByID(ctx, s.store.Lists, "list", id)
}

// POS terminals

func (s *CatalogService) ListPOS(ctx context.Context) ([]domain.POSTerminal, error) {
	return s.store.POS.Get(ctx)
}

func (s *CatalogService) SavePOS(ctx context.Context, p domain.POSTerminal) (*Saved[domain.POSTerminal], error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validateStruct(p).OrNil(); err != nil {
		return nil, err
	}
	res, err := s.store.POS.Update(ctx, func(terminals []domain.POSTerminal) ([]domain.POSTerminal, error) {
		return upsert(terminals, &p, func(r *domain.POSTerminal, id string) { r.ID = id }, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.POSTerminal]{Record: p, Write: res}, nil
}

func (s *CatalogService) DeletePOS(ctx context.Context, id string) (store.WriteResult, error) {
	return deleteByID(ctx, s.store.POS, "pos", id)
}

// Cashiers

func (s *CatalogService) ListCashiers(ctx context.Context) ([]domain.Cashier, error) {
	return s.store.Cashiers.Get(ctx)
}

func (s *CatalogService) SaveCashier(ctx context.Context, c domain.Cashier) (*Saved[domain.Cashier], error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := validateStruct(c).OrNil(); err != nil {
		return nil, err
	}
	res, err := s.store.Cashiers.Update(ctx, func(cashiers []domain.Cashier) ([]domain.Cashier, error) {
		return upsert(cashiers, &c, func(r *domain.Cashier, id string) { r.ID = id }, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.Cashier]{Record: c, Write: res}, nil
}

func (s *CatalogService) DeleteCashier(ctx context.Context, id string) (store.WriteResult, error) {
	return deleteByID(ctx, s.store.Cashiers, "cashier", id)
}

// Treasury definitions

func (s *CatalogService) TreasuryDefinitions(ctx context.Context) (domain.TreasuryDefinitions, error) {
	return s.store.TreasuryDefinitions.Get(ctx)
}

func (s *CatalogService) SaveTreasuryDefinitions(ctx context.Context, defs domain.TreasuryDefinitions) (*Saved[domain.TreasuryDefinitions], error) {
	defs.Expenses = cleanLabels(defs.Expenses)
	defs.Payments = cleanLabels(defs.Payments)
	defs.Transfers = cleanLabels(defs.Transfers)
	defs.Deposits = cleanLabels(defs.Deposits)
	res, err := s.store.TreasuryDefinitions.Save(ctx, defs)
	if err != nil {
		return nil, err
	}
	return &Saved[domain.TreasuryDefinitions]{Record: defs, Write: res}, nil
}

// cleanLabels trims, drops blanks and removes duplicates keeping first order.
func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// upsert replaces the record with rec's id or appends rec with a new id.
// onUpdate and onCreate may be nil.
func upsert[T store.Record](records []T, rec *T, setID func(*T, string), onUpdate func(*T, T), onCreate func(*T)) ([]T, error) {
	id := (*rec).RecordID()
	if id != "" {
		i, ok := findByID(records, id)
		if !ok {
			return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
		}
		if onUpdate != nil {
			onUpdate(rec, records[i])
		}
		records[i] = *rec
		return records, nil
	}
	setID(rec, uuid.NewString())
	if onCreate != nil {
		onCreate(rec)
	}
	return append(records, *rec), nil
}
