package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/cache"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/forecast"
	"github.com/andresuchdata/salesledger/internal/store"
)

// Scope restricts reports to one branch name. The zero value covers every
// branch.
type Scope struct {
	Branch string
}

func (s Scope) params(extra ...string) map[string]string {
	p := map[string]string{"branch": s.Branch}
	for i := 0; i+1 < len(extra); i += 2 {
		p[extra[i]] = extra[i+1]
	}
	return p
}

type ReportService struct {
	store *store.Store
	cache cache.ReportCache
}

func NewReportService(st *store.Store, cacheImpl cache.ReportCache) *ReportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &ReportService{store: st, cache: cacheImpl}
}

// cachedReport serves name/params from the report cache, building and storing
// it on a miss. Cache failures only log.
func cachedReport[T any](ctx context.Context, c cache.ReportCache, name string, params map[string]string, build func() (T, error)) (T, error) {
	var out T
	if ok, err := c.Get(ctx, name, params, &out); err == nil && ok {
		return out, nil
	} else if err != nil {
		log.Warn().Err(err).Str("report", name).Msg("report cache get failed")
	}

	out, err := build()
	if err != nil {
		return out, err
	}

	if err := c.Set(ctx, name, params, out); err != nil {
		log.Warn().Err(err).Str("report", name).Msg("report cache set failed")
	}
	return out, nil
}

func (s *ReportService) sales(ctx context.Context, scope Scope) ([]domain.SaleRecord, error) {
	sales, err := s.store.Sales.Get(ctx)
	if err != nil {
		return nil, err
	}
	if scope.Branch == "" {
		return sales, nil
	}
	return analytics.Filter(sales, domain.SalesFilter{Branch: scope.Branch}), nil
}

func (s *ReportService) Dashboard(ctx context.Context, scope Scope) (*analytics.Dashboard, error) {
	return cachedReport(ctx, s.cache, "dashboard", scope.params(), func() (*analytics.Dashboard, error) {
		sales, err := s.sales(ctx, scope)
		if err != nil {
			return nil, err
		}
		return analytics.BuildDashboard(sales), nil
	})
}

func (s *ReportService) Daily(ctx context.Context, scope Scope, date string) (*analytics.DailyReport, error) {
	return cachedReport(ctx, s.cache, "daily", scope.params("date", date), func() (*analytics.DailyReport, error) {
		sales, err := s.sales(ctx, scope)
		if err != nil {
			return nil, err
		}
		return analytics.BuildDailyReport(sales, date)
	})
}

// Custom reports an arbitrary date range. The filter's branch is overridden
// by a non-empty scope.
func (s *ReportService) Custom(ctx context.Context, scope Scope, f domain.SalesFilter) (*analytics.RangeReport, error) {
	if scope.Branch != "" {
		f.Branch = scope.Branch
	}
	params := map[string]string{"from": f.From, "to": f.To, "branch": f.Branch}
	return cachedReport(ctx, s.cache, "custom", params, func() (*analytics.RangeReport, error) {
		sales, err := s.store.Sales.Get(ctx)
		if err != nil {
			return nil, err
		}
		return analytics.BuildRangeReport(sales, f)
	})
}

func (s *ReportService) Monthly(ctx context.Context, scope Scope, year int) (*analytics.MonthlyReport, error) {
	return cachedReport(ctx, s.cache, "monthly", scope.params("year", strconv.Itoa(year)), func() (*analytics.MonthlyReport, error) {
		sales, err := s.sales(ctx, scope)
		if err != nil {
			return nil, err
		}
		return analytics.BuildMonthlyReport(sales, year), nil
	})
}

func (s *ReportService) Yearly(ctx context.Context, scope Scope, year int) (*analytics.YearlyComparison, error) {
	return cachedReport(ctx, s.cache, "yearly", scope.params("year", strconv.Itoa(year)), func() (*analytics.YearlyComparison, error) {
		sales, err := s.sales(ctx, scope)
		if err != nil {
			return nil, err
		}
		return analytics.BuildYearlyComparison(sales, year), nil
	})
}

func (s *ReportService) Branches(ctx context.Context, f domain.SalesFilter) ([]analytics.BranchTotal, error) {
	params := map[string]string{"from": f.From, "to": f.To, "branch": f.Branch}
	return cachedReport(ctx, s.cache, "branches", params, func() ([]analytics.BranchTotal, error) {
		var (
			sales    []domain.SaleRecord
			branches []domain.Branch
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			sales, err = s.store.Sales.Get(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			branches, err = s.store.Branches.Get(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if f.Branch != "" {
			kept := branches[:0]
			for _, b := range branches {
				if b.Name == f.Branch {
					kept = append(kept, b)
				}
			}
			branches = kept
		}
		return analytics.BuildBranchesReport(analytics.Filter(sales, f), branches), nil
	})
}

// BranchDetail reports on one branch. The name matches a registered branch
// by its normalized key; an unknown branch without sales is ErrNotFound.
func (s *ReportService) BranchDetail(ctx context.Context, name string, f domain.SalesFilter) (*analytics.BranchDetail, error) {
	params := map[string]string{"branch": name, "from": f.From, "to": f.To}
	return cachedReport(ctx, s.cache, "branch-detail", params, func() (*analytics.BranchDetail, error) {
		var (
			sales    []domain.SaleRecord
			branches []domain.Branch
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			sales, err = s.store.Sales.Get(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			branches, err = s.store.Branches.Get(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var info *domain.Branch
		key := domain.NormalizeBranchName(name)
		for i := range branches {
			if domain.NormalizeBranchName(branches[i].Name) == key {
				info = &branches[i]
				name = branches[i].Name
				break
			}
		}
		d, err := analytics.BuildBranchDetail(sales, name, f)
		if err != nil {
			return nil, err
		}
		if info == nil && d.Count == 0 {
			return nil, fmt.Errorf("%w: branch %s", domain.ErrNotFound, name)
		}
		d.Info = info
		return d, nil
	})
}

func (s *ReportService) Peak(ctx context.Context, scope Scope) (*analytics.PeakReport, error) {
	return cachedReport(ctx, s.cache, "peak", scope.params(), func() (*analytics.PeakReport, error) {
		sales, err := s.sales(ctx, scope)
		if err != nil {
			return nil, err
		}
		return analytics.BuildPeakReport(sales), nil
	})
}

func (s *ReportService) BranchTrends(ctx context.Context, scope Scope) (*analytics.BranchTrendsReport, error) {
	return cachedReport(ctx, s.cache, "branch-trends", scope.params(), func() (*analytics.BranchTrendsReport, error) {
		sales, err := s.sales(ctx, scope)
		if err != nil {
			return nil, err
		}
		return analytics.BuildBranchTrends(sales), nil
	})
}

func (s *ReportService) Matrix(ctx context.Context, scope Scope, q analytics.MatrixQuery) (*analytics.MatrixReport, error) {
	if scope.Branch != "" {
		q.Branch = scope.Branch
	}
	params := map[string]string{
		"fromMonth": q.FromMonth,
		"toMonth":   q.ToMonth,
		"fromDay":   strconv.Itoa(q.FromDay),
		"toDay":     strconv.Itoa(q.ToDay),
		"branch":    q.Branch,
	}
	return cachedReport(ctx, s.cache, "matrix", params, func() (*analytics.MatrixReport, error) {
		sales, err := s.store.Sales.Get(ctx)
		if err != nil {
			return nil, err
		}
		return analytics.BuildMatrix(sales, q)
	})
}

func (s *ReportService) catalog(ctx context.Context) ([]domain.ProductList, []domain.Product, error) {
	var (
		lists    []domain.ProductList
		products []domain.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lists, err = s.store.Lists.Get(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.store.Products.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lists, products, nil
}

func (s *ReportService) Products(ctx context.Context) ([]analytics.ProductUsage, error) {
	lists, products, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.BuildProductsReport(lists, products), nil
}

func (s *ReportService) Categories(ctx context.Context) ([]analytics.CategorySummary, error) {
	lists, err := s.store.Lists.Get(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.BuildCategoryAnalysis(lists), nil
}

func (s *ReportService) Analysis(ctx context.Context, scope Scope) (*forecast.Analysis, error) {
	return cachedReport(ctx, s.cache, "analysis", scope.params(), func() (*forecast.Analysis, error) {
		sales, err := s.sales(ctx, scope)
		if err != nil {
			return nil, err
		}
		return forecast.Analyze(sales)
	})
}

// ScenarioResult is the base projection scaled by a growth percentage.
type ScenarioResult struct {
	Percentage float64          `json:"percentage"`
	Forecast   []forecast.Point `json:"forecast"`
	Total      float64          `json:"total"`
	BaseTotal  float64          `json:"baseTotal"`
}

func (s *ReportService) Scenario(ctx context.Context, scope Scope, pct float64) (*ScenarioResult, error) {
	a, err := s.Analysis(ctx, scope)
	if err != nil {
		return nil, err
	}
	points := forecast.Scenario(a.Forecast, pct)
	return &ScenarioResult{
		Percentage: pct,
		Forecast:   points,
		Total:      forecast.Total(points),
		BaseTotal:  a.ForecastNextMonth,
	}, nil
}

func (s *ReportService) Ask(ctx context.Context, scope Scope, question string) (forecast.Answer, error) {
	sales, err := s.sales(ctx, scope)
	if err != nil {
		return forecast.Answer{}, err
	}
	return forecast.Ask(question, sales), nil
}
