package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/forecast"
	"github.com/andresuchdata/salesledger/internal/storage"
)

func seedSales(t *testing.T, svc *SalesService, days int) {
	t.Helper()
	rows := make([]domain.SaleRecord, 0, days*2)
	for d := 1; d <= days; d++ {
		date := fmt.Sprintf("2024-03-%02d", d)
		rows = append(rows,
			domain.SaleRecord{Date: date, Branch: "North", Amount: float64(100 + d)},
			domain.SaleRecord{Date: date, Branch: "South", Amount: 50},
		)
	}
	res, err := svc.Import(context.Background(), rows, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != len(rows) {
		t.Fatalf("expected %d imported, got %+v", len(rows), res)
	}
}

func TestDashboardIsCached(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	cache := newCountingCache()
	sales := NewSalesService(st, cache)
	seedSales(t, sales, 3)

	reports := NewReportService(st, cache)
	first, err := reports.Dashboard(ctx, Scope{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	second, err := reports.Dashboard(ctx, Scope{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if cache.sets != 1 || cache.hits != 1 {
		t.Fatalf("expected one set and one hit, got sets=%d hits=%d", cache.sets, cache.hits)
	}
	if first.TodayTotal != second.TodayTotal || first.LatestDate != "2024-03-03" {
		t.Fatalf("cached dashboard differs: %+v vs %+v", first, second)
	}

	// A write drops cached reports.
	if _, err := sales.Create(ctx, SaleInput{Date: "2024-03-04", Branch: "North", Amount: amount(10)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	third, err := reports.Dashboard(ctx, Scope{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if third.LatestDate != "2024-03-04" {
		t.Fatalf("expected fresh dashboard after write, got %s", third.LatestDate)
	}
}

func TestReportScope(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	seedSales(t, NewSalesService(st, nil), 3)
	reports := NewReportService(st, nil)

	all, err := reports.Daily(ctx, Scope{}, "2024-03-02")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	south, err := reports.Daily(ctx, Scope{Branch: "South"}, "2024-03-02")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if all.Total != 152 || south.Total != 50 {
		t.Fatalf("unexpected totals all=%v south=%v", all.Total, south.Total)
	}
}

func TestAnalysisNeedsHistory(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	sales := NewSalesService(st, nil)
	reports := NewReportService(st, nil)

	seedSales(t, sales, 3)
	if _, err := reports.Analysis(ctx, Scope{Branch: "North"}); !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected insufficient data, got %v", err)
	}

	st2 := newTestStore()
	seedSales(t, NewSalesService(st2, nil), 10)
	a, err := NewReportService(st2, nil).Analysis(ctx, Scope{})
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	if len(a.Forecast) != forecast.DefaultHorizon {
		t.Fatalf("expected %d forecast points, got %d", forecast.DefaultHorizon, len(a.Forecast))
	}

	sc, err := NewReportService(st2, nil).Scenario(ctx, Scope{}, 10)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	if sc.Total <= sc.BaseTotal {
		t.Fatalf("expected a 10%% scenario above base, got %v <= %v", sc.Total, sc.BaseTotal)
	}
}

type fakeObjects struct {
	uploaded map[string][]byte
}

func (f *fakeObjects) ListObjects(context.Context, string) ([]storage.ObjectInfo, error) {
	out := make([]storage.ObjectInfo, 0, len(f.uploaded))
	for k, v := range f.uploaded {
		out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
	}
	return out, nil
}

func (f *fakeObjects) DownloadObject(context.Context, string, string) error { return nil }

func (f *fakeObjects) UploadObject(_ context.Context, key string, data []byte, _ string) error {
	f.uploaded[key] = data
	return nil
}

func (f *fakeObjects) PresignedURL(_ context.Context, key string) (string, error) {
	return "https://objects.test/" + key, nil
}

func TestExportUpload(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	sales := NewSalesService(st, nil)
	seedSales(t, sales, 2)

	objects := &fakeObjects{uploaded: make(map[string][]byte)}
	svc := NewExportService(sales, NewReportService(st, nil), NewReconciliationService(st), objects, "exports")

	art, err := svc.Sales(ctx, domain.SalesFilter{From: "2024-03-01", To: "2024-03-02"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if art.FileName != "sales_2024-03-01_2024-03-02.xlsx" || len(art.Data) == 0 {
		t.Fatalf("unexpected artifact %s (%d bytes)", art.FileName, len(art.Data))
	}

	up, err := svc.Upload(ctx, art)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if up.Key != "exports/sales_2024-03-01_2024-03-02.xlsx" || up.URL == "" {
		t.Fatalf("unexpected upload %+v", up)
	}

	noStorage := NewExportService(sales, nil, nil, nil, "")
	if _, err := noStorage.Upload(ctx, art); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("expected storage disabled, got %v", err)
	}
}
