package analytics

import (
	"testing"

	"github.com/andresuchdata/salesledger/internal/domain"
)

func sampleSales() []domain.SaleRecord {
	return []domain.SaleRecord{
		{ID: "1", Date: "2024-01-01", Branch: "A", Amount: 100},
		{ID: "2", Date: "2024-01-01", Branch: "B", Amount: 50},
		{ID: "3", Date: "2024-01-02", Branch: "A", Amount: 200},
	}
}

func TestTotalsByDayAndBranch(t *testing.T) {
	sales := sampleSales()

	days := TotalsByDay(sales)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Date != "2024-01-01" || days[0].Total != 150 {
		t.Fatalf("unexpected first day %+v", days[0])
	}

	branches := TotalsByBranch(sales)
	if branches[0].Branch != "A" || branches[0].Total != 300 || branches[0].Count != 2 || branches[0].Average != 150 {
		t.Fatalf("unexpected top branch %+v", branches[0])
	}

	best := BestDate(sales)
	if best == nil || best.Date != "2024-01-02" || best.Total != 200 {
		t.Fatalf("expected best day 2024-01-02 with 200, got %+v", best)
	}
}

func TestBestDate(t *testing.T) {
	if BestDate(nil) != nil {
		t.Fatal("expected nil for no sales")
	}
	tie := []domain.SaleRecord{
		{Date: "2024-02-02", Branch: "A", Amount: 30},
		{Date: "2024-02-01", Branch: "A", Amount: 10},
		{Date: "2024-02-01", Branch: "B", Amount: 20},
	}
	if got := BestDate(tie); got.Date != "2024-02-01" || got.Total != 30 || got.Count != 2 {
		t.Fatalf("expected the earliest tied date, got %+v", got)
	}
}

func TestGroupingIsOrderIndependent(t *testing.T) {
	sales := []domain.SaleRecord{
		{Date: "2024-03-01", Branch: "North", Amount: 10},
		{Date: "2024-03-02", Branch: "South", Amount: 25},
		{Date: "2024-03-01", Branch: "South", Amount: 40},
		{Date: "2024-04-05", Branch: "North", Amount: 5},
	}
	reversed := make([]domain.SaleRecord, len(sales))
	for i := range sales {
		reversed[len(sales)-1-i] = sales[i]
	}

	a, b := TotalsByBranch(sales), TotalsByBranch(reversed)
	if len(a) != len(b) {
		t.Fatalf("branch group count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("branch totals differ at %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	ma, mb := TotalsByMonth(sales), TotalsByMonth(reversed)
	for i := range ma {
		if ma[i] != mb[i] {
			t.Fatalf("month totals differ at %d: %+v vs %+v", i, ma[i], mb[i])
		}
	}

	again := TotalsByBranch(sales)
	for i := range a {
		if a[i] != again[i] {
			t.Fatalf("grouping twice changed the result")
		}
	}
}

func TestTotalsByWeekday(t *testing.T) {
	// 2024-01-07 is a Sunday, 2024-01-08 a Monday.
	sales := []domain.SaleRecord{
		{Date: "2024-01-07", Branch: "A", Amount: 30},
		{Date: "2024-01-14", Branch: "A", Amount: 10},
		{Date: "2024-01-08", Branch: "A", Amount: 5},
		{Date: "not-a-date", Branch: "A", Amount: 1000},
	}
	weekdays := TotalsByWeekday(sales)
	if len(weekdays) != 7 {
		t.Fatalf("expected 7 weekdays, got %d", len(weekdays))
	}
	if weekdays[0].Total != 40 || weekdays[0].Count != 2 || weekdays[0].Average != 20 {
		t.Fatalf("unexpected sunday %+v", weekdays[0])
	}
	best := BestWeekday(weekdays)
	if best == nil || best.Weekday != 0 {
		t.Fatalf("expected sunday to be best, got %+v", best)
	}
	if BestWeekday(TotalsByWeekday(nil)) != nil {
		t.Fatalf("expected no best weekday for empty data")
	}
}

func TestLatestAndDistinctDates(t *testing.T) {
	sales := append(sampleSales(), domain.SaleRecord{Date: "2023-12-31", Branch: "A", Amount: 1})
	if got := LatestDate(sales); got != "2024-01-02" {
		t.Fatalf("expected latest 2024-01-02, got %s", got)
	}
	dates := DistinctDates(sales)
	want := []string{"2024-01-02", "2024-01-01", "2023-12-31"}
	if len(dates) != len(want) {
		t.Fatalf("expected %v, got %v", want, dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, dates)
		}
	}
}

func TestFilter(t *testing.T) {
	got := Filter(sampleSales(), domain.SalesFilter{From: "2024-01-02", Branch: "A"})
	if len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("unexpected filter result %+v", got)
	}
}
