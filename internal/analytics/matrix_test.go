package analytics

import (
	"errors"
	"testing"

	"github.com/andresuchdata/salesledger/internal/domain"
)

func matrixSales() []domain.SaleRecord {
	return []domain.SaleRecord{
		{Date: "2024-01-01", Branch: "A", Amount: 100},
		{Date: "2024-01-01", Branch: "B", Amount: 20},
		{Date: "2024-01-02", Branch: "A", Amount: 50},
		{Date: "2024-02-01", Branch: "A", Amount: 60},
		{Date: "2024-02-03", Branch: "A", Amount: 200},
		{Date: "2024-03-15", Branch: "A", Amount: 999},
		{Date: "2023-12-01", Branch: "A", Amount: 999},
	}
}

func TestBuildMatrixCellsAndTotals(t *testing.T) {
	m, err := BuildMatrix(matrixSales(), MatrixQuery{FromMonth: "2024-01", ToMonth: "2024-02", FromDay: 1, ToDay: 3})
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	if len(m.Months) != 2 || len(m.Rows) != 3 {
		t.Fatalf("unexpected shape months=%v rows=%d", m.Months, len(m.Rows))
	}
	if got := m.Rows[0].Cells[0].Value; got != 120 {
		t.Fatalf("expected day 1 jan = 120, got %v", got)
	}
	if m.GrandTotal != 430 || m.CellSum() != 430 {
		t.Fatalf("expected grand total 430, got %v / %v", m.GrandTotal, m.CellSum())
	}
	if m.ActiveDays != 4 {
		t.Fatalf("expected 4 active cells, got %d", m.ActiveDays)
	}

	jan, feb := m.Columns[0], m.Columns[1]
	if jan.ActiveDays != 2 || jan.Average != 85 {
		t.Fatalf("unexpected jan column %+v", jan)
	}
	if feb.ActiveDays != 2 || feb.Average != 130 || feb.AverageTrend != TrendUp {
		t.Fatalf("unexpected feb column %+v", feb)
	}
	if m.BestDay.Value != 200 || m.BestDay.Day != 3 || m.BestDay.Month != "2024-02" {
		t.Fatalf("unexpected best day %+v", m.BestDay)
	}
	if m.BestMonth.Month != "2024-02" {
		t.Fatalf("unexpected best month %+v", m.BestMonth)
	}
}

func TestBuildMatrixTrendsAndHeat(t *testing.T) {
	m, err := BuildMatrix(matrixSales(), MatrixQuery{FromMonth: "2024-01", ToMonth: "2024-02", FromDay: 1, ToDay: 3})
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	day1 := m.Rows[0].Cells
	if day1[0].Trend != TrendFlat || day1[1].Trend != TrendDown {
		t.Fatalf("unexpected day 1 trends %+v", day1)
	}
	day3 := m.Rows[2].Cells
	if day3[1].Heat != HeatMax || day3[1].Trend != TrendUp {
		t.Fatalf("expected max heat and up trend for feb 3, got %+v", day3[1])
	}
	if day3[0].Heat != "" {
		t.Fatalf("empty cell should carry no heat, got %q", day3[0].Heat)
	}
	// 120/200 = 0.6 -> med, 50/200 -> low, 60/200 -> low
	if day1[0].Heat != HeatMed {
		t.Fatalf("expected med heat for 120, got %q", day1[0].Heat)
	}
	if m.Rows[1].Cells[0].Heat != HeatLow {
		t.Fatalf("expected low heat for 50, got %q", m.Rows[1].Cells[0].Heat)
	}
}

func TestBuildMatrixRoundTrip(t *testing.T) {
	sales := matrixSales()
	q := MatrixQuery{FromMonth: "2024-01", ToMonth: "2024-03", FromDay: 1, ToDay: 31}
	m, err := BuildMatrix(sales, q)
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	var want float64
	for _, s := range sales {
		if s.Date >= "2024-01-01" && s.Date <= "2024-03-31" {
			want += s.Amount
		}
	}
	if m.CellSum() != want {
		t.Fatalf("cell sum %v != input sum %v", m.CellSum(), want)
	}
}

func TestBuildMatrixBranchFilter(t *testing.T) {
	m, err := BuildMatrix(matrixSales(), MatrixQuery{FromMonth: "2024-01", ToMonth: "2024-01", Branch: "B"})
	if err != nil {
		t.Fatalf("build matrix: %v", err)
	}
	if m.GrandTotal != 20 {
		t.Fatalf("expected branch B total 20, got %v", m.GrandTotal)
	}
	if len(m.Rows) != 31 {
		t.Fatalf("expected default 31 rows, got %d", len(m.Rows))
	}
}

func TestBuildMatrixRejectsBadRanges(t *testing.T) {
	cases := []MatrixQuery{
		{FromMonth: "2024-01", ToMonth: "2024-02", FromDay: 10, ToDay: 5},
		{FromMonth: "2024-03", ToMonth: "2024-02"},
		{FromMonth: "", ToMonth: "2024-02"},
		{FromMonth: "2024-01", ToMonth: "2024-01", FromDay: 1, ToDay: 40},
	}
	for _, q := range cases {
		if _, err := BuildMatrix(nil, q); !errors.Is(err, domain.ErrInvalidRange) {
			t.Errorf("query %+v: expected ErrInvalidRange, got %v", q, err)
		}
	}
}

func TestMonthsInRangeCrossesYear(t *testing.T) {
	months, err := MonthsInRange("2023-11", "2024-02")
	if err != nil {
		t.Fatalf("months in range: %v", err)
	}
	want := []string{"2023-11", "2023-12", "2024-01", "2024-02"}
	if len(months) != len(want) {
		t.Fatalf("expected %v, got %v", want, months)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, months)
		}
	}
}
