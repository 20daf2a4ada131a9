package reconciliation

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/salesledger/internal/domain"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func entries(amounts ...string) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, len(amounts))
	for i, a := range amounts {
		out[i] = domain.LedgerEntry{Description: "line", Amount: d(a)}
	}
	return out
}

func TestCalculatePOSExample(t *testing.T) {
	res := CalculatePOS(POSInput{
		Sales:          d("1000"),
		Returns:        d("50"),
		MadaSales:      d("300"),
		VisaSales:      d("200"),
		CashHandedOver: d("440"),
	})
	if !res.TotalSales.Equal(d("950")) || !res.NetworkSales.Equal(d("500")) || !res.NetSales.Equal(d("450")) {
		t.Fatalf("unexpected totals %+v", res)
	}
	if !res.Difference.Equal(d("-10")) || res.Type != domain.ReconciliationDeficit {
		t.Fatalf("expected deficit of 10, got %s %s", res.Difference, res.Type)
	}
}

func TestCalculatePOSIdentity(t *testing.T) {
	cases := []POSInput{
		{Sales: d("0"), Returns: d("0"), MadaSales: d("0"), VisaSales: d("0"), CashHandedOver: d("0")},
		{Sales: d("120.50"), Returns: d("0.50"), MadaSales: d("20"), VisaSales: d("0"), CashHandedOver: d("100")},
		{Sales: d("99.99"), Returns: d("10"), MadaSales: d("5.01"), VisaSales: d("4.98"), CashHandedOver: d("90")},
	}
	want := []domain.ReconciliationType{domain.ReconciliationBalanced, domain.ReconciliationBalanced, domain.ReconciliationSurplus}
	for i, in := range cases {
		res := CalculatePOS(in)
		expectedNet := in.Sales.Sub(in.Returns).Sub(in.MadaSales.Add(in.VisaSales))
		if !res.NetSales.Equal(expectedNet) {
			t.Errorf("case %d: net %s != %s", i, res.NetSales, expectedNet)
		}
		if !res.Difference.Equal(in.CashHandedOver.Sub(expectedNet)) {
			t.Errorf("case %d: difference %s", i, res.Difference)
		}
		if res.Type != want[i] {
			t.Errorf("case %d: type %s, want %s", i, res.Type, want[i])
		}
	}
}

func TestCalculateTreasury(t *testing.T) {
	in := TreasuryInput{
		OpeningBalance: d("500"),
		POSSales:       d("2000"),
		POSNetwork:     d("800"),
		Returns:        d("100"),
		ActualCash:     d("1290"),
		Expenses:       entries("50", "25"),
		Payments:       entries("200"),
		Transfers:      entries("100"),
		Deposits:       entries("30"),
	}
	res := CalculateTreasury(in)

	if !res.TotalReceipts.Equal(d("2600")) {
		t.Fatalf("receipts %s", res.TotalReceipts)
	}
	if !res.TotalNonCash.Equal(d("900")) {
		t.Fatalf("non cash %s", res.TotalNonCash)
	}
	if !res.TotalOutflows.Equal(d("305")) {
		t.Fatalf("outflows %s", res.TotalOutflows)
	}
	if !res.NetDailyCash.Equal(d("1395")) {
		t.Fatalf("net daily cash %s", res.NetDailyCash)
	}
	// 500 + (2000 + 30) - (100 + 800 + 75 + 200 + 100)
	if !res.BookBalance.Equal(d("1255")) {
		t.Fatalf("book balance %s", res.BookBalance)
	}
	if !res.Difference.Equal(d("35")) {
		t.Fatalf("difference %s", res.Difference)
	}
}

func TestApplyTreasurySetsDerivedFields(t *testing.T) {
	rec := domain.TreasuryReconciliation{
		Date:           "2024-01-02",
		OpeningBalance: d("100"),
		POSSales:       d("50"),
		ActualCash:     d("140"),
	}
	ApplyTreasury(&rec)
	if !rec.BookBalance.Equal(d("150")) || !rec.Difference.Equal(d("-10")) || !rec.NetCash.Equal(d("150")) {
		t.Fatalf("unexpected derived fields %+v", rec)
	}
}

func TestAggregatePOSForDay(t *testing.T) {
	recs := []domain.POSReconciliation{
		{Date: "2024-01-01", Sales: d("1000"), Returns: d("50"), MadaSales: d("300"), VisaSales: d("200"), CashHandedOver: d("440")},
		{Date: "2024-01-01", Sales: d("500"), MadaSales: d("100"), CashHandedOver: d("400")},
		{Date: "2024-01-02", Sales: d("999")},
	}
	got := AggregatePOSForDay(recs, "2024-01-01")
	if got.Terminals != 2 || !got.TotalSales.Equal(d("1450")) || !got.NetworkSales.Equal(d("600")) {
		t.Fatalf("unexpected day totals %+v", got)
	}
	if !got.Difference.Equal(d("-10")) {
		t.Fatalf("unexpected difference %s", got.Difference)
	}
}

func TestSummarizePOS(t *testing.T) {
	recs := []domain.POSReconciliation{
		{Date: "2024-01-01", Sales: d("100"), CashHandedOver: d("110")},
		{Date: "2024-01-02", Sales: d("100"), CashHandedOver: d("90")},
		{Date: "2024-01-03", Sales: d("100"), CashHandedOver: d("100")},
		{Date: "2024-02-01", Sales: d("100"), CashHandedOver: d("0")},
	}
	s := SummarizePOS(recs, "2024-01-01", "2024-01-31")
	if s.Count != 3 || s.SurplusCount != 1 || s.DeficitCount != 1 || s.BalancedCount != 1 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if !s.TotalSurplus.Equal(d("10")) || !s.TotalDeficit.Equal(d("10")) || !s.NetDifference.IsZero() {
		t.Fatalf("unexpected sums %+v", s)
	}
}

func TestSuggestOpeningBalance(t *testing.T) {
	days := []domain.TreasuryReconciliation{
		{Date: "2024-01-01", ActualCash: d("750")},
		{Date: "2024-01-03", ActualCash: d("900")},
	}
	s, err := SuggestOpeningBalance(days, "2024-01-02")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !s.Chained || !s.OpeningBalance.Equal(d("750")) {
		t.Fatalf("expected 750 carried forward, got %+v", s)
	}

	s, err = SuggestOpeningBalance(days, "2024-01-05")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if s.Chained || !s.OpeningBalance.IsZero() {
		t.Fatalf("expected zero when previous day is missing, got %+v", s)
	}

	if _, err := SuggestOpeningBalance(days, "bad"); err == nil {
		t.Fatalf("expected error for bad date")
	}
}

func TestFindChainBreaks(t *testing.T) {
	days := []domain.TreasuryReconciliation{
		{Date: "2024-01-01", ActualCash: d("750")},
		{Date: "2024-01-02", OpeningBalance: d("700"), ActualCash: d("800")},
		{Date: "2024-01-03", OpeningBalance: d("800")},
		{Date: "2024-01-05", OpeningBalance: d("1")},
	}
	breaks := FindChainBreaks(days)
	if len(breaks) != 1 || breaks[0].Date != "2024-01-02" || !breaks[0].Gap.Equal(d("-50")) {
		t.Fatalf("unexpected breaks %+v", breaks)
	}
}

func TestBuildTreasuryReport(t *testing.T) {
	days := []domain.TreasuryReconciliation{
		{
			Date:     "2024-01-01",
			Expenses: []domain.LedgerEntry{{Description: "كهرباء", Amount: d("100"), Statement: "Jan bill"}},
			Payments: []domain.LedgerEntry{{Description: "Supplier", Amount: d("300")}},
		},
		{
			Date:     "2024-01-05",
			Expenses: []domain.LedgerEntry{{Description: "Maintenance", Amount: d("40")}},
			Deposits: []domain.LedgerEntry{{Description: "Cash sales", Amount: d("60")}},
		},
		{
			Date:     "2024-02-01",
			Expenses: []domain.LedgerEntry{{Description: "Rent", Amount: d("999")}},
		},
	}

	r := BuildTreasuryReport(days, TreasuryReportQuery{From: "2024-01-01", To: "2024-01-31"})
	if len(r.Lines) != 4 || r.Lines[0].Date != "2024-01-05" {
		t.Fatalf("unexpected lines %+v", r.Lines)
	}
	if !r.Total.Equal(d("500")) || !r.Totals[domain.LedgerExpense].Equal(d("140")) {
		t.Fatalf("unexpected totals %s %+v", r.Total, r.Totals)
	}

	r = BuildTreasuryReport(days, TreasuryReportQuery{Type: domain.LedgerExpense, Search: "JAN"})
	if len(r.Lines) != 1 || r.Lines[0].Description != "كهرباء - Jan bill" {
		t.Fatalf("unexpected search result %+v", r.Lines)
	}
}
