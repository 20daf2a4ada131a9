package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/reconciliation"
)

func readRows(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return rows
}

func TestSalesWorkbook(t *testing.T) {
	var buf bytes.Buffer
	sales := []domain.SaleRecord{
		{Date: "2024-01-01", Branch: "North", Amount: 100},
		{Date: "2024-01-02", Branch: "South", Amount: 50.5},
	}
	if err := Sales(&buf, sales); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows := readRows(t, &buf, "Sales")
	if len(rows) != 4 {
		t.Fatalf("expected header, 2 rows and total, got %d rows", len(rows))
	}
	if rows[0][0] != "Date" || rows[1][1] != "North" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[3][0] != "Total" || rows[3][2] != "150.5" {
		t.Fatalf("unexpected total row %v", rows[3])
	}
}

func TestMatrixWorkbook(t *testing.T) {
	sales := []domain.SaleRecord{
		{Date: "2024-01-01", Branch: "A", Amount: 100},
		{Date: "2024-02-01", Branch: "A", Amount: 300},
	}
	report, err := analytics.BuildMatrix(sales, analytics.MatrixQuery{FromMonth: "2024-01", ToMonth: "2024-02", FromDay: 1, ToDay: 2})
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	var buf bytes.Buffer
	if err := Matrix(&buf, *report); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows := readRows(t, &buf, "Matrix")
	if rows[0][1] != "2024-01" || rows[0][2] != "2024-02" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][2] != "300" {
		t.Fatalf("unexpected first day row %v", rows[1])
	}
	last := rows[len(rows)-1]
	if last[0] != "Grand total" || last[1] != "400" {
		t.Fatalf("unexpected grand total row %v", last)
	}
}

func TestTreasuryWorkbook(t *testing.T) {
	days := []domain.TreasuryReconciliation{{
		Date:     "2024-01-01",
		Expenses: []domain.LedgerEntry{{Description: "Rent", Amount: decimal.NewFromInt(500)}},
	}}
	report := reconciliation.BuildTreasuryReport(days, reconciliation.TreasuryReportQuery{})
	var buf bytes.Buffer
	if err := Treasury(&buf, report); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows := readRows(t, &buf, "Treasury")
	if rows[1][2] != "Rent" || rows[1][3] != "500" {
		t.Fatalf("unexpected line %v", rows[1])
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("sales", "2024-01-01", "", "2024-01-31"); got != "sales_2024-01-01_2024-01-31.xlsx" {
		t.Fatalf("unexpected name %q", got)
	}
}
