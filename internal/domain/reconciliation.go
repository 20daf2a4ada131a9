package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields travel as JSON numbers, matching the stored records.
	decimal.MarshalJSONWithoutQuotes = true
}

type ReconciliationType string

const (
	ReconciliationSurplus  ReconciliationType = "surplus"
	ReconciliationDeficit  ReconciliationType = "deficit"
	ReconciliationBalanced ReconciliationType = "balanced"
)

// POSReconciliation is the daily closing of one POS terminal.
type POSReconciliation struct {
	ID             string             `json:"id"`
	Date           string             `json:"date" validate:"required,datetime=2006-01-02"`
	POSID          string             `json:"posId" validate:"required"`
	POSName        string             `json:"posName"`
	Cashier        string             `json:"cashier"`
	Sales          decimal.Decimal    `json:"sales"`
	Returns        decimal.Decimal    `json:"returns"`
	MadaSales      decimal.Decimal    `json:"madaSales"`
	VisaSales      decimal.Decimal    `json:"visaSales"`
	NetworkSales   decimal.Decimal    `json:"networkSales"`
	CashHandedOver decimal.Decimal    `json:"cashHandedOver"`
	TotalSales     decimal.Decimal    `json:"totalSales"`
	NetSales       decimal.Decimal    `json:"netSales"`
	Difference     decimal.Decimal    `json:"difference"`
	Type           ReconciliationType `json:"type"`
	Notes          string             `json:"notes,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

func (p POSReconciliation) RecordID() string { return p.ID }

type LedgerKind string

const (
	LedgerExpense  LedgerKind = "expense"
	LedgerPayment  LedgerKind = "payment"
	LedgerTransfer LedgerKind = "transfer"
	LedgerDeposit  LedgerKind = "deposit"
)

// LedgerEntry is one manual line in a treasury day.
type LedgerEntry struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Statement   string          `json:"statement,omitempty"`
}

// TreasuryReconciliation is the cash-flow closing of one calendar day.
type TreasuryReconciliation struct {
	ID             string          `json:"id"`
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	POSSales       decimal.Decimal `json:"posSales"`
	POSNetwork     decimal.Decimal `json:"posNetwork"`
	Returns        decimal.Decimal `json:"returns"`
	ActualCash     decimal.Decimal `json:"actualCash"`
	Expenses       []LedgerEntry   `json:"expenses"`
	Payments       []LedgerEntry   `json:"payments"`
	Transfers      []LedgerEntry   `json:"transfers"`
	Deposits       []LedgerEntry   `json:"deposits"`
	NetCash        decimal.Decimal `json:"netCash"`
	BookBalance    decimal.Decimal `json:"bookBalance"`
	Difference     decimal.Decimal `json:"difference"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (t TreasuryReconciliation) RecordID() string { return t.ID }

// Entries returns the ledger list for kind.
func (t TreasuryReconciliation) Entries(kind LedgerKind) []LedgerEntry {
	switch kind {
	case LedgerExpense:
		return t.Expenses
	case LedgerPayment:
		return t.Payments
	case LedgerTransfer:
		return t.Transfers
	case LedgerDeposit:
		return t.Deposits
	}
	return nil
}

// LedgerKinds in report order.
var LedgerKinds = []LedgerKind{LedgerExpense, LedgerPayment, LedgerTransfer, LedgerDeposit}

// TreasuryDefinitions holds the auto-complete labels for ledger entries.
type TreasuryDefinitions struct {
	Expenses  []string `json:"expenses"`
	Payments  []string `json:"payments"`
	Transfers []string `json:"transfers"`
	Deposits  []string `json:"deposits"`
}

func DefaultTreasuryDefinitions() TreasuryDefinitions {
	return TreasuryDefinitions{
		Expenses:  []string{"كهرباء", "ماء", "إيجار", "رواتب", "نثريات", "صيانة"},
		Payments:  []string{"مورد 1", "مورد 2", "شركة المراعي", "شركة الصافي"},
		Transfers: []string{"تحويل للمالك", "إيداع بنكي"},
		Deposits:  []string{"مبيعات نقدية", "إيراد آخر"},
	}
}
