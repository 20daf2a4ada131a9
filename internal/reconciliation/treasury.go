package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/salesledger/internal/domain"
)

type TreasuryInput struct {
	OpeningBalance decimal.Decimal      `json:"openingBalance"`
	POSSales       decimal.Decimal      `json:"posSales"`
	POSNetwork     decimal.Decimal      `json:"posNetwork"`
	Returns        decimal.Decimal      `json:"returns"`
	ActualCash     decimal.Decimal      `json:"actualCash"`
	Expenses       []domain.LedgerEntry `json:"expenses"`
	Payments       []domain.LedgerEntry `json:"payments"`
	Transfers      []domain.LedgerEntry `json:"transfers"`
	Deposits       []domain.LedgerEntry `json:"deposits"`
}

type TreasuryResult struct {
	TotalExpenses  decimal.Decimal `json:"totalExpenses"`
	TotalPayments  decimal.Decimal `json:"totalPayments"`
	TotalTransfers decimal.Decimal `json:"totalTransfers"`
	TotalDeposits  decimal.Decimal `json:"totalDeposits"`
	TotalReceipts  decimal.Decimal `json:"totalReceipts"`
	TotalNonCash   decimal.Decimal `json:"totalNonCash"`
	TotalOutflows  decimal.Decimal `json:"totalOutflows"`
	NetDailyCash   decimal.Decimal `json:"netDailyCash"`
	BookBalance    decimal.Decimal `json:"bookBalance"`
	Difference     decimal.Decimal `json:"difference"`
}

// SumEntries adds the amounts of a ledger list.
func SumEntries(entries []domain.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// CalculateTreasury derives the cash-flow figures of a treasury day.
// Deposits add to the book balance while counting as outflows of the daily
// cash-flow figure.
func CalculateTreasury(in TreasuryInput) TreasuryResult {
	expenses := SumEntries(in.Expenses)
	payments := SumEntries(in.Payments)
	transfers := SumEntries(in.Transfers)
	deposits := SumEntries(in.Deposits)

	receipts := in.OpeningBalance.Add(in.POSSales).Add(in.Returns)
	nonCash := in.POSNetwork.Add(transfers)
	outflows := expenses.Add(payments).Add(deposits)
	netDaily := receipts.Sub(nonCash).Sub(outflows)

	credits := in.POSSales.Add(deposits)
	debits := in.Returns.Add(in.POSNetwork).Add(expenses).Add(payments).Add(transfers)
	book := in.OpeningBalance.Add(credits).Sub(debits)

	return TreasuryResult{
		TotalExpenses:  expenses,
		TotalPayments:  payments,
		TotalTransfers: transfers,
		TotalDeposits:  deposits,
		TotalReceipts:  receipts,
		TotalNonCash:   nonCash,
		TotalOutflows:  outflows,
		NetDailyCash:   netDaily,
		BookBalance:    book,
		Difference:     in.ActualCash.Sub(book),
	}
}

// ApplyTreasury recomputes the derived fields of rec.
func ApplyTreasury(rec *domain.TreasuryReconciliation) TreasuryResult {
	res := CalculateTreasury(TreasuryInput{
		OpeningBalance: rec.OpeningBalance,
		POSSales:       rec.POSSales,
		POSNetwork:     rec.POSNetwork,
		Returns:        rec.Returns,
		ActualCash:     rec.ActualCash,
		Expenses:       rec.Expenses,
		Payments:       rec.Payments,
		Transfers:      rec.Transfers,
		Deposits:       rec.Deposits,
	})
	rec.NetCash = res.NetDailyCash
	rec.BookBalance = res.BookBalance
	rec.Difference = res.Difference
	return res
}

// OpeningSuggestion is the carried-forward opening balance for a day.
type OpeningSuggestion struct {
	Date           string          `json:"date"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	// Chained is true when the previous calendar day has a treasury record.
	Chained      bool   `json:"chained"`
	PreviousDate string `json:"previousDate"`
}

// SuggestOpeningBalance returns the previous calendar day's counted cash, or
// zero when that day has no record. It never looks further back than one day.
func SuggestOpeningBalance(days []domain.TreasuryReconciliation, date string) (OpeningSuggestion, error) {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return OpeningSuggestion{}, domain.ErrInvalidRange
	}
	prev := t.AddDate(0, 0, -1).Format(domain.DateLayout)
	s := OpeningSuggestion{Date: date, OpeningBalance: decimal.Zero, PreviousDate: prev}
	for _, d := range days {
		if d.Date == prev {
			s.OpeningBalance = d.ActualCash
			s.Chained = true
			break
		}
	}
	return s, nil
}

// ChainBreak reports a stored day whose opening balance differs from the
// previous day's counted cash.
type ChainBreak struct {
	Date           string          `json:"date"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	PreviousDate   string          `json:"previousDate"`
	PreviousActual decimal.Decimal `json:"previousActualCash"`
	Gap            decimal.Decimal `json:"gap"`
}

// FindChainBreaks lists days that do not carry forward the previous calendar
// day's actual cash. Days whose previous day is missing are skipped.
func FindChainBreaks(days []domain.TreasuryReconciliation) []ChainBreak {
	byDate := make(map[string]domain.TreasuryReconciliation, len(days))
	for _, d := range days {
		byDate[d.Date] = d
	}
	out := make([]ChainBreak, 0)
	for _, d := range days {
		t, err := time.Parse(domain.DateLayout, d.Date)
		if err != nil {
			continue
		}
		prevDate := t.AddDate(0, 0, -1).Format(domain.DateLayout)
		prev, ok := byDate[prevDate]
		if !ok {
			continue
		}
		if !d.OpeningBalance.Equal(prev.ActualCash) {
			out = append(out, ChainBreak{
				Date:           d.Date,
				OpeningBalance: d.OpeningBalance,
				PreviousDate:   prevDate,
				PreviousActual: prev.ActualCash,
				Gap:            d.OpeningBalance.Sub(prev.ActualCash),
			})
		}
	}
	sortChainBreaks(out)
	return out
}
