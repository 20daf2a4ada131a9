package reconciliation

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/salesledger/internal/domain"
)

// TreasuryReportQuery filters the flattened ledger. Empty fields match all.
type TreasuryReportQuery struct {
	From   string            `form:"from" json:"from,omitempty"`
	To     string            `form:"to" json:"to,omitempty"`
	Type   domain.LedgerKind `form:"type" json:"type,omitempty"`
	Search string            `form:"search" json:"search,omitempty"`
}

// TreasuryLine is one ledger entry with the day it belongs to.
type TreasuryLine struct {
	Date        string            `json:"date"`
	Kind        domain.LedgerKind `json:"type"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
}

type TreasuryReport struct {
	Query  TreasuryReportQuery                   `json:"query"`
	Lines  []TreasuryLine                        `json:"lines"`
	Totals map[domain.LedgerKind]decimal.Decimal `json:"totals"`
	Total  decimal.Decimal                       `json:"total"`
}

// BuildTreasuryReport flattens the ledger lists of every day in range. A
// statement is appended to the description as "desc - statement". Search is
// case-insensitive over the combined description. Lines are newest first.
func BuildTreasuryReport(days []domain.TreasuryReconciliation, q TreasuryReportQuery) TreasuryReport {
	r := TreasuryReport{
		Query:  q,
		Lines:  make([]TreasuryLine, 0),
		Totals: make(map[domain.LedgerKind]decimal.Decimal, len(domain.LedgerKinds)),
		Total:  decimal.Zero,
	}
	for _, k := range domain.LedgerKinds {
		r.Totals[k] = decimal.Zero
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	for _, d := range days {
		if (q.From != "" && d.Date < q.From) || (q.To != "" && d.Date > q.To) {
			continue
		}
		for _, kind := range domain.LedgerKinds {
			if q.Type != "" && q.Type != kind {
				continue
			}
			for _, e := range d.Entries(kind) {
				desc := e.Description
				if e.Statement != "" {
					desc = desc + " - " + e.Statement
				}
				if needle != "" && !strings.Contains(strings.ToLower(desc), needle) {
					continue
				}
				r.Lines = append(r.Lines, TreasuryLine{
					Date:        d.Date,
					Kind:        kind,
					Description: desc,
					Amount:      e.Amount,
				})
				r.Totals[kind] = r.Totals[kind].Add(e.Amount)
				r.Total = r.Total.Add(e.Amount)
			}
		}
	}
	sort.SliceStable(r.Lines, func(i, j int) bool { return r.Lines[i].Date > r.Lines[j].Date })
	return r
}

func sortChainBreaks(breaks []ChainBreak) {
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Date < breaks[j].Date })
}
