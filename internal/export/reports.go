package export

import (
	"fmt"
	"io"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/reconciliation"
)

// Sales writes one row per sale followed by a total row.
func Sales(w io.Writer, sales []domain.SaleRecord) error {
	s, err := newWorkbook("Sales")
	if err != nil {
		return err
	}
	if err := s.writeHeader("Date", "Branch", "Amount", "Description", "Notes"); err != nil {
		return err
	}
	var total float64
	for _, sale := range sales {
		if _, err := s.writeRow(sale.Date, sale.Branch, sale.Amount, sale.Description, sale.Notes); err != nil {
			return err
		}
		total += sale.Amount
	}
	if _, err := s.writeRow("Total", "", total); err != nil {
		return err
	}
	if err := s.widths(5, 18); err != nil {
		return err
	}
	return s.flush(w)
}

// Matrix writes the day-by-month table with heat fills, then the column
// totals and averages.
func Matrix(w io.Writer, r analytics.MatrixReport) error {
	s, err := newWorkbook("Matrix")
	if err != nil {
		return err
	}
	header := make([]any, 0, len(r.Months)+1)
	header = append(header, "Day")
	for _, m := range r.Months {
		header = append(header, m)
	}
	if err := s.writeHeader(header...); err != nil {
		return err
	}

	for _, row := range r.Rows {
		values := make([]any, 0, len(row.Cells)+1)
		values = append(values, row.Day)
		for _, c := range row.Cells {
			if c.Value > 0 {
				values = append(values, c.Value)
			} else {
				values = append(values, "")
			}
		}
		n, err := s.writeRow(values...)
		if err != nil {
			return err
		}
		for i, c := range row.Cells {
			if color, ok := heatFills[string(c.Heat)]; ok && c.Value > 0 {
				if err := s.fill(i+2, n, color); err != nil {
					return err
				}
			}
		}
	}

	totals := []any{"Total"}
	averages := []any{"Average"}
	active := []any{"Active days"}
	for _, c := range r.Columns {
		totals = append(totals, c.Total)
		averages = append(averages, c.Average)
		active = append(active, c.ActiveDays)
	}
	for _, row := range [][]any{totals, averages, active} {
		n, err := s.writeRow(row...)
		if err != nil {
			return err
		}
		if err := s.styleRow(n, len(row), s.header); err != nil {
			return err
		}
	}
	if _, err := s.writeRow("Grand total", r.GrandTotal); err != nil {
		return err
	}
	if err := s.widths(len(r.Months)+1, 14); err != nil {
		return err
	}
	return s.flush(w)
}

// Treasury writes the flattened ledger lines and per-type totals.
func Treasury(w io.Writer, r reconciliation.TreasuryReport) error {
	s, err := newWorkbook("Treasury")
	if err != nil {
		return err
	}
	if err := s.writeHeader("Date", "Type", "Description", "Amount"); err != nil {
		return err
	}
	for _, l := range r.Lines {
		if _, err := s.writeRow(l.Date, string(l.Kind), l.Description, l.Amount.InexactFloat64()); err != nil {
			return err
		}
	}
	s.row++
	for _, k := range domain.LedgerKinds {
		if _, err := s.writeRow("", string(k), "Total", r.Totals[k].InexactFloat64()); err != nil {
			return err
		}
	}
	if _, err := s.writeRow("", "", "Grand total", r.Total.InexactFloat64()); err != nil {
		return err
	}
	if err := s.widths(4, 22); err != nil {
		return err
	}
	return s.flush(w)
}

// POSReconciliations writes one row per terminal closing.
func POSReconciliations(w io.Writer, recs []domain.POSReconciliation) error {
	s, err := newWorkbook("POS")
	if err != nil {
		return err
	}
	if err := s.writeHeader("Date", "Terminal", "Cashier", "Sales", "Returns", "Mada", "Visa",
		"Expected cash", "Cash handed over", "Difference", "Type"); err != nil {
		return err
	}
	for _, r := range recs {
		terminal := r.POSName
		if terminal == "" {
			terminal = r.POSID
		}
		if _, err := s.writeRow(r.Date, terminal, r.Cashier,
			r.Sales.InexactFloat64(), r.Returns.InexactFloat64(),
			r.MadaSales.InexactFloat64(), r.VisaSales.InexactFloat64(),
			r.NetSales.InexactFloat64(), r.CashHandedOver.InexactFloat64(),
			r.Difference.InexactFloat64(), string(r.Type)); err != nil {
			return err
		}
	}
	if err := s.widths(11, 16); err != nil {
		return err
	}
	return s.flush(w)
}

// FileName builds a dated export name such as sales_2024-01-01_2024-01-31.xlsx.
func FileName(kind string, parts ...string) string {
	name := kind
	for _, p := range parts {
		if p != "" {
			name += "_" + p
		}
	}
	return fmt.Sprintf("%s.xlsx", name)
}
