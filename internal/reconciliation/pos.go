// Package reconciliation holds the daily closing calculations for POS
// terminals and the treasury.
package reconciliation

import (
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/salesledger/internal/domain"
)

// POSInput is what a cashier enters when closing a terminal.
type POSInput struct {
	Sales          decimal.Decimal `json:"sales"`
	Returns        decimal.Decimal `json:"returns"`
	MadaSales      decimal.Decimal `json:"madaSales"`
	VisaSales      decimal.Decimal `json:"visaSales"`
	CashHandedOver decimal.Decimal `json:"cashHandedOver"`
}

type POSResult struct {
	TotalSales   decimal.Decimal           `json:"totalSales"`
	NetworkSales decimal.Decimal           `json:"networkSales"`
	NetSales     decimal.Decimal           `json:"netSales"`
	Difference   decimal.Decimal           `json:"difference"`
	Type         domain.ReconciliationType `json:"type"`
}

// CalculatePOS derives expected cash and the over/short amount.
func CalculatePOS(in POSInput) POSResult {
	total := in.Sales.Sub(in.Returns)
	network := in.MadaSales.Add(in.VisaSales)
	net := total.Sub(network)
	diff := in.CashHandedOver.Sub(net)
	return POSResult{
		TotalSales:   total,
		NetworkSales: network,
		NetSales:     net,
		Difference:   diff,
		Type:         Classify(diff),
	}
}

// Classify maps the sign of a difference to surplus, deficit or balanced.
func Classify(diff decimal.Decimal) domain.ReconciliationType {
	switch diff.Sign() {
	case 1:
		return domain.ReconciliationSurplus
	case -1:
		return domain.ReconciliationDeficit
	}
	return domain.ReconciliationBalanced
}

// ApplyPOS recomputes every derived field of rec from its inputs.
func ApplyPOS(rec *domain.POSReconciliation) {
	res := CalculatePOS(POSInput{
		Sales:          rec.Sales,
		Returns:        rec.Returns,
		MadaSales:      rec.MadaSales,
		VisaSales:      rec.VisaSales,
		CashHandedOver: rec.CashHandedOver,
	})
	rec.TotalSales = res.TotalSales
	rec.NetworkSales = res.NetworkSales
	rec.NetSales = res.NetSales
	rec.Difference = res.Difference
	rec.Type = res.Type
}

// DayPOSTotals is the sum of every terminal closing for one date, the input
// the treasury day starts from.
type DayPOSTotals struct {
	Date         string          `json:"date"`
	Terminals    int             `json:"terminals"`
	Sales        decimal.Decimal `json:"sales"`
	Returns      decimal.Decimal `json:"returns"`
	TotalSales   decimal.Decimal `json:"totalSales"`
	NetworkSales decimal.Decimal `json:"networkSales"`
	NetSales     decimal.Decimal `json:"netSales"`
	CashHanded   decimal.Decimal `json:"cashHandedOver"`
	Difference   decimal.Decimal `json:"difference"`
}

// AggregatePOSForDay sums POS closings of date. Derived fields are recomputed
// so stale stored values cannot leak into the treasury.
func AggregatePOSForDay(recs []domain.POSReconciliation, date string) DayPOSTotals {
	out := DayPOSTotals{Date: date}
	for _, r := range recs {
		if r.Date != date {
			continue
		}
		ApplyPOS(&r)
		out.Terminals++
		out.Sales = out.Sales.Add(r.Sales)
		out.Returns = out.Returns.Add(r.Returns)
		out.TotalSales = out.TotalSales.Add(r.TotalSales)
		out.NetworkSales = out.NetworkSales.Add(r.NetworkSales)
		out.NetSales = out.NetSales.Add(r.NetSales)
		out.CashHanded = out.CashHanded.Add(r.CashHandedOver)
		out.Difference = out.Difference.Add(r.Difference)
	}
	return out
}

// POSSummary totals closings over a date range.
type POSSummary struct {
	Count           int             `json:"count"`
	SurplusCount    int             `json:"surplusCount"`
	DeficitCount    int             `json:"deficitCount"`
	BalancedCount   int             `json:"balancedCount"`
	TotalSurplus    decimal.Decimal `json:"totalSurplus"`
	TotalDeficit    decimal.Decimal `json:"totalDeficit"`
	NetDifference   decimal.Decimal `json:"netDifference"`
	TotalSales      decimal.Decimal `json:"totalSales"`
	TotalNetwork    decimal.Decimal `json:"totalNetwork"`
	TotalCashHanded decimal.Decimal `json:"totalCashHandedOver"`
}

// SummarizePOS covers closings with from <= date <= to; empty bounds are open.
func SummarizePOS(recs []domain.POSReconciliation, from, to string) POSSummary {
	var s POSSummary
	for _, r := range recs {
		if (from != "" && r.Date < from) || (to != "" && r.Date > to) {
			continue
		}
		ApplyPOS(&r)
		s.Count++
		switch r.Type {
		case domain.ReconciliationSurplus:
			s.SurplusCount++
			s.TotalSurplus = s.TotalSurplus.Add(r.Difference)
		case domain.ReconciliationDeficit:
			s.DeficitCount++
			s.TotalDeficit = s.TotalDeficit.Add(r.Difference.Abs())
		default:
			s.BalancedCount++
		}
		s.NetDifference = s.NetDifference.Add(r.Difference)
		s.TotalSales = s.TotalSales.Add(r.TotalSales)
		s.TotalNetwork = s.TotalNetwork.Add(r.NetworkSales)
		s.TotalCashHanded = s.TotalCashHanded.Add(r.CashHandedOver)
	}
	return s
}
