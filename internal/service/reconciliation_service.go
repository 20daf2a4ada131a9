package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/reconciliation"
	"github.com/andresuchdata/salesledger/internal/store"
)

type ReconciliationService struct {
	store *store.Store
	now   func() time.Time
}

func NewReconciliationService(st *store.Store) *ReconciliationService {
	return &ReconciliationService{store: st, now: time.Now}
}

// POSFilter narrows POS closings. Empty fields match all.
type POSFilter struct {
	From  string `form:"from"`
	To    string `form:"to"`
	POSID string `form:"posId"`
}

func (s *ReconciliationService) PreviewPOS(in reconciliation.POSInput) reconciliation.POSResult {
	return reconciliation.CalculatePOS(in)
}

func (s *ReconciliationService) ListPOS(ctx context.Context, f POSFilter) ([]domain.POSReconciliation, error) {
	recs, err := s.store.Reconciliations.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.POSReconciliation, 0, len(recs))
	for _, r := range recs {
		if (f.From != "" && r.Date < f.From) || (f.To != "" && r.Date > f.To) {
			continue
		}
		if f.POSID != "" && r.POSID != f.POSID {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].POSName < out[j].POSName
	})
	return out, nil
}

func (s *ReconciliationService) POSSummary(ctx context.Context, from, to string) (reconciliation.POSSummary, error) {
	recs, err := s.store.Reconciliations.Get(ctx)
	if err != nil {
		return reconciliation.POSSummary{}, err
	}
	return reconciliation.SummarizePOS(recs, from, to), nil
}

// DailyPOS totals every terminal closing of date.
func (s *ReconciliationService) DailyPOS(ctx context.Context, date string) (reconciliation.DayPOSTotals, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return reconciliation.DayPOSTotals{}, fmt.Errorf("%w: bad date %q", domain.ErrInvalidRange, date)
	}
	recs, err := s.store.Reconciliations.Get(ctx)
	if err != nil {
		return reconciliation.DayPOSTotals{}, err
	}
	return reconciliation.AggregatePOSForDay(recs, date), nil
}

// SavePOS creates (empty id) or replaces a terminal closing. Derived fields are
// always recomputed.
func (s *ReconciliationService) SavePOS(ctx context.Context, rec domain.POSReconciliation) (*Saved[domain.POSReconciliation], error) {
	rec.Notes = strings.TrimSpace(rec.Notes)
	verr := validateStruct(rec)
	if rec.Sales.IsNegative() {
		verr.Add("sales", "must be greater than or equal to 0")
	}
	if rec.Returns.IsNegative() {
		verr.Add("returns", "must be greater than or equal to 0")
	}
	if rec.CashHandedOver.IsNegative() {
		verr.Add("cashHandedOver", "must be greater than or equal to 0")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	terminals, err := s.store.POS.Get(ctx)
	if err != nil {
		return nil, err
	}
	if i, ok := findByID(terminals, rec.POSID); ok {
		rec.POSName = terminals[i].Name
		if rec.Cashier == "" {
			rec.Cashier = terminals[i].Cashier
		}
	}
	reconciliation.ApplyPOS(&rec)

	now := s.now()
	res, err := s.store.Reconciliations.Update(ctx, func(recs []domain.POSReconciliation) ([]domain.POSReconciliation, error) {
		return upsert(recs, &rec, func(r *domain.POSReconciliation, id string) { r.ID = id },
			func(r *domain.POSReconciliation, prev domain.POSReconciliation) {
				r.CreatedAt = prev.CreatedAt
				r.UpdatedAt = now
			},
			func(r *domain.POSReconciliation) {
				r.CreatedAt = now
				r.UpdatedAt = now
			})
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.POSReconciliation]{Record: rec, Write: res}, nil
}

func (s *ReconciliationService) DeletePOS(ctx context.Context, id string) (store.WriteResult, error) {
	return deleteByID(ctx, s.store.Reconciliations, "reconciliation", id)
}

// Treasury

func (s *ReconciliationService) PreviewTreasury(in reconciliation.TreasuryInput) reconciliation.TreasuryResult {
	return reconciliation.CalculateTreasury(in)
}

func (s *ReconciliationService) ListTreasury(ctx context.Context, from, to string) ([]domain.TreasuryReconciliation, error) {
	days, err := s.store.Treasury.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TreasuryReconciliation, 0, len(days))
	for _, d := range days {
		if (from != "" && d.Date < from) || (to != "" && d.Date > to) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *ReconciliationService) GetTreasury(ctx context.Context, id string) (domain.TreasuryReconciliation, error) {
	return getByID(ctx, s.store.Treasury, "treasury day", id)
}

func (s *ReconciliationService) SuggestOpening(ctx context.Context, date string) (reconciliation.OpeningSuggestion, error) {
	days, err := s.store.Treasury.Get(ctx)
	if err != nil {
		return reconciliation.OpeningSuggestion{}, err
	}
	return reconciliation.SuggestOpeningBalance(days, date)
}

// TreasuryDraft is a new treasury day pre-filled from the POS closings and the
// previous day's counted cash.
type TreasuryDraft struct {
	Record  domain.TreasuryReconciliation    `json:"record"`
	Opening reconciliation.OpeningSuggestion `json:"opening"`
	POS     reconciliation.DayPOSTotals      `json:"pos"`
	Result  reconciliation.TreasuryResult    `json:"result"`
}

func (s *ReconciliationService) DraftTreasury(ctx context.Context, date string) (*TreasuryDraft, error) {
	opening, err := s.SuggestOpening(ctx, date)
	if err != nil {
		return nil, err
	}
	pos, err := s.DailyPOS(ctx, date)
	if err != nil {
		return nil, err
	}
	rec := domain.TreasuryReconciliation{
		Date:           date,
		OpeningBalance: opening.OpeningBalance,
		POSSales:       pos.TotalSales,
		POSNetwork:     pos.NetworkSales,
		Expenses:       []domain.LedgerEntry{},
		Payments:       []domain.LedgerEntry{},
		Transfers:      []domain.LedgerEntry{},
		Deposits:       []domain.LedgerEntry{},
	}
	res := reconciliation.ApplyTreasury(&rec)
	return &TreasuryDraft{Record: rec, Opening: opening, POS: pos, Result: res}, nil
}

// SaveTreasury creates (empty id) or replaces a treasury day. One record per
// date is allowed.
func (s *ReconciliationService) SaveTreasury(ctx context.Context, rec domain.TreasuryReconciliation) (*Saved[domain.TreasuryReconciliation], error) {
	verr := validateStruct(rec)
	for _, kind := range domain.LedgerKinds {
		for i, e := range rec.Entries(kind) {
			field := fmt.Sprintf("%ss[%d]", kind, i)
			if strings.TrimSpace(e.Description) == "" {
				verr.Add(field+".description", "is required")
			}
			if e.Amount.IsNegative() {
				verr.Add(field+".amount", "must be greater than or equal to 0")
			}
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	reconciliation.ApplyTreasury(&rec)

	now := s.now()
	res, err := s.store.Treasury.Update(ctx, func(days []domain.TreasuryReconciliation) ([]domain.TreasuryReconciliation, error) {
		for _, d := range days {
			if d.ID != rec.ID && d.Date == rec.Date {
				return nil, fmt.Errorf("treasury day %s: %w", rec.Date, domain.ErrAlreadyExists)
			}
		}
		return upsert(days, &rec, func(r *domain.TreasuryReconciliation, id string) { r.ID = id },
			func(r *domain.TreasuryReconciliation, prev domain.TreasuryReconciliation) {
				r.CreatedAt = prev.CreatedAt
				r.UpdatedAt = now
			},
			func(r *domain.TreasuryReconciliation) {
				r.CreatedAt = now
				r.UpdatedAt = now
			})
	})
	if err != nil {
		return nil, err
	}
	return &Saved[domain.TreasuryReconciliation]{Record: rec, Write: res}, nil
}

func (s *ReconciliationService) DeleteTreasury(ctx context.Context, id string) (store.WriteResult, error) {
	return deleteByID(ctx, s.store.Treasury, "treasury day", id)
}

func (s *ReconciliationService) ChainBreaks(ctx context.Context) ([]reconciliation.ChainBreak, error) {
	days, err := s.store.Treasury.Get(ctx)
	if err != nil {
		return nil, err
	}
	return reconciliation.FindChainBreaks(days), nil
}

func (s *ReconciliationService) TreasuryReport(ctx context.Context, q reconciliation.TreasuryReportQuery) (reconciliation.TreasuryReport, error) {
	days, err := s.store.Treasury.Get(ctx)
	if err != nil {
		return reconciliation.TreasuryReport{}, err
	}
	return reconciliation.BuildTreasuryReport(days, q), nil
}
