package analytics

import (
	"sort"
	"time"

	"github.com/andresuchdata/salesledger/internal/domain"
)

// DayTotal is the summed amount for one calendar date.
type DayTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// BranchTotal is the summed amount for one branch name.
type BranchTotal struct {
	Branch  string  `json:"branch"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	// Share is the branch total as a percentage of the best branch total.
	Share float64 `json:"share,omitempty"`
}

type MonthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type WeekdayTotal struct {
	Weekday int     `json:"weekday"`
	Name    string  `json:"name"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// Filter returns the sales matching f, preserving order.
func Filter(sales []domain.SaleRecord, f domain.SalesFilter) []domain.SaleRecord {
	out := make([]domain.SaleRecord, 0, len(sales))
	for _, s := range sales {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

// TotalsByDay sums amounts per date, sorted by date ascending.
func TotalsByDay(sales []domain.SaleRecord) []DayTotal {
	idx := make(map[string]*DayTotal)
	for _, s := range sales {
		d, ok := idx[s.Date]
		if !ok {
			d = &DayTotal{Date: s.Date}
			idx[s.Date] = d
		}
		d.Total += s.Amount
		d.Count++
	}
	out := make([]DayTotal, 0, len(idx))
	for _, d := range idx {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DailySeries returns the sorted distinct dates and their day totals as
// parallel slices, the input shape for forecasting.
func DailySeries(sales []domain.SaleRecord) ([]string, []float64) {
	days := TotalsByDay(sales)
	dates := make([]string, len(days))
	values := make([]float64, len(days))
	for i, d := range days {
		dates[i] = d.Date
		values[i] = d.Total
	}
	return dates, values
}

// DayTotalFor returns the summed amount for date.
func DayTotalFor(sales []domain.SaleRecord, date string) float64 {
	var total float64
	for _, s := range sales {
		if s.Date == date {
			total += s.Amount
		}
	}
	return total
}

// TotalsByBranch groups by exact branch name, sorted by total descending and
// then by name.
func TotalsByBranch(sales []domain.SaleRecord) []BranchTotal {
	idx := make(map[string]*BranchTotal)
	for _, s := range sales {
		b, ok := idx[s.Branch]
		if !ok {
			b = &BranchTotal{Branch: s.Branch}
			idx[s.Branch] = b
		}
		b.Total += s.Amount
		b.Count++
	}
	out := make([]BranchTotal, 0, len(idx))
	for _, b := range idx {
		if b.Count > 0 {
			b.Average = b.Total / float64(b.Count)
		}
		out = append(out, *b)
	}
	sortBranchTotals(out)
	return out
}

func sortBranchTotals(out []BranchTotal) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Branch < out[j].Branch
	})
}

// TotalsByWeekday always returns seven entries, Sunday first.
func TotalsByWeekday(sales []domain.SaleRecord) []WeekdayTotal {
	out := make([]WeekdayTotal, 7)
	for i := range out {
		out[i] = WeekdayTotal{Weekday: i, Name: time.Weekday(i).String()}
	}
	for _, s := range sales {
		t, ok := s.Time()
		if !ok {
			continue
		}
		w := &out[int(t.Weekday())]
		w.Total += s.Amount
		w.Count++
	}
	for i := range out {
		if out[i].Count > 0 {
			out[i].Average = out[i].Total / float64(out[i].Count)
		}
	}
	return out
}

// BestWeekday picks the weekday with the highest total. Nil when no weekday
// has sales.
func BestWeekday(weekdays []WeekdayTotal) *WeekdayTotal {
	var best *WeekdayTotal
	for i := range weekdays {
		if weekdays[i].Count == 0 {
			continue
		}
		if best == nil || weekdays[i].Total > best.Total {
			best = &weekdays[i]
		}
	}
	if best == nil {
		return nil
	}
	b := *best
	return &b
}

// BestDate is the date with the highest summed amount, the earliest date on a
// tie. Nil when sales is empty.
func BestDate(sales []domain.SaleRecord) *DayTotal {
	var best *DayTotal
	for _, d := range TotalsByDay(sales) {
		if best == nil || d.Total > best.Total {
			d := d
			best = &d
		}
	}
	return best
}

// TotalsByMonth groups on the YYYY-MM prefix, sorted ascending.
func TotalsByMonth(sales []domain.SaleRecord) []MonthTotal {
	idx := make(map[string]*MonthTotal)
	for _, s := range sales {
		m := s.Month()
		if m == "" {
			continue
		}
		mt, ok := idx[m]
		if !ok {
			mt = &MonthTotal{Month: m}
			idx[m] = mt
		}
		mt.Total += s.Amount
		mt.Count++
	}
	out := make([]MonthTotal, 0, len(idx))
	for _, m := range idx {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// DistinctDates returns every date present in sales, newest first.
func DistinctDates(sales []domain.SaleRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, s := range sales {
		if s.Date == "" {
			continue
		}
		if _, ok := seen[s.Date]; ok {
			continue
		}
		seen[s.Date] = struct{}{}
		out = append(out, s.Date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// LatestDate is the most recent date present in the data. It stands in for
// "today" so back-dated entry still shows up on the dashboard.
func LatestDate(sales []domain.SaleRecord) string {
	var latest string
	for _, s := range sales {
		if s.Date > latest {
			latest = s.Date
		}
	}
	return latest
}
