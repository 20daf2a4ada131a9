package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/salesledger/internal/domain"
)

const recentSalesLimit = 10

// Dashboard is the landing page summary. "Today" is the latest date present in
// the data and "yesterday" the one before it.
type Dashboard struct {
	LatestDate     string              `json:"latestDate"`
	TodayTotal     float64             `json:"todayTotal"`
	PreviousDate   string              `json:"previousDate,omitempty"`
	PreviousTotal  float64             `json:"previousTotal"`
	DayTrend       TrendIndicator      `json:"dayTrend"`
	MonthToDate    float64             `json:"monthToDate"`
	LastMonthTotal float64             `json:"lastMonthTotal"`
	MonthTrend     TrendIndicator      `json:"monthTrend"`
	TopBranch      *BranchTotal        `json:"topBranch,omitempty"`
	BranchCount    int                 `json:"branchCount"`
	RecordCount    int                 `json:"recordCount"`
	RecentSales    []domain.SaleRecord `json:"recentSales"`
	Daily          []DayTotal          `json:"daily"`
	Branches       []BranchTotal       `json:"branches"`
}

func BuildDashboard(sales []domain.SaleRecord) *Dashboard {
	d := &Dashboard{
		RecordCount: len(sales),
		RecentSales: []domain.SaleRecord{},
		Daily:       []DayTotal{},
		Branches:    TotalsByBranch(sales),
	}
	if len(sales) == 0 {
		d.DayTrend = Indicator(0, 0)
		d.MonthTrend = Indicator(0, 0)
		return d
	}

	dates := DistinctDates(sales)
	d.LatestDate = dates[0]
	d.TodayTotal = DayTotalFor(sales, d.LatestDate)
	if len(dates) > 1 {
		d.PreviousDate = dates[1]
		d.PreviousTotal = DayTotalFor(sales, d.PreviousDate)
	}
	d.DayTrend = Indicator(d.TodayTotal, d.PreviousTotal)

	if today, err := time.Parse(domain.DateLayout, d.LatestDate); err == nil {
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		lastStart := monthStart.AddDate(0, -1, 0)
		lastEnd := monthStart.AddDate(0, 0, -1)
		d.MonthToDate = sumFiltered(sales, domain.SalesFilter{
			From: monthStart.Format(domain.DateLayout),
			To:   d.LatestDate,
		})
		d.LastMonthTotal = sumFiltered(sales, domain.SalesFilter{
			From: lastStart.Format(domain.DateLayout),
			To:   lastEnd.Format(domain.DateLayout),
		})
	}
	d.MonthTrend = Indicator(d.MonthToDate, d.LastMonthTotal)

	if len(d.Branches) > 0 {
		top := d.Branches[0]
		d.TopBranch = &top
	}
	d.BranchCount = len(d.Branches)
	d.RecentSales = RecentSales(sales, recentSalesLimit)

	daily := TotalsByDay(sales)
	if len(daily) > 30 {
		daily = daily[len(daily)-30:]
	}
	d.Daily = daily
	return d
}

// RecentSales returns up to limit sales, newest date first and newest entry
// first within a date.
func RecentSales(sales []domain.SaleRecord, limit int) []domain.SaleRecord {
	sorted := make([]domain.SaleRecord, len(sales))
	copy(sorted, sales)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func sumFiltered(sales []domain.SaleRecord, f domain.SalesFilter) float64 {
	var total float64
	for _, s := range sales {
		if f.Match(s) {
			total += s.Amount
		}
	}
	return total
}

type DailyReport struct {
	Date           string              `json:"date"`
	Total          float64             `json:"total"`
	Count          int                 `json:"count"`
	MaxTransaction float64             `json:"maxTransaction"`
	Branches       []BranchTotal       `json:"branches"`
	Sales          []domain.SaleRecord `json:"sales"`
	MonthToDate    float64             `json:"monthToDate"`
	MonthlyAverage float64             `json:"monthlyAverage"`
}

// BuildDailyReport summarizes one date. The monthly average divides the
// month-to-date total by the day of month.
func BuildDailyReport(sales []domain.SaleRecord, date string) (*DailyReport, error) {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", domain.ErrInvalidRange, date)
	}
	day := Filter(sales, domain.SalesFilter{From: date, To: date})
	r := &DailyReport{
		Date:     date,
		Count:    len(day),
		Branches: TotalsByBranch(day),
		Sales:    day,
	}
	for _, s := range day {
		r.Total += s.Amount
		if s.Amount > r.MaxTransaction {
			r.MaxTransaction = s.Amount
		}
	}
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout)
	r.MonthToDate = sumFiltered(sales, domain.SalesFilter{From: monthStart, To: date})
	r.MonthlyAverage = r.MonthToDate / float64(t.Day())
	return r, nil
}

type RangeReport struct {
	From         string        `json:"from"`
	To           string        `json:"to"`
	Branch       string        `json:"branch,omitempty"`
	Total        float64       `json:"total"`
	Count        int           `json:"count"`
	Days         int           `json:"days"`
	DailyAverage float64       `json:"dailyAverage"`
	Branches     []BranchTotal `json:"branches"`
	Daily        []DayTotal    `json:"daily"`
}

// BuildRangeReport covers an inclusive date range. The daily average divides
// by calendar days, not days with sales.
func BuildRangeReport(sales []domain.SaleRecord, f domain.SalesFilter) (*RangeReport, error) {
	from, err := time.Parse(domain.DateLayout, f.From)
	if err != nil {
		return nil, fmt.Errorf("%w: bad from date %q", domain.ErrInvalidRange, f.From)
	}
	to, err := time.Parse(domain.DateLayout, f.To)
	if err != nil {
		return nil, fmt.Errorf("%w: bad to date %q", domain.ErrInvalidRange, f.To)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: from %s is after to %s", domain.ErrInvalidRange, f.From, f.To)
	}
	matched := Filter(sales, f)
	r := &RangeReport{
		From:     f.From,
		To:       f.To,
		Branch:   f.Branch,
		Count:    len(matched),
		Days:     int(to.Sub(from).Hours()/24) + 1,
		Branches: TotalsByBranch(matched),
		Daily:    TotalsByDay(matched),
	}
	for _, s := range matched {
		r.Total += s.Amount
	}
	r.DailyAverage = r.Total / float64(r.Days)
	return r, nil
}

type MonthlyReport struct {
	Year    int          `json:"year"`
	Months  []MonthTotal `json:"months"`
	Total   float64      `json:"total"`
	Best    *MonthTotal  `json:"best,omitempty"`
	Average float64      `json:"average"`
}

// BuildMonthlyReport returns all twelve months of year, zero filled. Average
// is taken over months with sales.
func BuildMonthlyReport(sales []domain.SaleRecord, year int) *MonthlyReport {
	months := yearMonths(sales, year)
	r := &MonthlyReport{Year: year, Months: months}
	active := 0
	for i, m := range months {
		r.Total += m.Total
		if m.Count > 0 {
			active++
		}
		if m.Total > 0 && (r.Best == nil || m.Total > r.Best.Total) {
			best := months[i]
			r.Best = &best
		}
	}
	if active > 0 {
		r.Average = r.Total / float64(active)
	}
	return r
}

func yearMonths(sales []domain.SaleRecord, year int) []MonthTotal {
	months := make([]MonthTotal, 12)
	idx := make(map[string]int, 12)
	for i := range months {
		key := fmt.Sprintf("%04d-%02d", year, i+1)
		months[i] = MonthTotal{Month: key}
		idx[key] = i
	}
	for _, s := range sales {
		if i, ok := idx[s.Month()]; ok {
			months[i].Total += s.Amount
			months[i].Count++
		}
	}
	return months
}

type MonthComparison struct {
	Month    int      `json:"month"`
	Current  float64  `json:"current"`
	Previous float64  `json:"previous"`
	Growth   *float64 `json:"growth"`
}

type YearlyComparison struct {
	Year          int               `json:"year"`
	PreviousYear  int               `json:"previousYear"`
	Months        []MonthComparison `json:"months"`
	CurrentTotal  float64           `json:"currentTotal"`
	PreviousTotal float64           `json:"previousTotal"`
	Growth        *float64          `json:"growth"`
}

// BuildYearlyComparison compares each month of year with the same month of
// the previous year. Growth is nil when the previous value is zero.
func BuildYearlyComparison(sales []domain.SaleRecord, year int) *YearlyComparison {
	cur := yearMonths(sales, year)
	prev := yearMonths(sales, year-1)
	r := &YearlyComparison{
		Year:         year,
		PreviousYear: year - 1,
		Months:       make([]MonthComparison, 12),
	}
	for i := range cur {
		r.Months[i] = MonthComparison{
			Month:    i + 1,
			Current:  cur[i].Total,
			Previous: prev[i].Total,
			Growth:   growthOrNil(cur[i].Total, prev[i].Total),
		}
		r.CurrentTotal += cur[i].Total
		r.PreviousTotal += prev[i].Total
	}
	r.Growth = growthOrNil(r.CurrentTotal, r.PreviousTotal)
	return r
}

func growthOrNil(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	g := GrowthRate(current, previous)
	return &g
}

// BuildBranchesReport includes every known branch, even without sales, and
// sets Share relative to the best branch.
func BuildBranchesReport(sales []domain.SaleRecord, branches []domain.Branch) []BranchTotal {
	idx := make(map[string]*BranchTotal)
	for _, b := range branches {
		if _, ok := idx[b.Name]; !ok {
			idx[b.Name] = &BranchTotal{Branch: b.Name}
		}
	}
	for _, s := range sales {
		bt, ok := idx[s.Branch]
		if !ok {
			bt = &BranchTotal{Branch: s.Branch}
			idx[s.Branch] = bt
		}
		bt.Total += s.Amount
		bt.Count++
	}
	out := make([]BranchTotal, 0, len(idx))
	var best float64
	for _, bt := range idx {
		if bt.Count > 0 {
			bt.Average = bt.Total / float64(bt.Count)
		}
		if bt.Total > best {
			best = bt.Total
		}
		out = append(out, *bt)
	}
	for i := range out {
		if best > 0 {
			out[i].Share = out[i].Total / best * 100
		}
	}
	sortBranchTotals(out)
	return out
}

type PeakReport struct {
	Weekdays []WeekdayTotal `json:"weekdays"`
	Best     *WeekdayTotal  `json:"best,omitempty"`
}

func BuildPeakReport(sales []domain.SaleRecord) *PeakReport {
	weekdays := TotalsByWeekday(sales)
	return &PeakReport{Weekdays: weekdays, Best: BestWeekday(weekdays)}
}

type BranchTrend struct {
	Branch string       `json:"branch"`
	Months []MonthTotal `json:"months"`
	Total  float64      `json:"total"`
	Growth float64      `json:"growth"`
}

type BranchTrendsReport struct {
	Months   []string      `json:"months"`
	Branches []BranchTrend `json:"branches"`
}

// BuildBranchTrends returns the twelve months ending at the month of the
// latest sale for each branch. Growth compares the last two months.
func BuildBranchTrends(sales []domain.SaleRecord) *BranchTrendsReport {
	r := &BranchTrendsReport{Months: []string{}, Branches: []BranchTrend{}}
	latest := LatestDate(sales)
	if latest == "" {
		return r
	}
	end, err := time.Parse(monthLayout, latest[:7])
	if err != nil {
		return r
	}
	start := end.AddDate(0, -11, 0)
	months, _ := MonthsInRange(start.Format(monthLayout), end.Format(monthLayout))
	r.Months = months
	col := make(map[string]int, len(months))
	for i, m := range months {
		col[m] = i
	}

	idx := make(map[string]*BranchTrend)
	var order []string
	for _, s := range sales {
		c, ok := col[s.Month()]
		if !ok {
			continue
		}
		bt, ok := idx[s.Branch]
		if !ok {
			bt = &BranchTrend{Branch: s.Branch, Months: make([]MonthTotal, len(months))}
			for i, m := range months {
				bt.Months[i].Month = m
			}
			idx[s.Branch] = bt
			order = append(order, s.Branch)
		}
		bt.Months[c].Total += s.Amount
		bt.Months[c].Count++
		bt.Total += s.Amount
	}
	for _, name := range order {
		bt := idx[name]
		n := len(bt.Months)
		bt.Growth = GrowthRate(bt.Months[n-1].Total, bt.Months[n-2].Total)
		r.Branches = append(r.Branches, *bt)
	}
	sort.Slice(r.Branches, func(i, j int) bool {
		if r.Branches[i].Total != r.Branches[j].Total {
			return r.Branches[i].Total > r.Branches[j].Total
		}
		return r.Branches[i].Branch < r.Branches[j].Branch
	})
	return r
}

// BranchDetail summarizes one branch over an optional date range.
type BranchDetail struct {
	Branch string         `json:"branch"`
	Info   *domain.Branch `json:"info,omitempty"`
	// From and To echo the filter, or the first and last sale dates when the
	// filter leaves them open.
	From       string  `json:"from,omitempty"`
	To         string  `json:"to,omitempty"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	ActiveDays int     `json:"activeDays"`
	// AveragePerDay divides by days with sales.
	AveragePerDay float64             `json:"averagePerDay"`
	BestDay       *DayTotal           `json:"bestDay,omitempty"`
	LastDay       string              `json:"lastDay,omitempty"`
	Daily         []DayTotal          `json:"daily"`
	Sales         []domain.SaleRecord `json:"sales"`
}

// BuildBranchDetail reports on the sales of branch within f's dates. f's own
// branch is ignored.
func BuildBranchDetail(sales []domain.SaleRecord, branch string, f domain.SalesFilter) (*BranchDetail, error) {
	if f.From != "" && f.To != "" && f.From > f.To {
		return nil, fmt.Errorf("%w: from %s is after to %s", domain.ErrInvalidRange, f.From, f.To)
	}
	f.Branch = branch
	matched := Filter(sales, f)
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Date > matched[j].Date })

	d := &BranchDetail{
		Branch:  branch,
		From:    f.From,
		To:      f.To,
		Count:   len(matched),
		Daily:   TotalsByDay(matched),
		Sales:   matched,
		BestDay: BestDate(matched),
	}
	for _, s := range matched {
		d.Total += s.Amount
	}
	d.ActiveDays = len(d.Daily)
	if d.ActiveDays > 0 {
		d.AveragePerDay = d.Total / float64(d.ActiveDays)
		d.LastDay = d.Daily[d.ActiveDays-1].Date
		if d.From == "" {
			d.From = d.Daily[0].Date
		}
		if d.To == "" {
			d.To = d.LastDay
		}
	}
	return d, nil
}
