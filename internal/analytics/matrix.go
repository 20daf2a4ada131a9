package analytics

import (
	"fmt"
	"time"

	"github.com/andresuchdata/salesledger/internal/domain"
)

const monthLayout = "2006-01"

type HeatBucket string

const (
	HeatMax  HeatBucket = "max"
	HeatHigh HeatBucket = "high"
	HeatMed  HeatBucket = "med"
	HeatLow  HeatBucket = "low"
)

// MatrixQuery selects the day-of-month rows and month columns of a matrix
// report. Zero FromDay/ToDay default to 1 and 31.
type MatrixQuery struct {
	FromMonth string `form:"fromMonth" json:"fromMonth"`
	ToMonth   string `form:"toMonth" json:"toMonth"`
	FromDay   int    `form:"fromDay" json:"fromDay"`
	ToDay     int    `form:"toDay" json:"toDay"`
	Branch    string `form:"branch" json:"branch,omitempty"`
}

type MatrixCell struct {
	Month string     `json:"month"`
	Value float64    `json:"value"`
	Trend Trend      `json:"trend"`
	Heat  HeatBucket `json:"heat,omitempty"`
}

type MatrixRow struct {
	Day   int          `json:"day"`
	Cells []MatrixCell `json:"cells"`
}

type MatrixColumn struct {
	Month        string  `json:"month"`
	Total        float64 `json:"total"`
	ActiveDays   int     `json:"activeDays"`
	Average      float64 `json:"average"`
	AverageTrend Trend   `json:"averageTrend"`
}

type MatrixBestDay struct {
	Day   int     `json:"day"`
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

type MatrixBestMonth struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

type MatrixReport struct {
	Query      MatrixQuery     `json:"query"`
	Months     []string        `json:"months"`
	Rows       []MatrixRow     `json:"rows"`
	Columns    []MatrixColumn  `json:"columns"`
	GrandTotal float64         `json:"grandTotal"`
	MaxCell    float64         `json:"maxCell"`
	ActiveDays int             `json:"activeDays"`
	BestDay    MatrixBestDay   `json:"bestDay"`
	BestMonth  MatrixBestMonth `json:"bestMonth"`
	Weekdays   []WeekdayTotal  `json:"weekdays"`
}

// MonthsInRange lists every YYYY-MM month from from to to inclusive.
func MonthsInRange(from, to string) ([]string, error) {
	start, err := time.Parse(monthLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: bad month %q", domain.ErrInvalidRange, from)
	}
	end, err := time.Parse(monthLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: bad month %q", domain.ErrInvalidRange, to)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s is after %s", domain.ErrInvalidRange, from, to)
	}
	var months []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		months = append(months, cur.Format(monthLayout))
	}
	return months, nil
}

func (q *MatrixQuery) normalize() error {
	if q.FromDay == 0 {
		q.FromDay = 1
	}
	if q.ToDay == 0 {
		q.ToDay = 31
	}
	if q.FromDay < 1 || q.ToDay > 31 {
		return fmt.Errorf("%w: days must be within 1..31", domain.ErrInvalidRange)
	}
	if q.FromDay > q.ToDay {
		return fmt.Errorf("%w: fromDay %d is after toDay %d", domain.ErrInvalidRange, q.FromDay, q.ToDay)
	}
	return nil
}

// BuildMatrix lays out day-of-month rows against month columns. Heat buckets
// are relative to the largest cell of the whole matrix and averages divide by
// the days of each column that had sales.
func BuildMatrix(sales []domain.SaleRecord, q MatrixQuery) (*MatrixReport, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}
	months, err := MonthsInRange(q.FromMonth, q.ToMonth)
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(months))
	for i, m := range months {
		col[m] = i
	}

	nDays := q.ToDay - q.FromDay + 1
	grid := make([][]float64, nDays)
	for i := range grid {
		grid[i] = make([]float64, len(months))
	}

	for _, s := range sales {
		if q.Branch != "" && s.Branch != q.Branch {
			continue
		}
		t, ok := s.Time()
		if !ok {
			continue
		}
		c, ok := col[s.Month()]
		if !ok {
			continue
		}
		day := t.Day()
		if day < q.FromDay || day > q.ToDay {
			continue
		}
		grid[day-q.FromDay][c] += s.Amount
	}

	report := &MatrixReport{
		Query:    q,
		Months:   months,
		Rows:     make([]MatrixRow, nDays),
		Columns:  make([]MatrixColumn, len(months)),
		Weekdays: make([]WeekdayTotal, 7),
	}
	for i := range report.Weekdays {
		report.Weekdays[i] = WeekdayTotal{Weekday: i, Name: time.Weekday(i).String()}
	}
	for c, m := range months {
		report.Columns[c].Month = m
	}

	for r := range grid {
		day := q.FromDay + r
		for c, v := range grid[r] {
			if v <= 0 {
				continue
			}
			report.GrandTotal += v
			report.ActiveDays++
			report.Columns[c].Total += v
			report.Columns[c].ActiveDays++
			if v > report.MaxCell {
				report.MaxCell = v
			}
			if v > report.BestDay.Value {
				report.BestDay = MatrixBestDay{Day: day, Month: months[c], Value: v}
			}
			// Day 31 of a 30 day month has no weekday and never holds sales.
			if t, err := time.Parse(domain.DateLayout, fmt.Sprintf("%s-%02d", months[c], day)); err == nil {
				w := &report.Weekdays[int(t.Weekday())]
				w.Total += v
				w.Count++
			}
		}
	}
	for i := range report.Weekdays {
		if report.Weekdays[i].Count > 0 {
			report.Weekdays[i].Average = report.Weekdays[i].Total / float64(report.Weekdays[i].Count)
		}
	}

	for r := range grid {
		row := MatrixRow{Day: q.FromDay + r, Cells: make([]MatrixCell, len(months))}
		for c, v := range grid[r] {
			cell := MatrixCell{Month: months[c], Value: v, Trend: TrendFlat}
			if c > 0 {
				cell.Trend = compare(v, grid[r][c-1])
			}
			cell.Heat = heatBucket(v, report.MaxCell)
			row.Cells[c] = cell
		}
		report.Rows[r] = row
	}

	var prevAvg float64
	for c := range report.Columns {
		column := &report.Columns[c]
		if column.ActiveDays > 0 {
			column.Average = column.Total / float64(column.ActiveDays)
		}
		column.AverageTrend = TrendFlat
		if c > 0 {
			column.AverageTrend = compare(column.Average, prevAvg)
		}
		prevAvg = column.Average
		if column.Total > report.BestMonth.Value {
			report.BestMonth = MatrixBestMonth{Month: column.Month, Value: column.Total}
		}
	}

	return report, nil
}

func heatBucket(v, peak float64) HeatBucket {
	if v <= 0 || peak <= 0 {
		return ""
	}
	if v == peak {
		return HeatMax
	}
	ratio := v / peak
	switch {
	case ratio > 0.7:
		return HeatHigh
	case ratio > 0.4:
		return HeatMed
	}
	return HeatLow
}

// CellSum adds every cell of the matrix.
func (m *MatrixReport) CellSum() float64 {
	var total float64
	for _, row := range m.Rows {
		for _, c := range row.Cells {
			total += c.Value
		}
	}
	return total
}
