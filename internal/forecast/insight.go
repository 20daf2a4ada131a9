package forecast

import (
	"fmt"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
)

// MinRecords is the smallest sales history the analysis accepts.
const MinRecords = 7

const trendWindow = 30

// Analysis is the full output of the forecasting page.
type Analysis struct {
	Dates             []string                `json:"dates"`
	Values            []float64               `json:"values"`
	Regression        LinearRegression        `json:"regression"`
	Forecast          []Point                 `json:"forecast"`
	MA7               []*float64              `json:"ma7"`
	MA30              []*float64              `json:"ma30"`
	Smoothed          []float64               `json:"smoothed"`
	TrendPercentage   float64                 `json:"trendPercentage"`
	Anomalies         []analytics.Anomaly     `json:"anomalies"`
	BranchPerformance []analytics.BranchTotal `json:"branchPerformance"`
	BestDay           *analytics.WeekdayTotal `json:"bestDay,omitempty"`
	TotalSales        float64                 `json:"totalSales"`
	AvgDailySales     float64                 `json:"avgDailySales"`
	ForecastNextMonth float64                 `json:"forecastNextMonth"`
	Recommendations   []Recommendation        `json:"recommendations"`
}

// Analyze runs regression, smoothing, anomaly detection and the
// recommendation rules over the daily totals of sales.
func Analyze(sales []domain.SaleRecord) (*Analysis, error) {
	if len(sales) < MinRecords {
		return nil, fmt.Errorf("%w: analysis needs at least %d records, have %d",
			domain.ErrInsufficientData, MinRecords, len(sales))
	}

	dates, values := analytics.DailySeries(sales)
	a := &Analysis{
		Dates:      dates,
		Values:     values,
		Regression: Fit(values),
		Forecast:   Project(values, DefaultHorizon),
		MA7:        MovingAverage(values, 7),
		MA30:       MovingAverage(values, min(30, len(values))),
		Smoothed:   ExponentialSmoothing(values, DefaultAlpha),
	}
	a.TrendPercentage = trendPercentage(values)

	a.Anomalies = analytics.DetectAnomalies(values, analytics.DefaultAnomalyThreshold)
	for i := range a.Anomalies {
		a.Anomalies[i].Date = dates[a.Anomalies[i].Index]
	}

	a.BranchPerformance = analytics.TotalsByBranch(sales)
	a.BestDay = bestAverageWeekday(analytics.TotalsByWeekday(sales))
	a.TotalSales = analytics.Sum(values)
	a.AvgDailySales = analytics.Mean(values)
	a.ForecastNextMonth = Total(a.Forecast)

	a.Recommendations = Recommend(RecommendationInput{
		TrendPercentage: a.TrendPercentage,
		Branches:        a.BranchPerformance,
		Anomalies:       a.Anomalies,
		BestDay:         a.BestDay,
		Forecast:        a.Forecast,
		DailyAverage:    a.AvgDailySales,
	})
	return a, nil
}

// trendPercentage compares the mean of the last 30 days with the 30 before.
// Without an earlier window the trend is zero.
func trendPercentage(values []float64) float64 {
	n := len(values)
	recentStart := max(0, n-trendWindow)
	recent := values[recentStart:]
	older := values[max(0, n-2*trendWindow):recentStart]

	recentAvg := analytics.Mean(recent)
	olderAvg := recentAvg
	if len(older) > 0 {
		olderAvg = analytics.Mean(older)
	}
	return analytics.GrowthRate(recentAvg, olderAvg)
}

func bestAverageWeekday(weekdays []analytics.WeekdayTotal) *analytics.WeekdayTotal {
	var best *analytics.WeekdayTotal
	for i := range weekdays {
		if weekdays[i].Count == 0 {
			continue
		}
		if best == nil || weekdays[i].Average > best.Average {
			best = &weekdays[i]
		}
	}
	if best == nil {
		return nil
	}
	b := *best
	return &b
}
