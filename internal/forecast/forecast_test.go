package forecast

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFitLinearSeries(t *testing.T) {
	lr := Fit([]float64{1, 3, 5, 7})
	if !approx(lr.Slope, 2) || !approx(lr.Intercept, 1) {
		t.Fatalf("expected slope 2 intercept 1, got %+v", lr)
	}
	if got := Fit([]float64{4}); got.Slope != 0 || got.Intercept != 4 {
		t.Fatalf("expected flat line through single point, got %+v", got)
	}
	if got := Fit(nil); got != (LinearRegression{}) {
		t.Fatalf("expected zero fit for empty series, got %+v", got)
	}
}

func TestProjectClampsAtZero(t *testing.T) {
	points := Project([]float64{30, 20, 10}, 5)
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}
	if !approx(points[0].Value, 0) || points[0].Day != 1 {
		t.Fatalf("expected first projected day clamped to 0, got %+v", points[0])
	}
	for _, p := range points {
		if p.Value < 0 {
			t.Fatalf("negative projection %+v", p)
		}
	}
}

func TestProjectDefaultsHorizon(t *testing.T) {
	points := Project([]float64{1, 2, 3}, 0)
	if len(points) != DefaultHorizon {
		t.Fatalf("expected %d points, got %d", DefaultHorizon, len(points))
	}
	if !approx(points[0].Value, 4) {
		t.Fatalf("expected 4 on day 1, got %f", points[0].Value)
	}
}

func TestScenarioScalesWithoutRefit(t *testing.T) {
	base := []Point{{Day: 1, Value: 100}, {Day: 2, Value: 200}}
	got := Scenario(base, 10)
	if !approx(got[0].Value, 110) || !approx(got[1].Value, 220) {
		t.Fatalf("unexpected scenario %+v", got)
	}
	if base[0].Value != 100 {
		t.Fatalf("scenario mutated the base projection")
	}
	if !approx(Total(got), 330) {
		t.Fatalf("expected total 330, got %f", Total(got))
	}
}

func TestMovingAverageLeadingNils(t *testing.T) {
	ma := MovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	for i := 0; i < 2; i++ {
		if ma[i] != nil {
			t.Fatalf("expected nil at %d", i)
		}
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if ma[i+2] == nil || !approx(*ma[i+2], w) {
			t.Fatalf("position %d: expected %f", i+2, w)
		}
	}
}

func TestExponentialSmoothing(t *testing.T) {
	got := ExponentialSmoothing([]float64{10, 20}, 0.5)
	if got[0] != 10 || !approx(got[1], 15) {
		t.Fatalf("unexpected smoothing %v", got)
	}
	got = ExponentialSmoothing([]float64{10, 20}, 0)
	if !approx(got[1], 13) {
		t.Fatalf("expected default alpha 0.3, got %v", got)
	}
}

func salesSeries(start string, amounts ...float64) []domain.SaleRecord {
	base, _ := (domain.SaleRecord{Date: start}).Time()
	out := make([]domain.SaleRecord, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, domain.SaleRecord{
			ID:     fmt.Sprintf("s%d", i),
			Date:   base.AddDate(0, 0, i).Format(domain.DateLayout),
			Branch: "Main",
			Amount: a,
		})
	}
	return out
}

func TestAnalyzeRequiresSevenRecords(t *testing.T) {
	_, err := Analyze(salesSeries("2024-01-01", 1, 2, 3, 4, 5, 6))
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyzeSeries(t *testing.T) {
	sales := salesSeries("2024-01-01", 100, 100, 100, 100, 100, 100, 100, 100, 100, 1000)
	a, err := Analyze(sales)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Values) != 10 || len(a.Forecast) != DefaultHorizon {
		t.Fatalf("unexpected lengths values=%d forecast=%d", len(a.Values), len(a.Forecast))
	}
	if len(a.Anomalies) != 1 || a.Anomalies[0].Date != "2024-01-10" {
		t.Fatalf("expected the last day flagged, got %+v", a.Anomalies)
	}
	if !approx(a.TotalSales, 1900) || !approx(a.AvgDailySales, 190) {
		t.Fatalf("unexpected totals %f %f", a.TotalSales, a.AvgDailySales)
	}
	if a.TrendPercentage != 0 {
		t.Fatalf("expected zero trend without an earlier window, got %f", a.TrendPercentage)
	}
	if a.MA30[len(a.MA30)-1] == nil || !approx(*a.MA30[len(a.MA30)-1], 190) {
		t.Fatalf("expected MA30 to cover the whole short series")
	}
	if a.BestDay == nil {
		t.Fatalf("expected a best weekday")
	}
	if len(a.Recommendations) < 3 {
		t.Fatalf("expected at least three recommendations, got %d", len(a.Recommendations))
	}
}

// Sundays carry the largest total, the single Monday the largest average.
func TestBestWeekdayTotalVersusAverage(t *testing.T) {
	sales := []domain.SaleRecord{
		{Date: "2024-01-07", Branch: "A", Amount: 40},
		{Date: "2024-01-14", Branch: "A", Amount: 40},
		{Date: "2024-01-21", Branch: "A", Amount: 40},
		{Date: "2024-01-08", Branch: "A", Amount: 100},
		{Date: "2024-01-02", Branch: "A", Amount: 1},
		{Date: "2024-01-09", Branch: "A", Amount: 1},
		{Date: "2024-01-16", Branch: "A", Amount: 1},
	}
	peak := analytics.BestWeekday(analytics.TotalsByWeekday(sales))
	if peak == nil || peak.Weekday != 0 {
		t.Fatalf("expected peak best weekday sunday by total, got %+v", peak)
	}
	a, err := Analyze(sales)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.BestDay == nil || a.BestDay.Weekday != 1 {
		t.Fatalf("expected analysis best weekday monday by average, got %+v", a.BestDay)
	}
}

func TestRecommendOrdersByPriority(t *testing.T) {
	recs := Recommend(RecommendationInput{
		TrendPercentage: -30,
		Branches: []analytics.BranchTotal{
			{Branch: "A", Total: 9000, Count: 10, Average: 900},
			{Branch: "B", Total: 1000, Count: 10, Average: 100},
		},
		BestDay: &analytics.WeekdayTotal{Weekday: 5, Name: "Friday", Average: 900},
	})
	if recs[0].Priority != PriorityCritical {
		t.Fatalf("expected critical first, got %+v", recs[0])
	}
	for i := 1; i < len(recs); i++ {
		if priorityRank[recs[i-1].Priority] > priorityRank[recs[i].Priority] {
			t.Fatalf("recommendations out of order at %d: %+v", i, recs)
		}
	}
}

func TestRecommendAddsGeneralTip(t *testing.T) {
	recs := Recommend(RecommendationInput{})
	if len(recs) != 1 || recs[0].Priority != PriorityLow {
		t.Fatalf("expected a single general tip, got %+v", recs)
	}
}

func TestAsk(t *testing.T) {
	sales := []domain.SaleRecord{
		{ID: "1", Date: "2024-01-01", Branch: "North", Amount: 300},
		{ID: "2", Date: "2024-01-01", Branch: "South", Amount: 100},
	}
	cases := []struct {
		q      string
		intent Intent
		branch string
	}{
		{"كم إجمالي المبيعات؟", IntentTotal, ""},
		{"ما هو أفضل فرع", IntentBest, "North"},
		{"worst branch?", IntentWorst, "South"},
		{"Average please", IntentAverage, ""},
		{"forecast", IntentForecast, ""},
		{"مرحبا", IntentGreeting, ""},
		{"what is the weather", IntentUnknown, ""},
	}
	for _, tc := range cases {
		got := Ask(tc.q, sales)
		if got.Intent != tc.intent || got.Branch != tc.branch {
			t.Fatalf("%q: expected %s/%q, got %+v", tc.q, tc.intent, tc.branch, got)
		}
	}
	if got := Ask("total", sales); !approx(got.Value, 400) {
		t.Fatalf("expected total 400, got %f", got.Value)
	}
}
