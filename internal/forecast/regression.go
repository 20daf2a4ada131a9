// Package forecast projects a daily sales series forward and derives the
// insights shown on the analysis page.
package forecast

import "math"

const (
	// DefaultHorizon is how many days past the last observation are projected.
	DefaultHorizon = 30
	// DefaultAlpha is the exponential smoothing factor.
	DefaultAlpha = 0.3
)

// LinearRegression is an ordinary least squares fit of value against index.
type LinearRegression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Fit fits y against x = 0..len(y)-1. A single point yields a flat line;
// an empty series yields zero.
func Fit(y []float64) LinearRegression {
	n := float64(len(y))
	if n == 0 {
		return LinearRegression{}
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return LinearRegression{Intercept: sumY / n}
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return LinearRegression{
		Slope:     slope,
		Intercept: (sumY - slope*sumX) / n,
	}
}

func (lr LinearRegression) Predict(x float64) float64 {
	return lr.Slope*x + lr.Intercept
}

// Point is one projected day, Day counting from 1 after the last observation.
type Point struct {
	Day   int     `json:"day"`
	Value float64 `json:"value"`
}

// Project extends the fitted line days steps past the last index of series.
// Negative projections are clamped to zero.
func Project(series []float64, days int) []Point {
	if days <= 0 {
		days = DefaultHorizon
	}
	out := make([]Point, 0, days)
	if len(series) == 0 {
		return out
	}
	lr := Fit(series)
	last := float64(len(series) - 1)
	for i := 1; i <= days; i++ {
		out = append(out, Point{Day: i, Value: math.Max(0, lr.Predict(last+float64(i)))})
	}
	return out
}

// Scenario scales an existing projection by (1 + pct/100). The regression is
// not refit.
func Scenario(points []Point, pct float64) []Point {
	factor := 1 + pct/100
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Day: p.Day, Value: p.Value * factor}
	}
	return out
}

// Total sums the projected values.
func Total(points []Point) float64 {
	var t float64
	for _, p := range points {
		t += p.Value
	}
	return t
}
