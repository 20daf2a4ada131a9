package analytics

import "math"

// DefaultAnomalyThreshold is the z-score above which a value is flagged.
const DefaultAnomalyThreshold = 2.0

type Anomaly struct {
	Index  int     `json:"index"`
	Date   string  `json:"date,omitempty"`
	Value  float64 `json:"value"`
	ZScore float64 `json:"zScore"`
}

func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// StdDev is the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// DetectAnomalies flags values whose z-score exceeds threshold. A series with
// zero variance has no anomalies. threshold <= 0 uses the default.
func DetectAnomalies(values []float64, threshold float64) []Anomaly {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	sd := StdDev(values)
	if sd == 0 {
		return []Anomaly{}
	}
	mean := Mean(values)
	out := make([]Anomaly, 0)
	for i, v := range values {
		z := math.Abs(v-mean) / sd
		if z > threshold {
			out = append(out, Anomaly{Index: i, Value: v, ZScore: z})
		}
	}
	return out
}

// GrowthRate returns the percentage change from previous to current. A zero
// previous value yields 100 when current is positive and 0 otherwise.
func GrowthRate(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

func compare(current, previous float64) Trend {
	switch {
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	}
	return TrendFlat
}

type TrendDirection string

const (
	DirectionNone       TrendDirection = "none"
	DirectionNew        TrendDirection = "new"
	DirectionUp         TrendDirection = "up"
	DirectionDown       TrendDirection = "down"
	DirectionSlightUp   TrendDirection = "slight-up"
	DirectionSlightDown TrendDirection = "slight-down"
	DirectionStable     TrendDirection = "stable"
)

// TrendIndicator describes a period over period change for dashboard cards.
type TrendIndicator struct {
	Direction TrendDirection `json:"direction"`
	Change    float64        `json:"change"`
}

// Indicator classifies the change from previous to current. Changes within
// five percent either way count as slight.
func Indicator(current, previous float64) TrendIndicator {
	if current == 0 && previous == 0 {
		return TrendIndicator{Direction: DirectionNone}
	}
	if previous == 0 {
		return TrendIndicator{Direction: DirectionNew, Change: 100}
	}
	change := (current - previous) / previous * 100
	switch {
	case change > 5:
		return TrendIndicator{Direction: DirectionUp, Change: change}
	case change < -5:
		return TrendIndicator{Direction: DirectionDown, Change: change}
	case change > 0:
		return TrendIndicator{Direction: DirectionSlightUp, Change: change}
	case change < 0:
		return TrendIndicator{Direction: DirectionSlightDown, Change: change}
	}
	return TrendIndicator{Direction: DirectionStable}
}
