package forecast

// MovingAverage returns the trailing mean over period values. Positions
// before the window fills are nil.
func MovingAverage(series []float64, period int) []*float64 {
	out := make([]*float64, len(series))
	if period <= 0 {
		return out
	}
	var window float64
	for i, v := range series {
		window += v
		if i >= period {
			window -= series[i-period]
		}
		if i >= period-1 {
			avg := window / float64(period)
			out[i] = &avg
		}
	}
	return out
}

// ExponentialSmoothing applies s[0]=x[0], s[i]=a*x[i]+(1-a)*s[i-1].
// alpha outside (0,1] falls back to DefaultAlpha.
func ExponentialSmoothing(series []float64, alpha float64) []float64 {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	out := make([]float64, len(series))
	for i, v := range series {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}
