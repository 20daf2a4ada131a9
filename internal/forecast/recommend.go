package forecast

import (
	"fmt"
	"math"
	"sort"

	"github.com/andresuchdata/salesledger/internal/analytics"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

type Recommendation struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

type RecommendationInput struct {
	TrendPercentage float64
	Branches        []analytics.BranchTotal
	Anomalies       []analytics.Anomaly
	BestDay         *analytics.WeekdayTotal
	Forecast        []Point
	DailyAverage    float64
}

var weekdayAdvice = [7]string{
	"Start of the week: lead with strong opening offers.",
	"Usually quiet: try special offers to lift traffic.",
	"Midweek: run a dedicated weekday promotion.",
	"Busy day: use limited-time offers.",
	"End of the work week: run early weekend offers.",
	"Holiday: extend opening hours and add family offers.",
	"Weekend: plan events and weekend specials.",
}

// Recommend applies the rule set and returns recommendations ordered by
// priority, critical first. Rules that share a priority keep rule order.
func Recommend(in RecommendationInput) []Recommendation {
	var recs []Recommendation
	add := func(typ string, p Priority, title, desc string) {
		recs = append(recs, Recommendation{Type: typ, Title: title, Description: desc, Priority: p})
	}

	trend := in.TrendPercentage
	switch {
	case trend > 20:
		add("success", PriorityHigh, "Exceptional growth, time to expand",
			fmt.Sprintf("Sales are growing %.1f%%. Consider new branches, more stock and extra staff.", trend))
	case trend > 10:
		add("success", PriorityMedium, "Strong positive trend",
			fmt.Sprintf("Sales are up %.1f%%. Keep the current strategy and increase marketing to hold momentum.", trend))
	case trend > 0:
		add("info", PriorityMedium, "Moderate growth",
			fmt.Sprintf("Sales are growing slowly (%.1f%%). Try promotions or loyalty programs to accelerate.", trend))
	case trend < -15:
		add("warning", PriorityCritical, "Sharp sales decline",
			fmt.Sprintf("Sales are down %.1f%%. Review pricing and competitors and launch a promotion now.", math.Abs(trend)))
	case trend < 0:
		add("warning", PriorityHigh, "Sales declining",
			fmt.Sprintf("Sales are down %.1f%%. Review pricing and customer service and consider promotions.", math.Abs(trend)))
	}

	if len(in.Branches) > 1 {
		top := in.Branches[0]
		bottom := in.Branches[len(in.Branches)-1]
		var sum float64
		for _, b := range in.Branches {
			sum += b.Total
		}
		avg := sum / float64(len(in.Branches))

		if top.Total > avg*1.5 {
			add("success", PriorityMedium, fmt.Sprintf("Branch %q is a model performer", top.Branch),
				fmt.Sprintf("It made %.2f, %.0f%% above the branch average. Document and share its practices.",
					top.Total, (top.Total/avg-1)*100))
		}
		if bottom.Total < avg*0.6 {
			add("warning", PriorityHigh, fmt.Sprintf("Branch %q needs support", bottom.Branch),
				fmt.Sprintf("It made only %.2f, %.0f%% below the branch average. Review staffing, location and pricing.",
					bottom.Total, (1-bottom.Total/avg)*100))
		}
		if bottom.Total > 0 && top.Total > bottom.Total*3 {
			add("info", PriorityMedium, "Large gap between branches",
				fmt.Sprintf("The best branch sells %.1fx the weakest. Rebalance resources between branches.",
					top.Total/bottom.Total))
		}
	}

	if in.BestDay != nil {
		add("info", PriorityMedium, fmt.Sprintf("%s strategy", in.BestDay.Name),
			fmt.Sprintf("%s has the highest average (%.2f). %s Add staff and stock on this day.",
				in.BestDay.Name, in.BestDay.Average, weekdayAdvice[in.BestDay.Weekday%7]))
	}

	if len(in.Anomalies) > 0 {
		top := in.Anomalies[0]
		for _, a := range in.Anomalies[1:] {
			if a.Value > top.Value {
				top = a
			}
		}
		desc := fmt.Sprintf("%s reached %.2f.", top.Date, top.Value)
		if in.DailyAverage > 0 {
			desc = fmt.Sprintf("%s reached %.2f, %.0f%% away from the daily average.",
				top.Date, top.Value, (top.Value/in.DailyAverage-1)*100)
		}
		add("success", PriorityMedium, "Exceptional day", desc+" Check what drove it and repeat it.")
	}

	if len(in.Forecast) > 0 && len(in.Branches) > 0 {
		avgForecast := Total(in.Forecast) / float64(len(in.Forecast))
		var sumAvg float64
		for _, b := range in.Branches {
			sumAvg += b.Average
		}
		current := sumAvg / float64(len(in.Branches))
		if current > 0 {
			switch {
			case avgForecast > current*1.3:
				add("success", PriorityHigh, "Strong growth forecast",
					fmt.Sprintf("The forecast points to %.0f%% higher sales. Prepare stock and staff.",
						(avgForecast/current-1)*100))
			case avgForecast < current*0.8:
				add("warning", PriorityHigh, "Decline forecast",
					fmt.Sprintf("The forecast points to %.0f%% lower sales. Plan a campaign to compensate.",
						(1-avgForecast/current)*100))
			}
		}
	}

	if len(in.Branches) > 0 {
		var total float64
		var count int
		for _, b := range in.Branches {
			total += b.Total
			count += b.Count
		}
		if count > 0 {
			avgTx := total / float64(count)
			switch {
			case avgTx > 1000:
				add("info", PriorityLow, "High average transaction",
					fmt.Sprintf("The average entry is %.2f. Focus on premium service and exclusive offers.", avgTx))
			case avgTx < 200:
				add("info", PriorityMedium, "Room to grow transaction value",
					fmt.Sprintf("The average entry is %.2f. Try bundles and upselling.", avgTx))
			}
		}
	}

	if len(recs) < 3 {
		add("info", PriorityLow, "Continuous improvement",
			"Watch competitors, listen to customer feedback, refresh products and train staff.")
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	return recs
}
