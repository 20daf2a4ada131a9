package forecast

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
)

type Intent string

const (
	IntentTotal    Intent = "total"
	IntentBest     Intent = "best-branch"
	IntentWorst    Intent = "worst-branch"
	IntentAverage  Intent = "average"
	IntentForecast Intent = "forecast"
	IntentGreeting Intent = "greeting"
	IntentUnknown  Intent = "unknown"
)

type Answer struct {
	Intent Intent  `json:"intent"`
	Text   string  `json:"text"`
	Value  float64 `json:"value,omitempty"`
	Branch string  `json:"branch,omitempty"`
}

// keyword sets are checked in order; the first match wins.
var intents = []struct {
	intent Intent
	match  func(q string) bool
}{
	{IntentTotal, func(q string) bool {
		return containsAny(q, "إجمالي", "total") || (strings.Contains(q, "مبيعات") && strings.Contains(q, "كم")) ||
			(strings.Contains(q, "how much") && strings.Contains(q, "sales"))
	}},
	{IntentBest, func(q string) bool { return containsAny(q, "أفضل فرع", "أعلى فرع", "best branch", "top branch") }},
	{IntentWorst, func(q string) bool { return containsAny(q, "أسوأ فرع", "أقل فرع", "worst branch", "weakest branch") }},
	{IntentAverage, func(q string) bool { return containsAny(q, "متوسط", "average") }},
	{IntentForecast, func(q string) bool { return containsAny(q, "توقعات", "مستقبل", "forecast", "future") }},
	{IntentGreeting, func(q string) bool { return containsAny(q, "مرحبا", "هلا", "hello", "hi ") || q == "hi" }},
}

func containsAny(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// Ask answers a short question about the sales history by keyword matching.
func Ask(question string, sales []domain.SaleRecord) Answer {
	q := strings.ToLower(strings.TrimSpace(question))
	intent := IntentUnknown
	for _, in := range intents {
		if in.match(q) {
			intent = in.intent
			break
		}
	}

	var total float64
	for _, s := range sales {
		total += s.Amount
	}
	branches := analytics.TotalsByBranch(sales)

	switch intent {
	case IntentTotal:
		return Answer{Intent: intent, Value: total, Text: fmt.Sprintf("Total recorded sales are %.2f.", total)}
	case IntentBest, IntentWorst:
		if len(branches) == 0 {
			return Answer{Intent: intent, Text: "There are no sales recorded yet."}
		}
		b := branches[0]
		label := "best"
		if intent == IntentWorst {
			b = branches[len(branches)-1]
			label = "weakest"
		}
		return Answer{Intent: intent, Branch: b.Branch, Value: b.Total,
			Text: fmt.Sprintf("The %s branch is %s with %.2f in sales.", label, b.Branch, b.Total)}
	case IntentAverage:
		if len(sales) == 0 {
			return Answer{Intent: intent, Text: "There are no sales recorded yet."}
		}
		avg := total / float64(len(sales))
		return Answer{Intent: intent, Value: avg, Text: fmt.Sprintf("The average entry is %.2f.", avg)}
	case IntentForecast:
		_, values := analytics.DailySeries(sales)
		next := Total(Project(values, DefaultHorizon))
		return Answer{Intent: intent, Value: next,
			Text: fmt.Sprintf("The trend projects about %.2f over the next %d days. Use the scenario control to try other growth rates.", next, DefaultHorizon)}
	case IntentGreeting:
		return Answer{Intent: intent, Text: "Hello! Ask me about sales totals, branches, averages or the forecast."}
	}
	return Answer{Intent: IntentUnknown,
		Text: `Sorry, I did not understand. Try "best branch", "total sales", "average" or "forecast".`}
}
