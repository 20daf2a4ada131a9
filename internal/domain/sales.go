package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used by every dated record.
const DateLayout = "2006-01-02"

// SaleRecord is one branch's sales total for one calendar day.
type SaleRecord struct {
	ID          string    `json:"id"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	Branch      string    `json:"branch" validate:"required"`
	Amount      float64   `json:"amount" validate:"gte=0"`
	Description string    `json:"description,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s SaleRecord) RecordID() string { return s.ID }

// Month returns the YYYY-MM prefix of the record date.
func (s SaleRecord) Month() string {
	if len(s.Date) < 7 {
		return ""
	}
	return s.Date[:7]
}

// Time parses the record date. Invalid dates return the zero time and false.
func (s SaleRecord) Time() (time.Time, bool) {
	t, err := time.Parse(DateLayout, s.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SalesFilter narrows a sales list. Empty fields match everything; From and To
// are inclusive YYYY-MM-DD bounds.
type SalesFilter struct {
	From   string `form:"from" json:"from,omitempty"`
	To     string `form:"to" json:"to,omitempty"`
	Branch string `form:"branch" json:"branch,omitempty"`
}

func (f SalesFilter) Match(s SaleRecord) bool {
	if f.From != "" && s.Date < f.From {
		return false
	}
	if f.To != "" && s.Date > f.To {
		return false
	}
	if f.Branch != "" && s.Branch != f.Branch {
		return false
	}
	return true
}

// Branch is a retail location. Its name is the join key used by SaleRecord.
type Branch struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (b Branch) RecordID() string { return b.ID }

// NormalizeBranchName trims and case-folds a branch name for grouping.
func NormalizeBranchName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
