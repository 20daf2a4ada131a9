package analytics

import (
	"sort"

	"github.com/andresuchdata/salesledger/internal/domain"
)

type ProductUsage struct {
	ProductID     string         `json:"productId"`
	Code          string         `json:"code,omitempty"`
	Name          string         `json:"name"`
	ListCount     int            `json:"listCount"`
	TotalQuantity int            `json:"totalQuantity"`
	Categories    map[string]int `json:"categories"`
}

// BuildProductsReport aggregates list items per product. A product appearing
// twice in one list counts that list once.
func BuildProductsReport(lists []domain.ProductList, products []domain.Product) []ProductUsage {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	idx := make(map[string]*ProductUsage)
	for _, l := range lists {
		seen := make(map[string]bool)
		for _, item := range l.Items {
			u, ok := idx[item.ProductID]
			if !ok {
				u = &ProductUsage{ProductID: item.ProductID, Categories: make(map[string]int)}
				if p, ok := byID[item.ProductID]; ok {
					u.Code = p.Code
					u.Name = p.Name
				} else {
					u.Name = item.ProductID
				}
				idx[item.ProductID] = u
			}
			u.TotalQuantity += item.Quantity
			if !seen[item.ProductID] {
				seen[item.ProductID] = true
				u.ListCount++
				u.Categories[string(l.Category)]++
			}
		}
	}
	out := make([]ProductUsage, 0, len(idx))
	for _, u := range idx {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

type CategorySummary struct {
	Category string `json:"category"`
	Lists    int    `json:"lists"`
	Items    int    `json:"items"`
	Quantity int    `json:"quantity"`
}

// BuildCategoryAnalysis returns one row per known category in display order,
// followed by any unknown categories found in the data.
func BuildCategoryAnalysis(lists []domain.ProductList) []CategorySummary {
	idx := make(map[string]*CategorySummary)
	out := make([]*CategorySummary, 0, len(domain.ListCategories))
	for _, c := range domain.ListCategories {
		cs := &CategorySummary{Category: string(c)}
		idx[string(c)] = cs
		out = append(out, cs)
	}
	for _, l := range lists {
		cs, ok := idx[string(l.Category)]
		if !ok {
			cs = &CategorySummary{Category: string(l.Category)}
			idx[string(l.Category)] = cs
			out = append(out, cs)
		}
		cs.Lists++
		cs.Items += len(l.Items)
		for _, item := range l.Items {
			cs.Quantity += item.Quantity
		}
	}
	result := make([]CategorySummary, len(out))
	for i, cs := range out {
		result[i] = *cs
	}
	return result
}
