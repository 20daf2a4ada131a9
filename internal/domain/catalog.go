package domain

import "time"

type Product struct {
	ID     string `json:"id"`
	Code   string `json:"code" validate:"required"`
	Name   string `json:"name" validate:"required"`
	UnitID string `json:"unitId"`
}

func (p Product) RecordID() string { return p.ID }

type Unit struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name" validate:"required"`
}

func (u Unit) RecordID() string { return u.ID }

type ListCategory string

const (
	ListCategoryPurchases  ListCategory = "purchases"
	ListCategorySales      ListCategory = "sales"
	ListCategoryInventory  ListCategory = "inventory"
	ListCategoryProduction ListCategory = "production"
	ListCategoryOther      ListCategory = "other"
)

// ListCategories in display order.
var ListCategories = []ListCategory{
	ListCategoryPurchases,
	ListCategorySales,
	ListCategoryInventory,
	ListCategoryProduction,
	ListCategoryOther,
}

type ListStatus string

const (
	ListStatusActive   ListStatus = "active"
	ListStatusArchived ListStatus = "archived"
)

type ListItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Notes     string `json:"notes,omitempty"`
}

type ProductList struct {
	ID        string       `json:"id"`
	Name      string       `json:"name" validate:"required"`
	Category  ListCategory `json:"category" validate:"required,oneof=purchases sales inventory production other"`
	Status    ListStatus   `json:"status" validate:"omitempty,oneof=active archived"`
	Notes     string       `json:"notes,omitempty"`
	Date      string       `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Items     []ListItem   `json:"items" validate:"dive"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (l ProductList) RecordID() string { return l.ID }

type POSTerminal struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required"`
	Cashier string `json:"cashier,omitempty"`
}

func (p POSTerminal) RecordID() string { return p.ID }

type Cashier struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

func (c Cashier) RecordID() string { return c.ID }
