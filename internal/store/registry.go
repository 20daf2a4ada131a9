package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/salesledger/internal/domain"
)

// Remote collection names and local keys.
const (
	CollectionSales             = "sales"
	CollectionBranches          = "branches"
	CollectionProducts          = "products"
	CollectionUnits             = "units"
	CollectionLists             = "lists"
	CollectionPOS               = "pos"
	CollectionCashiers          = "cashiers"
	CollectionReconciliations   = "reconciliations"
	CollectionTreasury          = "treasury_reconciliations"
	CollectionUsers             = "users"
	CollectionSettings          = "settings"
	DocumentTreasuryDefinitions = "treasury_definitions"
	KeySales                    = "sales_data_v2"
	KeyBranches                 = "branches_data_v2"
	KeyProducts                 = "products_data"
	KeyUnits                    = "units_data"
	KeyLists                    = "product_lists_data"
	KeyPOS                      = "pos_data"
	KeyCashiers                 = "cashiers_data"
	KeyReconciliations          = "reconciliations_data"
	KeyTreasury                 = "treasury_reconciliations_data"
	KeyUsers                    = "sales_users_data"
	KeyTreasuryDefinitions      = "treasury_definitions_data"
)

// Store holds one collection per entity type.
type Store struct {
	Sales               *Collection[domain.SaleRecord]
	Branches            *Collection[domain.Branch]
	Products            *Collection[domain.Product]
	Units               *Collection[domain.Unit]
	Lists               *Collection[domain.ProductList]
	POS                 *Collection[domain.POSTerminal]
	Cashiers            *Collection[domain.Cashier]
	Reconciliations     *Collection[domain.POSReconciliation]
	Treasury            *Collection[domain.TreasuryReconciliation]
	Users               *Collection[domain.User]
	TreasuryDefinitions *Singleton[domain.TreasuryDefinitions]
}

func New(opts Options) *Store {
	return &Store{
		Sales:           NewCollection[domain.SaleRecord](CollectionSales, KeySales, opts),
		Branches:        NewCollection[domain.Branch](CollectionBranches, KeyBranches, opts),
		Products:        NewCollection[domain.Product](CollectionProducts, KeyProducts, opts),
		Units:           NewCollection[domain.Unit](CollectionUnits, KeyUnits, opts),
		Lists:           NewCollection[domain.ProductList](CollectionLists, KeyLists, opts),
		POS:             NewCollection[domain.POSTerminal](CollectionPOS, KeyPOS, opts),
		Cashiers:        NewCollection[domain.Cashier](CollectionCashiers, KeyCashiers, opts),
		Reconciliations: NewCollection[domain.POSReconciliation](CollectionReconciliations, KeyReconciliations, opts),
		Treasury:        NewCollection[domain.TreasuryReconciliation](CollectionTreasury, KeyTreasury, opts),
		Users:           NewCollection[domain.User](CollectionUsers, KeyUsers, opts),
		TreasuryDefinitions: NewSingleton(CollectionSettings, DocumentTreasuryDefinitions,
			KeyTreasuryDefinitions, domain.DefaultTreasuryDefinitions, opts),
	}
}

// InvalidateAll drops every cached snapshot.
func (s *Store) InvalidateAll() {
	s.Sales.Invalidate()
	s.Branches.Invalidate()
	s.Products.Invalidate()
	s.Units.Invalidate()
	s.Lists.Invalidate()
	s.POS.Invalidate()
	s.Cashiers.Invalidate()
	s.Reconciliations.Invalidate()
	s.Treasury.Invalidate()
	s.Users.Invalidate()
	s.TreasuryDefinitions.Invalidate()
}

// Warm loads every collection once, typically at startup.
func (s *Store) Warm(ctx context.Context) error {
	loaders := []func(context.Context) error{
		func(ctx context.Context) error { _, err := s.Sales.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.Branches.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.Products.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.Units.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.Lists.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.POS.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.Cashiers.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.Reconciliations.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.Treasury.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.Users.Get(ctx); return err },
		func(ctx context.Context) error { _, err := s.TreasuryDefinitions.Get(ctx); return err },
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, load := range loaders {
		g.Go(func() error { return load(gctx) })
	}
	return g.Wait()
}
