package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/salesledger/internal/cache"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/store"
)

// BackupVersion is the newest backup layout Restore accepts.
const BackupVersion = store.SchemaVersion

// Backup is a full snapshot of every collection. On restore a collection left
// null keeps its current contents; sales and branches are required.
type Backup struct {
	SchemaVersion       int                             `json:"schemaVersion"`
	CreatedAt           time.Time                       `json:"createdAt"`
	Sales               []domain.SaleRecord             `json:"sales"`
	Branches            []domain.Branch                 `json:"branches"`
	Products            []domain.Product                `json:"products"`
	Units               []domain.Unit                   `json:"units"`
	Lists               []domain.ProductList            `json:"lists"`
	POS                 []domain.POSTerminal            `json:"pos"`
	Cashiers            []domain.Cashier                `json:"cashiers"`
	Reconciliations     []domain.POSReconciliation      `json:"reconciliations"`
	Treasury            []domain.TreasuryReconciliation `json:"treasury"`
	Users               []domain.User                   `json:"users"`
	TreasuryDefinitions *domain.TreasuryDefinitions     `json:"treasuryDefinitions"`
}

// RestoreResult lists, per restored collection, the record count and where
// the write landed.
type RestoreResult struct {
	Counts map[string]int               `json:"counts"`
	Writes map[string]store.WriteResult `json:"writes"`
}

type BackupService struct {
	store *store.Store
	cache cache.ReportCache
	now   func() time.Time
}

func NewBackupService(st *store.Store, cacheImpl cache.ReportCache) *BackupService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &BackupService{store: st, cache: cacheImpl, now: time.Now}
}

func loadInto[T store.Record](ctx context.Context, g *errgroup.Group, coll *store.Collection[T], dst *[]T) {
	g.Go(func() error {
		records, err := coll.Get(ctx)
		if err != nil {
			return fmt.Errorf("load %s: %w", coll.Name(), err)
		}
		if records == nil {
			records = []T{}
		}
		*dst = records
		return nil
	})
}

// Backup snapshots every collection.
func (s *BackupService) Backup(ctx context.Context) (*Backup, error) {
	b := &Backup{SchemaVersion: BackupVersion, CreatedAt: s.now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	loadInto(gctx, g, s.store.Sales, &b.Sales)
	loadInto(gctx, g, s.store.Branches, &b.Branches)
	loadInto(gctx, g, s.store.Products, &b.Products)
	loadInto(gctx, g, s.store.Units, &b.Units)
	loadInto(gctx, g, s.store.Lists, &b.Lists)
	loadInto(gctx, g, s.store.POS, &b.POS)
	loadInto(gctx, g, s.store.Cashiers, &b.Cashiers)
	loadInto(gctx, g, s.store.Reconciliations, &b.Reconciliations)
	loadInto(gctx, g, s.store.Treasury, &b.Treasury)
	loadInto(gctx, g, s.store.Users, &b.Users)
	g.Go(func() error {
		defs, err := s.store.TreasuryDefinitions.Get(gctx)
		if err != nil {
			return err
		}
		b.TreasuryDefinitions = &defs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// Restore validates b and then replaces each collection it carries. A failed
// write stops the restore; collections written before it stay restored.
func (s *BackupService) Restore(ctx context.Context, b *Backup) (*RestoreResult, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	res := &RestoreResult{Counts: map[string]int{}, Writes: map[string]store.WriteResult{}}
	defer invalidateReports(ctx, s.cache)

	if b.TreasuryDefinitions != nil {
		w, err := s.store.TreasuryDefinitions.Save(ctx, *b.TreasuryDefinitions)
		if err := res.record(store.CollectionSettings, 1, w, err); err != nil {
			return res, err
		}
	}
	steps := []func() error{
		func() error { return replaceAll(ctx, res, s.store.Branches, b.Branches) },
		func() error { return replaceAll(ctx, res, s.store.Products, b.Products) },
		func() error { return replaceAll(ctx, res, s.store.Units, b.Units) },
		func() error { return replaceAll(ctx, res, s.store.Lists, b.Lists) },
		func() error { return replaceAll(ctx, res, s.store.POS, b.POS) },
		func() error { return replaceAll(ctx, res, s.store.Cashiers, b.Cashiers) },
		func() error { return replaceAll(ctx, res, s.store.Reconciliations, b.Reconciliations) },
		func() error { return replaceAll(ctx, res, s.store.Treasury, b.Treasury) },
		func() error { return replaceAll(ctx, res, s.store.Users, b.Users) },
		func() error { return replaceAll(ctx, res, s.store.Sales, b.Sales) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *RestoreResult) record(name string, n int, w store.WriteResult, err error) error {
	if err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	r.Counts[name] = n
	r.Writes[name] = w
	return nil
}

// replaceAll swaps the collection contents for records. Nil leaves it alone.
func replaceAll[T store.Record](ctx context.Context, res *RestoreResult, coll *store.Collection[T], records []T) error {
	if records == nil {
		return nil
	}
	w, err := coll.Update(ctx, func([]T) ([]T, error) { return records, nil })
	return res.record(coll.Name(), len(records), w, err)
}

func (b *Backup) validate() error {
	verr := domain.NewValidationError()
	if b == nil {
		verr.Add("_", "backup is empty")
		return verr
	}
	if b.SchemaVersion < 1 || b.SchemaVersion > BackupVersion {
		verr.Add("schemaVersion", fmt.Sprintf("unsupported version %d", b.SchemaVersion))
	}
	if b.Sales == nil {
		verr.Add("sales", "is required")
	}
	if b.Branches == nil {
		verr.Add("branches", "is required")
	}

	checkRecords(verr, "sales", b.Sales)
	checkRecords(verr, "branches", b.Branches)
	checkRecords(verr, "products", b.Products)
	checkRecords(verr, "units", b.Units)
	checkRecords(verr, "lists", b.Lists)
	checkRecords(verr, "pos", b.POS)
	checkRecords(verr, "cashiers", b.Cashiers)
	checkRecords(verr, "reconciliations", b.Reconciliations)
	checkRecords(verr, "treasury", b.Treasury)
	checkRecords(verr, "users", b.Users)

	seenSale := make(map[string]bool, len(b.Sales))
	for i, sale := range b.Sales {
		key := sale.Date + "|" + sale.Branch
		if seenSale[key] {
			verr.Add(fmt.Sprintf("sales[%d]", i), fmt.Sprintf("%s on %s: %s", sale.Branch, sale.Date, domain.ErrDuplicateSale))
		}
		seenSale[key] = true
	}
	seenBranch := make(map[string]bool, len(b.Branches))
	for i, br := range b.Branches {
		key := domain.NormalizeBranchName(br.Name)
		if seenBranch[key] {
			verr.Add(fmt.Sprintf("branches[%d].name", i), "duplicates another branch")
		}
		seenBranch[key] = true
	}

	if b.Users != nil {
		hasAdmin := false
		seenUser := make(map[string]bool, len(b.Users))
		for i, u := range b.Users {
			name := strings.ToLower(strings.TrimSpace(u.Username))
			if name == "" {
				verr.Add(fmt.Sprintf("users[%d].username", i), "is required")
			} else if seenUser[name] {
				verr.Add(fmt.Sprintf("users[%d].username", i), "duplicates another user")
			}
			seenUser[name] = true
			if u.Role == domain.RoleAdmin && u.IsActive && u.PasswordHash != "" {
				hasAdmin = true
			}
		}
		if !hasAdmin {
			verr.Add("users", "must include an active admin with a password")
		}
	}
	return verr.OrNil()
}

// checkRecords requires unique non-empty ids and runs each record's validate
// tags, reporting fields as name[i].field.
func checkRecords[T store.Record](verr *domain.ValidationError, name string, records []T) {
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		prefix := fmt.Sprintf("%s[%d]", name, i)
		id := r.RecordID()
		switch {
		case id == "":
			verr.Add(prefix+".id", "is required")
		case seen[id]:
			verr.Add(prefix+".id", "duplicates "+id)
		}
		seen[id] = true
		for field, msg := range validateStruct(r).Fields {
			verr.Add(prefix+"."+field, msg)
		}
	}
}
