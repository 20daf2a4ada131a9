package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/store"
)

func newTestStore() *store.Store {
	return store.New(store.Options{Remote: store.NewMemoryRemote(), Local: store.NewMemoryLocal()})
}

func amount(v float64) *float64 { return &v }

// countingCache is an in-memory ReportCache that records its traffic.
type countingCache struct {
	values      map[string][]byte
	hits, sets  int
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{values: make(map[string][]byte)}
}

func cacheKey(report string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := report
	for _, k := range keys {
		key += "|" + k + "=" + params[k]
	}
	return key
}

func (c *countingCache) Get(_ context.Context, report string, params map[string]string, dest any) (bool, error) {
	raw, ok := c.values[cacheKey(report, params)]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *countingCache) Set(_ context.Context, report string, params map[string]string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.sets++
	c.values[cacheKey(report, params)] = raw
	return nil
}

func (c *countingCache) InvalidateAll(context.Context) error {
	c.invalidated++
	c.values = make(map[string][]byte)
	return nil
}

func TestSalesCreateAndDuplicate(t *testing.T) {
	ctx := context.Background()
	cache := newCountingCache()
	svc := NewSalesService(newTestStore(), cache)

	saved, err := svc.Create(ctx, SaleInput{Date: "2024-03-01", Branch: " North ", Amount: amount(120)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.Record.Branch != "North" {
		t.Fatalf("expected trimmed branch, got %q", saved.Record.Branch)
	}
	if saved.Record.ID == "" {
		t.Fatalf("expected generated id")
	}
	if saved.Write.Outcome != store.OutcomeRemoteOK {
		t.Fatalf("expected remote-ok write, got %s", saved.Write.Outcome)
	}
	if cache.invalidated != 1 {
		t.Fatalf("expected report cache invalidation, got %d", cache.invalidated)
	}

	_, err = svc.Create(ctx, SaleInput{Date: "2024-03-01", Branch: "North", Amount: amount(50)})
	if !errors.Is(err, domain.ErrDuplicateSale) {
		t.Fatalf("expected duplicate sale error, got %v", err)
	}

	// Editing a record without changing its key is not a duplicate of itself.
	if _, err := svc.Update(ctx, saved.Record.ID, SaleInput{Date: "2024-03-01", Branch: "North", Amount: amount(130)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.Get(ctx, saved.Record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != 130 {
		t.Fatalf("expected 130, got %v", got.Amount)
	}
}

func TestSalesValidation(t *testing.T) {
	svc := NewSalesService(newTestStore(), nil)
	tests := []struct {
		name  string
		in    SaleInput
		field string
	}{
		{"bad date", SaleInput{Date: "01/03/2024", Branch: "A", Amount: amount(1)}, "date"},
		{"missing branch", SaleInput{Date: "2024-03-01", Amount: amount(1)}, "branch"},
		{"negative amount", SaleInput{Date: "2024-03-01", Branch: "A", Amount: amount(-1)}, "amount"},
		{"missing amount", SaleInput{Date: "2024-03-01", Branch: "A"}, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Fatalf("expected %s to fail, got %v", tt.field, verr.Fields)
			}
		})
	}
}

func TestSalesCanonicalBranch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	catalog := NewCatalogService(st, nil)
	if _, err := catalog.SaveBranch(ctx, domain.Branch{Name: "Main Street"}); err != nil {
		t.Fatalf("save branch: %v", err)
	}
	svc := NewSalesService(st, nil)
	saved, err := svc.Create(ctx, SaleInput{Date: "2024-03-01", Branch: "main  street", Amount: amount(10)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.Record.Branch != "Main Street" {
		t.Fatalf("expected registered spelling, got %q", saved.Record.Branch)
	}
}

func TestSalesImport(t *testing.T) {
	ctx := context.Background()
	svc := NewSalesService(newTestStore(), nil)
	if _, err := svc.Create(ctx, SaleInput{Date: "2024-03-01", Branch: "A", Amount: amount(10)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	rows := []domain.SaleRecord{
		{Date: "2024-03-01", Branch: "A", Amount: 99},
		{Date: "2024-03-02", Branch: "A", Amount: 20},
		{Date: "bad", Branch: "A", Amount: 5},
	}
	res, err := svc.Import(ctx, rows, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 2 || res.Updated != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Errors) != 2 || res.Errors[0].Row != 1 || res.Errors[1].Row != 3 {
		t.Fatalf("unexpected row errors %+v", res.Errors)
	}

	res, err = svc.Import(ctx, rows[:1], ImportOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("import overwrite: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("expected one update, got %+v", res)
	}
	list, err := svc.List(ctx, domain.SalesFilter{Branch: "A"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Date != "2024-03-02" || list[1].Amount != 99 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestSalesDeleteMissing(t *testing.T) {
	svc := NewSalesService(newTestStore(), nil)
	if _, err := svc.Delete(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBranchNameUnique(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalogService(newTestStore(), nil)
	if _, err := catalog.SaveBranch(ctx, domain.Branch{Name: "North"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := catalog.SaveBranch(ctx, domain.Branch{Name: " north "}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func newTestUsers(st *store.Store) *UserService {
	svc := NewUserService(st, NewTokenIssuer("test-secret", 0))
	svc.cost = bcrypt.MinCost
	return svc
}

func seedAdmin(t *testing.T, svc *UserService) domain.User {
	t.Helper()
	ctx := context.Background()
	created, _, err := svc.EnsureAdmin(ctx, "admin", "admin123")
	if err != nil || !created {
		t.Fatalf("ensure admin: created=%v err=%v", created, err)
	}
	res, err := svc.Login(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	admin, err := svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return admin
}

func TestEnsureAdminOnce(t *testing.T) {
	svc := newTestUsers(newTestStore())
	seedAdmin(t, svc)
	created, _, err := svc.EnsureAdmin(context.Background(), "admin", "other")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if created {
		t.Fatalf("expected no second admin")
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestUsers(newTestStore())
	admin := seedAdmin(t, svc)
	if admin.PasswordHash == "" {
		t.Fatalf("authenticated user should carry its stored record")
	}

	inactive := false
	if _, err := svc.Create(ctx, admin, UserInput{
		Username: "clerk", Password: "secret1", Name: "Clerk", Role: domain.RoleUser, IsActive: &inactive,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name, username, password string
	}{
		{"wrong password", "admin", "nope"},
		{"unknown user", "ghost", "admin123"},
		{"inactive user", "clerk", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.username, tt.password); !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}

	res, err := svc.Login(ctx, "ADMIN", "admin123")
	if err != nil {
		t.Fatalf("case-insensitive login: %v", err)
	}
	if res.User.PasswordHash != "" {
		t.Fatalf("login result must not expose the hash")
	}
}

func TestUserRules(t *testing.T) {
	ctx := context.Background()
	svc := newTestUsers(newTestStore())
	admin := seedAdmin(t, svc)

	saved, err := svc.Create(ctx, admin, UserInput{Username: "clerk", Password: "secret1", Name: "Clerk", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clerk := saved.Record
	if !clerk.Permissions.CanAddSales || clerk.Permissions.CanManageUsers {
		t.Fatalf("expected default user permissions, got %+v", clerk.Permissions)
	}

	if _, err := svc.Create(ctx, admin, UserInput{Username: "Clerk", Password: "secret1", Name: "Dup", Role: domain.RoleUser}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected duplicate username, got %v", err)
	}
	if _, err := svc.List(ctx, clerk); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}
	if _, err := svc.Update(ctx, admin, admin.ID, UserInput{Username: "admin", Name: "Admin", Role: domain.RoleUser}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected admin role to be immutable, got %v", err)
	}
	if _, err := svc.Delete(ctx, admin, admin.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected self delete to be refused, got %v", err)
	}
	if _, err := svc.Delete(ctx, admin, clerk.ID); err != nil {
		t.Fatalf("delete clerk: %v", err)
	}
	users, err := svc.List(ctx, admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected only the admin left, got %d", len(users))
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", 0)
	token, _, err := issuer.Issue(domain.User{ID: "u1", Username: "x", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenIssuer("secret-b", 0).Parse(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized with wrong key, got %v", err)
	}
	actor, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if actor.UserID != "u1" || actor.Role != domain.RoleUser {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestSavePOSComputesDerivedFields(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	catalog := NewCatalogService(st, nil)
	term, err := catalog.SavePOS(ctx, domain.POSTerminal{Name: "Till 1", Cashier: "Sara"})
	if err != nil {
		t.Fatalf("save terminal: %v", err)
	}

	svc := NewReconciliationService(st)
	saved, err := svc.SavePOS(ctx, domain.POSReconciliation{
		Date:           "2024-03-01",
		POSID:          term.Record.ID,
		Sales:          dec("1000"),
		Returns:        dec("50"),
		MadaSales:      dec("300"),
		VisaSales:      dec("100"),
		CashHandedOver: dec("540"),
		// Stale derived values are ignored.
		Difference: dec("999"),
	})
	if err != nil {
		t.Fatalf("save pos: %v", err)
	}
	rec := saved.Record
	if rec.POSName != "Till 1" || rec.Cashier != "Sara" {
		t.Fatalf("expected terminal details, got %q/%q", rec.POSName, rec.Cashier)
	}
	if !rec.NetSales.Equal(dec("550")) || !rec.Difference.Equal(dec("-10")) {
		t.Fatalf("unexpected net %s difference %s", rec.NetSales, rec.Difference)
	}
	if rec.Type != domain.ReconciliationDeficit {
		t.Fatalf("expected deficit, got %s", rec.Type)
	}

	if _, err := svc.SavePOS(ctx, domain.POSReconciliation{Date: "2024-03-01", POSID: term.Record.ID, Sales: dec("-1")}); err == nil {
		t.Fatalf("expected negative sales to be rejected")
	}
}

func TestTreasuryOnePerDateAndDraft(t *testing.T) {
	ctx := context.Background()
	svc := NewReconciliationService(newTestStore())

	first, err := svc.SaveTreasury(ctx, domain.TreasuryReconciliation{
		Date:       "2024-03-01",
		POSSales:   dec("500"),
		ActualCash: dec("420"),
		Expenses:   []domain.LedgerEntry{{Description: "Power", Amount: dec("80")}},
	})
	if err != nil {
		t.Fatalf("save treasury: %v", err)
	}
	if !first.Record.BookBalance.Equal(dec("420")) || !first.Record.Difference.IsZero() {
		t.Fatalf("unexpected book %s diff %s", first.Record.BookBalance, first.Record.Difference)
	}

	if _, err := svc.SaveTreasury(ctx, domain.TreasuryReconciliation{Date: "2024-03-01"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected one record per date, got %v", err)
	}

	draft, err := svc.DraftTreasury(ctx, "2024-03-02")
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if !draft.Opening.Chained || !draft.Record.OpeningBalance.Equal(dec("420")) {
		t.Fatalf("expected opening carried from previous day, got %+v", draft.Opening)
	}

	_, err = svc.SaveTreasury(ctx, domain.TreasuryReconciliation{
		Date:     "2024-03-03",
		Expenses: []domain.LedgerEntry{{Description: " ", Amount: dec("1")}},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["expenses[0].description"]; !ok {
		t.Fatalf("expected entry description error, got %v", verr.Fields)
	}
}

func TestSalesCreateRetryAfterFailedSave(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryLocal()
	svc := NewSalesService(store.New(store.Options{Local: local}), nil)

	local.SetErr(errors.New("disk full"))
	in := SaleInput{Date: "2024-01-01", Branch: "A", Amount: amount(10)}
	if _, err := svc.Create(ctx, in); !errors.Is(err, store.ErrNotSaved) {
		t.Fatalf("expected ErrNotSaved, got %v", err)
	}
	local.SetErr(nil)

	sales, err := svc.List(ctx, domain.SalesFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("failed create must not be listed, got %+v", sales)
	}
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
