package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/salesledger/internal/analytics"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/service"
	"github.com/andresuchdata/salesledger/internal/store"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	svc    *Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(store.Options{Remote: store.NewMemoryRemote(), Local: store.NewMemoryLocal()})
	sales := service.NewSalesService(st, nil)
	reports := service.NewReportService(st, nil)
	recon := service.NewReconciliationService(st)
	svc := &Services{
		Sales:          sales,
		Catalog:        service.NewCatalogService(st, nil),
		Reconciliation: recon,
		Reports:        reports,
		Users:          service.NewUserService(st, service.NewTokenIssuer("test", 0)),
		Exports:        service.NewExportService(sales, reports, recon, nil, ""),
		Backup:         service.NewBackupService(st, nil),
	}
	if _, _, err := svc.Users.EnsureAdmin(context.Background(), "admin", "admin123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return &testServer{t: t, router: NewRouter(svc, nil), svc: svc}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var res service.LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		s.t.Fatalf("decode login: %v", err)
	}
	return res.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/sales", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/sales", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "x"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	token := s.login("admin", "admin123")
	rec := s.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	me := decode[domain.User](t, rec)
	if me.Username != "admin" || me.PasswordHash != "" {
		t.Fatalf("unexpected me %+v", me)
	}
}

func TestSalesErrorMapping(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin123")

	sale := map[string]any{"date": "2024-03-01", "branch": "North", "amount": 100}
	rec := s.do(http.MethodPost, "/api/v1/sales", token, sale)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[service.Saved[domain.SaleRecord]](t, rec)
	if created.Write.Outcome != store.OutcomeRemoteOK {
		t.Fatalf("expected write outcome in response, got %+v", created.Write)
	}

	if rec := s.do(http.MethodPost, "/api/v1/sales", token, sale); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/v1/sales", token, map[string]any{"date": "03/01/2024", "branch": "North", "amount": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if details, ok := body["details"].(map[string]any); !ok || details["date"] == nil {
		t.Fatalf("expected field details, got %v", body)
	}

	if rec := s.do(http.MethodDelete, "/api/v1/sales/missing", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/reports/ai/analysis", token, nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for short history, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/exports/uploaded", token, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without storage, got %d", rec.Code)
	}
}

func TestBranchScopedUser(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")

	rec := s.do(http.MethodPost, "/api/v1/branches", admin, map[string]any{"name": "North"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("branch: %d %s", rec.Code, rec.Body.String())
	}
	north := decode[service.Saved[domain.Branch]](t, rec).Record
	if rec := s.do(http.MethodPost, "/api/v1/branches", admin, map[string]any{"name": "South"}); rec.Code != http.StatusCreated {
		t.Fatalf("branch: %d", rec.Code)
	}

	for _, b := range []string{"North", "South"} {
		sale := map[string]any{"date": "2024-03-01", "branch": b, "amount": 10}
		if rec := s.do(http.MethodPost, "/api/v1/sales", admin, sale); rec.Code != http.StatusCreated {
			t.Fatalf("sale %s: %d", b, rec.Code)
		}
	}

	rec = s.do(http.MethodPost, "/api/v1/users", admin, map[string]any{
		"username": "clerk", "password": "secret1", "name": "Clerk", "role": "user", "branchId": north.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", rec.Code, rec.Body.String())
	}
	clerk := s.login("clerk", "secret1")

	rec = s.do(http.MethodGet, "/api/v1/sales", clerk, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	list := decode[struct {
		Sales []domain.SaleRecord `json:"sales"`
	}](t, rec)
	if len(list.Sales) != 1 || list.Sales[0].Branch != "North" {
		t.Fatalf("expected only North sales, got %+v", list.Sales)
	}

	if rec := s.do(http.MethodGet, "/api/v1/sales?branch=South", clerk, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other branch, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/api/v1/sales", clerk, map[string]any{"date": "2024-03-02", "branch": "South", "amount": 1}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 writing another branch, got %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/api/v1/sales/"+list.Sales[0].ID, clerk, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without delete permission, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/users", clerk, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on users, got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/v1/reports/daily?date=2024-03-01", clerk, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("daily: %d", rec.Code)
	}
	if daily := decode[map[string]any](t, rec); daily["total"] != float64(10) {
		t.Fatalf("expected scoped daily total 10, got %v", daily["total"])
	}

	if rec := s.do(http.MethodGet, "/api/v1/reports/branches/South", clerk, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another branch's detail, got %d", rec.Code)
	}
	rec = s.do(http.MethodGet, "/api/v1/reports/branches/north", clerk, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("branch detail: %d %s", rec.Code, rec.Body.String())
	}
	detail := decode[analytics.BranchDetail](t, rec)
	if detail.Branch != "North" || detail.Info == nil || detail.Total != 10 || detail.BestDay == nil || detail.BestDay.Date != "2024-03-01" {
		t.Fatalf("unexpected branch detail %+v", detail)
	}

	if rec := s.do(http.MethodGet, "/api/v1/reports/branches/East", admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown branch, got %d", rec.Code)
	}
}

func TestSalesImportUpload(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin123")

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "march.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("date,branch,amount\n2024-03-01,North,10\n2024-03-02,North,oops\n"))
	w.WriteField("overwrite", "false")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	rep := decode[map[string]any](t, rec)
	if rep["imported"] != float64(1) || rep["skipped"] != float64(1) {
		t.Fatalf("unexpected import report %v", rep)
	}
}

func TestReconciliationRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "admin123")

	rec := s.do(http.MethodPost, "/api/v1/reconciliation/pos/preview", token, map[string]any{
		"sales": 100, "returns": 0, "madaSales": 20, "visaSales": 0, "cashHandedOver": 85,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body.String())
	}
	preview := decode[map[string]any](t, rec)
	if preview["difference"] != float64(5) || preview["type"] != "surplus" {
		t.Fatalf("unexpected preview %v", preview)
	}

	day := map[string]any{"date": "2024-03-01", "actualCash": 10}
	if rec := s.do(http.MethodPost, "/api/v1/reconciliation/treasury", token, day); rec.Code != http.StatusCreated {
		t.Fatalf("treasury: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodPost, "/api/v1/reconciliation/treasury", token, day); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second day record, got %d", rec.Code)
	}
	rec = s.do(http.MethodGet, "/api/v1/reconciliation/treasury/opening/2024-03-02", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("opening: %d", rec.Code)
	}
	if opening := decode[map[string]any](t, rec); opening["chained"] != true || opening["openingBalance"] != float64(10) {
		t.Fatalf("unexpected opening %v", opening)
	}
}

func TestBackupRestoreRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "admin123")

	if rec := s.do(http.MethodPost, "/api/v1/branches", admin, map[string]any{"name": "North"}); rec.Code != http.StatusCreated {
		t.Fatalf("branch: %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/api/v1/sales", admin, map[string]any{"date": "2024-03-01", "branch": "North", "amount": 10}); rec.Code != http.StatusCreated {
		t.Fatalf("sale: %d", rec.Code)
	}
	rec := s.do(http.MethodPost, "/api/v1/users", admin, map[string]any{
		"username": "clerk", "password": "secret1", "name": "Clerk", "role": "user",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", rec.Code, rec.Body.String())
	}
	clerk := s.login("clerk", "secret1")

	if rec := s.do(http.MethodGet, "/api/v1/backup", clerk, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 backup for clerk, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/api/v1/restore", clerk, map[string]any{}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 restore for clerk, got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/v1/backup", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("backup: %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "salesledger_backup_") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}
	backup := decode[service.Backup](t, rec)
	if backup.SchemaVersion != service.BackupVersion || len(backup.Sales) != 1 || len(backup.Users) != 2 {
		t.Fatalf("unexpected backup %+v", backup)
	}

	if rec := s.do(http.MethodDelete, "/api/v1/sales/"+backup.Sales[0].ID, admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/v1/restore", admin, backup)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore: %d %s", rec.Code, rec.Body.String())
	}
	res := decode[service.RestoreResult](t, rec)
	if res.Counts["sales"] != 1 {
		t.Fatalf("unexpected restore counts %v", res.Counts)
	}
	list := decode[struct {
		Sales []domain.SaleRecord `json:"sales"`
	}](t, s.do(http.MethodGet, "/api/v1/sales", admin, nil))
	if len(list.Sales) != 1 || list.Sales[0].ID != backup.Sales[0].ID {
		t.Fatalf("expected sale restored, got %+v", list.Sales)
	}

	backup.SchemaVersion = service.BackupVersion + 1
	if rec := s.do(http.MethodPost, "/api/v1/restore", admin, backup); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown version, got %d", rec.Code)
	}
}
