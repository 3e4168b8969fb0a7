package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"painel/internal/auth"
	"painel/internal/cache"
	"painel/internal/core"
	"painel/internal/dashboard"
	"painel/internal/middleware/trace"
	"painel/internal/services"
	"painel/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

type testServer struct {
	*Server
	token string
}

func newTestServer(t *testing.T, deps Deps) *testServer {
	t.Helper()
	st := memory.New(time.UTC, memory.DefaultSeed())
	dash := dashboard.NewDashboard(cache.NewLRUCache[*dashboard.View](32, time.Minute))
	now := func() time.Time { return testNow }
	sessions := services.NewSessionManager(st, now, func(userID string) { dash.Invalidate(userID) })
	t.Cleanup(sessions.Close)

	mgr, err := auth.NewManager(testSecret)
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	token, err := mgr.Issue("u1", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	deps.Sessions = sessions
	deps.Ledger = services.NewLedgerService(st, sessions)
	deps.Dashboard = dash
	deps.Auth = mgr
	deps.Now = now
	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, token: token}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, Deps{Ready: func(context.Context) error { return errors.New("store down") }})
	ts.token = ""

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get(trace.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/readyz", ""), http.StatusServiceUnavailable)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t, Deps{})
	ts.token = ""
	rec := ts.do(t, http.MethodGet, "/api/dashboard", "")
	expectStatus(t, rec, http.StatusUnauthorized)
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate")
	}

	ts.token = "not-a-jwt"
	expectStatus(t, ts.do(t, http.MethodGet, "/api/dashboard", ""), http.StatusUnauthorized)
}

func TestDashboardReflectsCreatedEntries(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(t, http.MethodPost, "/api/entries",
		`{"date":"2024-05-10","categoryId":"salario","accountId":"carteira","description":"Salário","value":5000,"status":"paid"}`)
	expectStatus(t, rec, http.StatusCreated)

	rec = ts.do(t, http.MethodPost, "/api/entries",
		`{"date":"2024-05-05","categoryId":"alimentacao","subcategoryId":"mercado","accountId":"carteira","description":"Feira","value":"90","status":"paid","installments":3}`)
	expectStatus(t, rec, http.StatusCreated)
	created := decodeBody[[]core.Entry](t, rec)
	if len(created) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(created))
	}
	if created[0].Description != "Feira (1/3)" || created[2].Date != "2024-07-05" || created[1].Status != core.StatusPending {
		t.Fatalf("unexpected installments: %+v", created)
	}

	rec = ts.do(t, http.MethodGet, "/api/dashboard", "")
	expectStatus(t, rec, http.StatusOK)
	view := decodeBody[dashboard.View](t, rec)
	if got := view.KPIs[dashboard.MetricEntradas].Cents; got != 500000 {
		t.Errorf("entradas = %d", got)
	}
	if got := view.KPIs[dashboard.MetricSaidas].Cents; got != -9000 {
		t.Errorf("saidas = %d", got)
	}
	if len(view.Entries) != 2 {
		t.Errorf("entries in range = %d, want 2", len(view.Entries))
	}
	if len(view.Tiles) != dashboard.TileCount {
		t.Errorf("tiles = %d", len(view.Tiles))
	}

	rec = ts.do(t, http.MethodGet, "/api/dashboard?search=feira&sort=value&dir=desc", "")
	expectStatus(t, rec, http.StatusOK)
	view = decodeBody[dashboard.View](t, rec)
	if len(view.Entries) != 1 || view.Sort.Dir != dashboard.SortDesc {
		t.Fatalf("query overrides not applied: %d entries, sort %+v", len(view.Entries), view.Sort)
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/api/dashboard?sort=amount", ""), http.StatusUnprocessableEntity)
}

func TestEntryErrors(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(t, http.MethodPost, "/api/entries",
		`{"date":"2024-05-10","categoryId":"salario","accountId":"carteira","value":0}`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	if body := decodeBody[errorBody](t, rec); body.Field != "value" {
		t.Errorf("field = %q", body.Field)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/entries", `{"date":`), http.StatusUnprocessableEntity)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/entries/missing/toggle", ""), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/entries/missing", ""), http.StatusNotFound)
}

func TestToggleEntryStatus(t *testing.T) {
	ts := newTestServer(t, Deps{})
	rec := ts.do(t, http.MethodPost, "/api/entries",
		`{"date":"2024-05-10","categoryId":"moradia","accountId":"carteira","value":1200}`)
	expectStatus(t, rec, http.StatusCreated)
	id := decodeBody[[]core.Entry](t, rec)[0].ID

	rec = ts.do(t, http.MethodPost, "/api/entries/"+id+"/toggle", "")
	expectStatus(t, rec, http.StatusOK)
	if e := decodeBody[core.Entry](t, rec); e.Status != core.StatusPaid {
		t.Fatalf("status = %q", e.Status)
	}

	expectStatus(t, ts.do(t, http.MethodDelete, "/api/entries/"+id, ""), http.StatusNoContent)
}

func TestTaxonomyEndpoints(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(t, http.MethodDelete, "/api/categories/moradia", "")
	expectStatus(t, rec, http.StatusConflict)
	if !strings.Contains(decodeBody[errorBody](t, rec).Error, "1 subcategorias") {
		t.Errorf("unexpected message %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/categories", `{"name":" Lazer ","group":"saida"}`)
	expectStatus(t, rec, http.StatusCreated)
	cat := decodeBody[core.Category](t, rec)
	if cat.ID == "" || cat.Name != "Lazer" {
		t.Fatalf("category = %+v", cat)
	}

	expectStatus(t, ts.do(t, http.MethodPut, "/api/categories/"+cat.ID, `{"name":"Lazer e viagens","group":"saida"}`), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodPut, "/api/categories/nope", `{"name":"x","group":"saida"}`), http.StatusNotFound)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/categories", `{"name":"x","group":"other"}`), http.StatusUnprocessableEntity)

	rec = ts.do(t, http.MethodGet, "/api/subcategories?category=moradia", "")
	expectStatus(t, rec, http.StatusOK)
	if subs := decodeBody[[]core.Subcategory](t, rec); len(subs) != 1 || subs[0].ID != "aluguel" {
		t.Fatalf("subcategories = %+v", subs)
	}

	expectStatus(t, ts.do(t, http.MethodDelete, "/api/subcategories/aluguel", ""), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodDelete, "/api/categories/moradia", ""), http.StatusNoContent)

	rec = ts.do(t, http.MethodPost, "/api/accounts", `{"name":"Nubank","initialBalance":-50}`)
	expectStatus(t, rec, http.StatusCreated)
	rec = ts.do(t, http.MethodGet, "/api/accounts", "")
	if accounts := decodeBody[[]core.Account](t, rec); len(accounts) != 2 {
		t.Fatalf("accounts = %+v", accounts)
	}
}

func TestSortAndMetricSelection(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(t, http.MethodPost, "/api/sort/value", "")
	expectStatus(t, rec, http.StatusOK)
	if spec := decodeBody[dashboard.SortSpec](t, rec); spec != (dashboard.SortSpec{Col: dashboard.ColValue, Dir: dashboard.SortAsc}) {
		t.Fatalf("first click = %+v", spec)
	}
	rec = ts.do(t, http.MethodPost, "/api/sort/value", "")
	if spec := decodeBody[dashboard.SortSpec](t, rec); spec.Dir != dashboard.SortDesc {
		t.Fatalf("second click = %+v", spec)
	}
	expectStatus(t, ts.do(t, http.MethodPost, "/api/sort/amount", ""), http.StatusUnprocessableEntity)

	rec = ts.do(t, http.MethodPut, "/api/metrics/1", `{"name":"Moradia > Aluguel"}`)
	expectStatus(t, rec, http.StatusOK)
	rec = ts.do(t, http.MethodGet, "/api/dashboard", "")
	view := decodeBody[dashboard.View](t, rec)
	if view.Tiles[1].Metric != "Moradia > Aluguel" {
		t.Fatalf("tile not retargeted: %+v", view.Tiles)
	}

	expectStatus(t, ts.do(t, http.MethodPut, "/api/metrics/9", `{"name":"Moradia"}`), http.StatusUnprocessableEntity)
	expectStatus(t, ts.do(t, http.MethodPut, "/api/metrics/0", `{"name":"  "}`), http.StatusUnprocessableEntity)
}

func TestConfigAndPresets(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(t, http.MethodGet, "/api/config", "")
	expectStatus(t, rec, http.StatusOK)
	cfg := decodeBody[core.Config](t, rec)
	if cfg.DateRange.String() != "2024-05-01..2024-05-20" {
		t.Fatalf("default range = %s", cfg.DateRange)
	}

	rec = ts.do(t, http.MethodPut, "/api/config", `{"name":"Ana","theme":"ocean","privacy":true}`)
	expectStatus(t, rec, http.StatusOK)
	cfg = decodeBody[core.Config](t, rec)
	if cfg.Name != "Ana" || cfg.Theme != core.ThemeOcean || !cfg.Privacy {
		t.Fatalf("config = %+v", cfg)
	}
	expectStatus(t, ts.do(t, http.MethodPut, "/api/config", `{"theme":"neon"}`), http.StatusUnprocessableEntity)

	rec = ts.do(t, http.MethodGet, "/api/presets", "")
	expectStatus(t, rec, http.StatusOK)
	if presets := decodeBody[[]presetBody](t, rec); len(presets) != len(dashboard.Presets()) {
		t.Fatalf("presets = %+v", presets)
	}

	rec = ts.do(t, http.MethodPost, "/api/config/preset/lastMonth", "")
	expectStatus(t, rec, http.StatusOK)
	if cfg = decodeBody[core.Config](t, rec); cfg.DateRange.String() != "2024-04-01..2024-04-30" {
		t.Fatalf("lastMonth = %s", cfg.DateRange)
	}

	rec = ts.do(t, http.MethodPost, "/api/config/preset/all", "")
	expectStatus(t, rec, http.StatusOK)
	if cfg = decodeBody[core.Config](t, rec); cfg.DateRange != nil {
		t.Fatalf("all should clear the range, got %s", cfg.DateRange)
	}
	expectStatus(t, ts.do(t, http.MethodPost, "/api/config/preset/forever", ""), http.StatusUnprocessableEntity)
}

func TestExports(t *testing.T) {
	ts := newTestServer(t, Deps{})
	expectStatus(t, ts.do(t, http.MethodPost, "/api/entries",
		`{"date":"2024-05-10","categoryId":"salario","accountId":"carteira","description":"Salário","value":5000,"status":"paid"}`), http.StatusCreated)

	rec := ts.do(t, http.MethodGet, "/api/export.csv", "")
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != contentTypeCSV {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "relatorio-financeiro-2024-05-20.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Relatório Financeiro") || !strings.Contains(body, "10/05/2024") {
		t.Errorf("csv body = %s", body)
	}

	rec = ts.do(t, http.MethodGet, "/api/export.xlsx", "")
	expectStatus(t, rec, http.StatusOK)
	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 3 {
		t.Fatalf("sheets = %v", sheets)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	ts := newTestServer(t, Deps{RateLimitPerMinute: 1})

	expectStatus(t, ts.do(t, http.MethodPost, "/api/sort/date", ""), http.StatusOK)
	rec := ts.do(t, http.MethodPost, "/api/sort/date", "")
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	// reads are not counted
	expectStatus(t, ts.do(t, http.MethodGet, "/api/config", ""), http.StatusOK)

	rec = ts.do(t, http.MethodGet, "/healthz", "")
	expectStatus(t, rec, http.StatusOK)
	health := decodeBody[healthBody](t, rec)
	if health.RateLimited != 1 || health.Requests != 3 {
		t.Fatalf("health = %+v", health)
	}
}
