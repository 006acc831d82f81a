package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pocketbook-server/src/api"
	"pocketbook-server/src/config"
	"pocketbook-server/src/db"
	"pocketbook-server/src/db/sqlite"
)

var dbCounter atomic.Int64

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	store *sqlite.Store
}

func baseConfig() config.Config {
	return config.Config{
		JWTSecret:      "router-secret",
		TokenTTL:       time.Hour,
		PageSize:       10,
		AuthRequired:   true,
		AllowedOrigins: []string{"*"},
	}
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared&_fk=1", dbCounter.Add(1))
	store, err := sqlite.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	cache, err := db.NewUserCache(time.Minute)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	srv := httptest.NewServer(api.NewRouter(store, cache, cfg))
	t.Cleanup(func() {
		srv.Close()
		cache.Close()
		store.Close()
	})
	return &testServer{t: t, srv: srv, store: store}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) json(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(r.body, v); err != nil {
		t.Fatalf("Failed to decode %s: %v", r.body, err)
	}
}

func (s *testServer) do(method, path, token, body string) response {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	if err != nil {
		s.t.Fatalf("Failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return response{status: resp.StatusCode, header: resp.Header, body: data}
}

func (s *testServer) register(username string) string {
	s.t.Helper()
	body := fmt.Sprintf(`{"username": %q, "email": "%s@example.com", "password": "Secret#123"}`, username, username)
	resp := s.do(http.MethodPost, "/auth/register", "", body)
	if resp.status != http.StatusCreated {
		s.t.Fatalf("Expected 201 on register, got %d: %s", resp.status, resp.body)
	}
	var out struct {
		Token string `json:"token"`
	}
	resp.json(s.t, &out)
	return out.Token
}

type entity struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Date        string `json:"date"`
}

func (s *testServer) create(token, desc, amount, typ, date string) entity {
	s.t.Helper()
	body := fmt.Sprintf(`{"description": %q, "amount": %q, "type": %q, "date": %q}`, desc, amount, typ, date)
	resp := s.do(http.MethodPost, "/transactions/", token, body)
	if resp.status != http.StatusCreated {
		s.t.Fatalf("Expected 201 on create, got %d: %s", resp.status, resp.body)
	}
	var e entity
	resp.json(s.t, &e)
	return e
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, baseConfig())
	token := s.register("maria")

	created := s.create(token, "Salário", "5000", "income", "2023-12-01")
	expected := entity{ID: created.ID, Description: "Salário", Amount: "5000.00", Type: "income", Date: "2023-12-01"}
	if created != expected {
		t.Errorf("Expected %+v, got %+v", expected, created)
	}

	path := fmt.Sprintf("/transactions/%d/", created.ID)
	resp := s.do(http.MethodGet, path, token, "")
	if resp.status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.status)
	}

	resp = s.do(http.MethodPatch, path, token, `{"amount": "5100.10"}`)
	if resp.status != http.StatusOK {
		t.Fatalf("Expected 200 on patch, got %d: %s", resp.status, resp.body)
	}
	var patched entity
	resp.json(t, &patched)
	if patched.Amount != "5100.10" || patched.Description != "Salário" {
		t.Errorf("Expected only amount to change, got %+v", patched)
	}

	resp = s.do(http.MethodPut, path, token, `{"description": "Bônus", "amount": 300, "type": "income", "date": "2023-12-20"}`)
	if resp.status != http.StatusOK {
		t.Fatalf("Expected 200 on put, got %d: %s", resp.status, resp.body)
	}
	var replaced entity
	resp.json(t, &replaced)
	if replaced.Description != "Bônus" || replaced.Amount != "300.00" || replaced.Date != "2023-12-20" {
		t.Errorf("Expected replaced fields, got %+v", replaced)
	}

	resp = s.do(http.MethodDelete, path, token, "")
	if resp.status != http.StatusNoContent || len(resp.body) != 0 {
		t.Errorf("Expected empty 204, got %d: %s", resp.status, resp.body)
	}
	resp = s.do(http.MethodGet, path, token, "")
	if resp.status != http.StatusNotFound || len(resp.body) != 0 {
		t.Errorf("Expected empty 404 after delete, got %d: %s", resp.status, resp.body)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestServer(t, baseConfig())
	token := s.register("maria")

	resp := s.do(http.MethodPost, "/transactions", token, `{"description": "x", "amount": "-5", "type": "other"}`)
	if resp.status != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.status)
	}
	var errs map[string][]string
	resp.json(t, &errs)
	if errs["amount"][0] != "Ensure this value is greater than or equal to 0.01." {
		t.Errorf("Unexpected amount error %v", errs["amount"])
	}
	if errs["type"][0] != `"other" is not a valid choice.` {
		t.Errorf("Unexpected type error %v", errs["type"])
	}
	if errs["date"][0] != "This field is required." {
		t.Errorf("Unexpected date error %v", errs["date"])
	}

	resp = s.do(http.MethodPost, "/transactions", token, `{"description": `)
	if resp.status != http.StatusBadRequest {
		t.Fatalf("Expected 400 on malformed JSON, got %d", resp.status)
	}
	var detail map[string]string
	resp.json(t, &detail)
	if !strings.HasPrefix(detail["detail"], "JSON parse error") {
		t.Errorf("Expected JSON parse error detail, got %v", detail)
	}

	resp = s.do(http.MethodGet, "/transactions", token, "")
	var page struct {
		Count int64 `json:"count"`
	}
	resp.json(t, &page)
	if page.Count != 0 {
		t.Errorf("Expected no rows written, got %d", page.Count)
	}
}

func TestFailedUpdateLeavesEntityUnchanged(t *testing.T) {
	s := newTestServer(t, baseConfig())
	token := s.register("maria")
	created := s.create(token, "Aluguel", "1200.50", "expense", "2023-12-05")
	path := fmt.Sprintf("/transactions/%d", created.ID)

	resp := s.do(http.MethodPut, path, token, `{"amount": "10"}`)
	if resp.status != http.StatusBadRequest {
		t.Fatalf("Expected 400 on incomplete put, got %d", resp.status)
	}
	resp = s.do(http.MethodPatch, path, token, `{"amount": "1.001"}`)
	if resp.status != http.StatusBadRequest {
		t.Fatalf("Expected 400 on invalid patch, got %d", resp.status)
	}

	var got entity
	s.do(http.MethodGet, path, token, "").json(t, &got)
	if got != created {
		t.Errorf("Expected %+v to be unchanged, got %+v", created, got)
	}

	resp = s.do(http.MethodPatch, "/transactions/9999", token, `{"amount": "bad"}`)
	if resp.status != http.StatusNotFound {
		t.Errorf("Expected 404 before validation for a missing id, got %d", resp.status)
	}
}

func TestOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t, baseConfig())
	ana := s.register("ana")
	bia := s.register("bia")
	created := s.create(ana, "Salário", "5000", "income", "2023-12-01")
	path := fmt.Sprintf("/transactions/%d", created.ID)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		resp := s.do(method, path, bia, `{"description": "x"}`)
		if resp.status != http.StatusNotFound {
			t.Errorf("Expected 404 for foreign %s, got %d", method, resp.status)
		}
	}

	var page struct {
		Count int64 `json:"count"`
	}
	s.do(http.MethodGet, "/transactions", bia, "").json(t, &page)
	if page.Count != 0 {
		t.Errorf("Expected foreign rows to be invisible, got %d", page.Count)
	}
}

func TestSummary(t *testing.T) {
	s := newTestServer(t, baseConfig())
	token := s.register("maria")
	s.create(token, "Salário", "5000.00", "income", "2023-12-01")
	s.create(token, "Salário", "5000.00", "income", "2024-01-01")
	s.create(token, "Aluguel", "1200.50", "expense", "2023-12-05")
	s.create(token, "Aluguel", "1200.50", "expense", "2024-01-05")

	resp := s.do(http.MethodGet, "/summary/?order_by=-amount", token, "")
	if resp.status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.status)
	}
	var summary map[string]string
	resp.json(t, &summary)
	expected := map[string]string{"total_income": "10000.00", "total_expense": "2401.00", "net_balance": "7599.00"}
	for k, v := range expected {
		if summary[k] != v {
			t.Errorf("Expected %s %s, got %s", k, v, summary[k])
		}
	}

	s.do(http.MethodGet, "/summary?description=Aluguel", token, "").json(t, &summary)
	if summary["total_income"] != "0.00" || summary["net_balance"] != "-2401.00" {
		t.Errorf("Expected filtered summary, got %v", summary)
	}

	empty := s.register("joao")
	s.do(http.MethodGet, "/summary", empty, "").json(t, &summary)
	if summary["total_income"] != "0.00" || summary["total_expense"] != "0.00" || summary["net_balance"] != "0.00" {
		t.Errorf("Expected zero summary, got %v", summary)
	}
}

func TestPagination(t *testing.T) {
	cfg := baseConfig()
	cfg.PageSize = 2
	s := newTestServer(t, cfg)
	token := s.register("maria")
	for i := 1; i <= 5; i++ {
		s.create(token, fmt.Sprintf("item %d", i), "1", "expense", "2024-01-01")
	}

	type envelope struct {
		Count    int64    `json:"count"`
		Next     *string  `json:"next"`
		Previous *string  `json:"previous"`
		Results  []entity `json:"results"`
	}

	var first envelope
	s.do(http.MethodGet, "/transactions?type=expense", token, "").json(t, &first)
	if first.Count != 5 || len(first.Results) != 2 || first.Previous != nil {
		t.Fatalf("Unexpected first page %+v", first)
	}
	if first.Next == nil || *first.Next != s.srv.URL+"/transactions?page=2&type=expense" {
		t.Errorf("Unexpected next link %v", first.Next)
	}

	var second envelope
	s.do(http.MethodGet, "/transactions?page=2&type=expense", token, "").json(t, &second)
	if second.Previous == nil || *second.Previous != s.srv.URL+"/transactions?type=expense" {
		t.Errorf("Expected previous link without page, got %v", second.Previous)
	}

	var last envelope
	s.do(http.MethodGet, "/transactions?page=last", token, "").json(t, &last)
	if len(last.Results) != 1 || last.Next != nil || last.Results[0].Description != "item 5" {
		t.Errorf("Unexpected last page %+v", last)
	}

	for _, page := range []string{"4", "0", "abc", "-1"} {
		resp := s.do(http.MethodGet, "/transactions?page="+page, token, "")
		if resp.status != http.StatusNotFound {
			t.Errorf("Expected 404 for page %s, got %d", page, resp.status)
		}
		var detail map[string]string
		resp.json(t, &detail)
		if detail["detail"] != "Invalid page." {
			t.Errorf("Expected invalid page detail, got %v", detail)
		}
	}

	var empty envelope
	resp := s.do(http.MethodGet, "/transactions?type=", token, "")
	if resp.status != http.StatusOK {
		t.Fatalf("Expected page 1 of an empty result to be valid, got %d", resp.status)
	}
	resp.json(t, &empty)
	if empty.Count != 0 || empty.Results == nil {
		t.Errorf("Expected empty results array, got %s", resp.body)
	}
}

func TestPaginationDisabled(t *testing.T) {
	cfg := baseConfig()
	cfg.PageSize = 0
	s := newTestServer(t, cfg)
	token := s.register("maria")
	s.create(token, "b", "20", "income", "2024-01-02")
	s.create(token, "a", "10", "income", "2024-01-01")

	var items []entity
	s.do(http.MethodGet, "/transactions?order_by=date", token, "").json(t, &items)
	if len(items) != 2 || items[0].Description != "a" {
		t.Errorf("Expected a bare ordered array, got %+v", items)
	}
}

func TestRouting(t *testing.T) {
	s := newTestServer(t, baseConfig())
	token := s.register("maria")
	created := s.create(token, "Café", "7.50", "expense", "2024-01-01")

	cases := []struct {
		method   string
		path     string
		expected int
	}{
		{http.MethodDelete, "/transactions", http.StatusBadRequest},
		{http.MethodPut, "/transactions/", http.StatusBadRequest},
		{http.MethodPost, fmt.Sprintf("/transactions/%d", created.ID), http.StatusBadRequest},
		{http.MethodPost, "/summary", http.StatusBadRequest},
		{http.MethodGet, "/transactions/abc", http.StatusNotFound},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp := s.do(tc.method, tc.path, token, "")
			if resp.status != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, resp.status)
			}
			if len(resp.body) != 0 {
				t.Errorf("Expected empty body, got %q", resp.body)
			}
		})
	}

	resp := s.do(http.MethodGet, "/health", "", "")
	if resp.status != http.StatusOK || string(resp.body) != "ok" {
		t.Errorf("Expected health ok, got %d %q", resp.status, resp.body)
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, baseConfig())
	s.register("maria")

	if resp := s.do(http.MethodGet, "/transactions", "", ""); resp.status != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.status)
	}
	if resp := s.do(http.MethodGet, "/summary", "bogus", ""); resp.status != http.StatusUnauthorized {
		t.Errorf("Expected 401 with bad token, got %d", resp.status)
	}

	dup := s.do(http.MethodPost, "/auth/register", "", `{"username": "MARIA", "email": "x@example.com", "password": "Secret#123"}`)
	if dup.status != http.StatusConflict {
		t.Errorf("Expected 409 on duplicate username, got %d", dup.status)
	}
	weak := s.do(http.MethodPost, "/auth/register", "", `{"username": "joao", "email": "joao@example.com", "password": "short"}`)
	if weak.status != http.StatusBadRequest {
		t.Errorf("Expected 400 on weak password, got %d", weak.status)
	}

	bad := s.do(http.MethodPost, "/auth/login", "", `{"username": "maria", "password": "Wrong#123"}`)
	if bad.status != http.StatusUnauthorized {
		t.Errorf("Expected 401 on wrong password, got %d", bad.status)
	}
	good := s.do(http.MethodPost, "/auth/login", "", `{"username": "maria@example.com", "password": "Secret#123"}`)
	if good.status != http.StatusOK {
		t.Fatalf("Expected 200 on login, got %d: %s", good.status, good.body)
	}
	var login struct {
		Token string `json:"token"`
	}
	good.json(t, &login)

	var me struct {
		Username  string  `json:"username"`
		LastLogin *string `json:"last_login"`
	}
	s.do(http.MethodGet, "/auth/me", login.Token, "").json(t, &me)
	if me.Username != "maria" || me.LastLogin == nil {
		t.Errorf("Unexpected profile %+v", me)
	}

	user, err := s.store.GetUserByLogin(context.Background(), "maria")
	if err != nil {
		t.Fatalf("GetUserByLogin failed: %v", err)
	}
	if err := s.store.SetUserLocked(context.Background(), user.ID, true); err != nil {
		t.Fatalf("SetUserLocked failed: %v", err)
	}
	locked := s.do(http.MethodPost, "/auth/login", "", `{"username": "maria", "password": "Secret#123"}`)
	if locked.status != http.StatusForbidden {
		t.Errorf("Expected 403 for a locked login, got %d", locked.status)
	}
}

func TestAuthDisabled(t *testing.T) {
	cfg := baseConfig()
	cfg.AuthRequired = false
	s := newTestServer(t, cfg)

	created := s.create("", "Café", "7.50", "expense", "2024-01-01")
	resp := s.do(http.MethodGet, fmt.Sprintf("/transactions/%d", created.ID), "", "")
	if resp.status != http.StatusOK {
		t.Errorf("Expected 200 without auth, got %d", resp.status)
	}
}

func TestDemoMode(t *testing.T) {
	cfg := baseConfig()
	cfg.DemoMode = true
	s := newTestServer(t, cfg)
	token := s.register("maria")

	resp := s.do(http.MethodPost, "/transactions", token, `{"description": "x", "amount": "1", "type": "income", "date": "2024-01-01"}`)
	if resp.status != http.StatusForbidden {
		t.Errorf("Expected 403 in demo mode, got %d", resp.status)
	}
	if resp := s.do(http.MethodGet, "/transactions", token, ""); resp.status != http.StatusOK {
		t.Errorf("Expected reads to work in demo mode, got %d", resp.status)
	}
}

func TestStatement(t *testing.T) {
	s := newTestServer(t, baseConfig())
	token := s.register("maria")
	s.create(token, "Salário", "5000", "income", "2023-12-01")

	resp := s.do(http.MethodGet, "/summary/statement?description=Sal", token, "")
	if resp.status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.status)
	}
	if ct := resp.header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Expected application/pdf, got %s", ct)
	}
	if !bytes.HasPrefix(resp.body, []byte("%PDF-")) {
		t.Error("Expected a PDF document")
	}
}

func TestAccountManagement(t *testing.T) {
	s := newTestServer(t, baseConfig())
	token := s.register("maria")
	created := s.create(token, "Salário", "5000", "income", "2023-12-01")

	resp := s.do(http.MethodPost, "/auth/change-password", token, `{"current_password": "wrong", "new_password": "Other#456"}`)
	if resp.status != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong current password, got %d", resp.status)
	}
	resp = s.do(http.MethodPost, "/auth/change-password", token, `{"current_password": "Secret#123", "new_password": "Other#456"}`)
	if resp.status != http.StatusOK {
		t.Fatalf("Expected 200 on password change, got %d: %s", resp.status, resp.body)
	}
	if resp := s.do(http.MethodPost, "/auth/login", "", `{"username": "maria", "password": "Other#456"}`); resp.status != http.StatusOK {
		t.Errorf("Expected login with the new password, got %d", resp.status)
	}

	if resp := s.do(http.MethodDelete, "/auth/me", token, ""); resp.status != http.StatusNoContent {
		t.Fatalf("Expected 204 on account deletion, got %d", resp.status)
	}
	if resp := s.do(http.MethodGet, "/transactions", token, ""); resp.status != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a deleted user, got %d", resp.status)
	}
	if _, err := s.store.GetTransaction(context.Background(), 0, created.ID); err == nil {
		t.Error("Expected the user's transactions to be deleted")
	}
}
