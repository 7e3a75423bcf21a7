package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bilancio/internal/cache"
	applog "bilancio/internal/log"
	"bilancio/internal/records"
	"bilancio/internal/records/memory"
	"bilancio/internal/report"
	"bilancio/internal/services"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "test"})
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger := quietLogger()
	store := records.Paged(memory.New(memory.DefaultCategories))
	svc := services.NewTransactionService(store, services.Options{
		PageSize: 2,
		Cache:    cache.NewLRUCache[services.View](50, time.Minute),
		Logger:   logger,
	})
	opts.Logger = logger
	srv := NewServer(":0", svc, services.NewSessions(svc, nil), opts)
	t.Cleanup(srv.limiter.Stop)
	return srv
}

// client replays the session cookie the server hands out.
type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func newClient(t *testing.T, srv *Server) *client {
	return &client{t: t, srv: srv}
}

func (c *client) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rr
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, target, "", "")
}

func (c *client) postJSON(body string) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, "/api/transactions", "application/json", body)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorBody](t, rr).Error
}

func seedScenario(t *testing.T, c *client) {
	t.Helper()
	for _, body := range []string{
		`{"type":"income","category":"Salary","amount":3000,"date":"2024-03-01"}`,
		`{"type":"expense","category":"food","amount":"12,50","date":"2024-03-02","description":"groceries"}`,
		`{"type":"expense","category":"Rent","amount":800.00,"date":"2024-03-03"}`,
	} {
		if rr := c.postJSON(body); rr.Code != http.StatusCreated {
			t.Fatalf("create %s: status %d body %s", body, rr.Code, rr.Body.String())
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	c := newClient(t, srv)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := c.get(path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
	}

	failing := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("sheet unreachable") }})
	rr := newClient(t, failing).get("/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing readyz status = %d", rr.Code)
	}
	body := decode[map[string]any](t, rr)
	if body["status"] != "not_ready" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))
	seedScenario(t, c)

	rr := c.get("/api/transactions")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	page := decode[transactionsPageJSON](t, rr)
	if page.Pagination != (paginationJSON{Page: 1, TotalPages: 2, Count: 3, PageSize: 2}) {
		t.Fatalf("pagination = %+v", page.Pagination)
	}
	if len(page.Transactions) != 2 || page.Transactions[0].Category != "Rent" || page.Transactions[1].Category != "Food" {
		t.Fatalf("transactions = %+v", page.Transactions)
	}
	if page.Transactions[1].AmountCents != 1250 || page.Transactions[1].Amount != "12.50" {
		t.Errorf("food amount = %+v", page.Transactions[1])
	}

	rr = c.get("/api/transactions?page=2")
	page = decode[transactionsPageJSON](t, rr)
	if len(page.Transactions) != 1 || page.Transactions[0].Category != "Salary" {
		t.Fatalf("page 2 = %+v", page.Transactions)
	}
}

func TestCreateTransaction_FormBody(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))

	rr := c.do(http.MethodPost, "/api/transactions", "application/x-www-form-urlencoded",
		"type=expense&category=Transport&amount=2.40&date=2024-05-06")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body.String())
	}
	created := decode[map[string]transactionJSON](t, rr)["transaction"]
	if created.AmountCents != 240 || created.Date != "2024-05-06" || created.Category != "Transport" {
		t.Errorf("created = %+v", created)
	}
	if rr.Header().Get("Location") != "/api/transactions/"+created.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
}

func TestCreateTransaction_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"bad json", `{"type":`, http.StatusBadRequest, "Invalid request body"},
		{"bad type", `{"type":"gift","category":"Food","amount":1,"date":"2024-01-01"}`, http.StatusUnprocessableEntity, "Type must be income or expense"},
		{"missing category", `{"type":"expense","amount":1,"date":"2024-01-01"}`, http.StatusUnprocessableEntity, "Category is required"},
		{"zero amount", `{"type":"expense","category":"Food","amount":0,"date":"2024-01-01"}`, http.StatusUnprocessableEntity, "Amount must be a positive number"},
		{"negative amount", `{"type":"expense","category":"Food","amount":"-3","date":"2024-01-01"}`, http.StatusUnprocessableEntity, "Amount must be a positive number"},
		{"bad date", `{"type":"expense","category":"Food","amount":1,"date":"2024-02-30"}`, http.StatusUnprocessableEntity, "Date must be a valid YYYY-MM-DD date"},
		{"unknown category", `{"type":"expense","category":"Nope","amount":1,"date":"2024-01-01"}`, http.StatusInternalServerError, `Unknown category "Nope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, newTestServer(t, Options{}))
			rr := c.postJSON(tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if got := errorOf(t, rr); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
		})
	}
}

func TestListTransactions_Params(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))
	seedScenario(t, c)

	page := decode[transactionsPageJSON](t, c.get("/api/transactions?filter=expense&sort=amount&order=asc"))
	if page.Params != (paramsJSON{Filter: "expense", Sort: "amount", Order: "asc", Page: 1}) {
		t.Fatalf("params = %+v", page.Params)
	}
	if len(page.Transactions) != 2 || page.Transactions[0].AmountCents != 1250 || page.Transactions[1].AmountCents != 80000 {
		t.Fatalf("transactions = %+v", page.Transactions)
	}

	// The session remembers the params between requests.
	page = decode[transactionsPageJSON](t, c.get("/api/transactions"))
	if page.Params.Filter != "expense" || page.Params.Sort != "amount" {
		t.Fatalf("remembered params = %+v", page.Params)
	}

	page = decode[transactionsPageJSON](t, c.get("/api/transactions?filter=category:salary"))
	if len(page.Transactions) != 1 || page.Transactions[0].Type != "income" {
		t.Fatalf("category filter = %+v", page.Transactions)
	}

	page = decode[transactionsPageJSON](t, c.get("/api/transactions?filter=all&sort=date&order=desc&page=9"))
	if page.Params.Page != 2 || page.Pagination.Page != 2 {
		t.Errorf("out of range page not clamped: %+v", page.Params)
	}

	rr := c.get("/api/transactions?sort=price")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid sort status = %d", rr.Code)
	}
	if got := errorOf(t, rr); got != "Sort must be date, amount or category" {
		t.Errorf("error = %q", got)
	}
}

func TestListTransactions_FilterChangeResetsPage(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))
	seedScenario(t, c)

	c.get("/api/transactions?page=2")
	page := decode[transactionsPageJSON](t, c.get("/api/transactions?filter=income"))
	if page.Params.Page != 1 {
		t.Errorf("page = %d after filter change, want 1", page.Params.Page)
	}
}

func TestDeleteTransaction(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))
	seedScenario(t, c)
	page := decode[transactionsPageJSON](t, c.get("/api/transactions"))
	id := page.Transactions[0].ID

	rr := c.do(http.MethodDelete, "/api/transactions/"+id, "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed delete status = %d", rr.Code)
	}

	rr = c.do(http.MethodDelete, "/api/transactions/"+id+"?confirm=true", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d body %s", rr.Code, rr.Body.String())
	}
	page = decode[transactionsPageJSON](t, c.get("/api/transactions"))
	if page.Pagination.Count != 2 {
		t.Errorf("count after delete = %d", page.Pagination.Count)
	}

	rr = c.do(http.MethodDelete, "/api/transactions/"+id+"?confirm=true", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rr.Code)
	}
	if got := errorOf(t, rr); got != "Transaction not found" {
		t.Errorf("error = %q", got)
	}
}

func TestDashboard(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))
	seedScenario(t, c)

	rr := c.get("/api/dashboard")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	d := decode[dashboardJSON](t, rr)

	if d.Summary.Totals.Income.AmountCents != 300000 || d.Summary.Totals.Expense.AmountCents != 81250 {
		t.Errorf("totals = %+v", d.Summary.Totals)
	}
	if d.Summary.Totals.Balance.Amount != "2187.50" {
		t.Errorf("balance = %+v", d.Summary.Totals.Balance)
	}
	if len(d.Summary.ByCategory) != 2 || d.Summary.ByCategory[0].Name != "Rent" || d.Summary.ByCategory[1].Name != "Food" {
		t.Errorf("by category = %+v", d.Summary.ByCategory)
	}
	if len(d.Charts.Line.Datasets) != 2 || len(d.Charts.Line.Datasets[1].Data) != 2 {
		t.Errorf("line chart = %+v", d.Charts.Line)
	}
	if d.Charts.CategoryPie.Total != 812.5 {
		t.Errorf("category pie total = %v", d.Charts.CategoryPie.Total)
	}
	if len(d.Categories) != len(memory.DefaultCategories) {
		t.Errorf("categories = %d", len(d.Categories))
	}
	if d.Error != "" || d.Busy {
		t.Errorf("status = %q busy=%v", d.Error, d.Busy)
	}
}

func TestDashboard_KeepsLastMutationError(t *testing.T) {
	tests := []struct {
		name   string
		send   func(c *client) *httptest.ResponseRecorder
		status int
		want   string
	}{
		{
			name: "unknown category",
			send: func(c *client) *httptest.ResponseRecorder {
				return c.postJSON(`{"type":"expense","category":"Nope","amount":5,"date":"2024-03-04"}`)
			},
			status: http.StatusInternalServerError,
			want:   `Unknown category "Nope"`,
		},
		{
			name: "negative amount",
			send: func(c *client) *httptest.ResponseRecorder {
				return c.postJSON(`{"type":"expense","category":"Food","amount":-5,"date":"2024-03-04"}`)
			},
			status: http.StatusUnprocessableEntity,
			want:   "Amount must be a positive number",
		},
		{
			name: "unreadable body",
			send: func(c *client) *httptest.ResponseRecorder {
				return c.postJSON(`{"type":`)
			},
			status: http.StatusBadRequest,
			want:   "Invalid request body",
		},
		{
			name: "unconfirmed delete",
			send: func(c *client) *httptest.ResponseRecorder {
				return c.do(http.MethodDelete, "/api/transactions/abc", "", "")
			},
			status: http.StatusBadRequest,
			want:   "Deletion must be confirmed with confirm=true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, newTestServer(t, Options{}))
			seedScenario(t, c)

			if rr := tt.send(c); rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			// Two reads: neither may clear the error.
			for i := 0; i < 2; i++ {
				rr := c.get("/api/dashboard")
				if rr.Code != http.StatusOK {
					t.Fatalf("dashboard status = %d", rr.Code)
				}
				if got := decode[dashboardJSON](t, rr).Error; got != tt.want {
					t.Errorf("read %d: error = %q, want %q", i, got, tt.want)
				}
			}

			if rr := c.postJSON(`{"type":"expense","category":"Food","amount":5,"date":"2024-03-04"}`); rr.Code != http.StatusCreated {
				t.Fatalf("create status = %d", rr.Code)
			}
			if got := decode[dashboardJSON](t, c.get("/api/dashboard")).Error; got != "" {
				t.Errorf("error not cleared by a successful create: %q", got)
			}
		})
	}
}

func TestPieChart(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))
	seedScenario(t, c)

	pie := decode[report.PieChart](t, c.get("/api/charts/pie?kind=type"))
	if len(pie.Data) != 2 || pie.Data[0].Label != "Income" {
		t.Errorf("type pie = %+v", pie)
	}

	pie = decode[report.PieChart](t, c.get("/api/charts/pie?filter=expense"))
	if len(pie.Data) != 2 || pie.Data[0].Color != report.Palette[0] {
		t.Errorf("category pie = %+v", pie)
	}

	if rr := c.get("/api/charts/pie?kind=bar"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d", rr.Code)
	}

	line := decode[report.LineChart](t, c.get("/api/charts/line?filter=income"))
	if len(line.Datasets[0].Data) != 1 || len(line.Datasets[1].Data) != 0 {
		t.Errorf("line chart = %+v", line)
	}
}

func TestCategories(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))
	body := decode[map[string][]categoryJSON](t, c.get("/api/categories"))
	if len(body["categories"]) != len(memory.DefaultCategories) || body["categories"][0].Name != "Salary" {
		t.Errorf("categories = %+v", body["categories"])
	}
}

func TestRouting(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))

	rr := c.do(http.MethodPut, "/api/transactions", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT status = %d", rr.Code)
	}
	if rr.Header().Get("Allow") != "GET, POST" {
		t.Errorf("Allow = %q", rr.Header().Get("Allow"))
	}

	rr = c.get("/api/nothing")
	if rr.Code != http.StatusNotFound || errorOf(t, rr) != "Not found" {
		t.Errorf("unknown path: %d %s", rr.Code, rr.Body.String())
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{RateLimitPerMinute: 1}))

	body := `{"type":"expense","category":"Food","amount":1,"date":"2024-01-01"}`
	if rr := c.postJSON(body); rr.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rr.Code)
	}
	rr := c.postJSON(body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second create status = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After not set")
	}

	// Reads are not limited.
	if rr := c.get("/api/transactions"); rr.Code != http.StatusOK {
		t.Errorf("read status = %d", rr.Code)
	}
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	c := newClient(t, newTestServer(t, Options{}))

	rr := c.get("/api/transactions")
	if c.cookie == nil || !c.cookie.HttpOnly {
		t.Fatalf("session cookie = %+v", c.cookie)
	}
	rr = c.get("/api/transactions")
	if len(rr.Result().Cookies()) != 0 {
		t.Errorf("cookie reissued for a live session")
	}
}
