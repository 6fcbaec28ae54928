package square

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func ts(daysAgo int) string {
	return time.Now().AddDate(0, 0, -daysAgo).UTC().Format(time.RFC3339)
}

func customerPage(t *testing.T, w http.ResponseWriter, customers []Customer, cursor string) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(CustomersPage{Customers: customers, Cursor: cursor}); err != nil {
		t.Fatalf("encode page: %v", err)
	}
}

func TestCustomersPaginatesToExhaustion(t *testing.T) {
	pageSizes := []int{100, 100, 40}
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/customers/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		page := calls
		calls++
		customers := make([]Customer, pageSizes[page])
		for i := range customers {
			customers[i] = Customer{ID: fmt.Sprintf("C%d-%d", page, i), CreatedAt: ts(1)}
		}
		cursor := ""
		if page < len(pageSizes)-1 {
			cursor = fmt.Sprintf("cursor-%d", page+1)
		}
		customerPage(t, w, customers, cursor)
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(srv.URL, "2023-10-18", nil), nil, 365, 0)
	customers, err := f.Customers(context.Background(), "token")
	if err != nil {
		t.Fatalf("Customers: %v", err)
	}
	if len(customers) != 240 {
		t.Errorf("got %d customers, want 240", len(customers))
	}
	if calls != 3 {
		t.Errorf("made %d calls, want 3", calls)
	}
}

func TestCustomersWindowKeepsCreatedOrUpdated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customerPage(t, w, []Customer{
			{ID: "recent-created", CreatedAt: ts(5), UpdatedAt: ts(400)},
			{ID: "recent-updated", CreatedAt: ts(400), UpdatedAt: ts(5)},
			{ID: "both-old", CreatedAt: ts(400), UpdatedAt: ts(400)},
			{ID: "malformed", CreatedAt: "not-a-timestamp", UpdatedAt: ""},
		}, "")
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(srv.URL, "2023-10-18", nil), nil, 365, 0)
	customers, err := f.Customers(context.Background(), "token")
	if err != nil {
		t.Fatalf("Customers: %v", err)
	}
	got := make(map[string]bool, len(customers))
	for _, c := range customers {
		got[c.ID] = true
	}
	if !got["recent-created"] || !got["recent-updated"] {
		t.Errorf("kept = %v, want recent-created and recent-updated", got)
	}
	if got["both-old"] {
		t.Error("customer outside the window was kept")
	}
	if got["malformed"] {
		t.Error("customer with malformed timestamps was kept")
	}
}

func TestCustomersFallsBackToListOnSearchFailure(t *testing.T) {
	var listCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/customers/search":
			w.WriteHeader(http.StatusInternalServerError)
		case "/v2/customers":
			listCalls++
			customerPage(t, w, []Customer{{ID: "from-list", CreatedAt: ts(2)}}, "")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(srv.URL, "2023-10-18", nil), nil, 365, 0)
	customers, err := f.Customers(context.Background(), "token")
	if err != nil {
		t.Fatalf("Customers: %v", err)
	}
	if listCalls == 0 {
		t.Fatal("list fallback was never called")
	}
	if len(customers) != 1 || customers[0].ID != "from-list" {
		t.Errorf("customers = %+v, want the fallback page", customers)
	}
}

func TestCustomersMidPaginationFailureReturnsAccumulated(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/customers" {
			// Fallback must not run when search already yielded data.
			t.Error("fallback called after a successful first page")
			return
		}
		calls++
		if calls == 1 {
			customerPage(t, w, []Customer{{ID: "C1", CreatedAt: ts(1)}, {ID: "C2", CreatedAt: ts(1)}}, "more")
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(srv.URL, "2023-10-18", nil), nil, 365, 0)
	customers, err := f.Customers(context.Background(), "token")
	if err != nil {
		t.Fatalf("Customers: %v", err)
	}
	if len(customers) != 2 {
		t.Errorf("got %d customers, want the 2 accumulated before the failure", len(customers))
	}
}

func TestCustomersCapTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customers := make([]Customer, 100)
		for i := range customers {
			customers[i] = Customer{ID: fmt.Sprintf("C%d", i), CreatedAt: ts(1)}
		}
		customerPage(t, w, customers, "always-more")
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(srv.URL, "2023-10-18", nil), nil, 365, 150)
	customers, err := f.Customers(context.Background(), "token")
	if err != nil {
		t.Fatalf("Customers: %v", err)
	}
	if len(customers) != 150 {
		t.Errorf("got %d customers, want cap of 150", len(customers))
	}
}

func TestInvoicesFirstPageFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(srv.URL, "2023-10-18", nil), nil, 365, 0)
	if _, err := f.Invoices(context.Background(), "token", []string{"L1"}); err == nil {
		t.Fatal("want error from first invoice page, got nil")
	}
}

func TestInvoicesSendsLocationFilterAndSort(t *testing.T) {
	var req SearchInvoicesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(InvoicesPage{Invoices: []Invoice{{ID: "INV1"}}})
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(srv.URL, "2023-10-18", nil), nil, 365, 0)
	invoices, err := f.Invoices(context.Background(), "token", []string{"L1", "L2"})
	if err != nil {
		t.Fatalf("Invoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("got %d invoices, want 1", len(invoices))
	}
	if req.Query == nil || req.Query.Filter == nil || len(req.Query.Filter.LocationIDs) != 2 {
		t.Fatalf("request filter = %+v, want 2 location ids", req.Query)
	}
	if req.Query.Sort == nil || req.Query.Sort.Order != "DESC" {
		t.Errorf("request sort = %+v, want DESC", req.Query.Sort)
	}
}
