package grantsgov

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchPosted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search2" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if payload["oppStatus"] != "posted" {
			t.Errorf("oppStatus = %v, want posted", payload["oppStatus"])
		}
		if payload["keyword"] != "literacy" {
			t.Errorf("keyword = %v, want literacy", payload["keyword"])
		}
		w.Write([]byte(`{"opps":[
			{"id":12345,"number":"ED-GRANTS-2026-01","title":"Adult Literacy Program","agencyName":"Dept of Education"},
			{"id":67890,"number":"ED-GRANTS-2026-02","title":"STEM Outreach","agencyName":"NSF"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	opps, err := c.SearchPosted(context.Background(), "literacy", 10)
	if err != nil {
		t.Fatalf("SearchPosted: %v", err)
	}
	if len(opps) != 2 {
		t.Fatalf("got %d opportunities, want 2", len(opps))
	}
	if opps[0].Title != "Adult Literacy Program" || opps[0].ID.String() != "12345" {
		t.Errorf("first opportunity = %+v", opps[0])
	}
}

func TestFetchOpportunity(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fetchOpportunity" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"synopsis":{"synopsisDesc":"Funds adult literacy efforts"},"opportunityTitle":"Adult Literacy Program"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	detail, err := c.FetchOpportunity(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchOpportunity: %v", err)
	}
	if detail["opportunityTitle"] != "Adult Literacy Program" {
		t.Errorf("detail = %v", detail)
	}
}

func TestSearchPostedServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	if _, err := c.SearchPosted(context.Background(), "", 0); err == nil {
		t.Error("expected error for non-200 response")
	}
}
