package httpbal

import (
	"bmon/fetch"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFetchBalance(t *testing.T) {
	asOf := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balance":"1234.56","as_of":"2026-03-14T09:26:53Z"}`))
	}))
	defer ts.Close()

	svc, err := fetch.Open("http", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	bal, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !bal.Value.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("expected balance 1234.56, got %s", bal.Value)
	}
	if !bal.AsOf.Equal(asOf) {
		t.Fatalf("expected as_of %v, got %v", asOf, bal.AsOf)
	}
}

func TestFetchBalance_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	svc, err := fetch.Open("http", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	if _, err := svc.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestFetchBalance_DecodeFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balance":"not a number"}`))
	}))
	defer ts.Close()

	svc, err := fetch.Open("http", ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	if _, err := svc.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for unparseable balance")
	}
}

func TestOpen_RejectsBadScheme(t *testing.T) {
	if _, err := fetch.Open("http", "ftp://example.com/balance"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
