package kana

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"perpdesk/internal/domain"

	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetFundingRate(t *testing.T) {
	var gotKey, gotSymbol string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotSymbol = r.URL.Query().Get("symbol")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"symbol":"BTC/USDC","funding_rate":"0.0001"}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k-123", testLogger())
	rate, err := c.GetFundingRate(context.Background(), "BTC/USDC")
	if err != nil {
		t.Fatalf("GetFundingRate failed: %v", err)
	}

	if gotKey != "k-123" {
		t.Errorf("expected api key header, got %q", gotKey)
	}
	if gotSymbol != "BTC/USDC" {
		t.Errorf("expected symbol query param, got %q", gotSymbol)
	}
	if !rate.FundingRate.Equal(decimal.RequireFromString("0.0001")) {
		t.Errorf("unexpected funding rate %s", rate.FundingRate)
	}
}

func TestGetMarketPrice(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("marketId"); got != "1338" {
			t.Errorf("expected marketId 1338, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[{"symbol":"APT/USDC","price":"8.52"}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k-123", testLogger())
	price, err := c.GetMarketPrice(context.Background(), "APT/USDT")
	if err != nil {
		t.Fatalf("GetMarketPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("8.52")) {
		t.Errorf("unexpected price %s", price)
	}

	// Symbols with no upstream listing fail so the caller can fall back.
	if _, err := c.GetMarketPrice(context.Background(), "DOGE/USDT"); !errors.Is(err, domain.ErrExternalAPI) {
		t.Errorf("expected ErrExternalAPI for unmapped symbol, got %v", err)
	}
}

func TestPlaceOrderForwarding(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/placeOrder" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"order_id":"ord-1","symbol":"APT/USDT","status":"pending","size":"1"}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k-123", testLogger())
	ack, err := c.PlaceOrder(context.Background(), OrderRequest{
		Symbol:    "APT/USDT",
		Side:      "buy",
		OrderType: "limit",
		Size:      decimal.RequireFromString("1"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if ack.OrderID != "ord-1" || ack.Status != "pending" {
		t.Errorf("unexpected ack %+v", ack)
	}
}

func TestUpstreamErrorsMapToExternalAPI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k-123", testLogger())
	if _, err := c.GetPositions(context.Background()); !errors.Is(err, domain.ErrExternalAPI) {
		t.Errorf("expected ErrExternalAPI, got %v", err)
	}
}

func TestGetMarketInfoEmptyData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k-123", testLogger())
	if _, err := c.GetMarketInfo(context.Background(), "1"); !errors.Is(err, domain.ErrExternalAPI) {
		t.Errorf("expected ErrExternalAPI for empty payload, got %v", err)
	}
}
