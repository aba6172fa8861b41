package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestCoingecko(t *testing.T, handler http.HandlerFunc) (*Coingecko, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	feed := NewCoingecko(CoingeckoOptions{BaseURL: server.URL}, zerolog.Nop())
	return feed, server
}

func TestCoingeckoFetchSuccess(t *testing.T) {
	feed, _ := newTestCoingecko(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "matic-network" {
			t.Fatalf("expected coin id matic-network, got %q", got)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd" {
			t.Fatalf("expected vs_currencies=usd, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matic-network":{"usd":0.7312}}`))
	})

	price, err := feed.Fetch(context.Background(), "polygon")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.7312")) {
		t.Fatalf("expected 0.7312, got %s", price)
	}
}

func TestCoingeckoFetchNon200(t *testing.T) {
	feed, _ := newTestCoingecko(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	if _, err := feed.Fetch(context.Background(), "ethereum"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCoingeckoFetchMissingPrice(t *testing.T) {
	feed, _ := newTestCoingecko(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	if _, err := feed.Fetch(context.Background(), "ethereum"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCoingeckoFetchMalformedBody(t *testing.T) {
	feed, _ := newTestCoingecko(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	if _, err := feed.Fetch(context.Background(), "ethereum"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCoingeckoFetchUnsupportedChainSkipsRequest(t *testing.T) {
	requests := 0
	feed, _ := newTestCoingecko(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	if _, err := feed.Fetch(context.Background(), "dogecoin"); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain, got %v", err)
	}
	if requests != 0 {
		t.Fatalf("no request should be made for an unsupported chain, got %d", requests)
	}
}
