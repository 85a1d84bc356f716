package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"memedesk/internal/cache"
	"memedesk/internal/domain"
)

const (
	solMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	evmAddr = "0x6982508145454ce325ddbe47a25d4ec3d2311933"
)

func newTestClient(url string, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithBaseURL(url), WithRetryDelay(time.Millisecond)}, opts...)
	return NewClient(opts...)
}

func TestClient_TokenPairs_Retries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-pairs/v1/solana/"+solMint {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]Pair{{ChainID: "solana", BaseToken: Token{Address: solMint, Name: "USD Coin", Symbol: "USDC"}}})
	}))
	defer server.Close()

	pairs, err := newTestClient(server.URL).TokenPairs(context.Background(), "solana", solMint)
	if err != nil {
		t.Fatalf("TokenPairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Errorf("expected 1 pair, got %d", len(pairs))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_TokenPairs_GivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).TokenPairs(context.Background(), "solana", solMint)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, errNotListed) {
		t.Error("gave-up error must not read as not listed")
	}
	if calls.Load() != DefaultMaxAttempts {
		t.Errorf("expected %d calls, got %d", DefaultMaxAttempts, calls.Load())
	}
}

func TestClient_TokenPairs_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).TokenPairs(context.Background(), "solana", solMint); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestClient_TokenPairs_NotListed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/solana/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if _, err := c.TokenPairs(context.Background(), "solana", solMint); !errors.Is(err, errNotListed) {
		t.Errorf("404: expected errNotListed, got %v", err)
	}
	if _, err := c.TokenPairs(context.Background(), "ethereum", evmAddr); !errors.Is(err, errNotListed) {
		t.Errorf("empty list: expected errNotListed, got %v", err)
	}
}

func TestClient_TokenMeta(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.Contains(r.URL.Path, "/base/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode([]Pair{
			{ChainID: "base", BaseToken: Token{Address: "0xother", Name: "Wrapped", Symbol: "WETH"}, PairCreatedAt: 1_700_000_500_000},
			{ChainID: "base", BaseToken: Token{Address: strings.ToUpper(evmAddr[2:]), Name: "Pepe", Symbol: "PEPE"}, PairCreatedAt: 1_700_000_000_000},
			{ChainID: "base", BaseToken: Token{Address: "0x6982508145454Ce325dDbE47a25d4ec3d2311933", Name: "Pepe", Symbol: "PEPE"}, PairCreatedAt: 1_700_000_100_000},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	meta, err := c.TokenMeta(context.Background(), evmAddr)
	if err != nil {
		t.Fatalf("TokenMeta: %v", err)
	}
	if meta.Chain != "base" {
		t.Errorf("expected chain base, got %s", meta.Chain)
	}
	if meta.Symbol == nil || *meta.Symbol != "PEPE" {
		t.Errorf("expected symbol PEPE, got %v", meta.Symbol)
	}
	if meta.PairsFound != 3 {
		t.Errorf("expected 3 pairs, got %d", meta.PairsFound)
	}
	want := time.UnixMilli(1_700_000_000_000).UTC()
	if meta.LaunchTS == nil || !meta.LaunchTS.Equal(want) {
		t.Errorf("expected launch %v, got %v", want, meta.LaunchTS)
	}

	// EVM address: solana is never probed.
	probed := calls.Load()
	if probed != 8 {
		t.Errorf("expected 8 EVM probes, got %d", probed)
	}

	// Cached, case-insensitively.
	if _, err := c.TokenMeta(context.Background(), strings.ToUpper("0x"+evmAddr[2:])); err != nil {
		t.Fatalf("cached TokenMeta: %v", err)
	}
	if calls.Load() != probed {
		t.Errorf("expected cache hit, got %d more calls", calls.Load()-probed)
	}
}

func TestClient_TokenMeta_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).TokenMeta(context.Background(), solMint)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestClient_TokenMeta_Upstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).TokenMeta(context.Background(), solMint)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestClient_TokenMeta_CacheExpires(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode([]Pair{{ChainID: "solana", BaseToken: Token{Address: solMint, Name: "USD Coin", Symbol: "USDC"}}})
	}))
	defer server.Close()

	store := cache.NewMemoryStore()
	c := newTestClient(server.URL, WithCache(store, 20*time.Millisecond))

	for i := 0; i < 2; i++ {
		if _, err := c.TokenMeta(context.Background(), solMint); err != nil {
			t.Fatalf("TokenMeta: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call before expiry, got %d", calls.Load())
	}

	time.Sleep(30 * time.Millisecond)
	if _, err := c.TokenMeta(context.Background(), solMint); err != nil {
		t.Fatalf("TokenMeta: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected refetch after expiry, got %d calls", calls.Load())
	}
}

func TestClient_TokenMeta_ShortCA(t *testing.T) {
	_, err := NewClient().TokenMeta(context.Background(), "ab")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
