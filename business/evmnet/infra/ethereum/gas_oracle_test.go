package ethereum

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fd1az/arbitrage-bot/internal/logger"
)

func newTestLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test")
}

func TestGasOracleClient_FetchReturnsOracleValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slow": 10, "average": 20, "fast": 40}`))
	}))
	defer srv.Close()

	client, err := NewGasOracleClient(srv.URL, 60, newTestLogger())
	if err != nil {
		t.Fatalf("NewGasOracleClient: %v", err)
	}
	defer client.Close()

	prices := client.Fetch(context.Background())
	if prices.Slow != 10 || prices.Average != 20 || prices.Fast != 40 {
		t.Fatalf("expected {10 20 40}, got %+v", prices)
	}
}

func TestGasOracleClient_FetchFallsBackToLastGoodOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewGasOracleClient(srv.URL, 60, newTestLogger())
	if err != nil {
		t.Fatalf("NewGasOracleClient: %v", err)
	}
	defer client.Close()

	prices := client.Fetch(context.Background())
	if prices != client.lastGood {
		t.Fatalf("expected the initial last-good default, got %+v", prices)
	}
}

func TestGasOracleClient_FetchClampsTierAboveCeiling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slow": 10, "average": 20, "fast": 999999}`))
	}))
	defer srv.Close()

	client, err := NewGasOracleClient(srv.URL, 60, newTestLogger())
	if err != nil {
		t.Fatalf("NewGasOracleClient: %v", err)
	}
	defer client.Close()

	prices := client.Fetch(context.Background())
	if prices.Fast != 500 {
		t.Fatalf("expected fast tier clamped to 500, got %v", prices.Fast)
	}
}

func TestGasOracleClient_FetchUsesCacheWithinTTL(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slow": 10, "average": 20, "fast": 40}`))
	}))
	defer srv.Close()

	client, err := NewGasOracleClient(srv.URL, 600, newTestLogger())
	if err != nil {
		t.Fatalf("NewGasOracleClient: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	first := client.Fetch(ctx)
	second := client.Fetch(ctx)

	if first != second {
		t.Fatalf("expected identical cached readings, got %+v and %+v", first, second)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected exactly 1 HTTP hit while the cache entry is warm, got %d", got)
	}
}

func TestGasOracleClient_FetchNonPositiveTierFallsBackToLastGood(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slow": 10, "average": 20, "fast": 40}`))
	}))
	defer srv.Close()

	client, err := NewGasOracleClient(srv.URL, 600, newTestLogger())
	if err != nil {
		t.Fatalf("NewGasOracleClient: %v", err)
	}
	defer client.Close()

	first := client.Fetch(context.Background())
	client.cache.Delete(gasPricesCacheKey)

	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slow": -5, "average": 20, "fast": 40}`))
	})

	second := client.Fetch(context.Background())
	if second.Slow != first.Slow {
		t.Fatalf("expected non-positive tier to fall back to the last good value %v, got %v", first.Slow, second.Slow)
	}
}
