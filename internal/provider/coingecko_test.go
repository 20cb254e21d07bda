package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"tickerbar/internal/domain"
)

func TestBucketCloses(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	points := [][]float64{
		{float64(base.Add(6 * time.Minute).UnixMilli()), 8},
		{float64(base.UnixMilli()), 10},
		{float64(base.Add(2 * time.Minute).UnixMilli()), 12},
		{float64(base.Add(8 * time.Minute).UnixMilli()), 9},
		{1},
	}

	closes := bucketCloses(points, 5*time.Minute)
	if !slices.Equal(closes, []float64{12, 9}) {
		t.Fatalf("expected [12 9], got %v", closes)
	}
}

func TestBucketClosesEmpty(t *testing.T) {
	if bucketCloses(nil, time.Minute) != nil {
		t.Fatal("expected nil for no points")
	}
	if bucketCloses([][]float64{{1, 2}}, 0) != nil {
		t.Fatal("expected nil for zero step")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(v any) *http.Response {
	data, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func TestCoinGeckoProviderFetchPrices(t *testing.T) {
	t.Parallel()

	provider := NewCoinGeckoProvider(testTracer)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/simple/price") {
				t.Errorf("unexpected path: %s", req.URL.Path)
			}
			return jsonResponse(map[string]map[string]float64{
				"bitcoin": {"usd": 100, "usd_24h_vol": 10, "usd_24h_change": 1.5},
				"unknown": {"usd": 1},
			}), nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	result, err := provider.FetchPrices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap, ok := result["BTC"]
	if !ok || snap.PriceUSD != 100 {
		t.Fatalf("expected BTC snapshot, got %+v", snap)
	}
	if snap.Volume24h != 10 || snap.Change24hPct != 1.5 {
		t.Fatalf("unexpected snapshot values: %+v", snap)
	}
	if len(result) != 1 {
		t.Fatalf("unknown ids should be skipped, got %d entries", len(result))
	}
}

func TestCoinGeckoProviderFetchSeries(t *testing.T) {
	t.Parallel()

	now := time.Now()
	provider := NewCoinGeckoProvider(testTracer)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.Path, "/coins/bitcoin/market_chart") {
				t.Errorf("unexpected path: %s", req.URL.Path)
			}
			if req.URL.Query().Get("days") != "7" {
				t.Errorf("week should request 7 days, got %s", req.URL.RawQuery)
			}
			return jsonResponse(map[string]any{
				"prices": [][]float64{
					{float64(now.Add(-3 * time.Hour).UnixMilli()), 10},
					{float64(now.UnixMilli()), 12},
				},
			}), nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	closes, err := provider.FetchSeries(context.Background(), "BTC", domain.PeriodWeek)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(closes, []float64{10, 12}) {
		t.Fatalf("expected [10 12], got %v", closes)
	}
}

func TestCoinGeckoProviderFetchSeriesRejectsUnknown(t *testing.T) {
	provider := NewCoinGeckoProvider(testTracer)
	if _, err := provider.FetchSeries(context.Background(), "FAKE", domain.PeriodDay); err == nil {
		t.Fatal("expected error for unsupported symbol")
	}
	if _, err := provider.FetchSeries(context.Background(), "BTC", "decade"); err == nil {
		t.Fatal("expected error for unsupported period")
	}
}

func TestCoinGeckoProviderAPIError(t *testing.T) {
	provider := NewCoinGeckoProvider(testTracer)
	provider.baseURL = "http://example"
	provider.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader("slow down")),
				Header:     make(http.Header),
			}, nil
		}),
	}
	provider.limiter = NewRateLimiter(10, time.Millisecond)

	if _, err := provider.FetchPrices(context.Background()); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected API error, got %v", err)
	}
}
