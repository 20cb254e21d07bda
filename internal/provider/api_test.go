package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"tickerbar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func newFeedServer(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAPIClient(testTracer, srv.URL+"/")
}

func TestAPIClientFetchPrices(t *testing.T) {
	t.Parallel()

	client := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/prices" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("period") != "week" {
			t.Errorf("unexpected period: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data":{"BTC":[1127.41,1134.47,1158.11],"ETH":[1,2,3]}}`))
	})

	series, err := client.FetchPrices(context.Background(), domain.PeriodWeek)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.PriceSeries{"BTC": {1127.41, 1134.47, 1158.11}, "ETH": {1, 2, 3}}
	if !reflect.DeepEqual(series, want) {
		t.Fatalf("expected %v, got %v", want, series)
	}
}

func TestAPIClientFetchMarkets(t *testing.T) {
	t.Parallel()

	client := newFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/markets" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"BTC":1158.11}}`))
	})

	snapshot, err := client.FetchMarkets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot["BTC"] != 1158.11 {
		t.Fatalf("unexpected snapshot: %v", snapshot)
	}
}

func TestAPIClientErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]http.HandlerFunc{
		"not found": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"bad body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		},
	}
	for name, handler := range tests {
		client := newFeedServer(t, handler)
		if _, err := client.FetchMarkets(context.Background()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if _, err := client.FetchPrices(context.Background(), domain.PeriodDay); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !strings.Contains(err.Error(), "fetch prices") {
			t.Fatalf("%s: error should be wrapped, got %v", name, err)
		}
	}
}
