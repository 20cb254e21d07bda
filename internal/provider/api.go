package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tickerbar/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// APIClient reads the price series and market snapshot from a feed server.
type APIClient struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewAPIClient(tracer trace.Tracer, baseURL string) *APIClient {
	return &APIClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
	}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// FetchPrices returns the series for every symbol over period.
func (c *APIClient) FetchPrices(ctx context.Context, period domain.Period) (domain.PriceSeries, error) {
	ctx, span := c.tracer.Start(ctx, "api.fetch-prices")
	defer span.End()
	span.SetAttributes(attribute.String("period", period.String()))

	endpoint := fmt.Sprintf("%s/api/prices?period=%s", c.baseURL, url.QueryEscape(period.String()))

	var resp envelope[domain.PriceSeries]
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	return resp.Data, nil
}

// FetchMarkets returns the current market value of every symbol.
func (c *APIClient) FetchMarkets(ctx context.Context) (domain.MarketSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, "api.fetch-markets")
	defer span.End()

	var resp envelope[domain.MarketSnapshot]
	if err := c.getJSON(ctx, c.baseURL+"/api/markets", &resp); err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	return resp.Data, nil
}

func (c *APIClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("feed API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
