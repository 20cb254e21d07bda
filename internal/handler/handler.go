package handler

import (
	"context"
	"net/http"

	"tickerbar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// FeedReader serves the payloads fetched by terminal clients.
type FeedReader interface {
	GetMarkets(ctx context.Context) (domain.MarketSnapshot, error)
	GetSeries(ctx context.Context, period domain.Period) (domain.PriceSeries, error)
}

type Handler struct {
	tracer trace.Tracer
	feed   FeedReader
	stream http.Handler
}

func New(tracer trace.Tracer, feed FeedReader, stream http.Handler) *Handler {
	return &Handler{
		tracer: tracer,
		feed:   feed,
		stream: stream,
	}
}

// RegisterRoutes mounts the feed API. When apiKey is set the /api group
// requires a matching X-API-Key header.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)
	r.GET("/ws", h.Stream)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/prices", h.GetPrices)
	api.GET("/markets", h.GetMarkets)
}
