package handler

import (
	"net/http"

	"tickerbar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// PricesResponse wraps the series payload.
type PricesResponse struct {
	Data domain.PriceSeries `json:"data"`
}

// MarketsResponse wraps the snapshot payload.
type MarketsResponse struct {
	Data domain.MarketSnapshot `json:"data"`
}

// GetPrices godoc
// @Summary      Get price series for every tracked currency
// @Description  Returns one close-price series per currency, all trimmed to the same length
// @Tags         prices
// @Produce      json
// @Param        period  query  string  false  "Period (day, week, month, year)"  default(day)
// @Success      200  {object}  PricesResponse
// @Failure      400  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]string
// @Router       /api/prices [get]
func (h *Handler) GetPrices(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-prices")
	defer span.End()

	period, err := domain.ParsePeriod(c.DefaultQuery("period", string(domain.PeriodDay)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             err.Error(),
			"supported_periods": domain.Periods,
		})
		return
	}
	span.SetAttributes(attribute.String("period", period.String()))

	series, err := h.feed.GetSeries(ctx, period)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, PricesResponse{Data: series})
}

// GetMarkets godoc
// @Summary      Get the latest market snapshot
// @Description  Returns the latest USD price of every tracked currency
// @Tags         prices
// @Produce      json
// @Success      200  {object}  MarketsResponse
// @Failure      502  {object}  map[string]string
// @Router       /api/markets [get]
func (h *Handler) GetMarkets(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-markets")
	defer span.End()

	markets, err := h.feed.GetMarkets(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, MarketsResponse{Data: markets})
}
