package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stream godoc
// @Summary      Live price ticks
// @Description  Upgrades to a WebSocket that streams {"cryptoCurrency","price"} messages
// @Tags         prices
// @Success      101
// @Failure      503  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) Stream(c *gin.Context) {
	if h.stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tick stream unavailable"})
		return
	}
	h.stream.ServeHTTP(c.Writer, c.Request)
}
