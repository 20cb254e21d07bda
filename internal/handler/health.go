package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status string `json:"status"`
	// Stream is "up" when a tick hub is mounted on /ws, "down" otherwise.
	Stream  string `json:"stream"`
	Clients int    `json:"clients"`
}

// clientCounter is implemented by the tick hub.
type clientCounter interface {
	ClientCount() int
}

// Health godoc
// @Summary      Health check
// @Description  Reports service status and how many terminals are streaming live ticks
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Stream: "down"}
	if h.stream != nil {
		resp.Stream = "up"
		if counter, ok := h.stream.(clientCounter); ok {
			resp.Clients = counter.ClientCount()
		}
	}
	c.JSON(http.StatusOK, resp)
}
