package http

import (
	"net/http"
	"time"

	"github.com/dkeye/Callwire/internal/app/orch"
	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status      string  `json:"status"`
	Connections int     `json:"connections"`
	Registered  int     `json:"registered"`
	Rooms       int     `json:"rooms"`
	Calls       int     `json:"calls"`
	Uptime      float64 `json:"uptime"`
	Timestamp   string  `json:"timestamp"`
}

type Health struct {
	o       *orch.Orchestrator
	started time.Time
}

func NewHealth(o *orch.Orchestrator) *Health {
	return &Health{o: o, started: time.Now()}
}

// Handle reports live counts; uptime is in seconds.
func (h *Health) Handle(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		Connections: h.o.Presence.ConnectionCount(),
		Registered:  len(h.o.Presence.Snapshot()),
		Rooms:       h.o.Rooms.Count(),
		Calls:       h.o.Calls.Count(),
		Uptime:      time.Since(h.started).Seconds(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
