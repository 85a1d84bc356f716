package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/tracker"
)

type healthHandler struct {
	tracker *tracker.Service
	log     *zap.Logger
}

func (h *healthHandler) register(r gin.IRouter) {
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
}

func (h *healthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ready also reports the active context so a cold UI can restore it.
func (h *healthHandler) ready(c *gin.Context) {
	if err := h.tracker.Ping(c.Request.Context()); err != nil {
		writeError(c, h.log, err)
		return
	}
	cur, err := h.tracker.GetContext(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "context_row": cur})
}
