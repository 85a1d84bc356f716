package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/tracker"
)

type contextHandler struct {
	tracker *tracker.Service
	log     *zap.Logger
}

func (h *contextHandler) register(r gin.IRouter) {
	r.GET("/context", h.get)
	r.POST("/context", h.set)
}

func (h *contextHandler) get(c *gin.Context) {
	out, err := h.tracker.GetContext(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *contextHandler) set(c *gin.Context) {
	var req tracker.ContextSet
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.SetContext(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
