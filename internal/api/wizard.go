package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/tracker"
)

type wizardHandler struct {
	tracker *tracker.Service
	log     *zap.Logger
}

func (h *wizardHandler) register(r gin.IRouter, admin gin.HandlerFunc) {
	g := r.Group("/wizard", admin)
	g.POST("/dex_add", h.dexAdd)
	g.POST("/influencer_add", h.influencerAdd)
}

func (h *wizardHandler) dexAdd(c *gin.Context) {
	var req tracker.DexAdd
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	res, err := h.tracker.DexAdd(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *wizardHandler) influencerAdd(c *gin.Context) {
	var req tracker.InfluencerAdd
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	res, err := h.tracker.InfluencerAdd(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
