package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// marketHandler serves data that does not live in the primary store.
type marketHandler struct {
	meta     TokenMetaLookup
	outcomes storage.OutcomeStore
	log      *zap.Logger
}

type tokenMetaQuery struct {
	CA string `form:"ca"`
}

func (h *marketHandler) register(r gin.IRouter) {
	r.GET("/dexscreener/token_meta", h.tokenMeta)
	r.GET("/analytics/outcomes", h.outcomeStats)
}

func (h *marketHandler) tokenMeta(c *gin.Context) {
	if h.meta == nil {
		writeError(c, h.log, domain.Unavailable("token meta lookup disabled"))
		return
	}
	var q tokenMetaQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	meta, err := h.meta.TokenMeta(c.Request.Context(), q.CA)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *marketHandler) outcomeStats(c *gin.Context) {
	if h.outcomes == nil {
		writeError(c, h.log, domain.Unavailable("analytics disabled"))
		return
	}
	stats, err := h.outcomes.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if stats == nil {
		stats = []*domain.OutcomeStats{}
	}
	c.JSON(http.StatusOK, stats)
}
