package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/tracker"
)

type coinHandler struct {
	tracker *tracker.Service
	log     *zap.Logger
}

type chainQuery struct {
	Chain string `form:"chain"`
}

func (h *coinHandler) register(r gin.IRouter, admin gin.HandlerFunc) {
	g := r.Group("/coins")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/summary", h.summary)
	g.GET("/:ca", h.get)
	g.GET("/:ca/detail", h.get)
	g.DELETE("/:ca", admin, h.delete)
}

func (h *coinHandler) create(c *gin.Context) {
	var req domain.CoinCreate
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	coin, err := h.tracker.CreateCoin(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, coin)
}

func (h *coinHandler) list(c *gin.Context) {
	var q tracker.CoinQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	coins, err := h.tracker.ListCoins(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, coins)
}

func (h *coinHandler) summary(c *gin.Context) {
	var q tracker.CoinQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.SummarizeCoins(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *coinHandler) get(c *gin.Context) {
	var q chainQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	coin, err := h.tracker.GetCoin(c.Request.Context(), c.Param("ca"), q.Chain)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, coin)
}

func (h *coinHandler) delete(c *gin.Context) {
	var q chainQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	key, err := h.tracker.DeleteCoin(c.Request.Context(), c.Param("ca"), q.Chain)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, okResponse{OK: true, Message: "deleted " + key.CA + " on " + key.Chain})
}
