package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/tracker"
)

type accountHandler struct {
	tracker *tracker.Service
	log     *zap.Logger
}

type limitQuery struct {
	Limit int `form:"limit"`
}

func (h *accountHandler) register(r gin.IRouter) {
	r.POST("/accounts", h.upsert)
	r.GET("/accounts", h.list)
	r.GET("/accounts/summary", h.summary)
}

func (h *accountHandler) upsert(c *gin.Context) {
	var req tracker.AccountCreate
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	a, err := h.tracker.UpsertAccount(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *accountHandler) list(c *gin.Context) {
	var q limitQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.ListAccounts(c.Request.Context(), q.Limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *accountHandler) summary(c *gin.Context) {
	var q chainQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.SummarizeAccounts(c.Request.Context(), q.Chain)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
