package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/tracker"
)

type tipHandler struct {
	tracker *tracker.Service
	log     *zap.Logger
}

type tipCreateResponse struct {
	OK    bool  `json:"ok"`
	TipID int64 `json:"tip_id"`
}

func (h *tipHandler) register(r gin.IRouter) {
	g := r.Group("/tips")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/paged", h.paged)
	g.GET("/:tip_id", h.get)
	g.PATCH("/:tip_id", h.patch)
	g.DELETE("/:tip_id", h.delete)
	g.GET("/:tip_id/bubbles", h.bubbles)
	g.POST("/:tip_id/bubbles", h.setBubbles)
	g.POST("/:tip_id/scores", h.addScore)
}

func tipID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("tip_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid tip_id")
	}
	return id, nil
}

func (h *tipHandler) create(c *gin.Context) {
	var req domain.TipCreate
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	t, err := h.tracker.CreateTip(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tipCreateResponse{OK: true, TipID: t.TipID})
}

func (h *tipHandler) get(c *gin.Context) {
	id, err := tipID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	t, err := h.tracker.GetTip(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *tipHandler) patch(c *gin.Context) {
	id, err := tipID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var p domain.TipPatch
	if err := bindJSON(c, &p); err != nil {
		writeError(c, h.log, err)
		return
	}
	if _, err := h.tracker.PatchTip(c.Request.Context(), id, p); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, okResponse{OK: true})
}

func (h *tipHandler) delete(c *gin.Context) {
	id, err := tipID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.tracker.DeleteTip(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, okResponse{OK: true, Message: "tip " + c.Param("tip_id") + " deleted"})
}

func (h *tipHandler) list(c *gin.Context) {
	var q tracker.TipQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.ListTips(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *tipHandler) paged(c *gin.Context) {
	var q tracker.TipPageQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	page, err := h.tracker.ListTipsPaged(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *tipHandler) bubbles(c *gin.Context) {
	id, err := tipID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	b, err := h.tracker.GetTipBubbles(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *tipHandler) setBubbles(c *gin.Context) {
	id, err := tipID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var b domain.Bubbles
	if err := bindJSON(c, &b); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.SetTipBubbles(c.Request.Context(), id, &b)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *tipHandler) addScore(c *gin.Context) {
	id, err := tipID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var req scoreRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	score, err := req.value()
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	sc, err := h.tracker.AddTipScore(c.Request.Context(), id, score)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}
