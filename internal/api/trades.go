package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/idhash"
	"memedesk/internal/tracker"
)

type tradeHandler struct {
	tracker *tracker.Service
	log     *zap.Logger
}

type tradeOpenResponse struct {
	OK       bool      `json:"ok"`
	ID       int64     `json:"id"`
	TradeID  string    `json:"trade_id"`
	EntryTS  time.Time `json:"entry_ts"`
	CA       string    `json:"ca"`
	Chain    string    `json:"chain"`
	CoinName string    `json:"coin_name"`
}

type tradeCloseResponse struct {
	OK      bool       `json:"ok"`
	ID      int64      `json:"id"`
	TradeID string     `json:"trade_id"`
	ExitTS  *time.Time `json:"exit_ts"`
	PnLPct  *float64   `json:"pnl_pct"`
	PnLUSD  *float64   `json:"pnl_usd"`
}

type scoreRequest struct {
	IntuitionScore *int `json:"intuition_score"`
}

func (s scoreRequest) value() (int, error) {
	if s.IntuitionScore == nil {
		return 0, domain.Invalid("intuition_score is required")
	}
	return *s.IntuitionScore, nil
}

func (h *tradeHandler) register(r gin.IRouter) {
	g := r.Group("/trades")
	g.POST("/open", h.open)
	g.GET("", h.list)
	g.GET("/paged", h.paged)
	g.GET("/:trade_id", h.get)
	g.POST("/:trade_id/close", h.close)
	g.PATCH("/:trade_id", h.patch)
	g.DELETE("/:trade_id", h.delete)
	g.GET("/:trade_id/bubbles", h.bubbles)
	g.POST("/:trade_id/bubbles", h.setBubbles)
	g.POST("/:trade_id/scores", h.addScore)
}

// tradeID returns the addressed trade id. Ids that could never have been
// generated are NotFound without a store round trip.
func tradeID(c *gin.Context) (string, error) {
	id := c.Param("trade_id")
	if !idhash.IsTradeID(id) {
		return "", domain.NotFound("trade not found")
	}
	return id, nil
}

func (h *tradeHandler) open(c *gin.Context) {
	var req domain.TradeOpen
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	t, err := h.tracker.OpenTrade(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tradeOpenResponse{
		OK:       true,
		ID:       t.ID,
		TradeID:  t.TradeID,
		EntryTS:  t.EntryTS,
		CA:       t.CA,
		Chain:    t.Chain,
		CoinName: t.CoinName,
	})
}

func (h *tradeHandler) close(c *gin.Context) {
	id, err := tradeID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var req domain.TradeClose
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	t, err := h.tracker.CloseTrade(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tradeCloseResponse{
		OK:      true,
		ID:      t.ID,
		TradeID: t.TradeID,
		ExitTS:  t.ExitTS,
		PnLPct:  t.PnLPct,
		PnLUSD:  t.PnLUSD,
	})
}

func (h *tradeHandler) patch(c *gin.Context) {
	id, err := tradeID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var p domain.TradePatch
	if err := bindJSON(c, &p); err != nil {
		writeError(c, h.log, err)
		return
	}
	if _, err := h.tracker.PatchTrade(c.Request.Context(), id, p); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, okResponse{OK: true})
}

func (h *tradeHandler) delete(c *gin.Context) {
	id, err := tradeID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if err := h.tracker.DeleteTrade(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, okResponse{OK: true, Message: "trade " + id + " deleted"})
}

func (h *tradeHandler) get(c *gin.Context) {
	id, err := tradeID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	t, err := h.tracker.GetTrade(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *tradeHandler) list(c *gin.Context) {
	var q tracker.TradeQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.ListTrades(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *tradeHandler) paged(c *gin.Context) {
	var q tracker.TradePageQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	page, err := h.tracker.ListTradesPaged(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *tradeHandler) bubbles(c *gin.Context) {
	id, err := tradeID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	b, err := h.tracker.GetTradeBubbles(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *tradeHandler) setBubbles(c *gin.Context) {
	id, err := tradeID(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var b domain.Bubbles
	if err := bindJSON(c, &b); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.SetTradeBubbles(c.Request.Context(), id, &b)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *tradeHandler) addScore(c *gin.Context) {
	id, err := tradeID(c)
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
	sc, err := h.tracker.AddTradeScore(c.Request.Context(), id, score)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}
