package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/tracker"
)

// coinChildHandler serves coin-level bubbles and scores.
type coinChildHandler struct {
	tracker *tracker.Service
	log     *zap.Logger
}

type coinBubblesRequest struct {
	CA       string             `json:"ca"`
	Chain    string             `json:"chain"`
	Clusters []domain.BubbleRow `json:"clusters"`
	Others   []domain.BubbleRow `json:"others"`
}

type coinBubblesResponse struct {
	OK            bool   `json:"ok"`
	CA            string `json:"ca"`
	Chain         string `json:"chain"`
	ClustersCount int    `json:"clusters_count"`
	OthersCount   int    `json:"others_count"`
}

type coinScoreRequest struct {
	CA    string `json:"ca"`
	Chain string `json:"chain"`
	scoreRequest
}

type coinScoreResponse struct {
	OK    bool          `json:"ok"`
	Score *domain.Score `json:"score"`
}

type coinRefQuery struct {
	CA    string `form:"ca"`
	Chain string `form:"chain"`
}

func (h *coinChildHandler) register(r gin.IRouter, admin gin.HandlerFunc) {
	r.POST("/bubbles/set", h.setBubbles)
	r.GET("/bubbles", h.bubbles)
	r.POST("/scoring", admin, h.addScore)
	r.GET("/scoring", h.scores)
}

func (h *coinChildHandler) setBubbles(c *gin.Context) {
	var req coinBubblesRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	b := &domain.Bubbles{Clusters: req.Clusters, Others: req.Others}
	out, err := h.tracker.SetCoinBubbles(c.Request.Context(), req.CA, req.Chain, b)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, coinBubblesResponse{
		OK:            true,
		CA:            out.CA,
		Chain:         out.Chain,
		ClustersCount: len(out.Clusters),
		OthersCount:   len(out.Others),
	})
}

func (h *coinChildHandler) bubbles(c *gin.Context) {
	var q coinRefQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.GetCoinBubbles(c.Request.Context(), q.CA, q.Chain)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *coinChildHandler) addScore(c *gin.Context) {
	var req coinScoreRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	score, err := req.value()
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	sc, err := h.tracker.AddCoinScore(c.Request.Context(), req.CA, req.Chain, score)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, coinScoreResponse{OK: true, Score: sc})
}

func (h *coinChildHandler) scores(c *gin.Context) {
	var q tracker.ScoreQuery
	if err := bindQuery(c, &q); err != nil {
		writeError(c, h.log, err)
		return
	}
	out, err := h.tracker.ListCoinScores(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
