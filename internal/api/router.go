// Package api exposes the tracker over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/auth"
	"memedesk/internal/domain"
	"memedesk/internal/observability"
	"memedesk/internal/storage"
	"memedesk/internal/tracker"
)

// TokenMetaLookup resolves DEX metadata for a contract address.
type TokenMetaLookup interface {
	TokenMeta(ctx context.Context, ca string) (*domain.TokenMeta, error)
}

// Deps are the collaborators of the HTTP layer. TokenMeta, Outcomes and
// Stream are optional; their routes answer 503 when unset.
type Deps struct {
	Tracker       *tracker.Service
	TokenMeta     TokenMetaLookup
	Outcomes      storage.OutcomeStore
	Stream        http.Handler
	JWT           auth.JWT
	AdminPassword string
	CORSOrigins   []string
	Logger        *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(RequestID(), Recovery(log), AccessLog(log), Metrics(), CORS(d.CORSOrigins))
	r.NoRoute(func(c *gin.Context) {
		writeError(c, log, domain.NotFound("route not found"))
	})

	admin := auth.RequireAdmin(d.JWT, func(c *gin.Context, err error) {
		writeError(c, log, err)
	})

	r.GET("/metrics", gin.WrapH(observability.Handler()))

	(&healthHandler{tracker: d.Tracker, log: log}).register(r)
	(&authHandler{jwt: d.JWT, password: d.AdminPassword, log: log}).register(r)
	(&coinHandler{tracker: d.Tracker, log: log}).register(r, admin)
	(&tradeHandler{tracker: d.Tracker, log: log}).register(r)
	(&tipHandler{tracker: d.Tracker, log: log}).register(r)
	(&accountHandler{tracker: d.Tracker, log: log}).register(r)
	(&coinChildHandler{tracker: d.Tracker, log: log}).register(r, admin)
	(&wizardHandler{tracker: d.Tracker, log: log}).register(r, admin)
	(&contextHandler{tracker: d.Tracker, log: log}).register(r)
	(&marketHandler{meta: d.TokenMeta, outcomes: d.Outcomes, log: log}).register(r)

	r.GET("/stream", func(c *gin.Context) {
		if d.Stream == nil {
			writeError(c, log, domain.Unavailable("stream disabled"))
			return
		}
		d.Stream.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
