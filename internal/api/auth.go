package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memedesk/internal/auth"
	"memedesk/internal/domain"
)

type authHandler struct {
	jwt      auth.JWT
	password string
	log      *zap.Logger
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	OK        bool   `json:"ok"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *authHandler) register(r gin.IRouter) {
	r.POST("/auth/login", h.login)
}

func (h *authHandler) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	if h.password == "" {
		writeError(c, h.log, domain.Unavailable("admin login not configured"))
		return
	}
	if !auth.PasswordMatches(h.password, req.Password) {
		writeError(c, h.log, domain.Unauthorized("invalid_password"))
		return
	}
	tok, exp, err := h.jwt.SignAdmin()
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	ttl := int64(time.Until(exp).Round(time.Second).Seconds())
	if h.jwt.Now != nil {
		ttl = int64(exp.Sub(h.jwt.Now()).Seconds())
	}
	c.JSON(http.StatusOK, loginResponse{OK: true, Token: tok, ExpiresIn: ttl})
}
