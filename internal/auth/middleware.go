package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"memedesk/internal/domain"
)

// CookieName is the cookie checked when no bearer token is sent.
const CookieName = "admin_token"

const claimsKey = "memedesk.auth.claims"

// RequireAdmin rejects requests without a valid admin token. Failures are
// handed to fail, which is expected to write the response and abort.
func RequireAdmin(j JWT, fail func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			tok, _ = c.Cookie(CookieName)
		}
		if tok == "" {
			fail(c, domain.Unauthorized("admin_required"))
			return
		}
		claims, err := j.Verify(tok)
		if err != nil {
			msg := "invalid_token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token_expired"
			}
			fail(c, domain.Unauthorized(msg))
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the admin claims stored by RequireAdmin.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
