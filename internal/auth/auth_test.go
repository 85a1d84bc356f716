package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memedesk/internal/domain"
)

func TestJWT_SignVerify(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	j := JWT{Secret: []byte("s3cret"), TokenTTL: time.Hour, Now: func() time.Time { return now }}

	tok, exp, err := j.SignAdmin()
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, claims.Subject)

	other := JWT{Secret: []byte("other"), Now: j.Now}
	_, err = other.Verify(tok)
	assert.Error(t, err)

	later := JWT{Secret: j.Secret, Now: func() time.Time { return now.Add(2 * time.Hour) }}
	_, err = later.Verify(tok)
	assert.Error(t, err)
}

func TestJWT_NoSecret(t *testing.T) {
	_, _, err := JWT{}.SignAdmin()
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = JWT{}.Verify("x.y.z")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestPasswordMatches(t *testing.T) {
	assert.True(t, PasswordMatches("hunter2", "hunter2"))
	assert.False(t, PasswordMatches("hunter2", "hunter3"))
	assert.False(t, PasswordMatches("", ""))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("abc"))
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := JWT{Secret: []byte("s3cret")}
	tok, _, err := j.SignAdmin()
	require.NoError(t, err)

	var failure error
	r := gin.New()
	r.Use(RequireAdmin(j, func(c *gin.Context, err error) {
		failure = err
		c.AbortWithStatus(http.StatusUnauthorized)
	}))
	r.GET("/x", func(c *gin.Context) {
		_, ok := ClaimsFrom(c)
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
		msg    string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }, http.StatusNoContent, ""},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: tok}) }, http.StatusNoContent, ""},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, "admin_required"},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, "invalid_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure = nil
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.msg != "" {
				require.Error(t, failure)
				assert.True(t, errors.Is(failure, domain.ErrUnauthorized))
				assert.Equal(t, tt.msg, failure.Error())
			}
		})
	}
}
