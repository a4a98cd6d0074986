package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blocknex-supply-api-server/config"
	"blocknex-supply-api-server/internal/auth"
	"blocknex-supply-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(t *testing.T, handlers ...gin.HandlerFunc) (*gin.Engine, *auth.Tokens) {
	t.Helper()
	tokens, err := auth.NewTokens(config.JWTConfig{Secret: "secret", Expiration: time.Hour})
	require.NoError(t, err)
	r := gin.New()
	chain := append([]gin.HandlerFunc{Authenticate(tokens)}, handlers...)
	chain = append(chain, func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	r.GET("/x", chain...)
	return r, tokens
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	r, tokens := newRouter(t)
	token, err := tokens.GenerateJWT(models.Account{UserID: "dealer-1", Role: models.RoleDealer})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer garbage").Code)

	w := do(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dealer-1", w.Body.String())
}

func TestAuthorize(t *testing.T) {
	r, tokens := newRouter(t, Authorize(models.RoleDealer, models.RoleTrader))
	dealer, _ := tokens.GenerateJWT(models.Account{UserID: "d", Role: models.RoleDealer})
	supplier, _ := tokens.GenerateJWT(models.Account{UserID: "s", Role: models.RoleSupplier})

	assert.Equal(t, http.StatusOK, do(r, "Bearer "+dealer).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+supplier).Code)
}

func TestRateLimitPerUser(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{PerMinute: 1, Burst: 2})
	r, tokens := newRouter(t, limiter.Handler())
	a, _ := tokens.GenerateJWT(models.Account{UserID: "a", Role: models.RoleDealer})
	b, _ := tokens.GenerateJWT(models.Account{UserID: "b", Role: models.RoleDealer})

	assert.Equal(t, http.StatusOK, do(r, "Bearer "+a).Code)
	assert.Equal(t, http.StatusOK, do(r, "Bearer "+a).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "Bearer "+a).Code)
	assert.Equal(t, http.StatusOK, do(r, "Bearer "+b).Code)
}
