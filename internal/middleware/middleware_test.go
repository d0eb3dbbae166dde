package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/seller-console/internal/auth"
	"github.com/01moynul/seller-console/internal/models"
)

func newRouter(tokens *auth.TokenIssuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": SellerID(c)})
	})
	r.GET("/review", AuthMiddleware(tokens), ReviewerMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	r := newRouter(tokens)

	seller, err := tokens.GenerateToken("s1", models.RoleSeller)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Token "+seller).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer garbage").Code)

	w := do(r, "/me", "Bearer "+seller)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"s1"}`, w.Body.String())
}

func TestReviewerMiddleware(t *testing.T) {
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	r := newRouter(tokens)

	seller, _ := tokens.GenerateToken("s1", models.RoleSeller)
	reviewer, _ := tokens.GenerateToken("r1", models.RoleReviewer)

	assert.Equal(t, http.StatusForbidden, do(r, "/review", "Bearer "+seller).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/review", "Bearer "+reviewer).Code)
}
