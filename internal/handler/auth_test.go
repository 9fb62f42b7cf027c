package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authEngine(secret string, prod bool) *gin.Engine {
	r := gin.New()
	r.GET("/api/v1/ping", TriggerAuth(secret, prod), func(c *gin.Context) { Ok(c, "pong", nil) })
	return r
}

func signed(t *testing.T, key string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "scheduler"}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	tok := jwt.NewWithClaims(method, claims)
	s, err := tok.SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestTriggerAuth(t *testing.T) {
	const secret = "s3cret-value"
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		secret  string
		prod    bool
		headers map[string]string
		want    int
	}{
		{"bearer secret", secret, true, map[string]string{"Authorization": "Bearer " + secret}, http.StatusOK},
		{"cron header", secret, true, map[string]string{"X-Cron-Secret": secret}, http.StatusOK},
		{"signed token", secret, true, map[string]string{"Authorization": "Bearer " + signed(t, secret, jwt.SigningMethodHS256, future)}, http.StatusOK},
		{"token other key", secret, true, map[string]string{"Authorization": "Bearer " + signed(t, "other", jwt.SigningMethodHS256, future)}, http.StatusUnauthorized},
		{"expired token", secret, true, map[string]string{"Authorization": "Bearer " + signed(t, secret, jwt.SigningMethodHS256, time.Now().Add(-time.Minute))}, http.StatusUnauthorized},
		{"token without expiry", secret, true, map[string]string{"Authorization": "Bearer " + signed(t, secret, jwt.SigningMethodHS256, time.Time{})}, http.StatusUnauthorized},
		{"wrong method", secret, true, map[string]string{"Authorization": "Bearer " + signed(t, secret, jwt.SigningMethodHS512, future)}, http.StatusUnauthorized},
		{"wrong secret", secret, true, map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"wrong cron header", secret, false, map[string]string{"X-Cron-Secret": "nope"}, http.StatusUnauthorized},
		{"missing", secret, false, nil, http.StatusUnauthorized},
		{"no secret dev", "", false, nil, http.StatusOK},
		{"no secret prod", "", true, map[string]string{"Authorization": "Bearer anything"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			authEngine(tt.secret, tt.prod).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("abc"))
}
