package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const cronSecretHeader = "X-Cron-Secret"

// TriggerAuth gates the API. A caller presents the shared secret as a bearer
// token or in X-Cron-Secret, or a bearer HS256 JWT signed with it.
// With no secret configured every request passes outside prod and none in prod.
func TriggerAuth(secret string, prod bool) gin.HandlerFunc {
	key := []byte(strings.TrimSpace(secret))
	return func(c *gin.Context) {
		if len(key) == 0 {
			if prod {
				Error(c, http.StatusUnauthorized, "trigger secret not configured", nil)
				c.Abort()
				return
			}
			c.Next()
			return
		}
		if tok := strings.TrimSpace(c.GetHeader(cronSecretHeader)); tok != "" && secretEqual(tok, key) {
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			Error(c, http.StatusUnauthorized, "missing credentials", nil)
			c.Abort()
			return
		}
		if secretEqual(tok, key) || verifyToken(tok, key) == nil {
			c.Next()
			return
		}
		Error(c, http.StatusUnauthorized, "invalid credentials", nil)
		c.Abort()
	}
}

func secretEqual(candidate string, key []byte) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), key) == 1
}

func verifyToken(tok string, key []byte) error {
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token")
	}
	return nil
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
